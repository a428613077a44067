package compress

import (
	"strconv"
	"strings"
)

const (
	codingGzip     = "gzip"
	codingXGzip    = "x-gzip"
	codingWildcard = "*"
)

// encoding は Accept-Encoding の1要素
type encoding struct {
	coding  string
	quality float64
}

// parseAcceptEncoding は Accept-Encoding ヘッダーを要素ごとに分解する
// q値が解釈できない要素は q=0（拒否）として扱う
func parseAcceptEncoding(header string) []encoding {
	var encodings []encoding
	for _, element := range strings.Split(header, ",") {
		coding, params, _ := strings.Cut(element, ";")
		coding = strings.ToLower(strings.TrimSpace(coding))
		if coding == "" {
			continue
		}

		quality := 1.0
		for _, param := range strings.Split(params, ";") {
			name, value, found := strings.Cut(strings.TrimSpace(param), "=")
			if !found || !strings.EqualFold(strings.TrimSpace(name), "q") {
				continue
			}
			q, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil || q < 0 || q > 1 {
				q = 0
			}
			quality = q
		}

		encodings = append(encodings, encoding{coding: coding, quality: quality})
	}
	return encodings
}

// AcceptsGzip はクライアントがgzipを受け入れるかを判定する
// gzip が明示的に q=0 で拒否されている場合は "*" があっても受け入れない
func AcceptsGzip(header string) bool {
	gzipQuality, wildcardQuality := -1.0, -1.0
	for _, e := range parseAcceptEncoding(header) {
		switch e.coding {
		case codingGzip, codingXGzip:
			if e.quality > gzipQuality {
				gzipQuality = e.quality
			}
		case codingWildcard:
			wildcardQuality = e.quality
		}
	}

	if gzipQuality >= 0 {
		return gzipQuality > 0
	}
	return wildcardQuality > 0
}
