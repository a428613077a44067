package compress

import (
	"mime"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// compressibleTypes は圧縮対象とするメディアタイプ
var compressibleTypes = map[string]struct{}{
	"text/plain":             {},
	"text/css":               {},
	"text/csv":               {},
	"text/html":              {},
	"text/calendar":          {},
	"text/javascript":        {},
	"text/xml":               {},
	"application/json":       {},
	"application/xml":        {},
	"application/javascript": {},
	"image/svg+xml":          {},
}

// ContentType はファイルのメディアタイプを返す
// 拡張子から判定できない場合は内容から推定する
func ContentType(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "application/octet-stream"
	}
	return mt.String()
}

// Compressible はメディアタイプが圧縮対象かを返す
// charset などのパラメータは無視する
func Compressible(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	_, ok := compressibleTypes[mediaType]
	return ok
}
