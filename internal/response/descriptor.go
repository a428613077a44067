// Package response はレスポンス記述子と、それを接続へ書き出すビルダーを提供する
package response

import (
	"strconv"
	"strings"
	"time"
)

// ヘッダー名
const (
	HeaderContentType     = "content-type"
	HeaderContentLength   = "content-length"
	HeaderContentEncoding = "content-encoding"
	HeaderDate            = "date"
	HeaderLastModified    = "last-modified"
)

// Status はレスポンスのステータス
type Status int

const (
	StatusOK       Status = 200
	StatusNotFound Status = 404
)

// Code は数値のステータスコードを返す
func (s Status) Code() int {
	return int(s)
}

// Reason は理由句を返す
// 既存クライアントとの互換のため列挙名をそのまま使う（"Not Found" ではなく "NOT_FOUND"）
func (s Status) Reason() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusNotFound:
		return "NOT_FOUND"
	default:
		return "UNKNOWN"
	}
}

// String はステータス行で使う "200 OK" 形式の文字列を返す
func (s Status) String() string {
	return strconv.Itoa(s.Code()) + " " + s.Reason()
}

// Body はレスポンス本文のソース
// 実装は FileBody と BytesBody に限られる
type Body interface {
	body()
}

// FileBody はファイルから本文を流し込む
type FileBody struct {
	Path string
}

// BytesBody はメモリ上で生成した本文（ディレクトリ一覧など）
type BytesBody struct {
	Data []byte
}

func (FileBody) body()  {}
func (BytesBody) body() {}

// Descriptor はレスポンスの内容を表す
// 解決処理と圧縮ポリシーが順にヘッダーを追加し、Send に渡した後は変更しない
type Descriptor struct {
	Status   Status
	Protocol string   // リクエストのプロトコルをそのまま返す
	Headers  []string // "name: value" 形式、重複可
	Body     Body

	// WireGzip が true の場合、本文をgzipエンコーダで包んで送る
	WireGzip bool

	// OmitBody が true の場合、ヘッダーのみ送る（HEAD）
	OmitBody bool
}

// AddHeader はヘッダーを追加する
func (d *Descriptor) AddHeader(name, value string) {
	d.Headers = append(d.Headers, name+": "+value)
}

// HeaderValue は指定した名前の最初のヘッダー値を返す
func (d *Descriptor) HeaderValue(name string) (string, bool) {
	for _, h := range d.Headers {
		n, v, ok := strings.Cut(h, ": ")
		if ok && strings.EqualFold(n, name) {
			return v, true
		}
	}
	return "", false
}

// TimeFormat はHTTP-date（IMF-fixdate）の書式
const TimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// FormatTime はHTTP-date形式で時刻を整形する
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}
