// Package request は接続から読み取った生のバイト列をHTTPリクエストに変換する
package request

import (
	"errors"
	"fmt"
	"strings"
)

// 解析エラー
// 個別のエラーはすべて ErrMalformedRequest をラップする
var (
	ErrMalformedRequest     = errors.New("不正なリクエスト")
	ErrEmptyRequest         = errors.New("空のリクエスト")
	ErrMalformedRequestLine = fmt.Errorf("%w: リクエスト行", ErrMalformedRequest)
	ErrUnknownMethod        = fmt.Errorf("%w: 未知のメソッド", ErrMalformedRequest)
	ErrMalformedHeader      = fmt.Errorf("%w: ヘッダー行", ErrMalformedRequest)
)

const (
	lineTerminator  = "\r\n"
	headerSeparator = ": "
)

// Method はHTTPメソッド
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
	MethodPatch   Method = "PATCH"
	MethodTrace   Method = "TRACE"
	MethodConnect Method = "CONNECT"
)

var knownMethods = map[Method]struct{}{
	MethodGet:     {},
	MethodPost:    {},
	MethodPut:     {},
	MethodDelete:  {},
	MethodHead:    {},
	MethodOptions: {},
	MethodPatch:   {},
	MethodTrace:   {},
	MethodConnect: {},
}

// ParseMethod はメソッド名を Method に変換する
// 大文字小文字は区別する
func ParseMethod(s string) (Method, error) {
	m := Method(s)
	if _, ok := knownMethods[m]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
	return m, nil
}

// Request は解析済みのHTTPリクエスト
// 作成後は変更しない
type Request struct {
	Method   Method
	Path     string            // リクエストターゲット（ルートとは未結合）
	Protocol string            // 例: "HTTP/1.1"
	Headers  map[string]string // 名前は大文字小文字を区別、重複時は後勝ち
	Body     string
}

// Header は名前が完全一致するヘッダーの値を返す
func (r *Request) Header(name string) string {
	return r.Headers[name]
}

// UserAgent は User-Agent ヘッダーの値を返す
func (r *Request) UserAgent() string {
	return r.Header("User-Agent")
}

// Parse は生のリクエストを解析する
func Parse(raw []byte) (*Request, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyRequest
	}

	lines := strings.Split(string(raw), lineTerminator)

	tokens := strings.Split(lines[0], " ")
	if len(tokens) != 3 {
		return nil, fmt.Errorf("%w: %q", ErrMalformedRequestLine, lines[0])
	}

	method, err := ParseMethod(tokens[0])
	if err != nil {
		return nil, err
	}

	req := &Request{
		Method:   method,
		Path:     tokens[1],
		Protocol: tokens[2],
		Headers:  make(map[string]string),
	}
	if req.Path == "" || req.Protocol == "" {
		return nil, fmt.Errorf("%w: %q", ErrMalformedRequestLine, lines[0])
	}

	// 空行までがヘッダー
	i := 1
	for ; i < len(lines); i++ {
		line := lines[i]
		if line == "" {
			i++
			break
		}

		name, value, found := strings.Cut(line, headerSeparator)
		if !found || name == "" {
			return nil, fmt.Errorf("%w: %q", ErrMalformedHeader, line)
		}
		req.Headers[name] = value
	}

	// 残りはすべて本文（改行は除去して連結）
	if i < len(lines) {
		req.Body = strings.Join(lines[i:], "")
	}

	return req, nil
}
