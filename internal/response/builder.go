package response

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"go.uber.org/multierr"
)

// BufferSize はファイル本文を流し込む際のバッファサイズ
const BufferSize = 2048

// ErrNoBody は本文ソースが設定されていない場合に返される
var ErrNoBody = errors.New("本文ソースがありません")

// Result は送信結果
type Result struct {
	BodyBytes int64 // 本文として書き出したバイト数（gzip包装時は圧縮前）
}

// Send はレスポンスを接続へ書き出し、最後に必ず接続を閉じる
// 本文の書き込みに失敗した場合もフラッシュとクローズを行い、エラーをまとめて返す
func Send(conn io.WriteCloser, d *Descriptor) (result Result, err error) {
	defer func() {
		err = multierr.Append(err, conn.Close())
	}()

	src, size, err := openBody(d.Body)
	if err != nil {
		return result, err
	}
	defer func() {
		if c, ok := src.(io.Closer); ok {
			err = multierr.Append(err, c.Close())
		}
	}()

	w := bufio.NewWriterSize(conn, BufferSize)
	defer func() {
		err = multierr.Append(err, w.Flush())
	}()

	contentLength := int64(-1)
	if !d.WireGzip {
		contentLength = size
	}
	if err := writeHead(w, d, contentLength); err != nil {
		return result, fmt.Errorf("ヘッダーの送信に失敗: %w", err)
	}

	if d.OmitBody {
		return result, nil
	}

	n, err := writeBody(w, src, d.WireGzip)
	result.BodyBytes = n
	if err != nil {
		return result, fmt.Errorf("本文の送信に失敗: %w", err)
	}

	return result, nil
}

// openBody は本文ソースを開き、サイズとともに返す
func openBody(body Body) (io.Reader, int64, error) {
	switch b := body.(type) {
	case FileBody:
		f, err := os.Open(b.Path)
		if err != nil {
			return nil, 0, fmt.Errorf("ファイルを開けません: %w", err)
		}
		info, err := f.Stat()
		if err != nil {
			return nil, 0, multierr.Append(fmt.Errorf("ファイル情報を取得できません: %w", err), f.Close())
		}
		return f, info.Size(), nil
	case BytesBody:
		return bytes.NewReader(b.Data), int64(len(b.Data)), nil
	default:
		return nil, 0, ErrNoBody
	}
}

// writeHead はステータス行とヘッダー、空行を書き出す
// contentLength が負の場合は content-length を付けない
func writeHead(w *bufio.Writer, d *Descriptor, contentLength int64) error {
	if _, err := w.WriteString(d.Protocol + " " + d.Status.String() + "\r\n"); err != nil {
		return err
	}
	for _, h := range d.Headers {
		if _, err := w.WriteString(h + "\r\n"); err != nil {
			return err
		}
	}
	if contentLength >= 0 {
		if _, err := w.WriteString(HeaderContentLength + ": " + strconv.FormatInt(contentLength, 10) + "\r\n"); err != nil {
			return err
		}
	}
	_, err := w.WriteString("\r\n")
	return err
}

// writeBody は本文を書き出す
func writeBody(w io.Writer, src io.Reader, wireGzip bool) (int64, error) {
	buf := make([]byte, BufferSize)
	if !wireGzip {
		return io.CopyBuffer(w, src, buf)
	}

	gz := gzip.NewWriter(w)
	n, err := io.CopyBuffer(gz, src, buf)
	return n, multierr.Append(err, gz.Close())
}
