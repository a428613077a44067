package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"todoke/internal/compress"
	"todoke/internal/request"
	"todoke/internal/resource"
	"todoke/internal/response"
)

const (
	readChunkSize = 4096

	// defaultMaxRequestBytes を超えるリクエストは不正として扱う
	defaultMaxRequestBytes = 1 << 20

	// defaultDrainTimeout は最初の読み込み以降、続きのバイトを待つ時間
	// これを過ぎても届かないものは「すぐには読めない」とみなす
	defaultDrainTimeout = 20 * time.Millisecond

	htmlContentType = "text/html"
)

// ErrRequestTooLarge はリクエストが上限を超えた場合に返される
var ErrRequestTooLarge = errors.New("リクエストが大きすぎます")

// handleConnection は1接続分の処理を行い、最後に必ず接続を閉じる
func (s *Server) handleConnection(conn net.Conn) {
	defer func() { _ = conn.Close() }()

	log := s.logger.With(
		zap.String("conn_id", uuid.NewString()),
		zap.String("remote", conn.RemoteAddr().String()),
	)

	raw, err := readRequest(conn, s.maxRequestBytes, s.drainTimeout)
	if err != nil {
		s.stats.readErrors.Add(1)
		log.Warn("リクエストの受信でエラーが発生しました", zap.Error(err))
		return
	}
	if len(raw) == 0 {
		return
	}

	req, err := request.Parse(raw)
	if err != nil {
		s.stats.malformed.Add(1)
		log.Warn("リクエストの受信でエラーが発生しました", zap.Error(err))
		return
	}

	log = log.With(
		zap.String("method", string(req.Method)),
		zap.String("path", req.Path),
		zap.String("user_agent", req.UserAgent()),
	)

	d, found := s.describe(req, log)
	if found {
		s.stats.served.Add(1)
		log.Info("リクエストを処理しました")
	} else {
		s.stats.notFound.Add(1)
		log.Info(`Error (404): "Not found"`)
	}

	result, err := response.Send(conn, d)
	s.stats.bytesSent.Add(result.BodyBytes)
	if err != nil {
		s.stats.writeErrors.Add(1)
		log.Error("レスポンスの送信でエラーが発生しました", zap.Error(err))
	}
}

// describe はリクエストに対するレスポンス記述子を組み立てる
// 2番目の戻り値はリソースが見つかったかどうか
func (s *Server) describe(req *request.Request, log *zap.Logger) (*response.Descriptor, bool) {
	now := response.FormatTime(time.Now())

	var (
		d     *response.Descriptor
		found = true
	)

	switch r := s.resolver.Resolve(req.Path).(type) {
	case resource.RegularFile:
		d = s.fileDescriptor(req, r.Path, compress.ContentType(r.Path), now, log)
	case resource.DirectoryWithIndex:
		d = s.fileDescriptor(req, r.IndexPath, htmlContentType, now, log)
	case resource.DirectoryListing:
		d = &response.Descriptor{
			Status:   response.StatusOK,
			Protocol: req.Protocol,
			Body:     response.BytesBody{Data: resource.RenderListing(r)},
		}
		d.AddHeader(response.HeaderContentType, htmlContentType)
		d.AddHeader(response.HeaderDate, now)
		addLastModified(d, r.Dir)
		s.policy.ApplyWire(req, d)
	default:
		found = false
		d = s.notFoundDescriptor(req, now, log)
	}

	d.OmitBody = req.Method == request.MethodHead

	return d, found
}

// fileDescriptor はファイルを本文とする200レスポンスを組み立てる
func (s *Server) fileDescriptor(req *request.Request, path, contentType, now string, log *zap.Logger) *response.Descriptor {
	d := &response.Descriptor{
		Status:   response.StatusOK,
		Protocol: req.Protocol,
		Body:     response.FileBody{Path: path},
	}
	d.AddHeader(response.HeaderContentType, contentType)
	d.AddHeader(response.HeaderDate, now)
	addLastModified(d, path)

	s.applyPolicy(req, d, log)
	return d
}

// notFoundDescriptor は404レスポンスを組み立てる
// 404ページのファイルがなければ埋め込みページを使う
func (s *Server) notFoundDescriptor(req *request.Request, now string, log *zap.Logger) *response.Descriptor {
	d := &response.Descriptor{
		Status:   response.StatusNotFound,
		Protocol: req.Protocol,
	}
	d.AddHeader(response.HeaderContentType, htmlContentType)
	d.AddHeader(response.HeaderDate, now)

	if info, err := os.Stat(s.notFoundPath); err == nil && info.Mode().IsRegular() {
		d.Body = response.FileBody{Path: s.notFoundPath}
		s.applyPolicy(req, d, log)
		return d
	}

	d.Body = response.BytesBody{Data: s.defaultNotFound}
	s.policy.ApplyWire(req, d)
	return d
}

// applyPolicy は圧縮ポリシーを適用して集計する
// サイドカーの作成に失敗した場合は非圧縮のまま送る
func (s *Server) applyPolicy(req *request.Request, d *response.Descriptor, log *zap.Logger) {
	decision, err := s.policy.Apply(req, d)
	if err != nil {
		s.stats.compressErrors.Add(1)
		log.Warn("圧縮に失敗したため非圧縮で送信します", zap.Error(err))
		return
	}

	switch decision {
	case compress.Created:
		s.stats.sidecarsCreated.Add(1)
	case compress.Reused:
		s.stats.sidecarsReused.Add(1)
	}
}

func addLastModified(d *response.Descriptor, path string) {
	if info, err := os.Stat(path); err == nil {
		d.AddHeader(response.HeaderLastModified, response.FormatTime(info.ModTime()))
	}
}

// readRequest は接続からすぐに読めるバイトをすべて読み込む
//
// 最初の読み込みはデータが届くまでブロックする。
// 以降はヘッダーと（Content-Length があれば）本文が揃うまで、
// drain の間隔で届くものだけを読み足す。
func readRequest(conn net.Conn, limit int, drain time.Duration) ([]byte, error) {
	buf := make([]byte, readChunkSize)

	n, err := conn.Read(buf)
	raw := append([]byte(nil), buf[:n]...)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return raw, nil
		}
		return nil, fmt.Errorf("読み込みに失敗: %w", err)
	}

	for !requestComplete(raw) {
		if len(raw) > limit {
			return nil, ErrRequestTooLarge
		}

		if err := conn.SetReadDeadline(time.Now().Add(drain)); err != nil {
			return nil, fmt.Errorf("読み込み期限の設定に失敗: %w", err)
		}
		n, err := conn.Read(buf)
		raw = append(raw, buf[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrDeadlineExceeded) {
				break
			}
			return nil, fmt.Errorf("読み込みに失敗: %w", err)
		}
	}

	if len(raw) > limit {
		return nil, ErrRequestTooLarge
	}
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return nil, fmt.Errorf("読み込み期限の解除に失敗: %w", err)
	}

	return raw, nil
}

var (
	headerEnd           = []byte("\r\n\r\n")
	contentLengthPrefix = []byte("content-length:")
)

// requestComplete はヘッダーの終端があり、Content-Length 分の本文が揃っているかを返す
func requestComplete(raw []byte) bool {
	end := bytes.Index(raw, headerEnd)
	if end < 0 {
		return false
	}

	for _, line := range bytes.Split(raw[:end], []byte("\r\n"))[1:] {
		if len(line) < len(contentLengthPrefix) || !bytes.EqualFold(line[:len(contentLengthPrefix)], contentLengthPrefix) {
			continue
		}
		length, err := strconv.Atoi(string(bytes.TrimSpace(line[len(contentLengthPrefix):])))
		if err != nil || length < 0 {
			return true
		}
		return len(raw)-(end+len(headerEnd)) >= length
	}

	return true
}
