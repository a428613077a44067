// Package compress はレスポンス本文をgzipで送るかどうかを決める
//
// 判定は次の順で行う:
//   - SendCompressedIfAccepted が無効、またはクライアントがgzipを受け入れない場合は何もしない
//   - サイドカー（元ファイル + ".gz"）があればそれを送る
//   - CompressOnFly が有効でメディアタイプが圧縮対象なら、その場でサイドカーを作って送る
//
// 作成したサイドカーは無効化せず、以降のリクエストで再利用する。
package compress

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"todoke/internal/request"
	"todoke/internal/response"
)

// HeaderAcceptEncoding はリクエスト側のヘッダー名
const HeaderAcceptEncoding = "Accept-Encoding"

// ErrNotFileBody はファイル以外の本文に Apply を使った場合に返される
var ErrNotFileBody = errors.New("本文がファイルではありません")

// Policy は圧縮ポリシー
type Policy struct {
	SendCompressedIfAccepted bool
	CompressOnFly            bool

	logger *zap.Logger
}

// NewPolicy は新しいPolicyを作成する
func NewPolicy(sendCompressedIfAccepted, compressOnFly bool, logger *zap.Logger) *Policy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Policy{
		SendCompressedIfAccepted: sendCompressedIfAccepted,
		CompressOnFly:            compressOnFly,
		logger:                   logger,
	}
}

// Decision は Apply の判定結果
type Decision int

const (
	Unchanged Decision = iota // 非圧縮のまま送る
	Reused                    // 既存のサイドカーを送る
	Created                   // サイドカーを作成して送る
)

func (d Decision) String() string {
	switch d {
	case Reused:
		return "reused"
	case Created:
		return "created"
	default:
		return "unchanged"
	}
}

func (p *Policy) enabledFor(req *request.Request) bool {
	return p.SendCompressedIfAccepted && AcceptsGzip(req.Header(HeaderAcceptEncoding))
}

// Apply はファイル本文の記述子に圧縮ポリシーを適用する
// 圧縮する場合は本文をサイドカーに差し替え、content-encoding を追加する
func (p *Policy) Apply(req *request.Request, d *response.Descriptor) (Decision, error) {
	file, ok := d.Body.(response.FileBody)
	if !ok {
		return Unchanged, ErrNotFileBody
	}

	if !p.enabledFor(req) {
		return Unchanged, nil
	}

	sidecar := SidecarPath(file.Path)
	if info, err := os.Stat(sidecar); err == nil && info.Mode().IsRegular() {
		d.Body = response.FileBody{Path: sidecar}
		d.AddHeader(response.HeaderContentEncoding, "gzip")
		return Reused, nil
	}

	if !p.CompressOnFly || !Compressible(ContentType(file.Path)) {
		return Unchanged, nil
	}

	created, err := CompressFile(file.Path)
	if err != nil {
		return Unchanged, fmt.Errorf("サイドカーの作成に失敗: %w", err)
	}
	p.logger.Debug("サイドカーを作成しました", zap.String("path", created))

	d.Body = response.FileBody{Path: created}
	d.AddHeader(response.HeaderContentEncoding, "gzip")
	return Created, nil
}

// ApplyWire はメモリ上で生成した本文を送信時にgzipで包むかを決める
// 生成した本文はサイドカーを持たないため、CompressOnFly が有効な場合に限る
func (p *Policy) ApplyWire(req *request.Request, d *response.Descriptor) bool {
	if _, ok := d.Body.(response.BytesBody); !ok {
		return false
	}
	if !p.enabledFor(req) || !p.CompressOnFly {
		return false
	}

	d.WireGzip = true
	d.AddHeader(response.HeaderContentEncoding, "gzip")
	return true
}
