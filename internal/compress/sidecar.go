package compress

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
)

// SidecarExt はgzip圧縮済みファイルの拡張子
const SidecarExt = ".gz"

// TempFilePrefix は圧縮中の一時ファイル名の接頭辞
// この名前のファイルは配信も一覧表示もしない
const TempFilePrefix = ".todoke-partial-"

const copyBufferSize = 2048

// SidecarPath は元ファイルに対応するサイドカーのパスを返す
func SidecarPath(path string) string {
	return path + SidecarExt
}

// CompressFile は src をgzip圧縮してサイドカーを作成し、そのパスを返す
//
// 同じディレクトリの一時ファイルに書き出してからリネームするため、
// 他のリクエストが書きかけのサイドカーを読むことはない。
// 同じファイルへの同時リクエストはそれぞれ圧縮し、後勝ちで上書きされる。
func CompressFile(src string) (dst string, err error) {
	dst = SidecarPath(src)

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("圧縮元を開けません: %w", err)
	}
	defer func() {
		err = multierr.Append(err, in.Close())
	}()

	tmp, err := os.CreateTemp(filepath.Dir(src), TempFilePrefix+filepath.Base(src)+".*"+SidecarExt)
	if err != nil {
		return "", fmt.Errorf("一時ファイルを作成できません: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := writeGzip(tmp, in); err != nil {
		return "", multierr.Append(fmt.Errorf("圧縮に失敗: %w", err), tmp.Close())
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("一時ファイルを閉じられません: %w", err)
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("サイドカーの配置に失敗: %w", err)
	}

	return dst, nil
}

// writeGzip は固定長バッファで r を圧縮しながら w へ書き出す
func writeGzip(w io.Writer, r io.Reader) error {
	gz := gzip.NewWriter(w)
	if _, err := io.CopyBuffer(gz, r, make([]byte, copyBufferSize)); err != nil {
		return multierr.Append(err, gz.Close())
	}
	return gz.Close()
}
