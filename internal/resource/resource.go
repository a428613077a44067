// Package resource はリクエストパスをサーバールート配下のファイルシステム上の結果に対応付ける
//
// 結果は次のいずれか:
//   - RegularFile: 通常ファイル
//   - DirectoryWithIndex: index.html を持つディレクトリ
//   - DirectoryListing: 一覧表示するディレクトリ
//   - Missing: 見つからない（ルート外を指すパスも含む）
//
// 解決されたパスは常にサーバールート配下に収まる。
// ".." による脱出やルート外へのシンボリックリンクは Missing として扱う。
package resource

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"todoke/internal/compress"
)

// IndexFileName はディレクトリ一覧の代わりに配信するファイル名
const IndexFileName = "index.html"

// Resolved は解決結果を表す
// 実装はこのパッケージ内の型に限られる
type Resolved interface {
	resolved()
}

// RegularFile は通常ファイル
type RegularFile struct {
	Path string
}

// DirectoryWithIndex は index.html を持つディレクトリ
type DirectoryWithIndex struct {
	Dir       string
	IndexPath string
}

// DirectoryListing は一覧表示するディレクトリ
type DirectoryListing struct {
	Dir     string
	URLPath string   // リクエスト上のディレクトリパス（"/" 始まり）
	Entries []string // 直下の子要素名（ディレクトリの列挙順）
}

// Missing は見つからないリソース
type Missing struct{}

func (RegularFile) resolved()        {}
func (DirectoryWithIndex) resolved() {}
func (DirectoryListing) resolved()   {}
func (Missing) resolved()            {}

// Resolver はサーバールートに対してリクエストパスを解決する
type Resolver struct {
	root                 string
	showDirectoryListing bool
}

// NewResolver は新しいResolverを作成する
// root は絶対パス化し、シンボリックリンクを展開して保持する
func NewResolver(root string, showDirectoryListing bool) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("サーバールートの絶対パス化に失敗: %w", err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("サーバールートの解決に失敗: %w", err)
	}

	return &Resolver{
		root:                 canonical,
		showDirectoryListing: showDirectoryListing,
	}, nil
}

// Root は正規化済みのサーバールートを返す
func (r *Resolver) Root() string {
	return r.root
}

// Resolve はリクエストパスを解決する
func (r *Resolver) Resolve(requestPath string) Resolved {
	urlPath, ok := cleanRequestPath(requestPath)
	if !ok || isPartial(path.Base(urlPath)) {
		return Missing{}
	}

	joined := filepath.Join(r.root, filepath.FromSlash(urlPath))
	if !r.contains(joined) {
		return Missing{}
	}

	info, err := os.Stat(joined)
	if err != nil {
		return Missing{}
	}

	if info.Mode().IsRegular() {
		return RegularFile{Path: joined}
	}
	if !info.IsDir() {
		return Missing{}
	}

	indexPath := filepath.Join(joined, IndexFileName)
	if indexInfo, err := os.Stat(indexPath); err == nil && indexInfo.Mode().IsRegular() && r.contains(indexPath) {
		return DirectoryWithIndex{Dir: joined, IndexPath: indexPath}
	}

	if !r.showDirectoryListing {
		return Missing{}
	}

	entries, err := readDirNames(joined)
	if err != nil {
		return Missing{}
	}

	return DirectoryListing{Dir: joined, URLPath: urlPath, Entries: entries}
}

// contains はシンボリックリンク展開後のパスがルート配下にあるかを確認する
func (r *Resolver) contains(p string) bool {
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(r.root, resolved)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// cleanRequestPath はクエリとフラグメントを除き、デコードしてから正規化する
// 正規化はルートを起点に行うため ".." でルートより上には出られない
func cleanRequestPath(target string) (string, bool) {
	if i := strings.IndexAny(target, "?#"); i >= 0 {
		target = target[:i]
	}

	decoded, err := url.PathUnescape(target)
	if err != nil {
		return "", false
	}
	if strings.ContainsRune(decoded, 0) {
		return "", false
	}

	return path.Clean("/" + decoded), true
}

// readDirNames は直下の子要素名を列挙順のまま返す（ソートしない）
func readDirNames(dir string) ([]string, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	names, err := f.Readdirnames(-1)
	if err != nil {
		return nil, err
	}

	// 書きかけのサイドカーは一覧に出さない
	entries := names[:0]
	for _, name := range names {
		if !isPartial(name) {
			entries = append(entries, name)
		}
	}
	return entries, nil
}

// isPartial は圧縮中の一時ファイル名かを返す
func isPartial(name string) bool {
	return strings.HasPrefix(name, compress.TempFilePrefix)
}
