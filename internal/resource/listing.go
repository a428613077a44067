package resource

import (
	"bytes"
	"fmt"
	"html"
	"net/url"
	"path"
)

// RenderListing はディレクトリ一覧のHTML断片を生成する
// 子要素ごとに1行の <a> タグを出力し、順序は列挙順のまま
func RenderListing(listing DirectoryListing) []byte {
	var buf bytes.Buffer
	for _, name := range listing.Entries {
		href := (&url.URL{Path: path.Join(listing.URLPath, name)}).EscapedPath()
		fmt.Fprintf(&buf, "<a href=\"%s\">%s</a> </br>\n", html.EscapeString(href), html.EscapeString(name))
	}
	return buf.Bytes()
}
