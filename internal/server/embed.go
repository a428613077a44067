package server

import (
	"embed"
	"fmt"
)

//go:embed assets/notfound.html
var embedFS embed.FS

// getDefaultNotFoundHTML は404ページが用意されていない場合に使う埋め込みページを返す
func getDefaultNotFoundHTML() []byte {
	data, err := embedFS.ReadFile("assets/notfound.html")
	if err != nil {
		panic(fmt.Sprintf("埋め込み404ページの読み込みに失敗: %v", err))
	}
	return data
}
