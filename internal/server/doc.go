// Package server は静的ファイルを配信するTCPサーバーを管理します。
//
// このパッケージは、待ち受けソケットとワーカープールを持ち、
// 受け付けた接続ごとに 解析 → 解決 → 圧縮判定 → 送信 を同期的に実行します。
//
// 責務:
//   - 待ち受けソケットの管理と受け付けループ
//   - ワーカープールへの接続処理の投入（満杯時は受け付けを止める）
//   - 接続ごとのリクエスト処理とログ出力
//   - 404ページの配信
//   - 処理件数などの統計の集計
//
// 仕様:
//   - 1接続につき1リクエスト（keep-alive なし）
//   - 読み込み・書き込みのタイムアウトなし
//   - 失敗した接続は再試行せずに閉じる（他の接続には影響しない）
package server
