// Package httpclient は外部APIとのJSON形式のHTTP通信を行うクライアントを提供する。
//
// 1inch APIへのリレーやWorldIDの検証APIの呼び出しに使用する。
// 全リクエストに付与する固定ヘッダー（Authorization等）とタイムアウトを
// クライアント単位で設定し、リクエストIDをコンテキスト経由で伝播する。
package httpclient
