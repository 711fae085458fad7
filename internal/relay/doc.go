// Package relay はリレーサーバーの内部実装を提供する。
//
// クエリパラメータurlで指定された1inch APIへリクエストを転送し、
// サーバー側で保持するAuthorizationヘッダーを付与する。
// 転送先は https://api.1inch.dev に限定し、それ以外のURLはハンドラに到達する前に拒否する。
// 加えて、WorldIDの証明を検証APIへ転送するエンドポイントを提供する。
package relay
