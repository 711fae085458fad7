// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// パニックリカバリ、リクエストIDの付与、zerologによるリクエストログ、
// CORS設定など、リレーサーバーの全ルートで共通して使用するミドルウェアを含む。
package middleware
