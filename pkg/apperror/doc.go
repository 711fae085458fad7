// Package apperror はHTTP境界で扱うエラーの分類を提供する。
//
// 不正なリクエスト（BadRequest）、外部APIが返したエラー（Upstream）、
// それ以外の内部エラー（Internal）の3種類に分類し、
// それぞれをHTTPステータスコードに対応付ける。
package apperror
