// Package worldid はWorldIDの証明（proof）を開発者APIで検証する。
//
// 証明の中身は解釈せず、設定されたアクションIDを付与して
// https://developer.worldcoin.org/api/v1/verify/{app_id} にそのまま転送する。
// 検証結果はキャッシュせず、呼び出しごとに外部APIへ問い合わせる。
package worldid
