// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// オペレーター向けJWT認証トークンの検証と発行、パニックリカバリ、
// CORS設定など、注文ストア・アラートの両サービスで共通して
// 使用するミドルウェアを含む。
package middleware
