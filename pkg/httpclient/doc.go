// Package httpclient はHTTP経由のJSON通信を行うクライアントを提供する。
//
// アラートエンジンから注文ストアへのスナップショット取得・変更フィードの
// ポーリング、および SMS / WhatsApp / メールゲートウェイへの
// 送信リクエストなど、外部との通信パターンを統一する。
package httpclient
