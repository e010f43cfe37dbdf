// Package dispatch は通知メッセージの外部チャネルへの配信を提供する。
//
// テンプレートからのメッセージ生成、携帯番号の国際形式への正規化、
// SMS / WhatsApp / メールゲートウェイへの送信を担当する。送信の失敗は
// 受信者ごとに隔離され、呼び出し元には成否のみが返るため、
// 1件の失敗が残りの配信を中断させることはない。
package dispatch
