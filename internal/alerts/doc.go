// Package alerts は納期アラートサービスの内部実装を提供する。
//
// 注文ストアサービスから取得した注文スナップショットをもとに
// 期限超過・期限間近のアラートを導出し、既読管理付きの一覧APIとして
// 公開する。再計算は調整ループが担い、変更フィードのポーリングと
// 定期タイマーの両方でトリガーされる。アラートや任意テンプレートの
// メッセージをSMS・WhatsApp・メールの各ゲートウェイへ送信するAPIも持つ。
package alerts
