// Package reconcile は通知集合の鮮度を維持する再計算ループを提供する。
//
// 変更購読からのプッシュイベントと固定間隔のタイマーという独立した
// 2つのトリガーを単一のスケジューラに合流させ、同時に実行される
// 取得パスを常に1つに保つ。各パスは取得→計算→公開を逐次実行し、
// 消費者に届く最終状態は必ず最新のスナップショットを反映する。
// 停止後に完了したパスの結果は公開されずに破棄される。
package reconcile
