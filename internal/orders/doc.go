// Package orders は注文ストアサービスの内部実装を提供する。
//
// 注文のCRUDに加えて、アラートエンジン向けの読み取り専用APIを公開する。
// アクティブ注文のスナップショット取得と、日時指定による変更フィードの
// 2つで、すべての注文変更はCRUD操作と同一トランザクションで
// 変更フィードに記録される。
package orders
