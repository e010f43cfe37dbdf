// Package alert は注文スナップショットからの通知導出を提供する。
//
// 納期が近い注文・納期を過ぎた注文を検出し、重複のない通知集合を
// 生成する。計算は純粋関数として実装されており、同じスナップショットと
// 時刻からは常に同じ結果が得られる。通知のIDは (種類, 注文ID) から
// 決定的に導出され、再計算をまたいだ既読状態の引き継ぎに使用される。
package alert
