// Package readstate は通知の既読状態をセッション内で追跡する。
//
// 通知は再計算のたびに作り直される一時データであるため、既読フラグは
// 通知ID（決定的に導出される識別子）をキーとしてこのパッケージが
// 保持し、計算結果にマージして返す。未読数は常にマージ後の集合から
// 導出されるべきであり、このパッケージはカウンタを持たない。
package readstate
