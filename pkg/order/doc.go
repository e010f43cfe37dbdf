// Package order は注文ドメインの共有語彙を提供する。
//
// 注文レコードとそのステータス、注文ストアが発行する変更イベントの
// 型定義を含む。注文ストアサービスとアラートエンジンの両方が
// このパッケージを介して同じデータ表現を共有する。
package order
