package alert

import "time"

// Type は通知の種類を表す。
type Type string

const (
	// TypeOverdue は納期を過ぎた注文に対する通知を表す。
	TypeOverdue Type = "overdue"
	// TypeDueSoon は納期が近い注文に対する通知を表す。
	TypeDueSoon Type = "due_soon"
)

// Priority は通知の優先度を表す。
type Priority string

const (
	// PriorityHigh は高優先度（納期超過）を表す。
	PriorityHigh Priority = "high"
	// PriorityMedium は中優先度（納期接近）を表す。
	PriorityMedium Priority = "medium"
)

// Notification は注文スナップショットから導出される通知レコード。
// 再計算のたびに生成し直される一時データであり、永続化されない。
// IDは (種類, 注文ID) から決定的に導出されるため、同じ注文状態からは
// 常に同じIDが得られ、既読状態のマージに使用できる。
type Notification struct {
	// ID は通知の決定的な識別子（"<type>_<orderID>" 形式）。
	ID string `json:"id"`
	// Type は通知の種類。
	Type Type `json:"type"`
	// OrderID は対象の注文ID。
	OrderID string `json:"order_id"`
	// CustomerID は対象注文の顧客ID。
	CustomerID string `json:"customer_id"`
	// CustomerName は顧客名。
	CustomerName string `json:"customer_name"`
	// OrderNumber は人間可読な注文番号。
	OrderNumber string `json:"order_number"`
	// DueDate は対象注文の納期。
	DueDate time.Time `json:"due_date"`
	// DaysUntilDue は納期までの残り日数。納期超過の場合は負の値。
	DaysUntilDue int `json:"days_until_due"`
	// Priority は通知の優先度。
	Priority Priority `json:"priority"`
	// Title は通知のタイトル。
	Title string `json:"title"`
	// Message は通知メッセージ。
	Message string `json:"message"`
	// IsRead は通知の既読状態。計算直後は常にfalseで、
	// 既読トラッカーとのマージで上書きされる。
	IsRead bool `json:"is_read"`
	// CreatedAt は通知が計算された日時。
	CreatedAt time.Time `json:"created_at"`
}
