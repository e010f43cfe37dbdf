package order

import (
	"time"

	"github.com/google/uuid"
)

// Status は注文のライフサイクル上の状態を表す。
type Status string

const (
	// StatusPending は受注済みで作業未着手の状態を表す。
	StatusPending Status = "pending"
	// StatusInProgress は作業中の状態を表す。
	StatusInProgress Status = "in_progress"
	// StatusReady は仕上がり済みで引き渡し待ちの状態を表す。
	StatusReady Status = "ready"
	// StatusDelivered は顧客へ引き渡し済みの状態を表す。
	StatusDelivered Status = "delivered"
	// StatusCancelled はキャンセル済みの状態を表す。
	StatusCancelled Status = "cancelled"
)

// Valid はステータスが定義済みの値かどうかを返す。
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusReady, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal は通知の対象外となる終端状態（delivered / cancelled）かどうかを返す。
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Order は注文レコードを表す。
// 注文ストアサービスが管理し、アラートエンジンは読み取り専用で参照する。
type Order struct {
	// ID は注文の一意識別子（UUID）。
	ID string `json:"id"`
	// OrderNumber は人間可読な注文番号。
	OrderNumber string `json:"order_number"`
	// CustomerID は注文した顧客のID。
	CustomerID string `json:"customer_id"`
	// CustomerName は顧客名。通知メッセージの生成に使用する。
	CustomerName string `json:"customer_name"`
	// Status は注文の現在の状態。
	Status Status `json:"status"`
	// DueDate は約束した納期。未設定の場合はnil。
	DueDate *time.Time `json:"due_date"`
	// CreatedAt は注文の作成日時。
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt は注文の最終更新日時。
	UpdatedAt time.Time `json:"updated_at"`
}

// Notifiable は通知導出の対象となる注文かどうかを返す。
// 納期が設定済みかつ終端状態でない注文のみが対象となる。
func (o Order) Notifiable() bool {
	return o.DueDate != nil && !o.Status.Terminal()
}

// ChangeType は注文変更イベントの種類を表す。
type ChangeType string

const (
	// ChangeInsert は注文の新規作成を表す。
	ChangeInsert ChangeType = "insert"
	// ChangeUpdate は注文の更新を表す。
	ChangeUpdate ChangeType = "update"
	// ChangeDelete は注文の削除を表す。
	ChangeDelete ChangeType = "delete"
)

// ChangeEvent は注文ストアで発生した変更を表すイベントレコード。
// アラートエンジンは内容を差分適用せず、変更の発生自体を
// 「再計算が必要」というシグナルとして扱う。
type ChangeEvent struct {
	// ID はイベントの一意識別子（UUID）。
	ID string `json:"id"`
	// Type は変更の種類。
	Type ChangeType `json:"event_type"`
	// OrderID は変更された注文のID。
	OrderID string `json:"order_id"`
	// CreatedAt はイベントが記録された日時。
	CreatedAt time.Time `json:"created_at"`
}

// NewChangeEvent は新しい変更イベントを生成する。
func NewChangeEvent(changeType ChangeType, orderID string) ChangeEvent {
	return ChangeEvent{
		ID:        uuid.New().String(),
		Type:      changeType,
		OrderID:   orderID,
		CreatedAt: time.Now().UTC(),
	}
}
