package dispatch

import "fmt"

// TemplateType はメッセージテンプレートの種類を表す。
type TemplateType string

const (
	// TemplateBillReceipt は支払い受領の通知テンプレートを表す。
	TemplateBillReceipt TemplateType = "bill_receipt"
	// TemplateDeliveryReminder は納期リマインダーのテンプレートを表す。
	TemplateDeliveryReminder TemplateType = "delivery_reminder"
	// TemplateOrderStatus は注文ステータス変更の通知テンプレートを表す。
	TemplateOrderStatus TemplateType = "order_status"
	// TemplateMeasurementReady は採寸完了の通知テンプレートを表す。
	TemplateMeasurementReady TemplateType = "measurement_ready"
)

// Context はテンプレートのレンダリングに使用する値の集合。
// テンプレートごとに参照するフィールドは異なり、未使用のフィールドは
// 空のままで構わない。
type Context struct {
	// CustomerName は顧客名。
	CustomerName string `json:"customer_name"`
	// OrderNumber は注文番号。
	OrderNumber string `json:"order_number"`
	// DueDate は納期の表示用文字列。
	DueDate string `json:"due_date"`
	// Status は注文ステータスの表示用文字列。
	Status string `json:"status"`
	// Amount は受領金額の表示用文字列。
	Amount string `json:"amount"`
	// Balance は残額の表示用文字列。
	Balance string `json:"balance"`
}

// Rendered はレンダリング済みのメッセージ。
type Rendered struct {
	// Subject は件名。メール送信時に使用する。
	Subject string `json:"subject"`
	// Message は本文。
	Message string `json:"message"`
}

// Render は指定テンプレートからメッセージを生成する。
// 定義済みのすべてのテンプレート種類に対して純粋かつ全域であり、
// 未定義の種類に対してのみErrUnknownTemplateを返す。
func Render(template TemplateType, ctx Context) (Rendered, error) {
	switch template {
	case TemplateBillReceipt:
		return Rendered{
			Subject: fmt.Sprintf("Payment received for order %s", ctx.OrderNumber),
			Message: fmt.Sprintf(
				"Dear %s, we have received your payment of %s for order %s. Outstanding balance: %s. Thank you.",
				ctx.CustomerName, ctx.Amount, ctx.OrderNumber, ctx.Balance,
			),
		}, nil
	case TemplateDeliveryReminder:
		return Rendered{
			Subject: fmt.Sprintf("Delivery reminder for order %s", ctx.OrderNumber),
			Message: fmt.Sprintf(
				"Dear %s, your order %s is due for delivery on %s. Please visit us to pick it up.",
				ctx.CustomerName, ctx.OrderNumber, ctx.DueDate,
			),
		}, nil
	case TemplateOrderStatus:
		return Rendered{
			Subject: fmt.Sprintf("Status update for order %s", ctx.OrderNumber),
			Message: fmt.Sprintf(
				"Dear %s, the status of your order %s is now: %s.",
				ctx.CustomerName, ctx.OrderNumber, ctx.Status,
			),
		}, nil
	case TemplateMeasurementReady:
		return Rendered{
			Subject: fmt.Sprintf("Measurements ready for order %s", ctx.OrderNumber),
			Message: fmt.Sprintf(
				"Dear %s, the measurements for your order %s are ready. Please visit us for a fitting.",
				ctx.CustomerName, ctx.OrderNumber,
			),
		}, nil
	default:
		return Rendered{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, template)
	}
}
