package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/nao1215/orderwatch/pkg/httpclient"
)

// Channel は送信チャネルの種類を表す。
type Channel string

const (
	// ChannelSMS はSMSゲートウェイ経由の送信を表す。
	ChannelSMS Channel = "sms"
	// ChannelWhatsApp はWhatsAppゲートウェイ経由の送信を表す。
	ChannelWhatsApp Channel = "whatsapp"
	// ChannelEmail はメールゲートウェイ経由の送信を表す。
	ChannelEmail Channel = "email"
)

// Valid はチャネルが定義済みの値かどうかを返す。
func (c Channel) Valid() bool {
	switch c {
	case ChannelSMS, ChannelWhatsApp, ChannelEmail:
		return true
	}
	return false
}

// ErrUnknownTemplate は未定義のテンプレート種類が指定されたことを表す。
// プログラミングエラーであり、握りつぶさずに呼び出し元へ返す。
var ErrUnknownTemplate = errors.New("未定義のメッセージテンプレートです")

// Config はディスパッチャの設定。
// エンドポイントと認証情報はすべて外部から注入し、ハードコードしない。
type Config struct {
	// SMSGatewayURL はSMSゲートウェイのベースURL。
	SMSGatewayURL string
	// WhatsAppGatewayURL はWhatsAppゲートウェイのベースURL。
	WhatsAppGatewayURL string
	// EmailGatewayURL はメールゲートウェイのベースURL。
	EmailGatewayURL string
	// APIKey はゲートウェイ認証用のAPIキー。
	APIKey string
	// SenderID はSMSの送信元表示名。
	SenderID string
	// CountryCode は携帯番号の正規化に使用する国際プレフィックス（例: "+256"）。
	// 未設定の場合はDefaultCountryCodeを使用する。
	CountryCode string
}

// DefaultCountryCode は携帯番号正規化の既定の国際プレフィックス。
const DefaultCountryCode = "+256"

// Dispatcher は通知メッセージのレンダリングと外部チャネルへの送信を行う。
// プロセス全体のシングルトンではなく、設定を注入して明示的に生成し、
// 呼び出し側がインスタンスを受け渡して使用する。
type Dispatcher struct {
	// smsClient はSMSゲートウェイへのHTTPクライアント。
	smsClient *httpclient.Client
	// whatsappClient はWhatsAppゲートウェイへのHTTPクライアント。
	whatsappClient *httpclient.Client
	// emailClient はメールゲートウェイへのHTTPクライアント。
	emailClient *httpclient.Client
	// senderID はSMSの送信元表示名。
	senderID string
	// countryCode は携帯番号正規化用の国際プレフィックス。
	countryCode string
}

// New は新しいディスパッチャを生成する。
func New(cfg Config) *Dispatcher {
	countryCode := cfg.CountryCode
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	return &Dispatcher{
		smsClient:      httpclient.NewWithAPIKey(cfg.SMSGatewayURL, cfg.APIKey),
		whatsappClient: httpclient.NewWithAPIKey(cfg.WhatsAppGatewayURL, cfg.APIKey),
		emailClient:    httpclient.NewWithAPIKey(cfg.EmailGatewayURL, cfg.APIKey),
		senderID:       cfg.SenderID,
		countryCode:    countryCode,
	}
}

// smsRequest はSMSゲートウェイへの送信リクエスト。
type smsRequest struct {
	// To は正規化済みの送信先番号。
	To string `json:"to"`
	// Message はメッセージ本文。
	Message string `json:"message"`
	// From は送信元表示名。
	From string `json:"from"`
}

// whatsappText はWhatsAppメッセージの本文部。
type whatsappText struct {
	// Body はメッセージ本文。
	Body string `json:"body"`
}

// whatsappRequest はWhatsAppゲートウェイへの送信リクエスト。
type whatsappRequest struct {
	// To は正規化済みの送信先番号。
	To string `json:"to"`
	// Type はメッセージ種別。常に"text"。
	Type string `json:"type"`
	// Text はメッセージ本文部。
	Text whatsappText `json:"text"`
}

// emailRequest はメールゲートウェイへの送信リクエスト。
type emailRequest struct {
	// To は送信先メールアドレス。
	To string `json:"to"`
	// Subject は件名。
	Subject string `json:"subject"`
	// Body は本文。
	Body string `json:"body"`
}

// Send は指定チャネルでレンダリング済みメッセージを送信する。
//
// 携帯番号の正規化はここで一度だけ行い、呼び出し側では行わない。
// 送信の失敗は呼び出し元へ伝播させず、原因をログに記録して
// falseを返す。そのため1件の送信失敗が他の送信を妨げることはない。
// WhatsAppでの送信に失敗した場合は、同じ番号へのSMSに1回だけ
// フォールバックする。
func (d *Dispatcher) Send(ctx context.Context, channel Channel, address string, msg Rendered) bool {
	switch channel {
	case ChannelSMS:
		return d.sendSMS(ctx, address, msg)
	case ChannelWhatsApp:
		if d.sendWhatsApp(ctx, address, msg) {
			return true
		}
		log.Printf("[Dispatch] WhatsApp送信に失敗したためSMSにフォールバックします: to=%s", address)
		return d.sendSMS(ctx, address, msg)
	case ChannelEmail:
		return d.sendEmail(ctx, address, msg)
	default:
		log.Printf("[Dispatch] 未定義のチャネルです: %s", channel)
		return false
	}
}

// sendSMS はSMSゲートウェイへメッセージを送信する。
func (d *Dispatcher) sendSMS(ctx context.Context, address string, msg Rendered) bool {
	req := smsRequest{
		To:      NormalizePhone(address, d.countryCode),
		Message: msg.Message,
		From:    d.senderID,
	}
	if err := d.smsClient.PostJSON(ctx, "/sms/send", req, nil); err != nil {
		log.Printf("[Dispatch] SMS送信に失敗: to=%s: %v", req.To, err)
		return false
	}
	return true
}

// sendWhatsApp はWhatsAppゲートウェイへメッセージを送信する。
func (d *Dispatcher) sendWhatsApp(ctx context.Context, address string, msg Rendered) bool {
	req := whatsappRequest{
		To:   NormalizePhone(address, d.countryCode),
		Type: "text",
		Text: whatsappText{Body: msg.Message},
	}
	if err := d.whatsappClient.PostJSON(ctx, "/whatsapp/send", req, nil); err != nil {
		log.Printf("[Dispatch] WhatsApp送信に失敗: to=%s: %v", req.To, err)
		return false
	}
	return true
}

// sendEmail はメールゲートウェイへメッセージを送信する。
// メールアドレスは正規化の対象外。
func (d *Dispatcher) sendEmail(ctx context.Context, address string, msg Rendered) bool {
	req := emailRequest{
		To:      address,
		Subject: msg.Subject,
		Body:    msg.Message,
	}
	if err := d.emailClient.PostJSON(ctx, "/email/send", req, nil); err != nil {
		log.Printf("[Dispatch] メール送信に失敗: to=%s: %v", address, err)
		return false
	}
	return true
}

// RenderAndSend はテンプレートをレンダリングして送信するヘルパー。
// テンプレートが未定義の場合は送信せずにエラーを返す。
func (d *Dispatcher) RenderAndSend(ctx context.Context, template TemplateType, tmplCtx Context, channel Channel, address string) (bool, error) {
	msg, err := Render(template, tmplCtx)
	if err != nil {
		return false, fmt.Errorf("メッセージのレンダリングに失敗: %w", err)
	}
	return d.Send(ctx, channel, address, msg), nil
}
