package alerts

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/orderwatch/pkg/alert"
	"github.com/nao1215/orderwatch/pkg/dispatch"
	"github.com/nao1215/orderwatch/pkg/middleware"
	"github.com/nao1215/orderwatch/pkg/readstate"
	"github.com/nao1215/orderwatch/pkg/reconcile"
)

// Server は納期アラートサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// tracker はアラートの既読状態を管理する。
	tracker *readstate.Tracker
	// dispatcher はメッセージゲートウェイへの送信を担う。
	dispatcher *dispatch.Dispatcher
	// loop は再計算を担う調整ループのハンドル。
	loop *reconcile.Handle

	// mu はcomputedを保護する。
	mu sync.RWMutex
	// computed は調整ループが最後に発行したアラートのスナップショット。
	// 既読状態は含まず、参照時にトラッカーの状態を重ねる。
	computed []alert.Notification
}

// NewServer は新しいアラートサーバーを生成し、調整ループを開始する。
func NewServer(port string) (*Server, error) {
	ordersURL := os.Getenv("ORDERS_URL")
	if ordersURL == "" {
		ordersURL = "http://localhost:8081"
	}

	interval := reconcile.DefaultInterval
	if v := os.Getenv("RECONCILE_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("RECONCILE_INTERVALの形式が不正: %w", err)
		}
		interval = d
	}

	allowedOrigins := []string{"http://localhost:3000"}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		allowedOrigins = strings.Split(v, ",")
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS(allowedOrigins))

	s := &Server{
		router:     router,
		port:       port,
		tracker:    readstate.New(),
		dispatcher: dispatch.New(dispatchConfigFromEnv()),
	}
	s.setupRoutes()

	source := newOrdersSource(ordersURL, defaultChangePollInterval)
	s.loop = reconcile.Start(source, s.applyUpdate, reconcile.Config{
		Interval: interval,
		OnError: func(err error) {
			log.Printf("[Alerts] 再計算に失敗（前回の結果を維持）: %v", err)
		},
	})

	return s, nil
}

// dispatchConfigFromEnv は環境変数からディスパッチャ設定を組み立てる。
// ゲートウェイのエンドポイントと認証情報はすべて外部から注入する。
func dispatchConfigFromEnv() dispatch.Config {
	return dispatch.Config{
		SMSGatewayURL:      os.Getenv("SMS_GATEWAY_URL"),
		WhatsAppGatewayURL: os.Getenv("WHATSAPP_GATEWAY_URL"),
		EmailGatewayURL:    os.Getenv("EMAIL_GATEWAY_URL"),
		APIKey:             os.Getenv("GATEWAY_API_KEY"),
		SenderID:           os.Getenv("SMS_SENDER_ID"),
		CountryCode:        os.Getenv("PHONE_COUNTRY_CODE"),
	}
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// Stop は調整ループを停止する。複数回呼んでも安全。
func (s *Server) Stop() {
	if s.loop != nil {
		s.loop.Stop()
	}
}

// applyUpdate は調整ループが発行したスナップショットを受け取る。
func (s *Server) applyUpdate(notifications []alert.Notification) {
	s.mu.Lock()
	s.computed = notifications
	s.mu.Unlock()
}

// current は既読状態を重ねた表示用のアラート一覧を返す。
// 未読件数は常にこの一覧から導出し、独立したカウンタは持たない。
func (s *Server) current() []alert.Notification {
	s.mu.RLock()
	computed := s.computed
	s.mu.RUnlock()

	merged := s.tracker.Merge(computed)
	alert.Sort(merged)
	return merged
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "dev-secret-key"
	}

	api := s.router.Group("/api/v1")
	api.Use(middleware.JWTAuth(jwtSecret))
	{
		alerts := api.Group("/alerts")
		{
			// アラート一覧取得（優先度順）
			alerts.GET("", s.handleList())
			// 未読アラート一覧取得
			alerts.GET("/unread", s.handleListUnread())
			// 未読件数取得
			alerts.GET("/unread/count", s.handleUnreadCount())
			// アラートを既読にする
			alerts.PUT("/:id/read", s.handleMarkRead())
			// 全アラートを既読にする
			alerts.PUT("/read-all", s.handleMarkAllRead())
			// アラートを未読に戻す
			alerts.PUT("/:id/unread", s.handleMarkUnread())
			// アラート内容をゲートウェイ経由で送信する
			alerts.POST("/:id/dispatch", s.handleDispatch())
		}

		messages := api.Group("/messages")
		{
			// テンプレートからメッセージを生成して送信する
			messages.POST("/send", s.handleSendMessage())
		}
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "alerts"})
	})
}

// handleList はアラート一覧を返すハンドラ。
func (s *Server) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.current())
	}
}

// handleListUnread は未読アラートの一覧を返すハンドラ。
func (s *Server) handleListUnread() gin.HandlerFunc {
	return func(c *gin.Context) {
		all := s.current()
		unread := make([]alert.Notification, 0, len(all))
		for _, n := range all {
			if !n.IsRead {
				unread = append(unread, n)
			}
		}
		c.JSON(http.StatusOK, unread)
	}
}

// handleUnreadCount は未読件数を返すハンドラ。
func (s *Server) handleUnreadCount() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"count": alert.UnreadCount(s.current())})
	}
}

// handleMarkRead は指定アラートを既読にするハンドラ。
// まだ一覧に現れていないIDも受け付け、出現時に既読として扱う。
func (s *Server) handleMarkRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		alertID := c.Param("id")
		if alertID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "アラートIDが必要です"})
			return
		}
		s.tracker.MarkRead(alertID)
		c.JSON(http.StatusOK, gin.H{"message": "アラートを既読にしました"})
	}
}

// handleMarkAllRead は全アラートを既読にするハンドラ。
func (s *Server) handleMarkAllRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.tracker.MarkAllRead()
		c.JSON(http.StatusOK, gin.H{"message": "全アラートを既読にしました"})
	}
}

// handleMarkUnread は指定アラートを未読に戻すハンドラ。
func (s *Server) handleMarkUnread() gin.HandlerFunc {
	return func(c *gin.Context) {
		alertID := c.Param("id")
		if alertID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "アラートIDが必要です"})
			return
		}
		s.tracker.MarkUnread(alertID)
		c.JSON(http.StatusOK, gin.H{"message": "アラートを未読にしました"})
	}
}

// dispatchRequest はアラート送信リクエストのJSON構造。
type dispatchRequest struct {
	// Channel は送信チャネル（sms / whatsapp / email）。
	Channel string `json:"channel" binding:"required"`
	// Address は送信先（携帯番号またはメールアドレス）。
	Address string `json:"address" binding:"required"`
}

// handleDispatch はアラートの内容をゲートウェイ経由で送信するハンドラ。
func (s *Server) handleDispatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		alertID := c.Param("id")

		var req dispatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		channel := dispatch.Channel(req.Channel)
		if !channel.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("不正なチャネルです: %s", req.Channel)})
			return
		}

		var target *alert.Notification
		for _, n := range s.current() {
			if n.ID == alertID {
				target = &n
				break
			}
		}
		if target == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "アラートが見つかりません"})
			return
		}

		ok := s.dispatcher.Send(c.Request.Context(), channel, req.Address, dispatch.Rendered{
			Subject: target.Title,
			Message: target.Message,
		})
		if !ok {
			c.JSON(http.StatusBadGateway, gin.H{"error": "メッセージの送信に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "アラートを送信しました"})
	}
}

// sendMessageRequest はテンプレート送信リクエストのJSON構造。
type sendMessageRequest struct {
	// Template はメッセージテンプレートの種類。
	Template string `json:"template" binding:"required"`
	// Channel は送信チャネル（sms / whatsapp / email）。
	Channel string `json:"channel" binding:"required"`
	// Address は送信先（携帯番号またはメールアドレス）。
	Address string `json:"address" binding:"required"`
	// Context はテンプレートのレンダリングに使用する値。
	Context dispatch.Context `json:"context"`
}

// handleSendMessage はテンプレートからメッセージを生成して送信するハンドラ。
func (s *Server) handleSendMessage() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		channel := dispatch.Channel(req.Channel)
		if !channel.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("不正なチャネルです: %s", req.Channel)})
			return
		}

		ok, err := s.dispatcher.RenderAndSend(c.Request.Context(), dispatch.TemplateType(req.Template), req.Context, channel, req.Address)
		if err != nil {
			if errors.Is(err, dispatch.ErrUnknownTemplate) {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("未定義のテンプレートです: %s", req.Template)})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "メッセージの生成に失敗しました"})
			log.Printf("[Alerts] メッセージ生成エラー: %v", err)
			return
		}
		if !ok {
			c.JSON(http.StatusBadGateway, gin.H{"error": "メッセージの送信に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "メッセージを送信しました"})
	}
}
