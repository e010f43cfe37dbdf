package orders

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	ordersdb "github.com/nao1215/orderwatch/internal/orders/db"
	"github.com/nao1215/orderwatch/pkg/middleware"
	"github.com/nao1215/orderwatch/pkg/migration"
	"github.com/nao1215/orderwatch/pkg/order"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Server は注文ストアサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// queries はsqlcが生成したクエリ実行オブジェクト。
	queries *ordersdb.Queries
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// NewServer は新しい注文サーバーを生成する。
// SQLiteデータベースの初期化とマイグレーションの適用を行う。
func NewServer(port string) (*Server, error) {
	dbPath := os.Getenv("ORDERS_DB_PATH")
	if dbPath == "" {
		dbPath = "/data/orders.db?_journal_mode=WAL&_busy_timeout=5000"
	}

	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := migration.Run(sqlDB, migrationFS, "migrations"); err != nil {
		return nil, fmt.Errorf("マイグレーションの適用に失敗: %w", err)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())

	s := &Server{
		router:  router,
		port:    port,
		queries: ordersdb.New(sqlDB),
		db:      sqlDB,
	}
	s.setupRoutes()

	return s, nil
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// setupRoutes はAPIルーティングを設定する。
// 内部APIのためJWT認証は行わない（アラートサービスから呼び出される）。
func (s *Server) setupRoutes() {
	api := s.router.Group("/api/v1")
	{
		orders := api.Group("/orders")
		{
			// 注文の新規作成
			orders.POST("", s.handleCreate())
			// 注文一覧取得
			orders.GET("", s.handleList())
			// アクティブ注文のスナップショット取得
			orders.GET("/active", s.handleListActive())
			// 日時指定による変更フィード取得
			orders.GET("/changes", s.handleChanges())
			// 注文の単体取得
			orders.GET("/:id", s.handleGet())
			// 注文の更新
			orders.PUT("/:id", s.handleUpdate())
			// 注文ステータスの更新
			orders.PUT("/:id/status", s.handleUpdateStatus())
			// 注文の削除
			orders.DELETE("/:id", s.handleDelete())
		}
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "orders"})
	})
}

// toOrder はDB行をドメインの注文に変換する。
func toOrder(row ordersdb.Order) order.Order {
	o := order.Order{
		ID:           row.ID,
		OrderNumber:  row.OrderNumber,
		CustomerID:   row.CustomerID,
		CustomerName: row.CustomerName,
		Status:       order.Status(row.Status),
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.DueDate.Valid {
		due := row.DueDate.Time
		o.DueDate = &due
	}
	return o
}

// toOrders はDB行のスライスをドメインの注文スライスに変換する。
func toOrders(rows []ordersdb.Order) []order.Order {
	list := make([]order.Order, 0, len(rows))
	for _, row := range rows {
		list = append(list, toOrder(row))
	}
	return list
}

// parseDueDate はリクエストの納期文字列をsql.NullTimeに変換する。
// 空文字列は納期未設定として扱う。
func parseDueDate(value string) (sql.NullTime, error) {
	if value == "" {
		return sql.NullTime{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return sql.NullTime{}, fmt.Errorf("納期の形式が不正です（RFC3339形式で指定）: %w", err)
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}, nil
}

// execWithChange は注文の変更操作と変更イベントの記録を
// 同一トランザクションで実行する。
func (s *Server) execWithChange(ctx context.Context, changeType order.ChangeType, orderID string, fn func(qtx *ordersdb.Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	qtx := s.queries.WithTx(tx)
	if err := fn(qtx); err != nil {
		return err
	}

	ev := order.NewChangeEvent(changeType, orderID)
	if err := qtx.CreateOrderChange(ctx, ordersdb.CreateOrderChangeParams{
		ID:        ev.ID,
		OrderID:   ev.OrderID,
		EventType: string(ev.Type),
		CreatedAt: ev.CreatedAt.UnixNano(),
	}); err != nil {
		return fmt.Errorf("変更イベントの記録に失敗: %w", err)
	}

	return tx.Commit()
}

// createOrderRequest は注文作成リクエストのJSON構造。
type createOrderRequest struct {
	// OrderNumber は人間可読な注文番号。
	OrderNumber string `json:"order_number" binding:"required"`
	// CustomerID は注文した顧客のID。
	CustomerID string `json:"customer_id" binding:"required"`
	// CustomerName は顧客名。
	CustomerName string `json:"customer_name" binding:"required"`
	// Status は注文の初期状態。省略時はpending。
	Status string `json:"status"`
	// DueDate は納期（RFC3339形式）。省略可能。
	DueDate string `json:"due_date"`
}

// handleCreate は注文を作成するハンドラ。
func (s *Server) handleCreate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		status := order.StatusPending
		if req.Status != "" {
			status = order.Status(req.Status)
			if !status.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("不正なステータスです: %s", req.Status)})
				return
			}
		}

		dueDate, err := parseDueDate(req.DueDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		orderID := uuid.New().String()
		err = s.execWithChange(c.Request.Context(), order.ChangeInsert, orderID, func(qtx *ordersdb.Queries) error {
			return qtx.CreateOrder(c.Request.Context(), ordersdb.CreateOrderParams{
				ID:           orderID,
				OrderNumber:  req.OrderNumber,
				CustomerID:   req.CustomerID,
				CustomerName: req.CustomerName,
				Status:       string(status),
				DueDate:      dueDate,
			})
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "注文の作成に失敗しました"})
			log.Printf("注文作成エラー: %v", err)
			return
		}

		row, err := s.queries.GetOrderByID(c.Request.Context(), orderID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "作成した注文の取得に失敗しました"})
			log.Printf("注文取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusCreated, toOrder(row))
	}
}

// handleList は全注文の一覧を返すハンドラ。
func (s *Server) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := s.queries.ListOrders(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "注文一覧の取得に失敗しました"})
			log.Printf("注文一覧取得エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, toOrders(rows))
	}
}

// handleListActive はアクティブ注文のスナップショットを返すハンドラ。
// 終端状態（delivered / cancelled）と納期未設定の注文は含まれない。
func (s *Server) handleListActive() gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := s.queries.ListActiveOrders(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "アクティブ注文の取得に失敗しました"})
			log.Printf("アクティブ注文取得エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, toOrders(rows))
	}
}

// handleChanges は日時指定による変更フィードを返すハンドラ。
// クエリパラメータ since（RFC3339形式）より後に記録された変更を返す。
func (s *Server) handleChanges() gin.HandlerFunc {
	return func(c *gin.Context) {
		var sinceNs int64
		if since := c.Query("since"); since != "" {
			t, err := time.Parse(time.RFC3339Nano, since)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("sinceの形式が不正です（RFC3339形式で指定）: %v", err)})
				return
			}
			sinceNs = t.UnixNano()
		}

		rows, err := s.queries.ListOrderChangesSince(c.Request.Context(), sinceNs)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "変更フィードの取得に失敗しました"})
			log.Printf("変更フィード取得エラー: %v", err)
			return
		}

		events := make([]order.ChangeEvent, 0, len(rows))
		for _, row := range rows {
			events = append(events, order.ChangeEvent{
				ID:        row.ID,
				Type:      order.ChangeType(row.EventType),
				OrderID:   row.OrderID,
				CreatedAt: time.Unix(0, row.CreatedAt).UTC(),
			})
		}
		c.JSON(http.StatusOK, events)
	}
}

// handleGet は注文の単体取得を行うハンドラ。
func (s *Server) handleGet() gin.HandlerFunc {
	return func(c *gin.Context) {
		row, err := s.queries.GetOrderByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				c.JSON(http.StatusNotFound, gin.H{"error": "注文が見つかりません"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "注文の取得に失敗しました"})
			log.Printf("注文取得エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, toOrder(row))
	}
}

// updateOrderRequest は注文更新リクエストのJSON構造。
type updateOrderRequest struct {
	// OrderNumber は人間可読な注文番号。
	OrderNumber string `json:"order_number" binding:"required"`
	// CustomerName は顧客名。
	CustomerName string `json:"customer_name" binding:"required"`
	// DueDate は納期（RFC3339形式）。空文字列で納期を解除する。
	DueDate string `json:"due_date"`
}

// handleUpdate は注文の基本情報を更新するハンドラ。
func (s *Server) handleUpdate() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("id")

		var req updateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		dueDate, err := parseDueDate(req.DueDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if _, err := s.queries.GetOrderByID(c.Request.Context(), orderID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				c.JSON(http.StatusNotFound, gin.H{"error": "注文が見つかりません"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "注文の取得に失敗しました"})
			log.Printf("注文取得エラー: %v", err)
			return
		}

		err = s.execWithChange(c.Request.Context(), order.ChangeUpdate, orderID, func(qtx *ordersdb.Queries) error {
			return qtx.UpdateOrder(c.Request.Context(), ordersdb.UpdateOrderParams{
				OrderNumber:  req.OrderNumber,
				CustomerName: req.CustomerName,
				DueDate:      dueDate,
				UpdatedAt:    time.Now().UTC(),
				ID:           orderID,
			})
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "注文の更新に失敗しました"})
			log.Printf("注文更新エラー: %v", err)
			return
		}

		row, err := s.queries.GetOrderByID(c.Request.Context(), orderID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "更新した注文の取得に失敗しました"})
			log.Printf("注文取得エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, toOrder(row))
	}
}

// statusRequest はステータス更新リクエストのJSON構造。
type statusRequest struct {
	// Status は変更後の注文ステータス。
	Status string `json:"status" binding:"required"`
}

// handleUpdateStatus は注文ステータスを更新するハンドラ。
func (s *Server) handleUpdateStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("id")

		var req statusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		status := order.Status(req.Status)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("不正なステータスです: %s", req.Status)})
			return
		}

		if _, err := s.queries.GetOrderByID(c.Request.Context(), orderID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				c.JSON(http.StatusNotFound, gin.H{"error": "注文が見つかりません"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "注文の取得に失敗しました"})
			log.Printf("注文取得エラー: %v", err)
			return
		}

		err := s.execWithChange(c.Request.Context(), order.ChangeUpdate, orderID, func(qtx *ordersdb.Queries) error {
			return qtx.UpdateOrderStatus(c.Request.Context(), ordersdb.UpdateOrderStatusParams{
				Status:    string(status),
				UpdatedAt: time.Now().UTC(),
				ID:        orderID,
			})
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ステータスの更新に失敗しました"})
			log.Printf("ステータス更新エラー: %v", err)
			return
		}

		row, err := s.queries.GetOrderByID(c.Request.Context(), orderID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "更新した注文の取得に失敗しました"})
			log.Printf("注文取得エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, toOrder(row))
	}
}

// handleDelete は注文を削除するハンドラ。
func (s *Server) handleDelete() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("id")

		if _, err := s.queries.GetOrderByID(c.Request.Context(), orderID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				c.JSON(http.StatusNotFound, gin.H{"error": "注文が見つかりません"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "注文の取得に失敗しました"})
			log.Printf("注文取得エラー: %v", err)
			return
		}

		err := s.execWithChange(c.Request.Context(), order.ChangeDelete, orderID, func(qtx *ordersdb.Queries) error {
			return qtx.DeleteOrder(c.Request.Context(), orderID)
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "注文の削除に失敗しました"})
			log.Printf("注文削除エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "注文を削除しました"})
	}
}
