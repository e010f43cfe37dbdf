package orders

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	_ "modernc.org/sqlite"

	ordersdb "github.com/nao1215/orderwatch/internal/orders/db"
	"github.com/nao1215/orderwatch/pkg/migration"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupTestServer はテスト用の注文サーバーをインメモリSQLiteで構築する。
func setupTestServer(t *testing.T) (*Server, *gin.Engine) {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("インメモリDBの作成に失敗: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	if err := migration.Run(sqlDB, migrationFS, "migrations"); err != nil {
		t.Fatalf("マイグレーションの適用に失敗: %v", err)
	}

	router := gin.New()
	s := &Server{
		router:  router,
		port:    "0",
		queries: ordersdb.New(sqlDB),
		db:      sqlDB,
	}
	s.setupRoutes()

	return s, router
}

// doRequest はテスト用のHTTPリクエストを実行し、レスポンスを返すヘルパー関数。
func doRequest(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reqBody *bytes.Reader
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewReader(jsonBytes)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// parseJSON はレスポンスボディをmapにデコードするヘルパー関数。
func parseJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("JSONのデコードに失敗: %v, body=%s", err, w.Body.String())
	}
	return result
}

// parseJSONArray はレスポンスボディをスライスにデコードするヘルパー関数。
func parseJSONArray(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var result []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("JSON配列のデコードに失敗: %v, body=%s", err, w.Body.String())
	}
	return result
}

// createTestOrder はAPI経由でテスト用の注文を作成し、注文IDを返すヘルパー関数。
func createTestOrder(t *testing.T, router *gin.Engine, orderNumber, customerName, status, dueDate string) string {
	t.Helper()

	body := map[string]any{
		"order_number":  orderNumber,
		"customer_id":   "cust-1",
		"customer_name": customerName,
	}
	if status != "" {
		body["status"] = status
	}
	if dueDate != "" {
		body["due_date"] = dueDate
	}

	w := doRequest(router, http.MethodPost, "/api/v1/orders", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("テスト用注文の作成に失敗: status=%d, body=%s", w.Code, w.Body.String())
	}
	return parseJSON(t, w)["id"].(string)
}

// TestHealthCheck はヘルスチェックエンドポイントの正常動作を検証する。
func TestHealthCheck(t *testing.T) {
	t.Parallel()

	_, router := setupTestServer(t)

	w := doRequest(router, http.MethodGet, "/health", nil)

	if w.Code != http.StatusOK {
		t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
	}
	if got := parseJSON(t, w)["service"]; got != "orders" {
		t.Errorf("service = %v, want orders", got)
	}
}

// TestCreateOrder は注文作成APIを検証する。
func TestCreateOrder(t *testing.T) {
	t.Parallel()

	t.Run("注文が作成されること", func(t *testing.T) {
		t.Parallel()

		_, router := setupTestServer(t)
		w := doRequest(router, http.MethodPost, "/api/v1/orders", map[string]any{
			"order_number":  "ORD-001",
			"customer_id":   "cust-1",
			"customer_name": "田中太郎",
			"due_date":      "2025-06-20T00:00:00Z",
		})

		if w.Code != http.StatusCreated {
			t.Fatalf("ステータスコード: got %d, want %d, body=%s", w.Code, http.StatusCreated, w.Body.String())
		}
		resp := parseJSON(t, w)
		if resp["order_number"] != "ORD-001" {
			t.Errorf("order_number = %v", resp["order_number"])
		}
		if resp["status"] != "pending" {
			t.Errorf("status = %v, want pending（デフォルト）", resp["status"])
		}
		if resp["due_date"] != "2025-06-20T00:00:00Z" {
			t.Errorf("due_date = %v", resp["due_date"])
		}
		if resp["id"] == "" {
			t.Error("idが空です")
		}
	})

	t.Run("必須フィールドがない場合は400", func(t *testing.T) {
		t.Parallel()

		_, router := setupTestServer(t)
		w := doRequest(router, http.MethodPost, "/api/v1/orders", map[string]any{
			"order_number": "ORD-001",
		})

		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("不正なステータスは400", func(t *testing.T) {
		t.Parallel()

		_, router := setupTestServer(t)
		w := doRequest(router, http.MethodPost, "/api/v1/orders", map[string]any{
			"order_number":  "ORD-001",
			"customer_id":   "cust-1",
			"customer_name": "田中太郎",
			"status":        "shipped",
		})

		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("不正な納期形式は400", func(t *testing.T) {
		t.Parallel()

		_, router := setupTestServer(t)
		w := doRequest(router, http.MethodPost, "/api/v1/orders", map[string]any{
			"order_number":  "ORD-001",
			"customer_id":   "cust-1",
			"customer_name": "田中太郎",
			"due_date":      "2025/06/20",
		})

		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

// TestGetOrder は注文の単体取得APIを検証する。
func TestGetOrder(t *testing.T) {
	t.Parallel()

	t.Run("作成した注文が取得できること", func(t *testing.T) {
		t.Parallel()

		_, router := setupTestServer(t)
		id := createTestOrder(t, router, "ORD-001", "田中太郎", "", "2025-06-20T00:00:00Z")

		w := doRequest(router, http.MethodGet, "/api/v1/orders/"+id, nil)

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
		if got := parseJSON(t, w)["customer_name"]; got != "田中太郎" {
			t.Errorf("customer_name = %v", got)
		}
	})

	t.Run("存在しない注文は404", func(t *testing.T) {
		t.Parallel()

		_, router := setupTestServer(t)
		w := doRequest(router, http.MethodGet, "/api/v1/orders/unknown-id", nil)

		if w.Code != http.StatusNotFound {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}

// TestListActiveOrders はアクティブ注文スナップショットAPIを検証する。
func TestListActiveOrders(t *testing.T) {
	t.Parallel()

	t.Run("終端状態と納期未設定の注文が除外されること", func(t *testing.T) {
		t.Parallel()

		_, router := setupTestServer(t)
		active := createTestOrder(t, router, "ORD-001", "田中太郎", "pending", "2025-06-20T00:00:00Z")
		createTestOrder(t, router, "ORD-002", "鈴木花子", "delivered", "2025-06-21T00:00:00Z")
		createTestOrder(t, router, "ORD-003", "佐藤次郎", "cancelled", "2025-06-22T00:00:00Z")
		createTestOrder(t, router, "ORD-004", "高橋三郎", "in_progress", "")

		w := doRequest(router, http.MethodGet, "/api/v1/orders/active", nil)

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
		list := parseJSONArray(t, w)
		if len(list) != 1 {
			t.Fatalf("アクティブ注文数: got %d, want 1", len(list))
		}
		if list[0]["id"] != active {
			t.Errorf("id = %v, want %s", list[0]["id"], active)
		}
	})

	t.Run("注文がない場合は空配列", func(t *testing.T) {
		t.Parallel()

		_, router := setupTestServer(t)
		w := doRequest(router, http.MethodGet, "/api/v1/orders/active", nil)

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
		if list := parseJSONArray(t, w); len(list) != 0 {
			t.Errorf("アクティブ注文数: got %d, want 0", len(list))
		}
	})
}

// TestUpdateOrder は注文更新APIを検証する。
func TestUpdateOrder(t *testing.T) {
	t.Parallel()

	t.Run("注文が更新されること", func(t *testing.T) {
		t.Parallel()

		_, router := setupTestServer(t)
		id := createTestOrder(t, router, "ORD-001", "田中太郎", "", "2025-06-20T00:00:00Z")

		w := doRequest(router, http.MethodPut, "/api/v1/orders/"+id, map[string]any{
			"order_number":  "ORD-001R",
			"customer_name": "田中太郎",
			"due_date":      "2025-06-25T00:00:00Z",
		})

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
		}
		resp := parseJSON(t, w)
		if resp["order_number"] != "ORD-001R" {
			t.Errorf("order_number = %v", resp["order_number"])
		}
		if resp["due_date"] != "2025-06-25T00:00:00Z" {
			t.Errorf("due_date = %v", resp["due_date"])
		}
	})

	t.Run("納期を空にすると未設定になること", func(t *testing.T) {
		t.Parallel()

		_, router := setupTestServer(t)
		id := createTestOrder(t, router, "ORD-001", "田中太郎", "", "2025-06-20T00:00:00Z")

		w := doRequest(router, http.MethodPut, "/api/v1/orders/"+id, map[string]any{
			"order_number":  "ORD-001",
			"customer_name": "田中太郎",
		})

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
		if got := parseJSON(t, w)["due_date"]; got != nil {
			t.Errorf("due_date = %v, want null", got)
		}
	})

	t.Run("存在しない注文は404", func(t *testing.T) {
		t.Parallel()

		_, router := setupTestServer(t)
		w := doRequest(router, http.MethodPut, "/api/v1/orders/unknown-id", map[string]any{
			"order_number":  "ORD-001",
			"customer_name": "田中太郎",
		})

		if w.Code != http.StatusNotFound {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}

// TestUpdateOrderStatus はステータス更新APIを検証する。
func TestUpdateOrderStatus(t *testing.T) {
	t.Parallel()

	t.Run("ステータスが更新されること", func(t *testing.T) {
		t.Parallel()

		_, router := setupTestServer(t)
		id := createTestOrder(t, router, "ORD-001", "田中太郎", "", "2025-06-20T00:00:00Z")

		w := doRequest(router, http.MethodPut, "/api/v1/orders/"+id+"/status", map[string]any{
			"status": "delivered",
		})

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
		}
		if got := parseJSON(t, w)["status"]; got != "delivered" {
			t.Errorf("status = %v, want delivered", got)
		}
	})

	t.Run("不正なステータスは400", func(t *testing.T) {
		t.Parallel()

		_, router := setupTestServer(t)
		id := createTestOrder(t, router, "ORD-001", "田中太郎", "", "")

		w := doRequest(router, http.MethodPut, "/api/v1/orders/"+id+"/status", map[string]any{
			"status": "shipped",
		})

		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("存在しない注文は404", func(t *testing.T) {
		t.Parallel()

		_, router := setupTestServer(t)
		w := doRequest(router, http.MethodPut, "/api/v1/orders/unknown-id/status", map[string]any{
			"status": "ready",
		})

		if w.Code != http.StatusNotFound {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}

// TestDeleteOrder は注文削除APIを検証する。
func TestDeleteOrder(t *testing.T) {
	t.Parallel()

	t.Run("削除後は取得できないこと", func(t *testing.T) {
		t.Parallel()

		_, router := setupTestServer(t)
		id := createTestOrder(t, router, "ORD-001", "田中太郎", "", "")

		w := doRequest(router, http.MethodDelete, "/api/v1/orders/"+id, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}

		w = doRequest(router, http.MethodGet, "/api/v1/orders/"+id, nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("削除後のステータスコード: got %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("存在しない注文は404", func(t *testing.T) {
		t.Parallel()

		_, router := setupTestServer(t)
		w := doRequest(router, http.MethodDelete, "/api/v1/orders/unknown-id", nil)

		if w.Code != http.StatusNotFound {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}

// TestChangesFeed は変更フィードAPIを検証する。
func TestChangesFeed(t *testing.T) {
	t.Parallel()

	t.Run("CRUD操作ごとに変更イベントが記録されること", func(t *testing.T) {
		t.Parallel()

		_, router := setupTestServer(t)
		id := createTestOrder(t, router, "ORD-001", "田中太郎", "", "2025-06-20T00:00:00Z")
		doRequest(router, http.MethodPut, "/api/v1/orders/"+id+"/status", map[string]any{"status": "ready"})
		doRequest(router, http.MethodDelete, "/api/v1/orders/"+id, nil)

		w := doRequest(router, http.MethodGet, "/api/v1/orders/changes", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}

		events := parseJSONArray(t, w)
		if len(events) != 3 {
			t.Fatalf("イベント数: got %d, want 3", len(events))
		}
		wantTypes := []string{"insert", "update", "delete"}
		for i, want := range wantTypes {
			if events[i]["event_type"] != want {
				t.Errorf("events[%d].event_type = %v, want %s", i, events[i]["event_type"], want)
			}
			if events[i]["order_id"] != id {
				t.Errorf("events[%d].order_id = %v, want %s", i, events[i]["order_id"], id)
			}
		}
	})

	t.Run("since指定で過去のイベントが除外されること", func(t *testing.T) {
		t.Parallel()

		_, router := setupTestServer(t)
		createTestOrder(t, router, "ORD-001", "田中太郎", "", "")

		w := doRequest(router, http.MethodGet, "/api/v1/orders/changes", nil)
		first := parseJSONArray(t, w)
		if len(first) != 1 {
			t.Fatalf("イベント数: got %d, want 1", len(first))
		}
		since := first[0]["created_at"].(string)

		second := createTestOrder(t, router, "ORD-002", "鈴木花子", "", "")

		w = doRequest(router, http.MethodGet, "/api/v1/orders/changes?since="+since, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
		events := parseJSONArray(t, w)
		if len(events) != 1 {
			t.Fatalf("since後のイベント数: got %d, want 1", len(events))
		}
		if events[0]["order_id"] != second {
			t.Errorf("order_id = %v, want %s", events[0]["order_id"], second)
		}
	})

	t.Run("不正なsince形式は400", func(t *testing.T) {
		t.Parallel()

		_, router := setupTestServer(t)
		w := doRequest(router, http.MethodGet, "/api/v1/orders/changes?since=yesterday", nil)

		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}
