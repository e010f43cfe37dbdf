package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client はサービス間通信および外部ゲートウェイ通信用のHTTPクライアント。
// タイムアウトと認証ヘッダーの設定を持つ。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
	// baseURL は接続先サービスのベースURL。
	baseURL string
	// apiKey は外部ゲートウェイ向けのBearerトークン。空の場合は付与しない。
	apiKey string
}

// New は新しいHTTPクライアントを生成する。
// baseURLには接続先のベースURL（例: "http://orders:8081"）を指定する。
func New(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: baseURL,
	}
}

// NewWithAPIKey はBearerトークン付きのHTTPクライアントを生成する。
// SMSゲートウェイ等、APIキー認証を要求する外部サービスへの接続に使用する。
func NewWithAPIKey(baseURL, apiKey string) *Client {
	c := New(baseURL)
	c.apiKey = apiKey
	return c
}

// PostJSON は指定パスにJSONボディでPOSTリクエストを送信する。
// レスポンスボディをresultにデシリアライズする。resultがnilの場合は
// ステータスコードの確認のみ行う。
func (c *Client) PostJSON(ctx context.Context, path string, body any, result any) error {
	return c.doJSON(ctx, http.MethodPost, path, body, result)
}

// GetJSON は指定パスにGETリクエストを送信する。
// レスポンスボディをresultにデシリアライズする。
func (c *Client) GetJSON(ctx context.Context, path string, result any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, result)
}

// doJSON はJSON形式のHTTPリクエストを実行する共通処理。
// 2xx以外のステータスコードはエラーとして返す。
func (c *Client) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("リクエストボディのシリアライズに失敗: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	// コンテキストからオペレーターIDを伝播する
	if operatorID, ok := ctx.Value(contextKeyOperatorID).(string); ok {
		req.Header.Set("X-Operator-ID", operatorID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの送信に失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTPエラー: status=%d, body=%s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("レスポンスボディのデシリアライズに失敗: %w", err)
		}
	}
	return nil
}

// contextKey はコンテキストキーの型。
type contextKey string

// contextKeyOperatorID はコンテキストにオペレーターIDを格納するためのキー。
const contextKeyOperatorID contextKey = "operator_id"

// WithOperatorID はコンテキストにオペレーターIDを設定する。
// サービス間通信時に操作主体を伝播するために使用する。
func WithOperatorID(ctx context.Context, operatorID string) context.Context {
	return context.WithValue(ctx, contextKeyOperatorID, operatorID)
}
