package alerts

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/nao1215/orderwatch/pkg/httpclient"
	"github.com/nao1215/orderwatch/pkg/order"
)

// defaultChangePollInterval は変更フィードのポーリング間隔。
const defaultChangePollInterval = 2 * time.Second

// ordersSource は注文ストアサービスのHTTP APIを調整ループの
// 注文ソースとして公開するアダプタ。
// 変更の購読は変更フィードAPIのポーリングとして実装する。
type ordersSource struct {
	// client は注文ストアサービスへの通信クライアント。
	client *httpclient.Client
	// pollInterval は変更フィードのポーリング間隔。
	pollInterval time.Duration
	// mu はlastSeenを保護する。
	mu sync.Mutex
	// lastSeen は取得済みの変更イベントの最終記録日時。
	lastSeen time.Time
}

// newOrdersSource は注文ストアサービスに接続するソースを生成する。
func newOrdersSource(baseURL string, pollInterval time.Duration) *ordersSource {
	if pollInterval <= 0 {
		pollInterval = defaultChangePollInterval
	}
	return &ordersSource{
		client:       httpclient.New(baseURL),
		pollInterval: pollInterval,
	}
}

// FetchOrders はアクティブ注文のスナップショットを取得する。
func (s *ordersSource) FetchOrders(ctx context.Context) ([]order.Order, error) {
	var orders []order.Order
	if err := s.client.GetJSON(ctx, "/api/v1/orders/active", &orders); err != nil {
		return nil, fmt.Errorf("アクティブ注文の取得に失敗: %w", err)
	}
	return orders, nil
}

// Subscribe は変更フィードのポーリングを開始し、イベントチャネルを返す。
// コンテキストのキャンセルでポーリングを停止し、チャネルを閉じる。
func (s *ordersSource) Subscribe(ctx context.Context) (<-chan order.ChangeEvent, error) {
	events := make(chan order.ChangeEvent, 16)
	go s.poll(ctx, events)
	return events, nil
}

// poll は一定間隔で変更フィードを取得し、イベントをチャネルへ流す。
func (s *ordersSource) poll(ctx context.Context, events chan<- order.ChangeEvent) {
	defer close(events)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, ev := range s.fetchChanges(ctx) {
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// fetchChanges は前回取得分より後の変更イベントを取得する。
// 取得に失敗した場合はログに記録し、次のポーリングに委ねる。
func (s *ordersSource) fetchChanges(ctx context.Context) []order.ChangeEvent {
	s.mu.Lock()
	since := s.lastSeen
	s.mu.Unlock()

	path := "/api/v1/orders/changes"
	if !since.IsZero() {
		path += "?since=" + url.QueryEscape(since.Format(time.RFC3339Nano))
	}

	var events []order.ChangeEvent
	if err := s.client.GetJSON(ctx, path, &events); err != nil {
		if ctx.Err() == nil {
			log.Printf("[Alerts] 変更フィードの取得に失敗: %v", err)
		}
		return nil
	}

	if len(events) > 0 {
		s.mu.Lock()
		s.lastSeen = events[len(events)-1].CreatedAt
		s.mu.Unlock()
	}
	return events
}
