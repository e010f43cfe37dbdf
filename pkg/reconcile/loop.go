package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nao1215/orderwatch/pkg/alert"
	"github.com/nao1215/orderwatch/pkg/order"
)

// DefaultInterval はタイマー起因の再計算の既定間隔。
const DefaultInterval = 5 * time.Minute

// maxResubscribeBackoff は再購読リトライ間隔の上限。
const maxResubscribeBackoff = 30 * time.Second

// Source は注文スナップショットの取得と変更購読を提供する。
// アラートエンジンが消費する外部注文ストアを抽象化する。
type Source interface {
	// FetchOrders は通知対象となりうる注文のスナップショットを取得する。
	FetchOrders(ctx context.Context) ([]order.Order, error)
	// Subscribe は注文の変更イベントストリームを開始する。
	// 購読が切断された場合はチャネルがクローズされる。
	Subscribe(ctx context.Context) (<-chan order.ChangeEvent, error)
}

// UpdateFunc は再計算パスの完了ごとに最新の通知集合を受け取る。
// 1回のパスにつきちょうど1回呼び出される。
type UpdateFunc func(notifications []alert.Notification)

// Config は再計算ループの設定。
type Config struct {
	// Interval はタイマー起因の再計算間隔。0の場合はDefaultIntervalを使用する。
	Interval time.Duration
	// OnError はスナップショット取得や購読の失敗を通知するコールバック。
	// nilの場合はログ出力のみ行う。エラーは常に非致命として扱われ、
	// 直前に公開済みの通知集合はそのまま維持される。
	OnError func(err error)
	// Now は現在時刻を返す関数。nilの場合はtime.Nowを使用する。
	Now func() time.Time
}

// Handle は起動済みの再計算ループを所有する。
// 購読とタイマーのライフサイクルはHandleが管理し、Stopで解放する。
type Handle struct {
	// source は注文スナップショットの取得元。
	source Source
	// onUpdate はパス完了ごとの通知先。
	onUpdate UpdateFunc
	// onError は非致命エラーの通知先。
	onError func(err error)
	// now は現在時刻を返す関数。
	now func() time.Time
	// interval はタイマー起因の再計算間隔。
	interval time.Duration

	// ctx はループ全体のライフサイクルを管理するコンテキスト。
	ctx context.Context
	// cancel はctxをキャンセルする関数。
	cancel context.CancelFunc
	// trigger は再計算要求をまとめるための容量1のチャネル。
	// パス実行中に届いた要求は最大1件だけ保留され、それ以上は合流する。
	trigger chan struct{}
	// stopOnce はStopの冪等性を保証する。
	stopOnce sync.Once
	// wg はバックグラウンドゴルーチンの終了を追跡する。
	wg sync.WaitGroup

	// mu は以下のフィールドへの並行アクセスを保護するミューテックス。
	mu sync.Mutex
	// stopped はStopが呼ばれた後trueになる。公開前に必ず確認する。
	stopped bool
	// nextSeq は次のパスに割り当てる単調増加の通し番号。
	nextSeq uint64
	// published は公開済みパスの最大通し番号。
	// 古いパスの結果が新しい結果を上書きすることを防ぐ。
	published uint64
}

// Start は再計算ループを起動し、それを所有するHandleを返す。
//
// 起動直後に1回目のパスを実行し、以降はタイマーと変更購読イベントの
// 両方が「再計算が必要」というヒントとしてパスをスケジュールする。
// 同時に実行されるパスは常に1つで、実行中に届いた要求は合流して
// 最大1回の追加パスにまとめられる。
func Start(source Source, onUpdate UpdateFunc, cfg Config) *Handle {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		source:   source,
		onUpdate: onUpdate,
		onError:  cfg.OnError,
		now:      now,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		trigger:  make(chan struct{}, 1),
	}

	h.wg.Add(2)
	go h.run()
	go h.consumeSubscription()
	return h
}

// Stop は購読を解放し、タイマーを停止する。
// 冪等であり、複数回呼び出しても停止済みのHandleに呼び出しても安全。
// 実行中のパスは完了まで進むが、その結果は公開されずに破棄される。
func (h *Handle) Stop() {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		h.stopped = true
		h.mu.Unlock()
		h.cancel()
	})
}

// Trigger は再計算パスを1回スケジュールする。
// パス実行中の呼び出しは保留中の1件に合流するため、イベントの
// バーストがそのまま取得の連打になることはない。
func (h *Handle) Trigger() {
	select {
	case h.trigger <- struct{}{}:
	default:
	}
}

// run は再計算ループの本体。パスはこのゴルーチン内で逐次実行される。
func (h *Handle) run() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	// 起動直後に初回パスを実行する
	h.runPass()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.runPass()
		case <-h.trigger:
			h.runPass()
		}
	}
}

// runPass は1回の再計算パス（取得→計算→公開）を実行する。
// 取得に失敗した場合はパスを中断し、直前の公開済み状態を維持する。
func (h *Handle) runPass() {
	h.mu.Lock()
	h.nextSeq++
	seq := h.nextSeq
	h.mu.Unlock()

	orders, err := h.source.FetchOrders(h.ctx)
	if err != nil {
		if h.ctx.Err() != nil {
			return
		}
		h.reportError(fmt.Errorf("注文スナップショットの取得に失敗: %w", err))
		return
	}

	notifications := alert.Compute(orders, h.now())

	// 停止後・より新しいパスの公開後は結果を破棄する
	h.mu.Lock()
	if h.stopped || seq <= h.published {
		h.mu.Unlock()
		return
	}
	h.published = seq
	h.mu.Unlock()

	h.onUpdate(notifications)
}

// consumeSubscription は変更購読を消費し、イベントごとにパスをスケジュールする。
// 購読が切断された場合はバックオフ付きで再購読を試み、再確立までの間は
// タイマー起因のパスだけが鮮度を維持する。
func (h *Handle) consumeSubscription() {
	defer h.wg.Done()

	backoff := time.Second
	for {
		if h.ctx.Err() != nil {
			return
		}

		events, err := h.source.Subscribe(h.ctx)
		if err != nil {
			h.reportError(fmt.Errorf("変更購読の開始に失敗: %w", err))
			select {
			case <-h.ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < maxResubscribeBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if !h.consumeEvents(events) {
			return
		}
		h.reportError(errors.New("変更購読が切断されました。再購読します"))
	}
}

// consumeEvents は購読チャネルからイベントを読み続ける。
// チャネルがクローズされた場合はtrue（再購読が必要）を、
// ループが停止された場合はfalseを返す。
func (h *Handle) consumeEvents(events <-chan order.ChangeEvent) bool {
	for {
		select {
		case <-h.ctx.Done():
			return false
		case _, ok := <-events:
			if !ok {
				return true
			}
			// イベント内容は差分適用せず、全件再取得のヒントとして扱う
			h.Trigger()
		}
	}
}

// reportError は非致命エラーをコールバックまたはログで通知する。
func (h *Handle) reportError(err error) {
	if h.onError != nil {
		h.onError(err)
		return
	}
	log.Printf("[Reconcile] %v", err)
}
