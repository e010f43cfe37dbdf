package readstate

import (
	"sync"
	"time"

	"github.com/nao1215/orderwatch/pkg/alert"
)

// entry は1つの通知IDに対する既読状態の記録。
type entry struct {
	// read は既読フラグ。
	read bool
	// seenAt はこのIDを最後に観測した日時。
	seenAt time.Time
}

// Tracker は通知IDをキーとした既読状態を再計算をまたいで保持する。
//
// 通知は再計算のたびに生成し直されるため、既読フラグは通知自体ではなく
// このトラッカーが持つ。Mergeで最新の計算結果に既読状態を重ね合わせ、
// 現在の集合に存在しないIDの記録は破棄する（対象の注文が解消されれば
// 既読記録も自然に消える）。
//
// すべてのメソッドは並行呼び出しに対して安全であり、再計算の実行中に
// 既読操作が行われても次のMergeで失われることはない。
type Tracker struct {
	// mu はstateへの並行アクセスを保護するミューテックス。
	mu sync.Mutex
	// state は通知IDから既読状態へのマッピング。
	state map[string]entry
}

// New は新しい既読状態トラッカーを生成する。
func New() *Tracker {
	return &Tracker{
		state: make(map[string]entry),
	}
}

// Merge は計算済み通知の集合に既読状態を重ね合わせた新しいスライスを返す。
// トラッカーに記録のないIDはisRead=falseのまま返す。
// 同時に、現在の集合に存在しないIDの記録を破棄する。
// 引数のスライスは変更しない。
func (t *Tracker) Merge(current []alert.Notification) []alert.Notification {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now().UTC()
	merged := make([]alert.Notification, len(current))
	currentIDs := make(map[string]struct{}, len(current))

	for i, n := range current {
		currentIDs[n.ID] = struct{}{}
		if e, ok := t.state[n.ID]; ok {
			n.IsRead = e.read
		} else {
			n.IsRead = false
		}
		t.state[n.ID] = entry{read: n.IsRead, seenAt: now}
		merged[i] = n
	}

	// 現在の集合から消えたIDの記録を落とす
	for id := range t.state {
		if _, ok := currentIDs[id]; !ok {
			delete(t.state, id)
		}
	}

	return merged
}

// MarkRead は指定IDの通知を既読として記録する。
// まだ観測していないIDに対しても記録し、次のMergeで反映される。
func (t *Tracker) MarkRead(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state[id] = entry{read: true, seenAt: time.Now().UTC()}
}

// MarkUnread は指定IDの通知を未読に戻す。
func (t *Tracker) MarkUnread(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state[id] = entry{read: false, seenAt: time.Now().UTC()}
}

// MarkAllRead は記録済みのすべてのIDを既読にする。
func (t *Tracker) MarkAllRead() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now().UTC()
	for id := range t.state {
		t.state[id] = entry{read: true, seenAt: now}
	}
}

// IsRead は指定IDの既読状態を返す。記録がない場合はfalseを返す。
func (t *Tracker) IsRead(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state[id].read
}

// Len は記録中のIDの数を返す。
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.state)
}
