package alert

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/nao1215/orderwatch/pkg/order"
)

// dueSoonWindowDays は納期接近とみなす残り日数の上限。
// 残り日数がこの値を超える注文は通知を生成しない。
const dueSoonWindowDays = 5

// NotificationID は (種類, 注文ID) から通知の決定的な識別子を導出する。
// 同じ注文スナップショットからの再計算は常に同じIDを返す。
func NotificationID(notificationType Type, orderID string) string {
	return fmt.Sprintf("%s_%s", notificationType, orderID)
}

// DaysUntilDue は納期までの残り日数を返す。
// ceil((納期 - 現在時刻) / 24時間) で計算するため、本日中の納期は0、
// 納期超過は経過日数の負の値になる。
func DaysUntilDue(dueDate, now time.Time) int {
	return int(math.Ceil(dueDate.Sub(now).Hours() / 24))
}

// Compute は注文スナップショットと現在時刻から通知の集合を導出する。
// 純粋関数であり、同じ入力からは常に同じ結果を返す。I/Oや副作用を持たない。
//
// 納期が未設定、または終端状態（delivered / cancelled）の注文は
// 対象外としてエラーなく除外される。1つの注文から生成される通知は
// 最大1件であるため、結果にIDの重複は存在しない。
func Compute(orders []order.Order, now time.Time) []Notification {
	notifications := make([]Notification, 0, len(orders))
	for _, o := range orders {
		if !o.Notifiable() {
			continue
		}

		days := DaysUntilDue(*o.DueDate, now)
		if days > dueSoonWindowDays {
			continue
		}

		notifications = append(notifications, build(o, days, now))
	}
	return notifications
}

// build は1つの対象注文から通知レコードを生成する。
// daysが負なら納期超過（高優先度）、0以上なら納期接近（中優先度）。
func build(o order.Order, days int, now time.Time) Notification {
	n := Notification{
		OrderID:      o.ID,
		CustomerID:   o.CustomerID,
		CustomerName: o.CustomerName,
		OrderNumber:  o.OrderNumber,
		DueDate:      *o.DueDate,
		DaysUntilDue: days,
		CreatedAt:    now,
	}

	if days < 0 {
		n.Type = TypeOverdue
		n.Priority = PriorityHigh
		n.Title = "Order Overdue"
		n.Message = fmt.Sprintf("Order %s for %s is %d days overdue", o.OrderNumber, o.CustomerName, -days)
	} else {
		n.Type = TypeDueSoon
		n.Priority = PriorityMedium
		n.Title = "Order Due Soon"
		n.Message = fmt.Sprintf("Order %s for %s is due in %d day(s)", o.OrderNumber, o.CustomerName, days)
	}
	n.ID = NotificationID(n.Type, o.ID)
	return n
}

// priorityRank は優先度のソート順（小さいほど緊急）を返す。
func priorityRank(p Priority) int {
	if p == PriorityHigh {
		return 0
	}
	return 1
}

// Sort は通知を優先度順、同一優先度内では残り日数の昇順に並べ替える。
// 表示用の並び順であり、Computeの結果自体は順序を保証しない。
func Sort(notifications []Notification) {
	sort.SliceStable(notifications, func(i, j int) bool {
		if priorityRank(notifications[i].Priority) != priorityRank(notifications[j].Priority) {
			return priorityRank(notifications[i].Priority) < priorityRank(notifications[j].Priority)
		}
		if notifications[i].DaysUntilDue != notifications[j].DaysUntilDue {
			return notifications[i].DaysUntilDue < notifications[j].DaysUntilDue
		}
		return notifications[i].ID < notifications[j].ID
	})
}

// UnreadCount は通知集合に含まれる未読通知の数を返す。
// 常に現在の集合から導出し、別途カウンタを増減させることはしない。
// 対象の注文が解消されて通知が消えれば、未読数も自動的に減る。
func UnreadCount(notifications []Notification) int {
	count := 0
	for _, n := range notifications {
		if !n.IsRead {
			count++
		}
	}
	return count
}
