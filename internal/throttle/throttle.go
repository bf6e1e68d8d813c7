// Package throttle 实现高频事件的冷却窗口判定。
package throttle

import "time"

// 流水线上两个独立的节流点对应的窗口。
const (
	// CursorWindow 光标移动事件的冷却窗口 (每成员约 20 次/秒上限)
	CursorWindow = 50 * time.Millisecond
	// StrokeWindow 笔画 move 事件在产生侧的冷却窗口 (约 60 次/秒上限)。
	// 服务端对 draw 事件不做节流，该常量供可选的服务端防御使用。
	StrokeWindow = 16 * time.Millisecond
)

// 事件类别，节流状态按 (成员, 类别) 维护。
const (
	ClassCursor = "cursor"
	ClassStroke = "stroke"
)

type key struct {
	memberID string
	class    string
}

// Limiter 记录每个 (成员, 事件类别) 最近一次被接受的时间戳。
// 与 Registry 一样只在协调器的事件循环中使用，不加锁。
type Limiter struct {
	lastAccepted map[key]time.Time
}

// NewLimiter 创建空的 Limiter 实例
func NewLimiter() *Limiter {
	return &Limiter{
		lastAccepted: make(map[key]time.Time),
	}
}

// Allow 判定一条事件是否通过节流：
// 距上次接受超过 window 时接受并记录 now，否则拒绝且状态不变。
// 被拒绝的事件直接丢弃，不做缓冲或合并。
func (l *Limiter) Allow(memberID, class string, now time.Time, window time.Duration) bool {
	k := key{memberID: memberID, class: class}
	last, ok := l.lastAccepted[k]
	if ok && now.Sub(last) <= window {
		return false
	}
	l.lastAccepted[k] = now
	return true
}

// Forget 清除成员的全部节流状态，在成员断连时调用。
func (l *Limiter) Forget(memberID string) {
	for k := range l.lastAccepted {
		if k.memberID == memberID {
			delete(l.lastAccepted, k)
		}
	}
}
