package throttle_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aryam643/white-board/internal/throttle"
)

func TestLimiter_RejectsWithinWindow(t *testing.T) {
	l := throttle.NewLimiter()
	base := time.Unix(0, 0)

	// 50ms 窗口内 t=0 和 t=40ms 两条事件只接受第一条
	assert.True(t, l.Allow("alice", throttle.ClassCursor, base, throttle.CursorWindow))
	assert.False(t, l.Allow("alice", throttle.ClassCursor, base.Add(40*time.Millisecond), throttle.CursorWindow))
}

func TestLimiter_AcceptsAfterWindow(t *testing.T) {
	l := throttle.NewLimiter()
	base := time.Unix(0, 0)

	assert.True(t, l.Allow("alice", throttle.ClassCursor, base, throttle.CursorWindow))
	assert.True(t, l.Allow("alice", throttle.ClassCursor, base.Add(60*time.Millisecond), throttle.CursorWindow))
}

func TestLimiter_RejectionDoesNotResetWindow(t *testing.T) {
	l := throttle.NewLimiter()
	base := time.Unix(0, 0)

	// 被拒绝的事件不更新时间戳：t=40 被拒后 t=55 仍以 t=0 为基准判定
	assert.True(t, l.Allow("alice", throttle.ClassCursor, base, throttle.CursorWindow))
	assert.False(t, l.Allow("alice", throttle.ClassCursor, base.Add(40*time.Millisecond), throttle.CursorWindow))
	assert.True(t, l.Allow("alice", throttle.ClassCursor, base.Add(55*time.Millisecond), throttle.CursorWindow))
}

func TestLimiter_StateIsPerMemberAndClass(t *testing.T) {
	l := throttle.NewLimiter()
	base := time.Unix(0, 0)

	assert.True(t, l.Allow("alice", throttle.ClassCursor, base, throttle.CursorWindow))

	// 其他成员和其他类别不受 alice 的光标节流影响
	assert.True(t, l.Allow("bob", throttle.ClassCursor, base, throttle.CursorWindow))
	assert.True(t, l.Allow("alice", throttle.ClassStroke, base, throttle.StrokeWindow))
}

func TestLimiter_ForgetClearsMemberState(t *testing.T) {
	l := throttle.NewLimiter()
	base := time.Unix(0, 0)

	assert.True(t, l.Allow("alice", throttle.ClassCursor, base, throttle.CursorWindow))
	assert.True(t, l.Allow("bob", throttle.ClassCursor, base, throttle.CursorWindow))

	l.Forget("alice")

	// alice 的状态被清除，bob 的保留
	assert.True(t, l.Allow("alice", throttle.ClassCursor, base.Add(time.Millisecond), throttle.CursorWindow))
	assert.False(t, l.Allow("bob", throttle.ClassCursor, base.Add(time.Millisecond), throttle.CursorWindow))
}
