package session_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryam643/white-board/internal/domain"
	"github.com/aryam643/white-board/internal/session"
)

// --- 测试辅助 ---

var baseTime = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func event(eventType, memberID string, data any, at time.Time) session.Event {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			panic(err)
		}
		raw = b
	}
	return session.Event{Type: eventType, MemberID: memberID, Data: raw, At: at}
}

func connectAndJoin(t *testing.T, c *session.Coordinator, memberID, roomID string) {
	t.Helper()
	c.Handle(event(session.EventConnect, memberID, nil, baseTime))
	effects := c.Handle(event(session.EventJoinRoom, memberID, roomID, baseTime))
	require.NotEmpty(t, effects, "join should produce effects")
}

func effectsOfKind(effects []session.Effect, kind session.EffectKind) []session.Effect {
	var out []session.Effect
	for _, e := range effects {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// --- 加入 / 离开 ---

func TestCoordinator_JoinProducesReplayAndUserCount(t *testing.T) {
	c := session.NewCoordinator()
	c.Handle(event(session.EventConnect, "alice", nil, baseTime))

	effects := c.Handle(event(session.EventJoinRoom, "alice", "room01", baseTime))
	require.Len(t, effects, 3)

	// 历史回放单播给加入者，房间码已归一化为大写
	assert.Equal(t, session.EffectReplay, effects[0].Kind)
	assert.Equal(t, "ROOM01", effects[0].RoomID)
	assert.Equal(t, "alice", effects[0].MemberID)
	assert.Equal(t, session.EventRoomHistory, effects[0].Event)

	// 用户数广播给整个房间，包括加入者
	assert.Equal(t, session.EffectToRoom, effects[1].Kind)
	assert.Equal(t, session.EventUserCount, effects[1].Event)
	assert.Equal(t, 1, effects[1].Data)

	// 加入刷新房间的活跃时间
	assert.Equal(t, session.EffectTouch, effects[2].Kind)
	assert.Equal(t, "ROOM01", effects[2].RoomID)

	assert.Equal(t, 1, c.Registry().Count("ROOM01"))
}

func TestCoordinator_JoinAcceptsObjectPayload(t *testing.T) {
	c := session.NewCoordinator()
	c.Handle(event(session.EventConnect, "alice", nil, baseTime))

	effects := c.Handle(event(session.EventJoinRoom, "alice", map[string]string{"roomId": " abc123 "}, baseTime))
	require.Len(t, effects, 3)
	assert.Equal(t, "ABC123", effects[0].RoomID)
}

func TestCoordinator_JoinInvalidRoomCodeIsInert(t *testing.T) {
	c := session.NewCoordinator()
	c.Handle(event(session.EventConnect, "alice", nil, baseTime))

	for _, code := range []string{"abc", "toolong-code", "bad!!!", ""} {
		effects := c.Handle(event(session.EventJoinRoom, "alice", code, baseTime))
		assert.Empty(t, effects, "code %q should be rejected", code)
	}
	assert.Equal(t, 0, c.Registry().Count("ABC"))
}

func TestCoordinator_JoinSecondRoomImpliesLeave(t *testing.T) {
	c := session.NewCoordinator()
	connectAndJoin(t, c, "alice", "ROOM01")
	connectAndJoin(t, c, "bob", "ROOM01")

	effects := c.Handle(event(session.EventJoinRoom, "bob", "ROOM02", baseTime))
	require.Len(t, effects, 5)

	// 先产生与显式离开完全相同的副作用
	assert.Equal(t, session.EffectToRoom, effects[0].Kind)
	assert.Equal(t, "ROOM01", effects[0].RoomID)
	assert.Equal(t, session.EventUserCount, effects[0].Event)
	assert.Equal(t, 1, effects[0].Data)

	assert.Equal(t, session.EffectToOthers, effects[1].Kind)
	assert.Equal(t, "ROOM01", effects[1].RoomID)
	assert.Equal(t, session.EventUserLeft, effects[1].Event)
	assert.Equal(t, "bob", effects[1].Data)

	// 然后才是新房间的回放、用户数和活跃时间刷新
	assert.Equal(t, session.EffectReplay, effects[2].Kind)
	assert.Equal(t, "ROOM02", effects[2].RoomID)
	assert.Equal(t, session.EffectToRoom, effects[3].Kind)
	assert.Equal(t, "ROOM02", effects[3].RoomID)
	assert.Equal(t, session.EffectTouch, effects[4].Kind)
	assert.Equal(t, "ROOM02", effects[4].RoomID)

	assert.Equal(t, 1, c.Registry().Count("ROOM01"))
	assert.Equal(t, 1, c.Registry().Count("ROOM02"))
	assert.False(t, c.Registry().Contains("ROOM01", "bob"))
}

func TestCoordinator_RejoinSameRoomDoesNotLeave(t *testing.T) {
	c := session.NewCoordinator()
	connectAndJoin(t, c, "alice", "ROOM01")

	effects := c.Handle(event(session.EventJoinRoom, "alice", "ROOM01", baseTime))
	require.Len(t, effects, 3)
	assert.Equal(t, session.EffectReplay, effects[0].Kind)
	assert.Equal(t, 1, c.Registry().Count("ROOM01"))
}

func TestCoordinator_LeaveNotifiesRemainingMembers(t *testing.T) {
	c := session.NewCoordinator()
	connectAndJoin(t, c, "alice", "ROOM01")
	connectAndJoin(t, c, "bob", "ROOM01")

	effects := c.Handle(event(session.EventLeaveRoom, "alice", "ROOM01", baseTime))
	require.Len(t, effects, 2)

	assert.Equal(t, session.EffectToRoom, effects[0].Kind)
	assert.Equal(t, session.EventUserCount, effects[0].Event)
	assert.Equal(t, 1, effects[0].Data)

	assert.Equal(t, session.EffectToOthers, effects[1].Kind)
	assert.Equal(t, session.EventUserLeft, effects[1].Event)
	assert.Equal(t, "alice", effects[1].Data)
}

func TestCoordinator_LeaveLastMemberSkipsUserCount(t *testing.T) {
	c := session.NewCoordinator()
	connectAndJoin(t, c, "alice", "ROOM01")

	effects := c.Handle(event(session.EventLeaveRoom, "alice", "ROOM01", baseTime))
	require.Len(t, effects, 1)

	// 房间已空：不再广播 user-count，但 user-left 仍然发出
	assert.Equal(t, session.EffectToOthers, effects[0].Kind)
	assert.Equal(t, session.EventUserLeft, effects[0].Event)
	assert.Equal(t, 0, c.Registry().Count("ROOM01"))
}

// --- 断连 ---

func TestCoordinator_DisconnectMatchesExplicitLeave(t *testing.T) {
	c := session.NewCoordinator()
	connectAndJoin(t, c, "alice", "ROOM01")
	connectAndJoin(t, c, "bob", "ROOM01")

	effects := c.Handle(event(session.EventDisconnect, "alice", nil, baseTime))
	require.Len(t, effects, 2)
	assert.Equal(t, session.EventUserCount, effects[0].Event)
	assert.Equal(t, 1, effects[0].Data)
	assert.Equal(t, session.EventUserLeft, effects[1].Event)
	assert.False(t, c.Registry().Contains("ROOM01", "alice"))
}

func TestCoordinator_DisconnectWithoutRoomIsQuiet(t *testing.T) {
	c := session.NewCoordinator()
	c.Handle(event(session.EventConnect, "alice", nil, baseTime))

	effects := c.Handle(event(session.EventDisconnect, "alice", nil, baseTime))
	assert.Empty(t, effects)
}

func TestCoordinator_DisconnectClearsThrottleState(t *testing.T) {
	c := session.NewCoordinator()
	connectAndJoin(t, c, "alice", "ROOM01")
	connectAndJoin(t, c, "bob", "ROOM01")

	cursor := domain.CursorData{RoomID: "ROOM01", X: 1, Y: 2}
	effects := c.Handle(event(session.EventCursorMove, "alice", cursor, baseTime))
	require.Len(t, effects, 1)

	c.Handle(event(session.EventDisconnect, "alice", nil, baseTime))

	// 重连后同一时间戳的光标事件不受旧状态影响
	connectAndJoin(t, c, "alice", "ROOM01")
	effects = c.Handle(event(session.EventCursorMove, "alice", cursor, baseTime.Add(time.Millisecond)))
	assert.Len(t, effects, 1)
}

// --- 光标 ---

func TestCoordinator_CursorMoveBroadcastsToOthers(t *testing.T) {
	c := session.NewCoordinator()
	connectAndJoin(t, c, "alice", "ROOM01")

	effects := c.Handle(event(session.EventCursorMove, "alice", domain.CursorData{RoomID: "ROOM01", X: 10, Y: 20}, baseTime))
	require.Len(t, effects, 1)

	assert.Equal(t, session.EffectToOthers, effects[0].Kind)
	assert.Equal(t, session.EventCursorUpdate, effects[0].Event)
	update, ok := effects[0].Data.(session.CursorUpdate)
	require.True(t, ok)
	assert.Equal(t, float64(10), update.X)
	assert.Equal(t, float64(20), update.Y)
	assert.Equal(t, "alice", update.UserID)
}

func TestCoordinator_CursorMoveIsThrottled(t *testing.T) {
	c := session.NewCoordinator()
	connectAndJoin(t, c, "alice", "ROOM01")
	cursor := domain.CursorData{RoomID: "ROOM01", X: 1, Y: 1}

	// 50ms 窗口内的第二条被静默丢弃
	assert.Len(t, c.Handle(event(session.EventCursorMove, "alice", cursor, baseTime)), 1)
	assert.Empty(t, c.Handle(event(session.EventCursorMove, "alice", cursor, baseTime.Add(40*time.Millisecond))))
	assert.Len(t, c.Handle(event(session.EventCursorMove, "alice", cursor, baseTime.Add(101*time.Millisecond))), 1)
}

func TestCoordinator_CursorMoveOutsideRoomIsDropped(t *testing.T) {
	c := session.NewCoordinator()
	c.Handle(event(session.EventConnect, "alice", nil, baseTime))

	effects := c.Handle(event(session.EventCursorMove, "alice", domain.CursorData{RoomID: "ROOM01", X: 1, Y: 1}, baseTime))
	assert.Empty(t, effects)
}

// --- 绘图 ---

func TestCoordinator_DrawStartBroadcastsWithoutPersisting(t *testing.T) {
	c := session.NewCoordinator()
	connectAndJoin(t, c, "alice", "ROOM01")

	stroke := domain.StrokeData{RoomID: "ROOM01", X: 5, Y: 6, Color: "#000000", StrokeWidth: 2}
	effects := c.Handle(event(session.EventDrawStart, "alice", stroke, baseTime))
	require.Len(t, effects, 1)

	assert.Equal(t, session.EffectToOthers, effects[0].Kind)
	assert.Equal(t, session.EventDrawData, effects[0].Event)
	assert.Empty(t, effectsOfKind(effects, session.EffectAppend))
}

func TestCoordinator_DrawMoveBroadcastsAndAppends(t *testing.T) {
	c := session.NewCoordinator()
	connectAndJoin(t, c, "alice", "ROOM01")

	stroke := domain.StrokeData{
		RoomID: "ROOM01",
		Path:   []domain.Point{{X: 1, Y: 2}, {X: 3, Y: 4}},
		Color:  "#ff0000",
	}
	effects := c.Handle(event(session.EventDrawMove, "alice", stroke, baseTime))
	require.Len(t, effects, 2)

	assert.Equal(t, session.EffectToOthers, effects[0].Kind)
	assert.Equal(t, session.EventDrawData, effects[0].Event)

	assert.Equal(t, session.EffectAppend, effects[1].Kind)
	assert.Equal(t, "ROOM01", effects[1].RoomID)
	assert.Equal(t, domain.CommandStroke, effects[1].Command.Type)
	assert.Equal(t, baseTime, effects[1].Command.Timestamp)

	var persisted domain.StrokeData
	require.NoError(t, json.Unmarshal([]byte(effects[1].Command.Data), &persisted))
	assert.Equal(t, stroke.Path, persisted.Path)
	assert.Equal(t, "#ff0000", persisted.Color)
}

func TestCoordinator_DrawEndForwardsRoomRef(t *testing.T) {
	c := session.NewCoordinator()
	connectAndJoin(t, c, "alice", "ROOM01")

	effects := c.Handle(event(session.EventDrawEnd, "alice", map[string]string{"roomId": "ROOM01"}, baseTime))
	require.Len(t, effects, 1)
	assert.Equal(t, session.EffectToOthers, effects[0].Kind)
	assert.Equal(t, session.EventDrawEnd, effects[0].Event)
	assert.Empty(t, effectsOfKind(effects, session.EffectAppend))
}

// --- 清空 ---

func TestCoordinator_ClearBroadcastsAndReplacesLog(t *testing.T) {
	c := session.NewCoordinator()
	connectAndJoin(t, c, "alice", "ROOM01")
	connectAndJoin(t, c, "bob", "ROOM01")

	effects := c.Handle(event(session.EventClear, "alice", "ROOM01", baseTime))
	require.Len(t, effects, 2)

	// 清空通知发给整个房间，包括发送者
	assert.Equal(t, session.EffectToRoom, effects[0].Kind)
	assert.Equal(t, session.EventCanvasCleared, effects[0].Event)

	assert.Equal(t, session.EffectReplace, effects[1].Kind)
	assert.Equal(t, domain.CommandClear, effects[1].Command.Type)
	assert.Equal(t, "ROOM01", effects[1].Command.RoomID)
}

// --- 畸形输入 ---

func TestCoordinator_MalformedPayloadsAreInert(t *testing.T) {
	c := session.NewCoordinator()
	connectAndJoin(t, c, "alice", "ROOM01")

	malformed := json.RawMessage(`{"roomId": 42`)
	for _, eventType := range []string{
		session.EventJoinRoom,
		session.EventLeaveRoom,
		session.EventCursorMove,
		session.EventDrawStart,
		session.EventDrawMove,
		session.EventDrawEnd,
		session.EventClear,
	} {
		effects := c.Handle(session.Event{Type: eventType, MemberID: "alice", Data: malformed, At: baseTime})
		assert.Empty(t, effects, "event %q should drop malformed data", eventType)
	}

	// 状态未被破坏
	assert.Equal(t, 1, c.Registry().Count("ROOM01"))
}

func TestCoordinator_UnknownEventTypeIsInert(t *testing.T) {
	c := session.NewCoordinator()
	connectAndJoin(t, c, "alice", "ROOM01")

	effects := c.Handle(event("no-such-event", "alice", "ROOM01", baseTime))
	assert.Empty(t, effects)
	assert.Equal(t, 1, c.Registry().Count("ROOM01"))
}
