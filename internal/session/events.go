package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aryam643/white-board/internal/domain"
)

// 客户端到服务端的事件名
const (
	EventConnect    = "connect" // 内部事件：新连接建立
	EventDisconnect = "disconnect"
	EventJoinRoom   = "join-room"
	EventLeaveRoom  = "leave-room"
	EventCursorMove = "cursor-move"
	EventDrawStart  = "draw-start"
	EventDrawMove   = "draw-move"
	EventDrawEnd    = "draw-end"
	EventClear      = "clear-canvas"
)

// 服务端到客户端的事件名
const (
	EventRoomHistory   = "room-history"
	EventUserCount     = "user-count"
	EventCursorUpdate  = "cursor-update"
	EventDrawData      = "draw-data"
	EventCanvasCleared = "canvas-cleared"
	EventUserLeft      = "user-left"
	// draw-end 原样转发，复用 EventDrawEnd
)

// Event 是送入协调器的入站事件 (带标签的联合类型)。
// connect/disconnect 由传输层生成，其余来自客户端消息信封。
type Event struct {
	Type     string          // 事件名
	MemberID string          // 来源连接的标识符
	Data     json.RawMessage // 原始事件数据，协调器按事件类型解析
	At       time.Time       // 服务端接收时间，驱动节流判定
}

// Envelope 是 WebSocket 双向消息的线上信封。
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// CursorUpdate 是 cursor-update 广播的数据。
type CursorUpdate struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	UserID string  `json:"userId"`
}

// roomRef 只带房间码的事件数据 (draw-end / clear-canvas / leave-room)
type roomRef struct {
	RoomID string `json:"roomId"`
}

// parseRoomID 从事件数据中解出房间码并归一化。
// 兼容两种形式：裸 JSON 字符串 "ABC123" 和对象 {"roomId": "ABC123"}。
func parseRoomID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("session: missing event data")
	}
	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return domain.NormalizeRoomCode(plain), nil
	}
	var ref roomRef
	if err := json.Unmarshal(raw, &ref); err != nil {
		return "", fmt.Errorf("session: malformed room reference: %w", err)
	}
	return domain.NormalizeRoomCode(ref.RoomID), nil
}
