package session

import "github.com/aryam643/white-board/internal/domain"

// EffectKind 标记协调器产出的出站副作用类型
type EffectKind int

const (
	// EffectToOthers 发给房间内除发送者之外的全部成员
	EffectToOthers EffectKind = iota
	// EffectToRoom 发给房间内全部成员，包含发送者
	EffectToRoom
	// EffectReplay 异步读取房间日志并把 room-history 单播给成员
	EffectReplay
	// EffectAppend 将命令排入房间日志的异步追加写
	EffectAppend
	// EffectReplace 将房间日志异步重写为单条命令
	EffectReplace
	// EffectTouch 异步刷新房间的 LastActivity (加入房间时标记活跃)
	EffectTouch
)

// Effect 是协调器返回给执行器的一条出站副作用。
// 协调器本身不做任何 I/O；投递和持久化由 hub 执行，
// 这样状态机无需真实的网络或存储即可单测。
type Effect struct {
	Kind     EffectKind
	RoomID   string
	MemberID string // Replay 的目标；ToOthers 的发送者 (被排除方)
	Event    string // 出站事件名，投递类副作用使用
	Data     any    // 出站事件数据，由执行器序列化
	Command  domain.DrawCommand // Append/Replace 使用
}

// --- Effect 构造辅助 ---

func toOthers(roomID, senderID, event string, data any) Effect {
	return Effect{Kind: EffectToOthers, RoomID: roomID, MemberID: senderID, Event: event, Data: data}
}

func toRoom(roomID, event string, data any) Effect {
	return Effect{Kind: EffectToRoom, RoomID: roomID, Event: event, Data: data}
}

func replay(roomID, memberID string) Effect {
	return Effect{Kind: EffectReplay, RoomID: roomID, MemberID: memberID, Event: EventRoomHistory}
}

func appendLog(roomID string, cmd domain.DrawCommand) Effect {
	return Effect{Kind: EffectAppend, RoomID: roomID, Command: cmd}
}

func replaceLog(roomID string, cmd domain.DrawCommand) Effect {
	return Effect{Kind: EffectReplace, RoomID: roomID, Command: cmd}
}

func touchRoom(roomID string) Effect {
	return Effect{Kind: EffectTouch, RoomID: roomID}
}
