package session

import (
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/aryam643/white-board/internal/domain"
	"github.com/aryam643/white-board/internal/registry"
	"github.com/aryam643/white-board/internal/throttle"
)

// Coordinator 是每个成员的会话状态机：
// Disconnected → Connected(无房间) → InRoom(roomID) → Disconnected。
//
// 它独占持有 Connection Registry 和 Throttler 的实例状态，
// 入站事件经唯一入口 Handle 处理，返回出站副作用列表，自身不做 I/O。
// Handle 只会被 hub 的单一事件循环调用，因此内部状态不需要加锁。
type Coordinator struct {
	registry *registry.Registry
	limiter  *throttle.Limiter

	// 成员当前所在的房间，"" 表示 Connected(无房间)。
	// 成员同一时刻只属于一个房间。
	members map[string]string
}

// NewCoordinator 创建 Coordinator 实例及其私有的注册表/节流器状态
func NewCoordinator() *Coordinator {
	return &Coordinator{
		registry: registry.New(),
		limiter:  throttle.NewLimiter(),
		members:  make(map[string]string),
	}
}

// Registry 暴露只读用途的成员记账，供测试和运维接口使用。
func (c *Coordinator) Registry() *registry.Registry {
	return c.registry
}

// Handle 处理一条入站事件并返回出站副作用。
// 畸形的事件数据记录警告后丢弃，不产生任何副作用。
func (c *Coordinator) Handle(ev Event) []Effect {
	switch ev.Type {
	case EventConnect:
		return c.handleConnect(ev)
	case EventDisconnect:
		return c.handleDisconnect(ev)
	case EventJoinRoom:
		return c.handleJoin(ev)
	case EventLeaveRoom:
		return c.handleLeave(ev)
	case EventCursorMove:
		return c.handleCursorMove(ev)
	case EventDrawStart:
		return c.handleDrawStart(ev)
	case EventDrawMove:
		return c.handleDrawMove(ev)
	case EventDrawEnd:
		return c.handleDrawEnd(ev)
	case EventClear:
		return c.handleClear(ev)
	default:
		logrus.WithFields(logrus.Fields{
			"member_id":  ev.MemberID,
			"event_type": ev.Type,
		}).Warn("Coordinator: unknown event type, dropping")
		return nil
	}
}

func (c *Coordinator) handleConnect(ev Event) []Effect {
	c.members[ev.MemberID] = ""
	logrus.WithField("member_id", ev.MemberID).Info("Member connected")
	return nil
}

// handleJoin 处理加入房间。已在其他房间时先产生与显式离开
// 完全相同的副作用，再进入新房间。
func (c *Coordinator) handleJoin(ev Event) []Effect {
	logCtx := logrus.WithField("member_id", ev.MemberID)

	roomID, err := parseRoomID(ev.Data)
	if err != nil || !domain.ValidRoomCode(roomID) {
		logCtx.WithError(err).WithField("room_id", roomID).Warn("Invalid join-room payload, dropping")
		return nil
	}
	logCtx = logCtx.WithField("room_id", roomID)

	var effects []Effect

	// 隐式离开旧房间
	if current := c.members[ev.MemberID]; current != "" && current != roomID {
		effects = append(effects, c.leaveEffects(current, ev.MemberID)...)
	}

	count := c.registry.Join(roomID, ev.MemberID)
	c.members[ev.MemberID] = roomID

	// 历史回放只单播给加入者；用户数广播给整个房间（包括加入者）。
	// 加入同时刷新房间的 LastActivity，有人在的房间不会被过期清理扫掉。
	effects = append(effects,
		replay(roomID, ev.MemberID),
		toRoom(roomID, EventUserCount, count),
		touchRoom(roomID),
	)
	logCtx.WithField("user_count", count).Info("Member joined room")
	return effects
}

func (c *Coordinator) handleLeave(ev Event) []Effect {
	roomID, err := parseRoomID(ev.Data)
	if err != nil || roomID == "" {
		logrus.WithField("member_id", ev.MemberID).WithError(err).Warn("Invalid leave-room payload, dropping")
		return nil
	}

	if c.members[ev.MemberID] == roomID {
		c.members[ev.MemberID] = ""
	}
	effects := c.leaveEffects(roomID, ev.MemberID)
	logrus.WithFields(logrus.Fields{"member_id": ev.MemberID, "room_id": roomID}).Info("Member left room")
	return effects
}

// leaveEffects 执行一次离开的注册表变更并构造通知副作用。
// 房间还有人时广播最新用户数；不管房间是否变空，
// 都向剩余成员发 user-left，让下游丢弃引用该成员的在途事件。
func (c *Coordinator) leaveEffects(roomID, memberID string) []Effect {
	count, tracked := c.registry.Leave(roomID, memberID)
	var effects []Effect
	if tracked && count > 0 {
		effects = append(effects, toRoom(roomID, EventUserCount, count))
	}
	effects = append(effects, toOthers(roomID, memberID, EventUserLeft, memberID))
	return effects
}

func (c *Coordinator) handleCursorMove(ev Event) []Effect {
	var data domain.CursorData
	if err := json.Unmarshal(ev.Data, &data); err != nil {
		logrus.WithField("member_id", ev.MemberID).WithError(err).Warn("Invalid cursor-move payload, dropping")
		return nil
	}
	roomID := domain.NormalizeRoomCode(data.RoomID)

	// 光标事件只在 InRoom 状态下有意义
	if !c.registry.Contains(roomID, ev.MemberID) {
		logrus.WithFields(logrus.Fields{"member_id": ev.MemberID, "room_id": roomID}).
			Debug("cursor-move from member not in room, dropping")
		return nil
	}

	if !c.limiter.Allow(ev.MemberID, throttle.ClassCursor, ev.At, throttle.CursorWindow) {
		// 节流拒绝：静默丢弃，不缓冲
		return nil
	}

	update := CursorUpdate{X: data.X, Y: data.Y, UserID: ev.MemberID}
	return []Effect{toOthers(roomID, ev.MemberID, EventCursorUpdate, update)}
}

// handleDrawStart 立即广播，不节流也不持久化：
// 只有 move 采样会进日志，孤立的 start 是退化笔画。
func (c *Coordinator) handleDrawStart(ev Event) []Effect {
	data, roomID, ok := c.parseStroke(ev)
	if !ok {
		return nil
	}
	return []Effect{toOthers(roomID, ev.MemberID, EventDrawData, data)}
}

// handleDrawMove 广播与持久化是相互独立的副作用：
// 广播绝不等待存储调用，持久化失败由执行器记录并吞掉。
func (c *Coordinator) handleDrawMove(ev Event) []Effect {
	data, roomID, ok := c.parseStroke(ev)
	if !ok {
		return nil
	}
	effects := []Effect{toOthers(roomID, ev.MemberID, EventDrawData, data)}

	cmd, err := domain.NewStrokeCommand(roomID, data, ev.At)
	if err != nil {
		// 数据刚刚反序列化成功，这里失败意味着编码 bug；广播照常
		logrus.WithFields(logrus.Fields{"member_id": ev.MemberID, "room_id": roomID}).
			WithError(err).Error("Failed to build stroke command")
		return effects
	}
	return append(effects, appendLog(roomID, cmd))
}

// handleDrawEnd 转发抬笔信号；end 是瞬态事实，不进日志。
func (c *Coordinator) handleDrawEnd(ev Event) []Effect {
	roomID, err := parseRoomID(ev.Data)
	if err != nil || roomID == "" {
		logrus.WithField("member_id", ev.MemberID).WithError(err).Warn("Invalid draw-end payload, dropping")
		return nil
	}
	return []Effect{toOthers(roomID, ev.MemberID, EventDrawEnd, roomRef{RoomID: roomID})}
}

// handleClear 向整个房间（包括发送者）广播清空通知，
// 并把房间日志重写为单条 clear 命令。
func (c *Coordinator) handleClear(ev Event) []Effect {
	roomID, err := parseRoomID(ev.Data)
	if err != nil || roomID == "" {
		logrus.WithField("member_id", ev.MemberID).WithError(err).Warn("Invalid clear-canvas payload, dropping")
		return nil
	}
	logrus.WithFields(logrus.Fields{"member_id": ev.MemberID, "room_id": roomID}).Info("Canvas cleared")
	return []Effect{
		toRoom(roomID, EventCanvasCleared, nil),
		replaceLog(roomID, domain.NewClearCommand(roomID, ev.At)),
	}
}

// handleDisconnect 等价于对成员所在房间执行 leave，然后进入终态。
// 这是协调器需要响应的唯一取消信号，无论该成员还有什么在途操作。
func (c *Coordinator) handleDisconnect(ev Event) []Effect {
	var effects []Effect
	for _, dep := range c.registry.LeaveAll(ev.MemberID) {
		if dep.Remaining > 0 {
			effects = append(effects, toRoom(dep.RoomID, EventUserCount, dep.Remaining))
		}
		effects = append(effects, toOthers(dep.RoomID, ev.MemberID, EventUserLeft, ev.MemberID))
	}
	c.limiter.Forget(ev.MemberID)
	delete(c.members, ev.MemberID)
	logrus.WithField("member_id", ev.MemberID).Info("Member disconnected")
	return effects
}

// parseStroke 解析 draw-start/draw-move 的数据并校验房间码
func (c *Coordinator) parseStroke(ev Event) (domain.StrokeData, string, bool) {
	var data domain.StrokeData
	if err := json.Unmarshal(ev.Data, &data); err != nil {
		logrus.WithField("member_id", ev.MemberID).WithError(err).Warn("Invalid draw payload, dropping")
		return data, "", false
	}
	roomID := domain.NormalizeRoomCode(data.RoomID)
	if roomID == "" {
		logrus.WithField("member_id", ev.MemberID).Warn("Draw payload missing room id, dropping")
		return data, "", false
	}
	data.RoomID = roomID
	return data, roomID, true
}
