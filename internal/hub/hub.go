package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aryam643/white-board/internal/domain"
	"github.com/aryam643/white-board/internal/infra/persistence"
	"github.com/aryam643/white-board/internal/repository"
	"github.com/aryam643/white-board/internal/session"
)

// 包级别的 WebSocket 常量，供 hub 和 client 包内使用
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024 // draw-move 的采样路径可能较长

	// 读取房间日志用于回放的超时
	replayTimeout = 5 * time.Second

	// 刷新房间活跃时间的存储调用超时
	touchTimeout = 5 * time.Second
)

// Message 定义了在 Hub 内部通道传递的消息类型
type Message struct {
	Type   string  // "register", "unregister", "event"
	Client *Client // 仅用于 register/unregister
	Member string  // 来源成员标识符
	Raw    []byte  // 仅用于 event (原始 WebSocket 消息)
}

// Hub 维护活跃客户端集合，驱动会话协调器并执行其产出的副作用。
// 它同时是 Broadcast Router 的实现：按房间成员集投递，
// 非阻塞、至多一次、无确认无重试。
type Hub struct {
	// 内部通道，处理所有来自 Client 的事件；
	// Run 循环逐条处理，协调器状态只在该循环中被触碰
	messageChan chan Message
	quit        chan struct{}
	quitOnce    sync.Once

	// 成员标识符到客户端连接的映射。
	// 回放 goroutine 也会读它，所以需要锁保护。
	clients   map[string]*Client
	clientsMu sync.RWMutex

	coordinator *session.Coordinator
	writer      *persistence.RoomLogWriter
	rooms       repository.RoomRepository // 仅用于加入时刷新活跃时间
	logs        repository.LogRepository  // 仅用于回放读取
}

// New 创建并返回一个新的 Hub 实例
func New(coordinator *session.Coordinator, writer *persistence.RoomLogWriter, rooms repository.RoomRepository, logs repository.LogRepository) *Hub {
	if coordinator == nil {
		panic("Coordinator cannot be nil for Hub")
	}
	if writer == nil {
		panic("RoomLogWriter cannot be nil for Hub")
	}
	if rooms == nil {
		panic("RoomRepository cannot be nil for Hub")
	}
	if logs == nil {
		panic("LogRepository cannot be nil for Hub")
	}
	return &Hub{
		messageChan: make(chan Message, 512),
		quit:        make(chan struct{}),
		clients:     make(map[string]*Client),
		coordinator: coordinator,
		writer:      writer,
		rooms:       rooms,
		logs:        logs,
	}
}

// Run 启动 Hub 的主事件处理循环。
// 它应该在一个单独的 goroutine 中运行。
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")

	for {
		select {
		case msg := <-h.messageChan:
			switch msg.Type {
			case "register":
				h.registerClient(msg.Client)
			case "unregister":
				h.unregisterClient(msg.Client)
			case "event":
				h.handleClientEvent(msg)
			default:
				log.Warnf("Hub: Received unknown message type: %s from member %s", msg.Type, msg.Member)
			}
		case <-h.quit:
			log.Info("Hub is shutting down...")
			return
		}
	}
}

// Stop 终止 Run 循环。重复调用是安全的。
func (h *Hub) Stop() {
	h.quitOnce.Do(func() { close(h.quit) })
}

// QueueMessage 将消息放入 Hub 的处理队列 (非阻塞)。
// 这是 Client 向 Hub 发送消息的安全方式。
// 返回 true 如果消息成功入队，false 如果队列已满。
func (h *Hub) QueueMessage(msg Message) bool {
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithFields(logrus.Fields{
			"message_type": msg.Type,
			"member_id":    msg.Member,
		}).Warn("Hub message channel full, dropping message")
		return false
	}
}

// registerClient 处理客户端注册逻辑
func (h *Hub) registerClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to register a nil client")
		return
	}
	h.clientsMu.Lock()
	h.clients[client.MemberID()] = client
	h.clientsMu.Unlock()

	effects := h.coordinator.Handle(session.Event{
		Type:     session.EventConnect,
		MemberID: client.MemberID(),
		At:       time.Now(),
	})
	h.applyEffects(effects)
}

// unregisterClient 处理客户端注销逻辑。
// 断连等价于对成员所在房间执行 leave，由协调器统一产生副作用。
func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to unregister a nil client")
		return
	}
	memberID := client.MemberID()
	logCtx := logrus.WithField("member_id", memberID)

	h.clientsMu.Lock()
	if current, ok := h.clients[memberID]; ok && current == client {
		delete(h.clients, memberID)
	}
	h.clientsMu.Unlock()

	// 关闭此客户端的 send 通道，这将导致其 WritePump 退出
	client.closeSend()

	effects := h.coordinator.Handle(session.Event{
		Type:     session.EventDisconnect,
		MemberID: memberID,
		At:       time.Now(),
	})
	h.applyEffects(effects)
	logCtx.Info("Client unregistered from Hub")
}

// handleClientEvent 解析客户端消息信封并交给协调器
func (h *Hub) handleClientEvent(msg Message) {
	logCtx := logrus.WithField("member_id", msg.Member)

	var env session.Envelope
	if err := json.Unmarshal(msg.Raw, &env); err != nil {
		logCtx.WithError(err).Warn("Malformed client envelope, dropping")
		return
	}
	if env.Event == "" {
		logCtx.Warn("Client envelope missing event name, dropping")
		return
	}

	effects := h.coordinator.Handle(session.Event{
		Type:     env.Event,
		MemberID: msg.Member,
		Data:     env.Data,
		At:       time.Now(),
	})
	h.applyEffects(effects)
}

// applyEffects 依次执行协调器产出的副作用。
// 投递类副作用在循环内同步完成 (非阻塞通道发送)，
// 历史回放和持久化写入异步进行，不阻塞后续事件的处理。
func (h *Hub) applyEffects(effects []session.Effect) {
	for _, eff := range effects {
		switch eff.Kind {
		case session.EffectToOthers:
			h.ToOthers(eff.RoomID, eff.MemberID, eff.Event, eff.Data)
		case session.EffectToRoom:
			h.ToRoom(eff.RoomID, eff.Event, eff.Data)
		case session.EffectReplay:
			// 回放在独立 goroutine 中读存储，room-history 可能晚于
			// 同一批的 user-count 到达；历史重建只依赖日志自身的顺序
			go h.sendRoomHistory(eff.RoomID, eff.MemberID)
		case session.EffectAppend:
			h.writer.EnqueueAppend(eff.RoomID, eff.Command)
		case session.EffectReplace:
			h.writer.EnqueueReplace(eff.RoomID, eff.Command)
		case session.EffectTouch:
			go h.touchRoom(eff.RoomID)
		}
	}
}

// --- Broadcast Router ---

// ToMember 单播，仅用于加入时的历史回放。
func (h *Hub) ToMember(memberID, event string, data any) {
	payload, ok := encodeEnvelope(event, data)
	if !ok {
		return
	}
	h.clientsMu.RLock()
	client := h.clients[memberID]
	h.clientsMu.RUnlock()
	if client == nil {
		// 收件人已断开，消息直接丢弃
		return
	}
	client.trySend(payload)
}

// ToOthers 发给房间内除发送者之外的全部成员。
func (h *Hub) ToOthers(roomID, senderID, event string, data any) {
	h.deliver(roomID, senderID, event, data)
}

// ToRoom 发给房间内全部成员，包含发送者。
func (h *Hub) ToRoom(roomID, event string, data any) {
	h.deliver(roomID, "", event, data)
}

// deliver 将事件投递给房间成员，excludeID 非空时排除该成员
func (h *Hub) deliver(roomID, excludeID, event string, data any) {
	members := h.coordinator.Registry().Members(roomID)
	if len(members) == 0 {
		return
	}
	payload, ok := encodeEnvelope(event, data)
	if !ok {
		return
	}

	h.clientsMu.RLock()
	for _, memberID := range members {
		if memberID == excludeID {
			continue
		}
		if client := h.clients[memberID]; client != nil {
			client.trySend(payload)
		}
	}
	h.clientsMu.RUnlock()
}

// sendRoomHistory 异步读取房间日志并把 room-history 单播给加入者。
// 读取失败记录错误并回退为空历史，加入流程不被打断。
func (h *Hub) sendRoomHistory(roomID, memberID string) {
	logCtx := logrus.WithFields(logrus.Fields{
		"room_id":   roomID,
		"member_id": memberID,
	})

	ctx, cancel := context.WithTimeout(context.Background(), replayTimeout)
	defer cancel()

	commands, err := h.logs.ReadLog(ctx, roomID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to read room log for replay, sending empty history")
		commands = nil
	}

	entries := make([]domain.HistoryEntry, 0, len(commands))
	for _, cmd := range commands {
		entries = append(entries, cmd.HistoryEntry())
	}
	h.ToMember(memberID, session.EventRoomHistory, entries)
	logCtx.WithField("entries", len(entries)).Debug("Room history sent")
}

// touchRoom 异步刷新房间的 LastActivity。
// 未持久化的房间视为无操作；失败只记录，不影响任何投递。
func (h *Hub) touchRoom(roomID string) {
	ctx, cancel := context.WithTimeout(context.Background(), touchTimeout)
	defer cancel()
	if err := h.rooms.Touch(ctx, roomID); err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Warn("Failed to touch room activity")
	}
}

// encodeEnvelope 序列化出站消息信封
func encodeEnvelope(event string, data any) ([]byte, bool) {
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			logrus.WithField("event", event).WithError(err).Error("Failed to marshal outbound event data")
			return nil, false
		}
		raw = encoded
	}
	payload, err := json.Marshal(session.Envelope{Event: event, Data: raw})
	if err != nil {
		logrus.WithField("event", event).WithError(err).Error("Failed to marshal outbound envelope")
		return nil, false
	}
	return payload, true
}
