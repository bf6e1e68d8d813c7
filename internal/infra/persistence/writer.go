package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aryam643/white-board/internal/domain"
	"github.com/aryam643/white-board/internal/repository"
)

// 每个房间写队列的缓冲区大小。队列满时丢弃写入并记录警告，
// 等同于一次持久化失败 (尽力而为的持久化策略)。
const writeQueueSize = 256

// opKind 区分排队的写操作类型
type opKind int

const (
	opAppend opKind = iota
	opReplace
)

// writeRequest 是排入房间写队列的一次持久化请求
type writeRequest struct {
	kind opKind
	cmd  domain.DrawCommand
}

// RoomLogWriter 将 LogRepository 包装为按房间串行化的异步写入器。
//
// 同一房间的 Append/Replace 按提交顺序在该房间专属的 goroutine 中
// 依次执行，因此日志顺序等于协调器的接受顺序，而不是 I/O 完成顺序；
// 不同房间的写入互不阻塞。广播路径从不等待这里的任何操作。
//
// 持久化失败 (包括超时) 只记录日志并吞掉，不回传给调用方。
type RoomLogWriter struct {
	repo    repository.LogRepository
	timeout time.Duration

	mu     sync.Mutex
	queues map[string]chan writeRequest
	closed bool
	wg     sync.WaitGroup
}

// NewRoomLogWriter 创建 RoomLogWriter 实例。
// timeout 是单次存储调用的超时，0 表示使用默认的 5 秒。
func NewRoomLogWriter(repo repository.LogRepository, timeout time.Duration) *RoomLogWriter {
	if repo == nil {
		panic("log repository cannot be nil for RoomLogWriter")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RoomLogWriter{
		repo:    repo,
		timeout: timeout,
		queues:  make(map[string]chan writeRequest),
	}
}

// EnqueueAppend 将一条追加写入排入房间的写队列 (非阻塞)。
func (w *RoomLogWriter) EnqueueAppend(roomID string, cmd domain.DrawCommand) {
	w.enqueue(roomID, writeRequest{kind: opAppend, cmd: cmd})
}

// EnqueueReplace 将一次日志重写排入房间的写队列 (非阻塞)。
// 它与先前排队的追加共享同一条 FIFO 队列，因此 clear 不会越过
// 在它之前接受的 draw-move，之后接受的 draw-move 也不会被它覆盖。
func (w *RoomLogWriter) EnqueueReplace(roomID string, cmd domain.DrawCommand) {
	w.enqueue(roomID, writeRequest{kind: opReplace, cmd: cmd})
}

func (w *RoomLogWriter) enqueue(roomID string, req writeRequest) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		logrus.WithField("room_id", roomID).Warn("RoomLogWriter closed, dropping write")
		return
	}
	queue, ok := w.queues[roomID]
	if !ok {
		queue = make(chan writeRequest, writeQueueSize)
		w.queues[roomID] = queue
		w.wg.Add(1)
		go w.drain(roomID, queue)
	}
	w.mu.Unlock()

	select {
	case queue <- req:
	default:
		// 队列满，按持久化失败处理：记录并丢弃，广播正确性不受影响
		logrus.WithFields(logrus.Fields{
			"room_id":      roomID,
			"command_type": req.cmd.Type,
		}).Warn("Room write queue full, dropping command")
	}
}

// drain 是单个房间的写循环，按入队顺序依次应用写请求
func (w *RoomLogWriter) drain(roomID string, queue chan writeRequest) {
	defer w.wg.Done()
	logCtx := logrus.WithField("room_id", roomID)

	for req := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		var err error
		switch req.kind {
		case opAppend:
			err = w.repo.AppendCommand(ctx, roomID, req.cmd)
		case opReplace:
			err = w.repo.ReplaceLog(ctx, roomID, req.cmd)
		}
		cancel()
		if err != nil {
			// 不重试：实时广播已经送达，日志最多缺失最近一条命令
			logCtx.WithError(err).WithField("command_type", req.cmd.Type).
				Error("Failed to persist drawing command")
		}
	}
}

// Close 关闭全部写队列并等待已排队的写入落盘。
// 关闭后的 Enqueue 调用会被丢弃。
func (w *RoomLogWriter) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	for _, queue := range w.queues {
		close(queue)
	}
	w.mu.Unlock()
	w.wg.Wait()
}
