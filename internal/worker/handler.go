package worker

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/aryam643/white-board/internal/service"
)

// RoomExpiryHandler 处理过期房间的周期性清理任务。
// 存储层拥有过期策略：LastActivity 超过 24 小时窗口的房间
// 连同其命令日志一起删除。
type RoomExpiryHandler struct {
	roomService *service.RoomService
}

// NewRoomExpiryHandler 创建 Handler 实例
func NewRoomExpiryHandler(roomService *service.RoomService) *RoomExpiryHandler {
	return &RoomExpiryHandler{roomService: roomService}
}

// ProcessTask 实现 asynq.Handler 接口
func (h *RoomExpiryHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := logrus.WithField("task_type", t.Type())
	logCtx.Debug("Processing room expiry sweep...")

	deleted, err := h.roomService.PurgeInactive(ctx)
	if err != nil {
		logCtx.WithError(err).Error("Room expiry sweep failed")
		return err
	}

	logCtx.WithField("deleted", deleted).Info("Room expiry sweep completed")
	return nil
}
