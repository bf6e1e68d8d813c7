package repository

import (
	"context"
	"time"

	"github.com/aryam643/white-board/internal/domain"
)

// RoomRepository 定义了房间元数据的存储和检索操作。
type RoomRepository interface {
	// FindByCode 根据规范化的房间码查找房间。
	// 如果房间不存在，返回 repository.ErrRoomNotFound。
	FindByCode(ctx context.Context, roomID string) (*domain.Room, error)

	// EnsureRoom 按房间码查找房间；不存在则创建一条空日志的新房间记录，
	// 存在则刷新 LastActivity。返回 (房间, 是否新建)。
	// 这是显式的 create-if-absent 契约，房间创建不再是隐藏在更新里的副作用。
	EnsureRoom(ctx context.Context, roomID string) (*domain.Room, bool, error)

	// Touch 将房间的 LastActivity 刷新为当前时间。
	// 房间不存在视为无操作，不返回错误。
	Touch(ctx context.Context, roomID string) error

	// DeleteInactiveBefore 删除 LastActivity 早于 cutoff 的全部房间
	// 及其命令日志，返回删除的房间数。供过期清理任务使用。
	DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
