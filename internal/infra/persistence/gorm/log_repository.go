package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/aryam643/white-board/internal/domain"
)

// GormLogRepository 是 LogRepository 接口的 GORM 实现 (Stroke Log Store)。
//
// 单个房间内的写入顺序由上层的 persistence.RoomLogWriter 保证，
// 这里的事务只负责单次写入的原子性 (尤其是 ReplaceLog 的删除+插入)。
type GormLogRepository struct {
	db *gorm.DB
}

// NewGormLogRepository 创建 GormLogRepository 实例
func NewGormLogRepository(db *gorm.DB) *GormLogRepository {
	if db == nil {
		panic("database connection cannot be nil for GormLogRepository")
	}
	return &GormLogRepository{db: db}
}

// AppendCommand 实现将命令追加到房间日志的末尾。
// 房间不存在时先隐式创建 (create-if-absent 契约)。
func (r *GormLogRepository) AppendCommand(ctx context.Context, roomID string, cmd domain.DrawCommand) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureRoomTx(tx, roomID, cmd.Timestamp); err != nil {
			return err
		}

		// 取房间内下一个顺序号。同一房间的写入已被上层串行化，
		// 这里不需要额外的行锁。
		var maxSeq uint64
		if err := tx.Model(&domain.DrawCommand{}).
			Where("room_id = ?", roomID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&maxSeq).Error; err != nil {
			return fmt.Errorf("gorm: next seq for room '%s': %w", roomID, err)
		}

		cmd.RoomID = roomID
		cmd.Seq = maxSeq + 1
		if err := tx.Create(&cmd).Error; err != nil {
			return fmt.Errorf("gorm: append command to room '%s': %w", roomID, err)
		}

		return touchRoomTx(tx, roomID, cmd.Timestamp)
	})
}

// ReplaceLog 实现将房间日志重写为仅包含给定的一条命令。
// 删除与插入在同一事务内完成，clear 之前的历史不会以任何形式残留。
func (r *GormLogRepository) ReplaceLog(ctx context.Context, roomID string, cmd domain.DrawCommand) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureRoomTx(tx, roomID, cmd.Timestamp); err != nil {
			return err
		}

		if err := tx.Where("room_id = ?", roomID).Delete(&domain.DrawCommand{}).Error; err != nil {
			return fmt.Errorf("gorm: truncate log for room '%s': %w", roomID, err)
		}

		cmd.RoomID = roomID
		cmd.Seq = 1
		if err := tx.Create(&cmd).Error; err != nil {
			return fmt.Errorf("gorm: write replacement command for room '%s': %w", roomID, err)
		}

		return touchRoomTx(tx, roomID, cmd.Timestamp)
	})
}

// ReadLog 实现按接受顺序读取房间的完整日志
func (r *GormLogRepository) ReadLog(ctx context.Context, roomID string) ([]domain.DrawCommand, error) {
	var commands []domain.DrawCommand
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("seq asc").
		Find(&commands).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: read log for room '%s': %w", roomID, err)
	}
	return commands, nil
}

// CountCommands 实现统计房间日志的条目数
func (r *GormLogRepository) CountCommands(ctx context.Context, roomID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.DrawCommand{}).
		Where("room_id = ?", roomID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("gorm: count commands for room '%s': %w", roomID, err)
	}
	return count, nil
}

// ensureRoomTx 在事务内保证房间记录存在 (首次写入时隐式创建)
func ensureRoomTx(tx *gorm.DB, roomID string, activity time.Time) error {
	var existing domain.Room
	err := tx.Where("room_id = ?", roomID).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("gorm: look up room '%s' before write: %w", roomID, err)
	}
	newRoom := domain.Room{RoomID: roomID, LastActivity: activity}
	if createErr := tx.Create(&newRoom).Error; createErr != nil {
		return fmt.Errorf("gorm: implicit create of room '%s': %w", roomID, createErr)
	}
	return nil
}

// touchRoomTx 在事务内刷新房间的 LastActivity
func touchRoomTx(tx *gorm.DB, roomID string, activity time.Time) error {
	if err := tx.Model(&domain.Room{}).
		Where("room_id = ?", roomID).
		Update("last_activity", activity).Error; err != nil {
		return fmt.Errorf("gorm: touch room '%s' after write: %w", roomID, err)
	}
	return nil
}
