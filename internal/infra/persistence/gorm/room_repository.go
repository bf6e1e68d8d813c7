package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"github.com/aryam643/white-board/internal/domain"
	"github.com/aryam643/white-board/internal/repository"
)

// GormRoomRepository 是 RoomRepository 接口的 GORM 实现
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository 创建 GormRoomRepository 实例
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	if db == nil {
		panic("database connection cannot be nil for GormRoomRepository")
	}
	return &GormRoomRepository{db: db}
}

// FindByCode 实现根据房间码查找房间
func (r *GormRoomRepository) FindByCode(ctx context.Context, roomID string) (*domain.Room, error) {
	var roomData domain.Room
	err := r.db.WithContext(ctx).Where("room_id = ?", roomID).First(&roomData).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by code '%s': %w", roomID, err)
	}
	return &roomData, nil
}

// EnsureRoom 实现显式的 create-if-absent 契约：
// 房间存在则刷新 LastActivity，不存在则创建一条空日志的新记录。
func (r *GormRoomRepository) EnsureRoom(ctx context.Context, roomID string) (*domain.Room, bool, error) {
	roomData, err := r.FindByCode(ctx, roomID)
	if err == nil {
		roomData.LastActivity = time.Now()
		if saveErr := r.db.WithContext(ctx).Model(roomData).Update("last_activity", roomData.LastActivity).Error; saveErr != nil {
			return nil, false, fmt.Errorf("gorm: touch existing room '%s': %w", roomID, saveErr)
		}
		return roomData, false, nil
	}
	if !errors.Is(err, repository.ErrRoomNotFound) {
		return nil, false, err
	}

	newRoom := &domain.Room{
		RoomID:       roomID,
		LastActivity: time.Now(),
	}
	createErr := r.db.WithContext(ctx).Create(newRoom).Error
	if createErr != nil {
		// 两个连接同时首次写入同一房间码时会触发唯一约束冲突，
		// 此时房间已由对方创建，重新查找即可。
		var mysqlErr *mysql.MySQLError
		if errors.As(createErr, &mysqlErr) && mysqlErr.Number == 1062 {
			existing, findErr := r.FindByCode(ctx, roomID)
			if findErr != nil {
				return nil, false, findErr
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("gorm: create room '%s': %w", roomID, createErr)
	}
	return newRoom, true, nil
}

// Touch 实现刷新房间的 LastActivity。房间不存在视为无操作。
func (r *GormRoomRepository) Touch(ctx context.Context, roomID string) error {
	err := r.db.WithContext(ctx).Model(&domain.Room{}).
		Where("room_id = ?", roomID).
		Update("last_activity", time.Now()).Error
	if err != nil {
		return fmt.Errorf("gorm: touch room '%s': %w", roomID, err)
	}
	return nil
}

// DeleteInactiveBefore 实现过期房间及其命令日志的批量删除
func (r *GormRoomRepository) DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var expired []string
		if err := tx.Model(&domain.Room{}).
			Where("last_activity < ?", cutoff).
			Pluck("room_id", &expired).Error; err != nil {
			return fmt.Errorf("gorm: list inactive rooms before %v: %w", cutoff, err)
		}
		if len(expired) == 0 {
			return nil
		}
		if err := tx.Where("room_id IN ?", expired).Delete(&domain.DrawCommand{}).Error; err != nil {
			return fmt.Errorf("gorm: delete commands of inactive rooms: %w", err)
		}
		result := tx.Where("room_id IN ?", expired).Delete(&domain.Room{})
		if result.Error != nil {
			return fmt.Errorf("gorm: delete inactive rooms: %w", result.Error)
		}
		deleted = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
