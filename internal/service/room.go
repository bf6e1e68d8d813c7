package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aryam643/white-board/internal/domain"
	"github.com/aryam643/white-board/internal/repository"
)

// RoomService 负责房间查找/创建接口的业务逻辑。
// 它从不参与实时协议，只做存在性检查和元数据查询。
type RoomService struct {
	roomRepo repository.RoomRepository
	logRepo  repository.LogRepository
}

// NewRoomService 创建 RoomService 实例。
func NewRoomService(roomRepo repository.RoomRepository, logRepo repository.LogRepository) *RoomService {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for RoomService")
	}
	if logRepo == nil {
		panic("LogRepository cannot be nil for RoomService")
	}
	return &RoomService{
		roomRepo: roomRepo,
		logRepo:  logRepo,
	}
}

// RoomInfo 是房间信息查询的结果。
type RoomInfo struct {
	RoomID        string    `json:"roomId"`
	CreatedAt     time.Time `json:"createdAt"`
	LastActivity  time.Time `json:"lastActivity"`
	CommandsCount int64     `json:"drawingCommandsCount"`
}

// JoinOrCreate 归一化并校验房间码，存在则刷新 LastActivity，
// 不存在则创建一条空日志的新房间。返回 (房间, 是否新建)。
func (s *RoomService) JoinOrCreate(ctx context.Context, rawCode string) (*domain.Room, bool, error) {
	code := domain.NormalizeRoomCode(rawCode)
	if !domain.ValidRoomCode(code) {
		return nil, false, ErrInvalidRoomCode
	}
	logCtx := logrus.WithField("room_id", code)

	roomData, created, err := s.roomRepo.EnsureRoom(ctx, code)
	if err != nil {
		logCtx.WithError(err).Error("Failed to ensure room")
		return nil, false, ErrInternalServer
	}
	if created {
		logCtx.Info("Room created")
	} else {
		logCtx.Debug("Room touched")
	}
	return roomData, created, nil
}

// GetRoomInfo 返回房间的元数据和日志条目数。
func (s *RoomService) GetRoomInfo(ctx context.Context, rawCode string) (*RoomInfo, error) {
	code := domain.NormalizeRoomCode(rawCode)
	if !domain.ValidRoomCode(code) {
		return nil, ErrInvalidRoomCode
	}
	logCtx := logrus.WithField("room_id", code)

	roomData, err := s.roomRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			logCtx.Debug("GetRoomInfo: room not found")
			return nil, ErrRoomNotFound
		}
		logCtx.WithError(err).Error("GetRoomInfo: repository error")
		return nil, ErrInternalServer
	}

	count, err := s.logRepo.CountCommands(ctx, code)
	if err != nil {
		logCtx.WithError(err).Error("GetRoomInfo: failed to count commands")
		return nil, ErrInternalServer
	}

	return &RoomInfo{
		RoomID:        roomData.RoomID,
		CreatedAt:     roomData.CreatedAt,
		LastActivity:  roomData.LastActivity,
		CommandsCount: count,
	}, nil
}

// PurgeInactive 删除超过过期窗口未活跃的房间及其日志，
// 返回删除的房间数。由后台清理任务周期性调用。
func (s *RoomService) PurgeInactive(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-domain.RoomInactiveTTL)
	deleted, err := s.roomRepo.DeleteInactiveBefore(ctx, cutoff)
	if err != nil {
		logrus.WithError(err).Error("Failed to purge inactive rooms")
		return 0, ErrInternalServer
	}
	if deleted > 0 {
		logrus.WithField("deleted", deleted).Info("Purged inactive rooms")
	}
	return deleted, nil
}
