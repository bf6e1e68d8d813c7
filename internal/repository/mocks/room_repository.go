package mocks // 测试用 Mock 实现

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/aryam643/white-board/internal/domain"
)

// RoomRepository 是 repository.RoomRepository 的 testify Mock。
type RoomRepository struct {
	mock.Mock
}

func (m *RoomRepository) FindByCode(ctx context.Context, roomID string) (*domain.Room, error) {
	args := m.Called(ctx, roomID)
	var room *domain.Room
	if args.Get(0) != nil {
		room = args.Get(0).(*domain.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepository) EnsureRoom(ctx context.Context, roomID string) (*domain.Room, bool, error) {
	args := m.Called(ctx, roomID)
	var room *domain.Room
	if args.Get(0) != nil {
		room = args.Get(0).(*domain.Room)
	}
	return room, args.Bool(1), args.Error(2)
}

func (m *RoomRepository) Touch(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *RoomRepository) DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}
