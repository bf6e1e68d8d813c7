package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aryam643/white-board/internal/domain"
	"github.com/aryam643/white-board/internal/repository"
	"github.com/aryam643/white-board/internal/repository/mocks"
	"github.com/aryam643/white-board/internal/service"
)

// --- JoinOrCreate ---

func TestRoomService_JoinOrCreate_CreatesMissingRoom(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	mockLogRepo := new(mocks.LogRepository)
	roomService := service.NewRoomService(mockRoomRepo, mockLogRepo)
	ctx := context.Background()

	created := &domain.Room{ID: 1, RoomID: "ABC123", CreatedAt: time.Now(), LastActivity: time.Now()}
	mockRoomRepo.On("EnsureRoom", ctx, "ABC123").Return(created, true, nil).Once()

	// 房间码在进入存储层之前被归一化
	room, isNew, err := roomService.JoinOrCreate(ctx, "  abc123 ")

	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, "ABC123", room.RoomID)
	mockRoomRepo.AssertExpectations(t)
}

func TestRoomService_JoinOrCreate_TouchesExistingRoom(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	mockLogRepo := new(mocks.LogRepository)
	roomService := service.NewRoomService(mockRoomRepo, mockLogRepo)
	ctx := context.Background()

	existing := &domain.Room{ID: 7, RoomID: "ROOM1234"}
	mockRoomRepo.On("EnsureRoom", ctx, "ROOM1234").Return(existing, false, nil).Once()

	room, isNew, err := roomService.JoinOrCreate(ctx, "room1234")

	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, "ROOM1234", room.RoomID)
	mockRoomRepo.AssertExpectations(t)
}

func TestRoomService_JoinOrCreate_RejectsInvalidCode(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	mockLogRepo := new(mocks.LogRepository)
	roomService := service.NewRoomService(mockRoomRepo, mockLogRepo)
	ctx := context.Background()

	for _, code := range []string{"", "abc", "way-too-long!", "short", "has space"} {
		room, isNew, err := roomService.JoinOrCreate(ctx, code)
		assert.ErrorIs(t, err, service.ErrInvalidRoomCode, "code %q", code)
		assert.Nil(t, room)
		assert.False(t, isNew)
	}
	// 无效房间码从不触达存储层
	mockRoomRepo.AssertNotCalled(t, "EnsureRoom", mock.Anything, mock.Anything)
}

func TestRoomService_JoinOrCreate_WrapsRepositoryError(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	mockLogRepo := new(mocks.LogRepository)
	roomService := service.NewRoomService(mockRoomRepo, mockLogRepo)
	ctx := context.Background()

	mockRoomRepo.On("EnsureRoom", ctx, "ABC123").
		Return(nil, false, errors.New("connection refused")).Once()

	room, _, err := roomService.JoinOrCreate(ctx, "ABC123")

	assert.ErrorIs(t, err, service.ErrInternalServer)
	assert.Nil(t, room)
	mockRoomRepo.AssertExpectations(t)
}

// --- GetRoomInfo ---

func TestRoomService_GetRoomInfo_Success(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	mockLogRepo := new(mocks.LogRepository)
	roomService := service.NewRoomService(mockRoomRepo, mockLogRepo)
	ctx := context.Background()

	createdAt := time.Now().Add(-time.Hour)
	lastActivity := time.Now().Add(-time.Minute)
	mockRoomRepo.On("FindByCode", ctx, "ABC123").
		Return(&domain.Room{RoomID: "ABC123", CreatedAt: createdAt, LastActivity: lastActivity}, nil).Once()
	mockLogRepo.On("CountCommands", ctx, "ABC123").Return(int64(42), nil).Once()

	info, err := roomService.GetRoomInfo(ctx, "abc123")

	require.NoError(t, err)
	assert.Equal(t, "ABC123", info.RoomID)
	assert.Equal(t, createdAt, info.CreatedAt)
	assert.Equal(t, lastActivity, info.LastActivity)
	assert.Equal(t, int64(42), info.CommandsCount)
	mockRoomRepo.AssertExpectations(t)
	mockLogRepo.AssertExpectations(t)
}

func TestRoomService_GetRoomInfo_NotFound(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	mockLogRepo := new(mocks.LogRepository)
	roomService := service.NewRoomService(mockRoomRepo, mockLogRepo)
	ctx := context.Background()

	mockRoomRepo.On("FindByCode", ctx, "ABC123").
		Return(nil, repository.ErrRoomNotFound).Once()

	info, err := roomService.GetRoomInfo(ctx, "ABC123")

	assert.ErrorIs(t, err, service.ErrRoomNotFound)
	assert.Nil(t, info)
	mockLogRepo.AssertNotCalled(t, "CountCommands", mock.Anything, mock.Anything)
}

func TestRoomService_GetRoomInfo_RejectsInvalidCode(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	mockLogRepo := new(mocks.LogRepository)
	roomService := service.NewRoomService(mockRoomRepo, mockLogRepo)

	info, err := roomService.GetRoomInfo(context.Background(), "!!")

	assert.ErrorIs(t, err, service.ErrInvalidRoomCode)
	assert.Nil(t, info)
	mockRoomRepo.AssertNotCalled(t, "FindByCode", mock.Anything, mock.Anything)
}

// --- PurgeInactive ---

func TestRoomService_PurgeInactive_UsesTTLCutoff(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	mockLogRepo := new(mocks.LogRepository)
	roomService := service.NewRoomService(mockRoomRepo, mockLogRepo)
	ctx := context.Background()

	mockRoomRepo.On("DeleteInactiveBefore", ctx, mock.MatchedBy(func(cutoff time.Time) bool {
		// cutoff 应落在 now-24h 附近
		expected := time.Now().Add(-domain.RoomInactiveTTL)
		return cutoff.Sub(expected).Abs() < time.Minute
	})).Return(int64(3), nil).Once()

	deleted, err := roomService.PurgeInactive(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	mockRoomRepo.AssertExpectations(t)
}

func TestRoomService_PurgeInactive_WrapsRepositoryError(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	mockLogRepo := new(mocks.LogRepository)
	roomService := service.NewRoomService(mockRoomRepo, mockLogRepo)
	ctx := context.Background()

	mockRoomRepo.On("DeleteInactiveBefore", ctx, mock.Anything).
		Return(int64(0), errors.New("deadlock")).Once()

	deleted, err := roomService.PurgeInactive(ctx)

	assert.ErrorIs(t, err, service.ErrInternalServer)
	assert.Equal(t, int64(0), deleted)
	mockRoomRepo.AssertExpectations(t)
}
