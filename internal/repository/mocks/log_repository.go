package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/aryam643/white-board/internal/domain"
)

// LogRepository 是 repository.LogRepository 的 testify Mock。
type LogRepository struct {
	mock.Mock
}

func (m *LogRepository) AppendCommand(ctx context.Context, roomID string, cmd domain.DrawCommand) error {
	args := m.Called(ctx, roomID, cmd)
	return args.Error(0)
}

func (m *LogRepository) ReplaceLog(ctx context.Context, roomID string, cmd domain.DrawCommand) error {
	args := m.Called(ctx, roomID, cmd)
	return args.Error(0)
}

func (m *LogRepository) ReadLog(ctx context.Context, roomID string) ([]domain.DrawCommand, error) {
	args := m.Called(ctx, roomID)
	var cmds []domain.DrawCommand
	if args.Get(0) != nil {
		cmds = args.Get(0).([]domain.DrawCommand)
	}
	return cmds, args.Error(1)
}

func (m *LogRepository) CountCommands(ctx context.Context, roomID string) (int64, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).(int64), args.Error(1)
}
