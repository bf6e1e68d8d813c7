package repository

import (
	"context"

	"github.com/aryam643/white-board/internal/domain"
)

// LogRepository 定义了每个房间有序绘图日志的存储操作 (Stroke Log Store)。
//
// AppendCommand 和 ReplaceLog 都遵循 create-if-absent 契约：
// 目标房间不存在时先隐式创建房间记录，再写入日志。
// 两者都会刷新房间的 LastActivity。
//
// 同一房间的写入顺序必须等于调用方提交的顺序；存储适配器负责
// 串行化并发的 AppendCommand 与 ReplaceLog (见 persistence.RoomLogWriter)。
type LogRepository interface {
	// AppendCommand 将一条命令追加到房间日志的末尾。
	AppendCommand(ctx context.Context, roomID string, cmd domain.DrawCommand) error

	// ReplaceLog 将房间日志重写为仅包含给定的一条命令
	// (clear 语义：新的 clear 成为日志的唯一条目，而不是追加在旧历史之后)。
	ReplaceLog(ctx context.Context, roomID string, cmd domain.DrawCommand) error

	// ReadLog 按接受顺序返回房间的完整日志。
	// 房间不存在或日志为空时返回空切片，不返回错误。
	ReadLog(ctx context.Context, roomID string) ([]domain.DrawCommand, error)

	// CountCommands 返回房间日志的条目数，供房间信息接口使用。
	CountCommands(ctx context.Context, roomID string) (int64, error)
}
