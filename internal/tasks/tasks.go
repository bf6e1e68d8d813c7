package tasks

import "encoding/json"

// 定义任务类型常量
const (
	// TypeRoomExpirySweep 周期性清理过期房间的任务类型
	TypeRoomExpirySweep = "room:expiry_sweep"
)

// RoomExpirySweepPayload 定义过期清理任务的数据结构。
// 过期窗口由 domain.RoomInactiveTTL 决定，任务本身不携带参数。
type RoomExpirySweepPayload struct{}

// NewRoomExpirySweepTask 创建过期清理任务的 payload
func NewRoomExpirySweepTask() ([]byte, error) {
	return json.Marshal(RoomExpirySweepPayload{})
}
