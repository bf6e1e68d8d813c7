package domain

import (
	"regexp"
	"strings"
	"time"
)

// Room 表示一个共享画布房间。
type Room struct {
	ID           uint      `gorm:"primaryKey"`                    // 房间记录的唯一标识符 (主键)
	RoomID       string    `gorm:"uniqueIndex;size:191;not null"` // 房间码 (规范形式: 大写, 6-8 位字母数字)，全局唯一
	CreatedAt    time.Time `gorm:"autoCreateTime"`                // 房间创建时间 (GORM 自动填充)
	LastActivity time.Time `gorm:"index;not null"`                // 最后活跃时间，每次接受绘图/清空命令时更新，单调不减
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`                // 记录最后更新时间 (GORM 自动填充)
}

// RoomInactiveTTL 定义房间的过期窗口：LastActivity 超过该时长的房间
// 会被后台清理任务删除（对应原来存储层 TTL 的 24 小时策略）。
const RoomInactiveTTL = 24 * time.Hour

// roomCodePattern 房间码的规范格式。
var roomCodePattern = regexp.MustCompile(`^[A-Z0-9]{6,8}$`)

// NormalizeRoomCode 将房间码归一化为规范形式 (去除首尾空白并转为大写)。
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidRoomCode 检查房间码是否符合规范形式。
// 调用方应先使用 NormalizeRoomCode 归一化。
func ValidRoomCode(code string) bool {
	return roomCodePattern.MatchString(code)
}
