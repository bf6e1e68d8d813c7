package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// 命令类型常量，对应持久化日志中的 type 字段。
const (
	CommandStroke = "stroke" // 一段笔画采样 (draw-move 产生)
	CommandClear  = "clear"  // 清空画布，逻辑上取代之前的全部日志条目
)

// DrawCommand 表示房间日志中的一条绘图命令记录。
// 日志内的顺序是服务端接受顺序 (Seq 按房间单调递增)，不是客户端发送顺序。
type DrawCommand struct {
	ID        uint      `gorm:"primaryKey"`         // 命令记录的唯一标识符 (主键)
	RoomID    string    `gorm:"index;size:191;not null"` // 命令所属的房间码 (添加索引)
	Seq       uint64    `gorm:"index;not null"`     // 房间内的接受顺序号，回放时按此排序
	Type      string    `gorm:"size:20;not null"`   // 命令类型: "stroke" 或 "clear"
	Data      string    `gorm:"type:text;not null"` // 命令的具体数据，JSON 格式的字符串
	Timestamp time.Time `gorm:"not null"`           // 服务端接受该命令的时间戳
}

// StrokeData 定义 draw-start / draw-move 事件携带的笔画数据。
// draw-start 只带单点 (X/Y)，draw-move 带一段采样路径 (Path)。
type StrokeData struct {
	RoomID      string  `json:"roomId"`
	X           float64 `json:"x,omitempty"`
	Y           float64 `json:"y,omitempty"`
	Path        []Point `json:"path,omitempty"`
	Color       string  `json:"color,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
}

// Point 画布上的一个采样点。
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CursorData 定义 cursor-move 事件的数据。光标位置是瞬态的，从不持久化。
type CursorData struct {
	RoomID string  `json:"roomId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// HistoryEntry 是 room-history 消息中单条命令的线上形式。
type HistoryEntry struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewStrokeCommand 由一段笔画数据构造待持久化的 stroke 命令。
func NewStrokeCommand(roomID string, data StrokeData, ts time.Time) (DrawCommand, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return DrawCommand{}, fmt.Errorf("domain: failed to marshal stroke data for room %s: %w", roomID, err)
	}
	return DrawCommand{
		RoomID:    roomID,
		Type:      CommandStroke,
		Data:      string(raw),
		Timestamp: ts,
	}, nil
}

// NewClearCommand 构造 clear 命令。Data 固定为空对象。
func NewClearCommand(roomID string, ts time.Time) DrawCommand {
	return DrawCommand{
		RoomID:    roomID,
		Type:      CommandClear,
		Data:      "{}",
		Timestamp: ts,
	}
}

// HistoryEntry 将持久化命令转换为 room-history 的线上形式。
func (c DrawCommand) HistoryEntry() HistoryEntry {
	data := c.Data
	if data == "" {
		data = "{}"
	}
	return HistoryEntry{
		Type:      c.Type,
		Data:      json.RawMessage(data),
		Timestamp: c.Timestamp,
	}
}
