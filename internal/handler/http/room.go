package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/aryam643/white-board/internal/service"
)

// RoomHandler 封装了与房间查找/创建相关的 HTTP 处理逻辑。
// 这些接口只做存在性检查，从不参与实时协议。
type RoomHandler struct {
	roomService *service.RoomService
}

// NewRoomHandler 创建 RoomHandler 实例
func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	return &RoomHandler{roomService: roomService}
}

// JoinRoomRequest 定义加入房间请求的结构体
type JoinRoomRequest struct {
	RoomID string `json:"roomId" binding:"required"`
}

// JoinRoomResponse 定义加入房间成功的响应结构体
type JoinRoomResponse struct {
	Success bool     `json:"success"`
	Room    RoomInfo `json:"room"`
}

// RoomInfo 是响应中的房间摘要
type RoomInfo struct {
	RoomID    string    `json:"roomId"`
	CreatedAt time.Time `json:"createdAt"`
}

// JoinRoom 处理 POST /api/rooms/join：
// 归一化并校验房间码，存在则刷新活跃时间，不存在则创建空日志的房间。
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.JoinRoom: Invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid room ID")
		return
	}

	roomData, created, err := h.roomService.JoinOrCreate(c.Request.Context(), req.RoomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"room_id": roomData.RoomID,
		"created": created,
	}).Info("Handler.JoinRoom: Room ready")
	SuccessResponse(c, http.StatusOK, JoinRoomResponse{
		Success: true,
		Room:    RoomInfo{RoomID: roomData.RoomID, CreatedAt: roomData.CreatedAt},
	})
}

// GetRoom 处理 GET /api/rooms/:roomId，返回房间信息
func (h *RoomHandler) GetRoom(c *gin.Context) {
	info, err := h.roomService.GetRoomInfo(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"room": info})
}

// Health 处理 GET /api/health
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
