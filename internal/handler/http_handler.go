package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/learnsphere/chat-service/internal/domain"
	"github.com/learnsphere/chat-service/internal/service"
	"github.com/learnsphere/chat-service/pkg/log"
	"github.com/learnsphere/chat-service/pkg/middleware"
	"github.com/learnsphere/chat-service/pkg/response"
)

// HTTPHandler serves the chat read paths and room creation.
type HTTPHandler struct {
	chatService    service.ChatService
	authMiddleware *middleware.AuthMiddleware
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(chatService service.ChatService, authMiddleware *middleware.AuthMiddleware) *HTTPHandler {
	return &HTTPHandler{
		chatService:    chatService,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all routes.
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		chat := api.Group("/chat", h.authMiddleware.RequireAuth())
		{
			chat.POST("/rooms", h.CreateRoom)
			chat.GET("/rooms/:room_id/history", h.GetHistory)
			chat.GET("/tutors/:tutor_id/rooms", h.ListTutorRooms)
		}
	}
}

// CreateRoom idempotently creates the room for a student-tutor pair.
func (h *HTTPHandler) CreateRoom(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind create room request")
		response.BadRequest(c, err.Error())
		return
	}

	roomID, err := h.chatService.EnsureRoom(ctx, req.UserID, req.TutorID)
	if err != nil {
		l.Error().Err(err).Msg("failed to create room")
		response.InternalError(c, "failed to create room")
		return
	}

	response.Success(c, domain.CreateRoomResponse{RoomID: roomID})
}

// GetHistory returns a room's full message history with resolved senders.
func (h *HTTPHandler) GetHistory(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	roomID := c.Param("room_id")

	history, err := h.chatService.GetHistory(ctx, roomID)
	if err != nil {
		if errors.Is(err, service.ErrRoomNotFound) {
			response.NotFound(c, "chat not found")
			return
		}
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to get chat history")
		response.InternalError(c, "failed to get chat history")
		return
	}

	response.Success(c, history)
}

// ListTutorRooms returns the tutor's conversation summaries.
func (h *HTTPHandler) ListTutorRooms(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	tutorID := c.Param("tutor_id")

	rooms, err := h.chatService.ListTutorRooms(ctx, tutorID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldTutorID, tutorID).Msg("failed to list tutor rooms")
		response.InternalError(c, "failed to list chat rooms")
		return
	}

	response.Success(c, gin.H{"rooms": rooms})
}
