package notifications

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"taskhub/internal/middleware"
	"taskhub/internal/pkg/response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Auth happens via the JWT middleware before the upgrade.
		return true
	},
}

type Handler struct {
	svc *Service
	hub *Hub
}

func NewHandler(svc *Service, hub *Hub) *Handler {
	return &Handler{svc: svc, hub: hub}
}

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	protected.GET("/notifications", h.List)
	protected.GET("/notifications/unread-count", h.UnreadCount)
	protected.POST("/notifications/:id/read", h.MarkRead)
	protected.POST("/notifications/read-all", h.MarkAllRead)
	protected.GET("/notifications/ws", h.Subscribe)
}

func (h *Handler) List(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	items, err := h.svc.List(c.Request.Context(), sub.ID, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Internal error")
		return
	}
	response.Success(c, http.StatusOK, items)
}

func (h *Handler) UnreadCount(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	count, err := h.svc.UnreadCount(c.Request.Context(), sub.ID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Internal error")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"unread": count})
}

func (h *Handler) MarkRead(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Invalid notification ID")
		return
	}

	if err := h.svc.MarkRead(c.Request.Context(), id, sub.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeNotFound, "Notification not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Internal error")
		return
	}
	response.SuccessWithMessage(c, http.StatusOK, nil, "Notification marked as read")
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	count, err := h.svc.MarkAllRead(c.Request.Context(), sub.ID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Internal error")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"marked": count})
}

// Subscribe upgrades the request to a websocket and keeps it open until
// the client goes away. The server only ever writes.
func (h *Handler) Subscribe(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade for user id=%d failed: %v", sub.ID, err)
		return
	}

	h.hub.Register(sub.ID, conn)
	defer h.hub.Unregister(sub.ID)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
