package tasks

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskhub/internal/domain"
	"taskhub/internal/middleware"
	"taskhub/internal/pkg/response"
	"taskhub/internal/policy"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	protected.POST("/tasks", h.Create)
	protected.GET("/tasks", h.List)
	protected.GET("/tasks/assignable-users", h.AssignableUsers)
	protected.GET("/tasks/completed", h.Completed)
	protected.GET("/tasks/high-priority", h.HighPriority)
	protected.GET("/tasks/overdue", h.Overdue)
	protected.GET("/tasks/:id", h.Get)
	protected.PUT("/tasks/:id", h.Update)
	protected.DELETE("/tasks/:id", h.Delete)
}

func (h *Handler) Create(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Invalid request body")
		return
	}

	task, err := h.svc.Create(c.Request.Context(), sub, req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, task)
}

func (h *Handler) List(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	var q ListTasksQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Invalid query parameters")
		return
	}

	tasks, total, err := h.svc.List(c.Request.Context(), sub, q)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"items": tasks, "total": total})
}

func (h *Handler) Get(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	id, ok := parseID(c)
	if !ok {
		return
	}

	task, err := h.svc.Get(c.Request.Context(), sub, id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, task)
}

func (h *Handler) Update(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	id, ok := parseID(c)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Invalid request body")
		return
	}

	task, err := h.svc.Update(c.Request.Context(), sub, id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, task)
}

func (h *Handler) Delete(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), sub, id); err != nil {
		writeError(c, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusOK, nil, "Task deleted")
}

func (h *Handler) AssignableUsers(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	users, err := h.svc.AssignableUsers(c.Request.Context(), sub)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, users)
}

func (h *Handler) Completed(c *gin.Context) {
	h.listStatic(c, h.svc.Completed)
}

func (h *Handler) HighPriority(c *gin.Context) {
	h.listStatic(c, h.svc.HighPriority)
}

func (h *Handler) Overdue(c *gin.Context) {
	h.listStatic(c, h.svc.Overdue)
}

func (h *Handler) listStatic(c *gin.Context, list func(ctx context.Context, sub policy.Subject) ([]domain.Task, error)) {
	sub, ok := middleware.Subject(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	tasks, err := list(c.Request.Context(), sub)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, tasks)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Invalid task ID")
		return 0, false
	}
	return id, true
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "Task not found")
	case errors.Is(err, ErrAssigneeNotAllowed):
		response.Error(c, http.StatusForbidden, response.CodeForbidden, "User is not in your assignable set")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, response.CodeForbidden, "Access denied")
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Internal error")
	}
}
