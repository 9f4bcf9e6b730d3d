package projects

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskhub/internal/middleware"
	"taskhub/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	protected.POST("/projects", h.Create)
	protected.GET("/projects", h.List)
	protected.GET("/projects/:id", h.Get)
	protected.PUT("/projects/:id", h.Update)
	protected.DELETE("/projects/:id", h.Delete)
	protected.POST("/projects/:id/members", h.AddMember)
	protected.DELETE("/projects/:id/members/:userID", h.RemoveMember)
}

func (h *Handler) Create(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Invalid request body")
		return
	}

	project, err := h.svc.Create(c.Request.Context(), sub, req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, project)
}

func (h *Handler) List(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	projects, err := h.svc.List(c.Request.Context(), sub)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, projects)
}

func (h *Handler) Get(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	project, err := h.svc.Get(c.Request.Context(), sub, id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, project)
}

func (h *Handler) Update(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Invalid request body")
		return
	}

	project, err := h.svc.Update(c.Request.Context(), sub, id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, project)
}

func (h *Handler) Delete(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), sub, id); err != nil {
		writeError(c, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusOK, nil, "Project deleted")
}

func (h *Handler) AddMember(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Invalid request body")
		return
	}

	if err := h.svc.AddMember(c.Request.Context(), sub, id, req.UserID); err != nil {
		writeError(c, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusOK, nil, "Member added")
}

func (h *Handler) RemoveMember(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	userID, err := strconv.ParseInt(c.Param("userID"), 10, 64)
	if err != nil || userID <= 0 {
		response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Invalid user ID")
		return
	}

	if err := h.svc.RemoveMember(c.Request.Context(), sub, id, userID); err != nil {
		writeError(c, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusOK, nil, "Member removed")
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Invalid project ID")
		return 0, false
	}
	return id, true
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "Project not found")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, response.CodeForbidden, "Access denied")
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Internal error")
	}
}
