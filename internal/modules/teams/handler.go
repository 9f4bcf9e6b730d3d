package teams

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
	protected.POST("/teams", h.Create)
	protected.GET("/teams", h.List)
	protected.GET("/teams/:id", h.Get)
	protected.PUT("/teams/:id", h.Update)
	protected.DELETE("/teams/:id", h.Delete)
	protected.POST("/teams/:id/members", h.AddMember)
	protected.DELETE("/teams/:id/members/:userID", h.RemoveMember)
}

func (h *Handler) Create(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Invalid request body")
		return
	}

	team, err := h.svc.Create(c.Request.Context(), sub, req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, team)
}

func (h *Handler) List(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	teams, err := h.svc.List(c.Request.Context(), sub)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, teams)
}

func (h *Handler) Get(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Invalid team ID")
		return
	}

	team, err := h.svc.Get(c.Request.Context(), sub, id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, team)
}

func (h *Handler) Update(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Invalid team ID")
		return
	}

	var req UpdateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Invalid request body")
		return
	}

	team, err := h.svc.Update(c.Request.Context(), sub, id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, team)
}

func (h *Handler) Delete(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Invalid team ID")
		return
	}

	if err := h.svc.Delete(c.Request.Context(), sub, id); err != nil {
		writeError(c, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusOK, nil, "Team deleted")
}

func (h *Handler) AddMember(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Invalid team ID")
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

	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Invalid team ID")
		return
	}
	userID, err := parseID(c, "userID")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Invalid user ID")
		return
	}

	if err := h.svc.RemoveMember(c.Request.Context(), sub, id, userID); err != nil {
		writeError(c, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusOK, nil, "Member removed")
}

func parseID(c *gin.Context, param string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "Team not found")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, response.CodeForbidden, "Access denied")
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Internal error")
	}
}
