package comments

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskhub/internal/domain"
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
	protected.POST("/tasks/:id/comments", h.Create(domain.KindTask))
	protected.GET("/tasks/:id/comments", h.ListForTarget(domain.KindTask))
	protected.POST("/projects/:id/comments", h.Create(domain.KindProject))
	protected.GET("/projects/:id/comments", h.ListForTarget(domain.KindProject))
	protected.PUT("/comments/:id", h.Update)
	protected.DELETE("/comments/:id", h.Delete)
}

func (h *Handler) Create(kind domain.TargetKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub, ok := middleware.Subject(c)
		if !ok {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
			return
		}

		ref, ok := parseTarget(c, kind)
		if !ok {
			return
		}

		var req CreateCommentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Invalid request body")
			return
		}

		comment, err := h.svc.Create(c.Request.Context(), sub, ref, req.Content)
		if err != nil {
			writeError(c, err)
			return
		}
		response.Success(c, http.StatusCreated, comment)
	}
}

func (h *Handler) ListForTarget(kind domain.TargetKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref, ok := parseTarget(c, kind)
		if !ok {
			return
		}

		limit, _ := strconv.Atoi(c.Query("limit"))
		offset, _ := strconv.Atoi(c.Query("offset"))

		comments, total, err := h.svc.ListForTarget(c.Request.Context(), ref, limit, offset)
		if err != nil {
			writeError(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"items": comments, "total": total})
	}
}

func (h *Handler) Update(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Invalid comment ID")
		return
	}

	var req UpdateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Invalid request body")
		return
	}

	comment, changed, err := h.svc.Update(c.Request.Context(), sub, id, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	if !changed {
		response.SuccessWithMessage(c, http.StatusOK, comment, "Comment content unchanged")
		return
	}
	response.Success(c, http.StatusOK, comment)
}

func (h *Handler) Delete(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Invalid comment ID")
		return
	}

	if err := h.svc.Delete(c.Request.Context(), sub, id); err != nil {
		writeError(c, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusOK, nil, "Comment deleted")
}

func parseTarget(c *gin.Context, kind domain.TargetKind) (domain.TargetRef, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Invalid target ID")
		return domain.TargetRef{}, false
	}
	return domain.TargetRef{Kind: kind, ID: id}, true
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "Not found")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, response.CodeForbidden, "Access denied")
	case errors.Is(err, ErrInvalidTarget):
		response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Comments cannot attach to this target type")
	case errors.Is(err, ErrSpam):
		response.Error(c, http.StatusUnprocessableEntity, response.CodeValidationFailed, "Comment looks like spam")
	case errors.Is(err, ErrTooShort):
		response.Error(c, http.StatusUnprocessableEntity, response.CodeValidationFailed, "Comment is too short")
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Internal error")
	}
}
