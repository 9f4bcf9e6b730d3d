package attachments

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"taskhub/internal/domain"
	"taskhub/internal/middleware"
	"taskhub/internal/pkg/response"
)

const maxUploadBytes = 50 << 20

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	for _, kind := range []domain.TargetKind{domain.KindTask, domain.KindProject, domain.KindComment} {
		base := "/" + string(kind) + "s/:id/attachments"
		protected.POST(base, h.Upload(kind))
		protected.GET(base, h.ListForTarget(kind))
		protected.GET(base+"/latest", h.LatestForTarget(kind))
	}
	protected.GET("/attachments/:id/download", h.Download)
	protected.PATCH("/attachments/:id", h.Rename)
	protected.DELETE("/attachments/:id", h.Delete)
}

func (h *Handler) Upload(kind domain.TargetKind) gin.HandlerFunc {
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

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
		fileHeader, err := c.FormFile("file")
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "A 'file' form field is required")
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Could not read upload")
			return
		}
		defer file.Close()

		mimeType := fileHeader.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}

		var operations []string
		if ops := c.PostForm("operations"); ops != "" {
			for _, op := range strings.Split(ops, ",") {
				if op = strings.TrimSpace(op); op != "" {
					operations = append(operations, op)
				}
			}
		}

		result, err := h.svc.Upload(c.Request.Context(), sub, ref, UploadInput{
			FileName:   fileHeader.Filename,
			MimeType:   mimeType,
			Disk:       domain.DiskName(c.PostForm("disk")),
			Body:       file,
			Operations: operations,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		response.Success(c, http.StatusCreated, result)
	}
}

func (h *Handler) Download(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	id, ok := parseID(c)
	if !ok {
		return
	}

	att, rc, err := h.svc.Download(c.Request.Context(), sub, id)
	if err != nil {
		writeError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", `attachment; filename="`+att.FileName+`"`)
	c.Header("Content-Type", att.MimeType)
	c.DataFromReader(http.StatusOK, att.FileSize, att.MimeType, rc, nil)
}

func (h *Handler) Rename(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	id, ok := parseID(c)
	if !ok {
		return
	}

	var req RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Invalid request body")
		return
	}

	result, err := h.svc.Rename(c.Request.Context(), sub, id, req.FileName)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
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
	response.SuccessWithMessage(c, http.StatusOK, nil, "Attachment deleted")
}

func (h *Handler) ListForTarget(kind domain.TargetKind) gin.HandlerFunc {
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

		items, err := h.svc.ListForTarget(c.Request.Context(), sub, ref)
		if err != nil {
			writeError(c, err)
			return
		}
		response.Success(c, http.StatusOK, items)
	}
}

func (h *Handler) LatestForTarget(kind domain.TargetKind) gin.HandlerFunc {
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

		result, err := h.svc.LatestForTarget(c.Request.Context(), sub, ref)
		if err != nil {
			writeError(c, err)
			return
		}
		response.Success(c, http.StatusOK, result)
	}
}

func parseTarget(c *gin.Context, kind domain.TargetKind) (domain.TargetRef, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Invalid target ID")
		return domain.TargetRef{}, false
	}
	return domain.TargetRef{Kind: kind, ID: id}, true
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Invalid attachment ID")
		return 0, false
	}
	return id, true
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "Not found")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, response.CodeForbidden, "Access denied")
	case errors.Is(err, ErrInvalidTarget):
		response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Attachments cannot attach to this target type")
	case errors.Is(err, ErrInvalidDisk):
		response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Unknown storage disk")
	case errors.Is(err, ErrStorageFailure):
		response.Error(c, http.StatusInternalServerError, response.CodeStorageFailure, "Storage operation failed")
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Internal error")
	}
}
