package auth

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskhub/internal/middleware"
	"taskhub/internal/pkg/response"
	"taskhub/internal/repository"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(public, protected *gin.RouterGroup) {
	if public != nil {
		public.POST("/auth/register", h.Register)
		public.POST("/auth/login", h.Login)
	}
	if protected != nil {
		protected.GET("/auth/me", h.Me)
		protected.GET("/users", h.ListUsers)
		protected.POST("/users/:id/roles", h.AssignRole)
	}
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Invalid request body")
		return
	}

	result, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) {
			response.Error(c, http.StatusConflict, response.CodeConflict, "Email is already registered")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Registration failed")
		return
	}

	response.Success(c, http.StatusCreated, result)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Invalid request body")
		return
	}

	result, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Invalid email or password")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Login failed")
		return
	}

	response.Success(c, http.StatusOK, result)
}

func (h *Handler) Me(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	user, err := h.svc.GetCurrentUser(c.Request.Context(), sub.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeNotFound, "User not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Internal error")
		return
	}

	response.Success(c, http.StatusOK, user)
}

func (h *Handler) ListUsers(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	users, err := h.svc.ListUsers(c.Request.Context(), sub)
	if err != nil {
		if errors.Is(err, ErrForbidden) {
			response.Error(c, http.StatusForbidden, response.CodeForbidden, "Access denied")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Internal error")
		return
	}

	response.Success(c, http.StatusOK, users)
}

func (h *Handler) AssignRole(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
		return
	}

	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Invalid user ID")
		return
	}

	var req AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Invalid request body")
		return
	}

	if err := h.svc.AssignRole(c.Request.Context(), sub, userID, req.Role); err != nil {
		switch {
		case errors.Is(err, ErrForbidden):
			response.Error(c, http.StatusForbidden, response.CodeForbidden, "Only admins may assign roles")
		case errors.Is(err, ErrUnknownRole):
			response.Error(c, http.StatusBadRequest, response.CodeValidationFailed, "Unknown role")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Internal error")
		}
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, nil, "Role assigned")
}
