package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/application/dto"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/application/service"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/interfaces/http/middleware"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/errors"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/utils"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService service.AuthAppService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService service.AuthAppService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, utils.ValidationError(err))
		return
	}

	result, err := h.authService.Register(c.Request.Context(), &req, requestMeta(c))
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusCreated, "User registered successfully", result)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, utils.ValidationError(err))
		return
	}

	result, err := h.authService.Login(c.Request.Context(), &req, requestMeta(c))
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, "Login successful", result)
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		dto.SendError(c, errors.ErrUnauthenticated)
		return
	}

	user, err := h.authService.Me(c.Request.Context(), identity.UserID)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, "User profile retrieved successfully", user)
}

// PublicKey handles GET /auth/public-key.
func (h *AuthHandler) PublicKey(c *gin.Context) {
	dto.SendSuccess(c, http.StatusOK, "Public key retrieved successfully", h.authService.PublicKey())
}

// Session handles GET /auth/session. It never rejects; anonymous callers get
// authenticated=false.
func (h *AuthHandler) Session(c *gin.Context) {
	identity, _ := middleware.Outcome(c).Identity()
	dto.SendSuccess(c, http.StatusOK, "Session retrieved successfully", dto.NewSessionResponse(identity))
}

func requestMeta(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{
		IPAddress: c.ClientIP(),
		RequestID: middleware.GetRequestID(c),
	}
}
