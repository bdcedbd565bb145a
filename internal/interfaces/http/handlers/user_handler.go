package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/application/dto"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/application/service"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/models"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/interfaces/http/middleware"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/errors"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/utils"
)

var errInvalidUserID = errors.ErrInvalidRequest.WithMessage("Invalid user id")

// UserHandler handles the /users endpoints. Every route runs behind Authenticate; role checks
// on admin-only routes are done by the router.
type UserHandler struct {
	userService service.UserAppService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService service.UserAppService) *UserHandler {
	return &UserHandler{userService: userService}
}

// List handles GET /users.
func (h *UserHandler) List(c *gin.Context) {
	var q dto.ListUsersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		dto.SendError(c, utils.ValidationError(err))
		return
	}

	result, err := h.userService.List(c.Request.Context(), q.Page, q.Limit)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, "Users retrieved successfully", result)
}

// Search handles GET /users/search.
func (h *UserHandler) Search(c *gin.Context) {
	var q dto.SearchUsersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		dto.SendError(c, utils.ValidationError(err))
		return
	}

	users, err := h.userService.Search(c.Request.Context(), &q)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, "Users search completed", users)
}

// Profile handles GET /users/profile.
func (h *UserHandler) Profile(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	user, err := h.userService.Get(c.Request.Context(), actor, actor.UserID)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, "User retrieved successfully", user)
}

// UpdateProfile handles PUT /users/profile.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	h.update(c, actor, actor.UserID, "Profile updated successfully")
}

// Get handles GET /users/:id.
func (h *UserHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		dto.SendError(c, errInvalidUserID)
		return
	}

	user, err := h.userService.Get(c.Request.Context(), actor, id)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, "User retrieved successfully", user)
}

// Create handles POST /users.
func (h *UserHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, utils.ValidationError(err))
		return
	}

	user, err := h.userService.Create(c.Request.Context(), actor, &req, requestMeta(c))
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusCreated, "User created successfully", user)
}

// Update handles PUT /users/:id.
func (h *UserHandler) Update(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		dto.SendError(c, errInvalidUserID)
		return
	}
	h.update(c, actor, id, "User updated successfully")
}

// Delete handles DELETE /users/:id.
func (h *UserHandler) Delete(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		dto.SendError(c, errInvalidUserID)
		return
	}

	if err := h.userService.Delete(c.Request.Context(), actor, id, requestMeta(c)); err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, "User deleted successfully", nil)
}

func (h *UserHandler) update(c *gin.Context, actor *models.Identity, id int64, message string) {
	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, utils.ValidationError(err))
		return
	}

	user, err := h.userService.Update(c.Request.Context(), actor, id, &req, requestMeta(c))
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, message, user)
}

func (h *UserHandler) actor(c *gin.Context) (*models.Identity, bool) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		dto.SendError(c, errors.ErrUnauthenticated)
		return nil, false
	}
	return identity, true
}
