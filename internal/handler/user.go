package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"groupride/internal/domain"
	"groupride/internal/service"
)

// UserHandler handles HTTP requests for rider profiles.
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// ProfileRequest is the HTTP request body for updating one's profile.
type ProfileRequest struct {
	Name                string `json:"name"`
	Email               string `json:"email"`
	Bio                 string `json:"bio"`
	PreferredDifficulty string `json:"preferred_difficulty"`
}

// UserResponse is the HTTP response for user data.
type UserResponse struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Email               string `json:"email,omitempty"`
	Bio                 string `json:"bio,omitempty"`
	PreferredDifficulty string `json:"preferred_difficulty,omitempty"`
	Role                string `json:"role,omitempty"`
}

func toUserResponse(u *domain.User, private bool) UserResponse {
	resp := UserResponse{
		ID:                  u.ID,
		Name:                u.Name,
		Bio:                 u.Bio,
		PreferredDifficulty: string(u.PreferredDifficulty),
	}
	if private {
		resp.Email = u.Email
		resp.Role = string(u.Role)
	}
	return resp
}

// GetMe handles GET /v1/users/me
func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := h.userService.GetProfile(c.Request.Context(), actor(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toUserResponse(user, true))
}

// UpdateMe handles PUT /v1/users/me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), actor(c), service.UpdateProfileRequest{
		Name:                req.Name,
		Email:               req.Email,
		Bio:                 req.Bio,
		PreferredDifficulty: req.PreferredDifficulty,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toUserResponse(user, true))
}

// GetUser handles GET /v1/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userService.GetProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toUserResponse(user, false))
}
