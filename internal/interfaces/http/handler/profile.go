package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/knwn/storefront/internal/application/profile"
	"github.com/knwn/storefront/internal/interfaces/http/middleware"
)

// ProfileHandler serves the session's contact profile
type ProfileHandler struct {
	BaseHandler
	profiles *profile.Service
}

// NewProfileHandler creates a ProfileHandler
func NewProfileHandler(profiles *profile.Service) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// GetProfile returns the registered profile
// GET /api/v1/profile
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	p, err := h.profiles.Get(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// PutProfile registers or replaces the profile
// PUT /api/v1/profile
func (h *ProfileHandler) PutProfile(c *gin.Context) {
	var req profile.RegisterRequest
	if !h.BindJSON(c, &req) {
		return
	}
	p, err := h.profiles.Register(c.Request.Context(), middleware.GetSessionID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// DeleteProfile forgets the profile
// DELETE /api/v1/profile
func (h *ProfileHandler) DeleteProfile(c *gin.Context) {
	if err := h.profiles.Logout(c.Request.Context(), middleware.GetSessionID(c)); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
