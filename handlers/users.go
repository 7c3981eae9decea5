package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/daybook/daybook/internal/entry"
	"github.com/daybook/daybook/internal/users"
	"github.com/daybook/daybook/pkg/logger"
	"github.com/daybook/daybook/pkg/middleware"
)

// UserHandler serves the signed-in user's profile and template preference.
type UserHandler struct {
	usersSvc *users.Service
}

func NewUserHandler(u *users.Service) *UserHandler {
	return &UserHandler{usersSvc: u}
}

// Register routes under /user. rg must already run the auth middleware.
func (h *UserHandler) Register(rg *gin.RouterGroup) {
	u := rg.Group("/user")
	u.GET("/me", h.Me)
	u.GET("/template", h.GetTemplate)
	u.PUT("/template", h.PutTemplate)
}

// Me records the caller from their token claims and returns the stored user.
func (h *UserHandler) Me(c *gin.Context) {
	claims := middleware.Claims(c)
	u, err := h.usersSvc.UpsertFromClaims(c.Request.Context(), claims)
	if err != nil || u == nil {
		if err != nil {
			logger.Warnf("user upsert failed: %v", err)
		}
		// fallback: return claims
		c.JSON(http.StatusOK, gin.H{"claims": claims})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

// GetTemplate never fails; a broken preference store reads as the free template.
func (h *UserHandler) GetTemplate(c *gin.Context) {
	t := h.usersSvc.TemplatePreference(c.Request.Context(), middleware.OwnerID(c))
	c.JSON(http.StatusOK, gin.H{"template": t})
}

func (h *UserHandler) PutTemplate(c *gin.Context) {
	var req struct {
		Template string `json:"template"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := h.usersSvc.SetTemplatePreference(c.Request.Context(), middleware.OwnerID(c), req.Template)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "template": t})
	case errors.Is(err, entry.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case errors.Is(err, entry.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Errorf("template preference update failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update template preference"})
	}
}
