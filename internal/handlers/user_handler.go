package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetAllUsers handles GET /api/users
func (h *Handler) GetAllUsers(c *gin.Context) {
	users, err := h.svc.Users(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"count": len(users),
	})
}

// GetManagedUsers handles GET /api/users/managed
func (h *Handler) GetManagedUsers(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	users, err := h.svc.ManagedEmployees(c.Request.Context(), actor)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"count": len(users),
	})
}
