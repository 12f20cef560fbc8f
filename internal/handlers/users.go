package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studio/api/internal/service"
)

type profileRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (h HandlerSet) UpdateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "malformed body")
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), identity(c), service.ProfileInput{
		Name:  req.Name,
		Phone: req.Phone,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}

func (h HandlerSet) ListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context(), identity(c), c.Query("role"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(users, toUserResponse))
}
