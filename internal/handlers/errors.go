package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"studio/api/internal/middleware"
	"studio/api/internal/service"
)

var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{service.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{service.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{service.ErrForbidden, http.StatusForbidden, "forbidden"},
	{service.ErrNotFound, http.StatusNotFound, "not_found"},
	{service.ErrGone, http.StatusGone, "gone"},
	{service.ErrConflict, http.StatusConflict, "conflict"},
	{service.ErrInvalidOrExpired, http.StatusBadRequest, "invalid_or_expired"},
	{service.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
}

// respondError maps service errors to status codes. Only validation
// messages are echoed; anything unrecognised is logged and answered as 500.
func (h HandlerSet) respondError(c *gin.Context, err error) {
	for _, e := range errorStatus {
		if !errors.Is(err, e.err) {
			continue
		}
		body := gin.H{"error": e.code}
		if e.err == service.ErrInvalidInput {
			if msg := validationMessage(err); msg != "" {
				body["message"] = msg
			}
		}
		c.AbortWithStatusJSON(e.status, body)
		return
	}

	h.log.Error().
		Err(err).
		Str("path", c.Request.URL.Path).
		Str("request_id", middleware.GetRequestID(c)).
		Msg("request failed")
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
}

// validationMessage drops everything up to the sentinel text so callers see
// only what the service wrote.
func validationMessage(err error) string {
	msg := err.Error()
	marker := service.ErrInvalidInput.Error() + ": "
	if idx := strings.LastIndex(msg, marker); idx >= 0 {
		return msg[idx+len(marker):]
	}
	return ""
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": message})
}
