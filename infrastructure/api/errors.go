package api

import (
	stderrors "errors"
	"net/http"

	"channel-chat/errors"
	"channel-chat/infrastructure/wire"

	"github.com/gin-gonic/gin"
)

// statusFor maps a domain error to its HTTP status, 500 for anything unknown.
func statusFor(err error) int {
	switch {
	case stderrors.Is(err, errors.ErrInvalidToken):
		return http.StatusUnauthorized
	case stderrors.Is(err, errors.ErrNotMember), stderrors.Is(err, errors.ErrNotAllowed):
		return http.StatusForbidden
	case stderrors.Is(err, errors.ErrChannelNotFound), stderrors.Is(err, errors.ErrMessageNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, errors.ErrEmptyMessage), stderrors.Is(err, errors.ErrInvalidPayload):
		return http.StatusBadRequest
	case stderrors.Is(err, errors.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("Request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, wire.NewErrorResponse(err))
}
