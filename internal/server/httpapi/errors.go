package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/gophstat/internal/common"
)

// Client-facing details for auth failures.
const (
	detailNotAuthenticated     = "Not authenticated"
	detailCouldNotValidate     = "Could not validate credentials"
	detailUserNotFound         = "Could not find user"
	detailInactiveUser         = "Inactive user"
	detailIncorrectCredentials = "Incorrect username or password"
	detailInternal             = "Internal Server Error"
)

func writeDetail(c *gin.Context, status int, detail string) {
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

// writeError maps a service error to its status and detail. Unknown errors
// are logged and answered with a generic 500.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrNotAuthenticated):
		writeDetail(c, http.StatusUnauthorized, detailNotAuthenticated)
	case errors.Is(err, common.ErrCouldNotValidate):
		writeDetail(c, http.StatusUnauthorized, detailCouldNotValidate)
	case errors.Is(err, common.ErrUserNotFound):
		writeDetail(c, http.StatusUnauthorized, detailUserNotFound)
	case errors.Is(err, common.ErrIncorrectCredentials):
		writeDetail(c, http.StatusUnauthorized, detailIncorrectCredentials)
	case errors.Is(err, common.ErrInactiveUser):
		writeDetail(c, http.StatusBadRequest, detailInactiveUser)
	case errors.Is(err, common.ErrPayloadTooLarge):
		writeDetail(c, http.StatusBadRequest, fmt.Sprintf("file exceeds %d MiB limit", h.maxUpload>>20))
	case errors.Is(err, common.ErrInvalidFormat):
		writeDetail(c, http.StatusBadRequest, strings.TrimPrefix(err.Error(), common.ErrInvalidFormat.Error()+": "))
	default:
		h.logger.Error(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.FullPath(), "error", err)
		writeDetail(c, http.StatusInternalServerError, detailInternal)
	}
}
