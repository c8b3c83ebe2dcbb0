package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atelierhq/portal-backend/internal/api/http/middleware"
	"github.com/atelierhq/portal-backend/internal/domain"
)

// WriteError maps the domain error taxonomy onto HTTP statuses. Conflict
// responses are retryable with fresh data; everything else is not.
func WriteError(c *gin.Context, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": ve.Error()})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "forbidden"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "not found"})
	case errors.Is(err, domain.ErrConflict):
		middleware.NewLogger(c.Request.Context()).LogWarn(c.FullPath(), "write conflict")
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": "conflict, retry with fresh data"})
	default:
		middleware.NewLogger(c.Request.Context()).LogError(c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
	}
}
