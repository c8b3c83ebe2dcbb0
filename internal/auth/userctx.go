package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/atelierhq/portal-backend/internal/domain"
)

const ctxPrincipal = "principal"

func SetPrincipal(c *gin.Context, p domain.Principal) {
	c.Set(ctxPrincipal, p)
}

// Principal extracts the resolved principal set by WithPrincipal. The
// second return is false when the middleware did not run.
func Principal(c *gin.Context) (domain.Principal, bool) {
	v, ok := c.Get(ctxPrincipal)
	if !ok {
		return domain.Principal{}, false
	}
	p, ok := v.(domain.Principal)
	return p, ok
}
