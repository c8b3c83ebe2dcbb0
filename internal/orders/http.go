package orders

import (
	"net/http"

	"github.com/gin-gonic/gin"

	httpapi "github.com/atelierhq/portal-backend/internal/api/http"
	"github.com/atelierhq/portal-backend/internal/auth"
	"github.com/atelierhq/portal-backend/internal/gateway"
)

type Handler struct {
	gw      *gateway.Gateway
	shopify *ShopifyClient
}

// Register mounts the order routes. shopify may be nil when the shop
// integration is not configured; creation then returns 503.
func Register(rg *gin.RouterGroup, gw *gateway.Gateway, shopify *ShopifyClient) {
	h := &Handler{gw: gw, shopify: shopify}

	rg.POST("", h.create)
}

type createReq struct {
	ProjectID string `json:"project_id"`
	Amount    int64  `json:"amount"`
	Note      string `json:"note"`
}

func (h *Handler) create(c *gin.Context) {
	p, ok := auth.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthenticated"})
		return
	}
	if h.shopify == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "shop integration not configured"})
		return
	}

	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	if req.ProjectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "project_id is required"})
		return
	}
	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "amount must be positive"})
		return
	}

	project, account, err := h.gw.ResolveOrderContext(c.Request.Context(), p, req.ProjectID)
	if err != nil {
		httpapi.WriteError(c, err)
		return
	}

	order, err := h.shopify.CreateDraftOrder(c.Request.Context(), account, project, req.Amount, req.Note)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": "draft order failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "order": order})
}
