package clients

import (
	"net/http"

	"github.com/gin-gonic/gin"

	httpapi "github.com/atelierhq/portal-backend/internal/api/http"
	"github.com/atelierhq/portal-backend/internal/auth"
	"github.com/atelierhq/portal-backend/internal/gateway"
)

type Handler struct {
	gw *gateway.Gateway
}

func Register(rg *gin.RouterGroup, gw *gateway.Gateway) {
	h := &Handler{gw: gw}

	rg.POST("", h.create)
	rg.GET("", h.list)
	rg.GET("/:id", h.get)
	rg.PATCH("/:id", h.update)
}

type createReq struct {
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	Company        string   `json:"company"`
	ClientUserID   string   `json:"client_user_id"`
	AccountBalance int64    `json:"account_balance"`
	AssignedTo     []string `json:"assigned_to"`
}

func (h *Handler) create(c *gin.Context) {
	p, ok := auth.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthenticated"})
		return
	}

	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	acct, err := h.gw.CreateClientAccount(c.Request.Context(), p, gateway.CreateClientAccountInput{
		Name:           req.Name,
		Email:          req.Email,
		Company:        req.Company,
		ClientUserID:   req.ClientUserID,
		AccountBalance: req.AccountBalance,
		AssignedTo:     req.AssignedTo,
	})
	if err != nil {
		httpapi.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "client": acct})
}

func (h *Handler) list(c *gin.Context) {
	p, ok := auth.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthenticated"})
		return
	}

	items, err := h.gw.ListClientAccounts(c.Request.Context(), p)
	if err != nil {
		httpapi.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "clients": items})
}

func (h *Handler) get(c *gin.Context) {
	p, ok := auth.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthenticated"})
		return
	}

	acct, err := h.gw.GetClientAccount(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		httpapi.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "client": acct})
}

type updateReq struct {
	Name           *string   `json:"name"`
	Email          *string   `json:"email"`
	Company        *string   `json:"company"`
	ClientUserID   *string   `json:"client_user_id"`
	AccountBalance *int64    `json:"account_balance"`
	AssignedTo     *[]string `json:"assigned_to"`
}

func (h *Handler) update(c *gin.Context) {
	p, ok := auth.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthenticated"})
		return
	}

	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	acct, err := h.gw.UpdateClientAccount(c.Request.Context(), p, c.Param("id"), gateway.UpdateClientAccountInput{
		Name:           req.Name,
		Email:          req.Email,
		Company:        req.Company,
		ClientUserID:   req.ClientUserID,
		AccountBalance: req.AccountBalance,
		AssignedTo:     req.AssignedTo,
	})
	if err != nil {
		httpapi.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "client": acct})
}
