package sprints

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	httpapi "github.com/atelierhq/portal-backend/internal/api/http"
	"github.com/atelierhq/portal-backend/internal/auth"
	"github.com/atelierhq/portal-backend/internal/domain"
	"github.com/atelierhq/portal-backend/internal/gateway"
	"github.com/atelierhq/portal-backend/internal/store"
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
	rg.DELETE("/:id", h.delete)
	rg.PATCH("/:id/status", h.status)
}

// Note: completed_tasks_count and total_tasks_count are absent from every
// request body here. They are derived projections; the recount engine is
// the only writer.

type createReq struct {
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
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

	sp, err := h.gw.CreateSprint(c.Request.Context(), p, gateway.CreateSprintInput{
		ProjectID: req.ProjectID,
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		httpapi.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "sprint": sp})
}

func (h *Handler) list(c *gin.Context) {
	p, ok := auth.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthenticated"})
		return
	}

	f := store.SprintFilter{
		ProjectID: c.Query("project_id"),
		Status:    domain.SprintStatus(c.Query("status")),
	}
	items, err := h.gw.ListSprints(c.Request.Context(), p, f)
	if err != nil {
		httpapi.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "sprints": items})
}

func (h *Handler) get(c *gin.Context) {
	p, ok := auth.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthenticated"})
		return
	}

	sp, err := h.gw.GetSprint(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		httpapi.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "sprint": sp})
}

type updateReq struct {
	Name      *string    `json:"name"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
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

	sp, err := h.gw.UpdateSprint(c.Request.Context(), p, c.Param("id"), gateway.UpdateSprintInput{
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		httpapi.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "sprint": sp})
}

func (h *Handler) delete(c *gin.Context) {
	p, ok := auth.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthenticated"})
		return
	}

	if err := h.gw.DeleteSprint(c.Request.Context(), p, c.Param("id")); err != nil {
		httpapi.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type statusReq struct {
	Status domain.SprintStatus `json:"status"`
}

func (h *Handler) status(c *gin.Context) {
	p, ok := auth.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthenticated"})
		return
	}

	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	sp, err := h.gw.UpdateSprintStatus(c.Request.Context(), p, c.Param("id"), req.Status)
	if err != nil {
		httpapi.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "sprint": sp})
}
