package projects

import (
	"net/http"
	"strconv"
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
	rg.POST("/:id/milestones/:index/toggle", h.toggleMilestone)
}

type milestoneReq struct {
	Title       string    `json:"title"`
	Date        time.Time `json:"date"`
	Completed   bool      `json:"completed"`
	Description string    `json:"description"`
}

func milestoneInputs(ms []milestoneReq) []gateway.MilestoneInput {
	out := make([]gateway.MilestoneInput, 0, len(ms))
	for _, m := range ms {
		out = append(out, gateway.MilestoneInput{
			Title:       m.Title,
			Date:        m.Date,
			Completed:   m.Completed,
			Description: m.Description,
		})
	}
	return out
}

type createReq struct {
	ClientID         string         `json:"client_id"`
	Name             string         `json:"name"`
	AssignedTo       []string       `json:"assigned_to"`
	StartDate        time.Time      `json:"start_date"`
	ProjectedEndDate time.Time      `json:"projected_end_date"`
	Milestones       []milestoneReq `json:"milestones"`
	BudgetAmount     int64          `json:"budget_amount"`
	Currency         string         `json:"currency"`
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

	proj, err := h.gw.CreateProject(c.Request.Context(), p, gateway.CreateProjectInput{
		ClientID:         req.ClientID,
		Name:             req.Name,
		AssignedTo:       req.AssignedTo,
		StartDate:        req.StartDate,
		ProjectedEndDate: req.ProjectedEndDate,
		Milestones:       milestoneInputs(req.Milestones),
		BudgetAmount:     req.BudgetAmount,
		Currency:         req.Currency,
	})
	if err != nil {
		httpapi.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "project": proj})
}

func (h *Handler) list(c *gin.Context) {
	p, ok := auth.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthenticated"})
		return
	}

	f := store.ProjectFilter{
		ClientID: c.Query("client_id"),
		Status:   domain.ProjectStatus(c.Query("status")),
	}
	items, err := h.gw.ListProjects(c.Request.Context(), p, f)
	if err != nil {
		httpapi.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "projects": items})
}

func (h *Handler) get(c *gin.Context) {
	p, ok := auth.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthenticated"})
		return
	}

	proj, err := h.gw.GetProject(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		httpapi.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": proj})
}

type updateReq struct {
	Name             *string         `json:"name"`
	AssignedTo       *[]string       `json:"assigned_to"`
	StartDate        *time.Time      `json:"start_date"`
	ProjectedEndDate *time.Time      `json:"projected_end_date"`
	Milestones       *[]milestoneReq `json:"milestones"`
	BudgetAmount     *int64          `json:"budget_amount"`
	Currency         *string         `json:"currency"`
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

	in := gateway.UpdateProjectInput{
		Name:             req.Name,
		AssignedTo:       req.AssignedTo,
		StartDate:        req.StartDate,
		ProjectedEndDate: req.ProjectedEndDate,
		BudgetAmount:     req.BudgetAmount,
		Currency:         req.Currency,
	}
	if req.Milestones != nil {
		ms := milestoneInputs(*req.Milestones)
		in.Milestones = &ms
	}

	proj, err := h.gw.UpdateProject(c.Request.Context(), p, c.Param("id"), in)
	if err != nil {
		httpapi.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": proj})
}

func (h *Handler) delete(c *gin.Context) {
	p, ok := auth.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthenticated"})
		return
	}

	if err := h.gw.DeleteProject(c.Request.Context(), p, c.Param("id")); err != nil {
		httpapi.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type statusReq struct {
	Status domain.ProjectStatus `json:"status"`
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

	proj, err := h.gw.UpdateProjectStatus(c.Request.Context(), p, c.Param("id"), req.Status)
	if err != nil {
		httpapi.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": proj})
}

func (h *Handler) toggleMilestone(c *gin.Context) {
	p, ok := auth.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthenticated"})
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid milestone index"})
		return
	}

	proj, err := h.gw.ToggleMilestone(c.Request.Context(), p, c.Param("id"), index)
	if err != nil {
		httpapi.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": proj})
}
