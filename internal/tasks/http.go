package tasks

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

type createReq struct {
	ProjectID      string              `json:"project_id"`
	SprintID       *string             `json:"sprint_id"`
	AssigneeID     string              `json:"assignee_id"`
	Title          string              `json:"title"`
	Priority       domain.TaskPriority `json:"priority"`
	DueDate        *time.Time          `json:"due_date"`
	EstimatedHours *float64            `json:"estimated_hours"`
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

	task, err := h.gw.CreateTask(c.Request.Context(), p, gateway.CreateTaskInput{
		ProjectID:      req.ProjectID,
		SprintID:       req.SprintID,
		AssigneeID:     req.AssigneeID,
		Title:          req.Title,
		Priority:       req.Priority,
		DueDate:        req.DueDate,
		EstimatedHours: req.EstimatedHours,
	})
	if err != nil {
		httpapi.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "task": task})
}

func (h *Handler) list(c *gin.Context) {
	p, ok := auth.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthenticated"})
		return
	}

	f := store.TaskFilter{
		ProjectID:  c.Query("project_id"),
		SprintID:   c.Query("sprint_id"),
		AssigneeID: c.Query("assignee_id"),
		Status:     domain.TaskStatus(c.Query("status")),
	}
	items, err := h.gw.ListTasks(c.Request.Context(), p, f)
	if err != nil {
		httpapi.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "tasks": items})
}

func (h *Handler) get(c *gin.Context) {
	p, ok := auth.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthenticated"})
		return
	}

	task, err := h.gw.GetTask(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		httpapi.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "task": task})
}

type updateReq struct {
	SprintID       *string              `json:"sprint_id"`
	AssigneeID     *string              `json:"assignee_id"`
	Title          *string              `json:"title"`
	Priority       *domain.TaskPriority `json:"priority"`
	DueDate        *time.Time           `json:"due_date"`
	EstimatedHours *float64             `json:"estimated_hours"`
	ActualHours    *float64             `json:"actual_hours"`
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

	task, err := h.gw.UpdateTask(c.Request.Context(), p, c.Param("id"), gateway.UpdateTaskInput{
		SprintID:       req.SprintID,
		AssigneeID:     req.AssigneeID,
		Title:          req.Title,
		Priority:       req.Priority,
		DueDate:        req.DueDate,
		EstimatedHours: req.EstimatedHours,
		ActualHours:    req.ActualHours,
	})
	if err != nil {
		httpapi.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "task": task})
}

func (h *Handler) delete(c *gin.Context) {
	p, ok := auth.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthenticated"})
		return
	}

	if err := h.gw.DeleteTask(c.Request.Context(), p, c.Param("id")); err != nil {
		httpapi.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type statusReq struct {
	Status domain.TaskStatus `json:"status"`
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

	task, err := h.gw.UpdateTaskStatus(c.Request.Context(), p, c.Param("id"), req.Status)
	if err != nil {
		httpapi.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "task": task})
}
