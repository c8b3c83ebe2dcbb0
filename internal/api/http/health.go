package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HealthHandler answers liveness probes and reports whether the
// database behind the mutation gateway is reachable. A nil pool is
// allowed so the handler also works in DB-less test routers.
type HealthHandler struct {
	serviceName string
	version     string
	db          *pgxpool.Pool
}

func NewHealthHandler(serviceName, version string, db *pgxpool.Pool) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, db: db}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	status, db := "ok", "disabled"
	if h.db != nil {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()
		if err := h.db.Ping(pingCtx); err != nil {
			status, db = "degraded", "down"
		} else {
			db = "up"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  status,
		"service": h.serviceName,
		"version": h.version,
		"db":      db,
		"time":    time.Now().UTC(),
	})
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}
