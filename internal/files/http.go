package files

import (
	"net/http"

	"github.com/gin-gonic/gin"

	httpapi "github.com/atelierhq/portal-backend/internal/api/http"
	"github.com/atelierhq/portal-backend/internal/auth"
	"github.com/atelierhq/portal-backend/internal/gateway"
	"github.com/atelierhq/portal-backend/internal/store"
)

type Handler struct {
	gw        *gateway.Gateway
	presigner *Presigner
}

// Register mounts the file routes. presigner may be nil (no bucket
// configured); the URL endpoints then return 503.
func Register(rg *gin.RouterGroup, gw *gateway.Gateway, presigner *Presigner) {
	h := &Handler{gw: gw, presigner: presigner}

	rg.POST("", h.create)
	rg.GET("", h.list)
	rg.GET("/:id", h.get)
	rg.PATCH("/:id", h.update)
	rg.DELETE("/:id", h.delete)
	rg.GET("/:id/download-url", h.downloadURL)
	rg.POST("/:id/upload-url", h.uploadURL)
}

type createReq struct {
	ProjectID *string  `json:"project_id"`
	SprintID  *string  `json:"sprint_id"`
	Name      string   `json:"name"`
	FileType  string   `json:"file_type"`
	Version   string   `json:"version"`
	Tags      []string `json:"tags"`
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

	f, err := h.gw.CreateFile(c.Request.Context(), p, gateway.CreateFileInput{
		ProjectID: req.ProjectID,
		SprintID:  req.SprintID,
		Name:      req.Name,
		FileType:  req.FileType,
		Version:   req.Version,
		Tags:      req.Tags,
	})
	if err != nil {
		httpapi.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "file": f})
}

func (h *Handler) list(c *gin.Context) {
	p, ok := auth.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthenticated"})
		return
	}

	f := store.FileFilter{
		ProjectID: c.Query("project_id"),
		SprintID:  c.Query("sprint_id"),
		Tag:       c.Query("tag"),
	}
	items, err := h.gw.ListFiles(c.Request.Context(), p, f)
	if err != nil {
		httpapi.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "files": items})
}

func (h *Handler) get(c *gin.Context) {
	p, ok := auth.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthenticated"})
		return
	}

	f, err := h.gw.GetFile(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		httpapi.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "file": f})
}

type updateReq struct {
	ProjectID *string   `json:"project_id"`
	SprintID  *string   `json:"sprint_id"`
	Name      *string   `json:"name"`
	FileType  *string   `json:"file_type"`
	Version   *string   `json:"version"`
	Tags      *[]string `json:"tags"`
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

	f, err := h.gw.UpdateFile(c.Request.Context(), p, c.Param("id"), gateway.UpdateFileInput{
		ProjectID: req.ProjectID,
		SprintID:  req.SprintID,
		Name:      req.Name,
		FileType:  req.FileType,
		Version:   req.Version,
		Tags:      req.Tags,
	})
	if err != nil {
		httpapi.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "file": f})
}

func (h *Handler) delete(c *gin.Context) {
	p, ok := auth.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthenticated"})
		return
	}

	if err := h.gw.DeleteFile(c.Request.Context(), p, c.Param("id")); err != nil {
		httpapi.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) downloadURL(c *gin.Context) {
	p, ok := auth.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthenticated"})
		return
	}
	if h.presigner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "file storage not configured"})
		return
	}

	f, err := h.gw.GetFile(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		httpapi.WriteError(c, err)
		return
	}
	url, err := h.presigner.DownloadURL(c.Request.Context(), f.StorageKey)
	if err != nil {
		httpapi.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "url": url})
}

func (h *Handler) uploadURL(c *gin.Context) {
	p, ok := auth.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthenticated"})
		return
	}
	if h.presigner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "file storage not configured"})
		return
	}

	// Upload replaces the object contents, so it follows update access.
	f, err := h.gw.UpdateFile(c.Request.Context(), p, c.Param("id"), gateway.UpdateFileInput{})
	if err != nil {
		httpapi.WriteError(c, err)
		return
	}
	url, err := h.presigner.UploadURL(c.Request.Context(), f.StorageKey)
	if err != nil {
		httpapi.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "url": url})
}
