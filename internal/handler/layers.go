package handler

import (
	"net/http"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/CageChen/layerhub/internal/config"
	"github.com/CageChen/layerhub/internal/directory"
	"github.com/CageChen/layerhub/internal/entry"
	"github.com/CageChen/layerhub/internal/finder"
	"github.com/CageChen/layerhub/internal/logger"
	"github.com/gin-gonic/gin"
)

// TreeNode represents a node in a layer listing
type TreeNode struct {
	Name     string     `json:"name"`
	Path     string     `json:"path"`
	Type     string     `json:"type"`
	Children []TreeNode `json:"children,omitempty"`
}

// LayerTree is the listing of one layer
type LayerTree struct {
	Alias    string     `json:"alias"`
	Path     string     `json:"path"`
	Children []TreeNode `json:"children"`
}

// LayerHooks are called after a successful change. Nil hooks are skipped.
type LayerHooks struct {
	LayerAdded   func(path string)
	LayerRemoved func(path string)
	CacheCleared func(n int)
}

// LayerHandler handles layer management, listings and the lookup cache
type LayerHandler struct {
	mu     sync.Mutex
	cfg    *config.Config
	finder *finder.Finder
	lister *directory.Lister
	hooks  LayerHooks
}

// NewLayerHandler creates a new layer handler
func NewLayerHandler(cfg *config.Config, f *finder.Finder, hooks LayerHooks) *LayerHandler {
	return &LayerHandler{
		cfg:    cfg,
		finder: f,
		lister: directory.New(nil),
		hooks:  hooks,
	}
}

// GetLayers returns the configured layers and the finder's search paths.
// GET /api/layers
func (h *LayerHandler) GetLayers(c *gin.Context) {
	h.mu.Lock()
	layers := append([]config.Layer{}, h.cfg.Layers...)
	exclude := append([]string{}, h.cfg.Exclude...)
	h.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"layers":           layers,
		"paths":            h.finder.Paths(),
		"root":             h.finder.Root(),
		"defaultExtension": h.finder.DefaultExtension(),
		"exclude":          exclude,
	})
}

// AddLayerRequest represents the request body for adding a layer
type AddLayerRequest struct {
	Path  string `json:"path" binding:"required"`
	Alias string `json:"alias"`
}

// AddLayer appends a search path.
// POST /api/layers
func (h *LayerHandler) AddLayer(c *gin.Context) {
	var req AddLayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.finder.AddPath(req.Path); err != nil {
		writeError(c, err)
		return
	}
	if err := h.cfg.AddLayer(req.Path, req.Alias); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save config: " + err.Error()})
		return
	}

	if h.hooks.LayerAdded != nil {
		h.hooks.LayerAdded(req.Path)
	}
	logger.Info("layer added: %s", req.Path)

	c.JSON(http.StatusOK, gin.H{
		"message": "layer added",
		"layers":  h.cfg.Layers,
		"paths":   h.finder.Paths(),
	})
}

// RemoveLayerRequest represents the request body for removing a layer
type RemoveLayerRequest struct {
	Layer string `json:"layer" binding:"required"` // path or alias
}

// RemoveLayer removes a search path by path or alias.
// DELETE /api/layers
func (h *LayerHandler) RemoveLayer(c *gin.Context) {
	var req RemoveLayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "layer is required"})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	path := req.Layer
	layer, ok := h.cfg.RemoveLayer(req.Layer)
	if ok {
		path = layer.Path
	}

	before := len(h.finder.Paths())
	if err := h.finder.RemovePath(path); err != nil {
		writeError(c, err)
		return
	}
	if !ok && len(h.finder.Paths()) == before {
		c.JSON(http.StatusNotFound, gin.H{"error": "layer not found"})
		return
	}
	if err := h.save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save config: " + err.Error()})
		return
	}

	if h.hooks.LayerRemoved != nil {
		h.hooks.LayerRemoved(path)
	}
	logger.Info("layer removed: %s", path)

	c.JSON(http.StatusOK, gin.H{
		"message": "layer removed",
		"layers":  h.cfg.Layers,
		"paths":   h.finder.Paths(),
	})
}

// GetTree lists one layer, or every layer when none is named.
// GET /api/tree?layer=&depth=&type=
func (h *LayerHandler) GetTree(c *gin.Context) {
	depth := directory.Infinite
	if v := c.Query("depth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid depth: " + v})
			return
		}
		depth = n
	}
	typ, err := entry.ParseType(c.Query("type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.mu.Lock()
	layers := append([]config.Layer{}, h.cfg.Layers...)
	spec := h.cfg.FilterSpec()
	h.mu.Unlock()

	if alias := c.Query("layer"); alias != "" {
		var found []config.Layer
		for _, l := range layers {
			if l.Alias == alias {
				found = append(found, l)
			}
		}
		if len(found) == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "layer not found"})
			return
		}
		layers = found
	}

	trees := make([]LayerTree, 0, len(layers))
	for _, l := range layers {
		listing, err := h.lister.List(l.Path, directory.Options{Depth: depth, Filter: spec, Type: typ})
		if err != nil {
			writeError(c, err)
			return
		}
		trees = append(trees, LayerTree{
			Alias:    l.Alias,
			Path:     l.Path,
			Children: buildTree(listing, l.Path, l.Alias),
		})
	}

	c.JSON(http.StatusOK, trees)
}

// buildTree converts a listing to tree nodes whose paths are prefixed with
// the layer alias.
func buildTree(l *directory.Listing, root, alias string) []TreeNode {
	if l == nil {
		return nil
	}
	nodes := make([]TreeNode, 0, len(l.Nodes))
	for _, n := range l.Nodes {
		rel, err := filepath.Rel(root, n.Path)
		if err != nil {
			rel = filepath.Base(n.Path)
		}
		nodes = append(nodes, TreeNode{
			Name:     filepath.Base(n.Path),
			Path:     filepath.ToSlash(filepath.Join(alias, rel)),
			Type:     n.Type.String(),
			Children: buildTree(n.Children, root, alias),
		})
	}
	return nodes
}

// UpdateExcludeRequest represents the request body for updating exclude patterns
type UpdateExcludeRequest struct {
	Exclude []string `json:"exclude"`
}

// UpdateExclude replaces the listing exclude patterns.
// PUT /api/exclude
func (h *LayerHandler) UpdateExclude(c *gin.Context) {
	var req UpdateExcludeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.cfg.SetExclude(req.Exclude)
	if err := h.save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save config: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "exclude updated",
		"exclude": h.cfg.Exclude,
	})
}

// ClearCache drops every cached lookup.
// DELETE /api/cache
func (h *LayerHandler) ClearCache(c *gin.Context) {
	n := h.finder.ClearCache()
	if h.hooks.CacheCleared != nil {
		h.hooks.CacheCleared(n)
	}
	c.JSON(http.StatusOK, gin.H{"message": "cache cleared", "invalidated": n})
}

// save persists the config when it has a file to go to.
func (h *LayerHandler) save() error {
	if h.cfg.ConfigFilePath() == "" {
		return nil
	}
	return h.cfg.Save()
}
