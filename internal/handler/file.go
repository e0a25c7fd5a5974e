// Package handler provides HTTP handlers for the layerhub REST API.
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/CageChen/layerhub/internal/entry"
	"github.com/CageChen/layerhub/internal/finder"
	mfs "github.com/CageChen/layerhub/internal/fs"
	"github.com/CageChen/layerhub/internal/view"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

// FindResponse is the response for a lookup
type FindResponse struct {
	Name    string         `json:"name"`
	Type    string         `json:"type"`
	Mode    string         `json:"mode"`
	Reverse bool           `json:"reversed"`
	Found   bool           `json:"found"`
	Matches []finder.Match `json:"matches"`
}

// FileHandler handles lookups and file content requests
type FileHandler struct {
	finder   *finder.Finder
	renderer *view.Renderer
	fs       mfs.FileSystem
}

// NewFileHandler creates a new file handler. A nil fsys reads from the local filesystem.
func NewFileHandler(f *finder.Finder, fsys mfs.FileSystem) *FileHandler {
	return &FileHandler{
		finder:   f,
		renderer: view.NewRenderer(f, fsys),
		fs:       mfs.OrDefault(fsys),
	}
}

// Find resolves a logical name across the layers.
// GET /api/find?name=&type=&reversed=&all=&reload=
func (h *FileHandler) Find(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if strings.Contains(name, "..") {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	typ, err := entry.ParseType(c.Query("type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	q := finder.Query{Name: name, Type: typ}
	flags := []struct {
		key string
		set func()
	}{
		{"reversed", func() { q.Direction = finder.Reversed }},
		{"all", func() { q.Mode = finder.ModeAll }},
		{"reload", func() { q.Reload = true }},
	}
	for _, flag := range flags {
		on, err := boolQuery(c, flag.key)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if on {
			flag.set()
		}
	}

	res := h.finder.Resolve(q)
	resp := FindResponse{
		Name:    name,
		Type:    typ.String(),
		Mode:    q.Mode.String(),
		Reverse: q.Direction == finder.Reversed,
		Found:   res.Found(),
		Matches: res.Matches,
	}
	if resp.Matches == nil {
		resp.Matches = []finder.Match{}
	}

	status := http.StatusOK
	if q.Mode == finder.ModeOne && !resp.Found {
		status = http.StatusNotFound
	}
	c.JSON(status, resp)
}

// GetFile returns a rendered view.
// GET /api/files/*name
func (h *FileHandler) GetFile(c *gin.Context) {
	name, ok := viewName(c)
	if !ok {
		return
	}

	page, err := h.renderer.Render(name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetRaw returns the raw content of the first file a name resolves to.
// GET /api/raw/*name
func (h *FileHandler) GetRaw(c *gin.Context) {
	name, ok := viewName(c)
	if !ok {
		return
	}

	m, found := h.finder.FindFile(name)
	if !found {
		writeError(c, fmt.Errorf("raw %q: %w", name, os.ErrNotExist))
		return
	}

	content, err := h.fs.ReadFile(m.Path)
	if err != nil {
		writeError(c, mfs.WrapIO("read", m.Path, err))
		return
	}

	c.Data(http.StatusOK, contentType(m.Path, content), content)
}

// contentType sniffs content, but keeps markdown as markdown since it
// otherwise detects as plain text.
func contentType(path string, content []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return "text/markdown; charset=utf-8"
	}
	return mimetype.Detect(content).String()
}

func viewName(c *gin.Context) (string, bool) {
	name := strings.TrimPrefix(c.Param("name"), "/")
	if name == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return "", false
	}
	// Security: prevent path traversal
	if strings.Contains(name, "..") {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return "", false
	}
	return name, true
}

func boolQuery(c *gin.Context, key string) (bool, error) {
	v, ok := c.GetQuery(key)
	if !ok || v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", key, v)
	}
	return b, nil
}

// writeError maps an error to a JSON error response.
func writeError(c *gin.Context, err error) {
	var pathErr *finder.PathError
	switch {
	case errors.Is(err, os.ErrNotExist):
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
	case errors.As(err, &pathErr) && pathErr.OutsideRoot(), errors.Is(err, os.ErrPermission):
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	case errors.Is(err, finder.ErrPathNotFound), errors.Is(err, finder.ErrInvalidRoot):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
