package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/CageChen/layerhub/internal/config"
	"github.com/CageChen/layerhub/internal/finder"
	"github.com/CageChen/layerhub/internal/watcher"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	base    string
	cfg     *config.Config
	finder  *finder.Finder
	ws      *WSHandler
	router  *gin.Engine
	added   []string
	removed []string
	cleared []int
}

// setup builds two layers, app above pkg:
//
//	app/index.md
//	pkg/index.md
//	pkg/about.md
//	pkg/data.json
//	pkg/docs/guide.md
//	pkg/node_modules/dep.md
func setup(t *testing.T) *fixture {
	t.Helper()
	base, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"app/index.md":            "# App Home\n",
		"pkg/index.md":            "# Package Home\n",
		"pkg/about.md":            "# About\n",
		"pkg/data.json":           `{"a": 1}`,
		"pkg/docs/guide.md":       "# Guide\n",
		"pkg/node_modules/dep.md": "# Dep\n",
	}
	for name, content := range files {
		path := filepath.Join(base, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(base, "extra"), 0755); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.Layers = []config.Layer{
		{Path: filepath.Join(base, "app"), Alias: "app"},
		{Path: filepath.Join(base, "pkg"), Alias: "pkg"},
	}
	cfg.SetConfigFilePath(filepath.Join(base, "config.yaml"))

	f, err := finder.New(finder.WithDefaultExtension(cfg.DefaultExtension), finder.WithPaths(cfg.LayerPaths()...))
	if err != nil {
		t.Fatal(err)
	}

	fx := &fixture{base: base, cfg: cfg, finder: f, ws: NewWSHandler()}
	layers := NewLayerHandler(cfg, f, LayerHooks{
		LayerAdded:   func(p string) { fx.added = append(fx.added, p) },
		LayerRemoved: func(p string) { fx.removed = append(fx.removed, p) },
		CacheCleared: func(n int) { fx.cleared = append(fx.cleared, n) },
	})
	fx.router = NewRouter(Server{
		Files:   NewFileHandler(f, nil),
		Layers:  layers,
		WS:      fx.ws,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("metrics")) }),
	})
	return fx
}

func (fx *fixture) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid JSON %q: %v", w.Body.String(), err)
	}
}

func TestFind(t *testing.T) {
	fx := setup(t)

	tests := []struct {
		name   string
		query  string
		status int
		layers []string
	}{
		{"first match", "name=index", http.StatusOK, []string{"app"}},
		{"reversed", "name=index&reversed=true", http.StatusOK, []string{"pkg"}},
		{"all", "name=index&all=1", http.StatusOK, []string{"app", "pkg"}},
		{"all reversed", "name=index&all=true&reversed=true", http.StatusOK, []string{"pkg", "app"}},
		{"directory", "name=docs&type=dir", http.StatusOK, []string{"pkg"}},
		{"typed miss", "name=docs&type=file", http.StatusNotFound, nil},
		{"miss", "name=missing", http.StatusNotFound, nil},
		{"all miss", "name=missing&all=true", http.StatusOK, nil},
		{"no name", "", http.StatusBadRequest, nil},
		{"bad type", "name=index&type=link", http.StatusBadRequest, nil},
		{"bad flag", "name=index&all=maybe", http.StatusBadRequest, nil},
		{"traversal", "name=../secret", http.StatusForbidden, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := fx.do(t, http.MethodGet, "/api/find?"+tt.query, nil)
			if w.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			if w.Code >= http.StatusBadRequest && w.Code != http.StatusNotFound {
				return
			}

			var resp FindResponse
			decode(t, w, &resp)
			if resp.Found != (len(tt.layers) > 0) {
				t.Errorf("expected found=%v, got %v", len(tt.layers) > 0, resp.Found)
			}
			if len(resp.Matches) != len(tt.layers) {
				t.Fatalf("expected %d matches, got %v", len(tt.layers), resp.Matches)
			}
			for i, layer := range tt.layers {
				prefix := filepath.Join(fx.base, layer) + "/"
				if !strings.HasPrefix(resp.Matches[i].Path, prefix) {
					t.Errorf("match %d: expected a path in %s, got %s", i, layer, resp.Matches[i].Path)
				}
			}
		})
	}
}

func TestGetFile(t *testing.T) {
	fx := setup(t)

	w := fx.do(t, http.MethodGet, "/api/files/about", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var page struct {
		Title string `json:"title"`
		Path  string `json:"path"`
		HTML  string `json:"html"`
	}
	decode(t, w, &page)
	if page.Title != "About" {
		t.Errorf("expected title About, got %q", page.Title)
	}
	if page.Path != filepath.Join(fx.base, "pkg", "about.md") {
		t.Errorf("unexpected path %s", page.Path)
	}

	if w := fx.do(t, http.MethodGet, "/api/files/docs/guide", nil); w.Code != http.StatusOK {
		t.Errorf("expected nested view to render, got %d", w.Code)
	}
	if w := fx.do(t, http.MethodGet, "/api/files/missing", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if w := fx.do(t, http.MethodGet, "/api/files/docs/..%2F..%2Fsecret", nil); w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for traversal, got %d", w.Code)
	}
}

func TestGetRaw(t *testing.T) {
	fx := setup(t)

	w := fx.do(t, http.MethodGet, "/api/raw/index", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "# App Home\n" {
		t.Errorf("expected the app layer's index, got %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("expected markdown content type, got %s", ct)
	}

	w = fx.do(t, http.MethodGet, "/api/raw/data.json", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("expected JSON content type, got %s", ct)
	}

	if w := fx.do(t, http.MethodGet, "/api/raw/nope.txt", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestLayers_AddAndRemove(t *testing.T) {
	fx := setup(t)
	extra := filepath.Join(fx.base, "extra")

	w := fx.do(t, http.MethodPost, "/api/layers", AddLayerRequest{Path: extra, Alias: "x"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	paths := fx.finder.Paths()
	if len(paths) != 3 || paths[2] != extra+"/" {
		t.Errorf("expected extra appended to the search paths, got %v", paths)
	}
	if l, ok := fx.cfg.LayerByAlias("x"); !ok || l.Path != extra {
		t.Errorf("expected layer x in config, got %+v", l)
	}
	if _, err := os.Stat(fx.cfg.ConfigFilePath()); err != nil {
		t.Errorf("expected config to be saved: %v", err)
	}
	if len(fx.added) != 1 || fx.added[0] != extra {
		t.Errorf("expected LayerAdded hook, got %v", fx.added)
	}

	w = fx.do(t, http.MethodDelete, "/api/layers", RemoveLayerRequest{Layer: "x"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(fx.finder.Paths()) != 2 {
		t.Errorf("expected extra removed, got %v", fx.finder.Paths())
	}
	if len(fx.removed) != 1 || fx.removed[0] != extra {
		t.Errorf("expected LayerRemoved hook, got %v", fx.removed)
	}

	if w := fx.do(t, http.MethodDelete, "/api/layers", RemoveLayerRequest{Layer: "nope"}); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown layer, got %d", w.Code)
	}
}

func TestLayers_AddErrors(t *testing.T) {
	fx := setup(t)

	if w := fx.do(t, http.MethodPost, "/api/layers", map[string]string{}); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without path, got %d", w.Code)
	}
	missing := filepath.Join(fx.base, "missing")
	if w := fx.do(t, http.MethodPost, "/api/layers", AddLayerRequest{Path: missing}); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing path, got %d", w.Code)
	}

	if err := fx.finder.SetRoot(fx.base); err != nil {
		t.Fatal(err)
	}
	if w := fx.do(t, http.MethodPost, "/api/layers", AddLayerRequest{Path: t.TempDir()}); w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for a path outside the root, got %d", w.Code)
	}
	if len(fx.cfg.Layers) != 2 {
		t.Errorf("config must not change on failure, got %v", fx.cfg.Layers)
	}
}

func TestGetLayers(t *testing.T) {
	fx := setup(t)

	w := fx.do(t, http.MethodGet, "/api/layers", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Layers           []config.Layer `json:"layers"`
		Paths            []string       `json:"paths"`
		DefaultExtension string         `json:"defaultExtension"`
	}
	decode(t, w, &resp)
	if len(resp.Layers) != 2 || resp.Layers[0].Alias != "app" {
		t.Errorf("unexpected layers %v", resp.Layers)
	}
	if len(resp.Paths) != 2 || resp.DefaultExtension != "md" {
		t.Errorf("unexpected finder state %v %q", resp.Paths, resp.DefaultExtension)
	}
}

func TestGetTree(t *testing.T) {
	fx := setup(t)

	w := fx.do(t, http.MethodGet, "/api/tree?layer=pkg", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var trees []LayerTree
	decode(t, w, &trees)
	if len(trees) != 1 || trees[0].Alias != "pkg" {
		t.Fatalf("expected the pkg tree, got %+v", trees)
	}

	names := make(map[string]TreeNode)
	for _, n := range trees[0].Children {
		names[n.Name] = n
	}
	if _, ok := names["node_modules"]; ok {
		t.Error("expected node_modules to be excluded")
	}
	docs, ok := names["docs"]
	if !ok || docs.Type != "dir" {
		t.Fatalf("expected docs directory, got %+v", trees[0].Children)
	}
	if len(docs.Children) != 1 || docs.Children[0].Path != "pkg/docs/guide.md" {
		t.Errorf("expected docs/guide.md, got %+v", docs.Children)
	}

	w = fx.do(t, http.MethodGet, "/api/tree?layer=pkg&depth=0&type=file", nil)
	decode(t, w, &trees)
	for _, n := range trees[0].Children {
		if n.Type != "file" || len(n.Children) != 0 {
			t.Errorf("expected only top-level files, got %+v", n)
		}
	}

	w = fx.do(t, http.MethodGet, "/api/tree", nil)
	decode(t, w, &trees)
	if len(trees) != 2 {
		t.Errorf("expected every layer, got %d", len(trees))
	}

	if w := fx.do(t, http.MethodGet, "/api/tree?layer=nope", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if w := fx.do(t, http.MethodGet, "/api/tree?depth=x", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad depth, got %d", w.Code)
	}
}

func TestUpdateExclude(t *testing.T) {
	fx := setup(t)

	w := fx.do(t, http.MethodPut, "/api/exclude", UpdateExcludeRequest{Exclude: []string{"docs"}})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var trees []LayerTree
	decode(t, fx.do(t, http.MethodGet, "/api/tree?layer=pkg", nil), &trees)
	listed := make(map[string]bool)
	for _, n := range trees[0].Children {
		listed[n.Name] = true
	}
	if listed["docs"] {
		t.Error("expected docs to be excluded")
	}
	if !listed["node_modules"] {
		t.Error("expected node_modules to be listed once no longer excluded")
	}
}

func TestClearCache(t *testing.T) {
	fx := setup(t)
	fx.finder.FindAll("index")
	fx.finder.Find("about")

	w := fx.do(t, http.MethodDelete, "/api/cache", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Invalidated int `json:"invalidated"`
	}
	decode(t, w, &resp)
	if resp.Invalidated != 2 || fx.finder.CacheLen() != 0 {
		t.Errorf("expected 2 lookups dropped, got %d (left %d)", resp.Invalidated, fx.finder.CacheLen())
	}
	if len(fx.cleared) != 1 || fx.cleared[0] != 2 {
		t.Errorf("expected CacheCleared hook, got %v", fx.cleared)
	}
}

func TestMiddleware(t *testing.T) {
	fx := setup(t)

	w := fx.do(t, http.MethodGet, "/api/layers", nil)
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("expected a generated request ID")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/layers", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w = httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != "abc" {
		t.Errorf("expected the client request ID to be kept, got %q", got)
	}

	w = fx.do(t, http.MethodOptions, "/api/layers", nil)
	if w.Code != http.StatusNoContent || w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("expected CORS preflight response, got %d", w.Code)
	}

	w = fx.do(t, http.MethodGet, "/metrics", nil)
	if w.Body.String() != "metrics" {
		t.Errorf("expected metrics handler, got %q", w.Body.String())
	}
}

func TestWebSocketBroadcast(t *testing.T) {
	fx := setup(t)
	srv := httptest.NewServer(fx.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for fx.ws.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	fx.ws.OnFileChange(watcher.Event{Type: watcher.EventWrite, Path: "/x/a.md"})
	fx.ws.OnCacheCleared(3)

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	var change FileChangePayload
	if err := json.Unmarshal(msg.Payload, &change); err != nil {
		t.Fatal(err)
	}
	if msg.Type != MessageFileChange || change.Event != "update" || change.Path != "/x/a.md" {
		t.Errorf("unexpected message %s %+v", msg.Type, change)
	}

	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != MessageCacheCleared || string(msg.Payload) != `{"invalidated":3}` {
		t.Errorf("unexpected message %s %s", msg.Type, msg.Payload)
	}
}
