package metrics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/CageChen/layerhub/internal/finder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestNewFinderMetrics_NilRegistry(t *testing.T) {
	assert.Nil(t, NewFinderMetrics(nil))
}

func TestFinderMetrics(t *testing.T) {
	reg := NewRegistry()
	m := NewFinderMetrics(reg)
	require.NotNil(t, m)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.php"), nil, 0o644))

	f, err := finder.New(finder.WithPaths(dir), finder.WithMetrics(m))
	require.NoError(t, err)

	f.Find("a")
	f.Find("a")
	f.Find("missing")
	require.NoError(t, f.RemovePath(dir))

	body := scrape(t, Handler(reg))
	assert.Contains(t, body, `layerhub_finder_lookups_total{cache="miss",mode="one",result="found"} 1`)
	assert.Contains(t, body, `layerhub_finder_lookups_total{cache="hit",mode="one",result="found"} 1`)
	assert.Contains(t, body, `layerhub_finder_lookups_total{cache="miss",mode="one",result="not_found"} 1`)
	assert.Contains(t, body, `layerhub_finder_cache_invalidations_total{reason="remove"} 1`)
	assert.Contains(t, body, "layerhub_finder_search_paths 0")
	assert.Contains(t, body, "go_goroutines")
}
