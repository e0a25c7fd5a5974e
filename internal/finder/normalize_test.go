package finder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

func TestNormalize(t *testing.T) {
	base := tempDir(t)
	require.NoError(t, os.MkdirAll(filepath.Join(base, "a", "b"), 0o755))

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", filepath.Join(base, "a"), base + "/a/"},
		{"trailing slash", base + "/a/", base + "/a/"},
		{"redundant separators", base + "//a///b", base + "/a/b/"},
		{"dot segments", base + "/./a/./b/..", base + "/a/"},
		{"backslashes", strings.ReplaceAll(base+"/a/b", "/", `\`), base + "/a/b/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_ResolvesSymlinks(t *testing.T) {
	base := tempDir(t)
	target := filepath.Join(base, "target")
	require.NoError(t, os.Mkdir(target, 0o755))
	link := filepath.Join(base, "link")
	require.NoError(t, os.Symlink(target, link))

	got, err := Normalize(link, "")
	require.NoError(t, err)
	assert.Equal(t, target+"/", got)
}

func TestNormalize_Missing(t *testing.T) {
	_, err := Normalize(filepath.Join(tempDir(t), "missing"), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPathNotFound)

	var pathErr *PathError
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, "normalize", pathErr.Op)
}

func TestNormalize_Root(t *testing.T) {
	base := tempDir(t)
	for _, d := range []string{"root/inner", "root-other", "elsewhere"} {
		require.NoError(t, os.MkdirAll(filepath.Join(base, d), 0o755))
	}
	root := base + "/root/"

	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"root itself", base + "/root", false},
		{"inside", base + "/root/inner", false},
		{"climbs out", base + "/root/inner/../../elsewhere", true},
		{"sibling", base + "/elsewhere", true},
		{"sibling sharing the prefix", base + "/root-other", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw, root)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrRootEscape)

			var pathErr *PathError
			require.ErrorAs(t, err, &pathErr)
			assert.True(t, pathErr.OutsideRoot())
			assert.Equal(t, root, pathErr.Root)
		})
	}
}

func TestWithin(t *testing.T) {
	assert.True(t, within("/srv/app/", "/srv/app"))
	assert.True(t, within("/srv/app/x/", "/srv/app/"))
	assert.False(t, within("/srv/app-old/", "/srv/app"))
	assert.True(t, within("/anything/", "/"))
}
