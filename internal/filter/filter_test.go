package filter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/CageChen/layerhub/internal/entry"
	"github.com/CageChen/layerhub/internal/fs/fstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture creates:
//
//	a.php  b.txt  .hidden.php  sub/  .git/
func fixture(t *testing.T) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"a.php", "b.txt", ".hidden.php"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	for _, name := range []string{"sub", ".git"} {
		require.NoError(t, os.Mkdir(filepath.Join(dir, name), 0o755))
	}
	var paths []string
	for _, name := range []string{"a.php", "b.txt", ".hidden.php", "sub", ".git"} {
		paths = append(paths, filepath.Join(dir, name))
	}
	return dir, paths
}

func bases(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}

func TestApply(t *testing.T) {
	_, paths := fixture(t)

	tests := []struct {
		name      string
		configure func(f *Filter)
		want      []string
	}{
		{"empty filter keeps everything", func(*Filter) {}, []string{"a.php", "b.txt", ".hidden.php", "sub", ".git"}},
		{"has extension only touches files", func(f *Filter) { f.HasExtension("php") }, []string{"a.php", ".hidden.php", "sub", ".git"}},
		{"block extension", func(f *Filter) { f.BlockExtension(".php") }, []string{"b.txt", "sub", ".git"}},
		{"block hidden any", func(f *Filter) { f.BlockHidden(entry.TypeAny) }, []string{"a.php", "b.txt", "sub"}},
		{"block hidden dirs", func(f *Filter) { f.BlockHidden(entry.TypeDir) }, []string{"a.php", "b.txt", ".hidden.php", "sub"}},
		{"only hidden files", func(f *Filter) { f.OnlyHidden(entry.TypeFile) }, []string{".hidden.php", "sub", ".git"}},
		{"rules combine with AND", func(f *Filter) {
			f.HasExtension("php")
			f.BlockHidden(entry.TypeAny)
		}, []string{"a.php", "sub"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(nil)
			tt.configure(f)
			got, err := f.Apply(paths)
			require.NoError(t, err)
			assert.Equal(t, tt.want, bases(got))
		})
	}
}

func TestApply_RuleOrderDoesNotMatter(t *testing.T) {
	_, paths := fixture(t)

	a := New(nil)
	a.HasExtension("php")
	a.BlockHidden(entry.TypeAny)

	b := New(nil)
	b.BlockHidden(entry.TypeAny)
	b.HasExtension("php")

	got1, err := a.Apply(paths)
	require.NoError(t, err)
	got2, err := b.Apply(paths)
	require.NoError(t, err)
	assert.Equal(t, got1, got2)
}

func TestApply_MemoizesTypesPerCall(t *testing.T) {
	_, paths := fixture(t)
	counting := fstest.NewCountingFS(nil)

	f := New(counting)
	f.MustAddRule(`a`, true, entry.TypeFile)
	f.MustAddRule(`b`, false, entry.TypeFile)
	f.MustAddRule(`c`, false, entry.TypeDir)

	_, err := f.Apply(paths)
	require.NoError(t, err)
	for _, p := range paths {
		assert.Equal(t, 1, counting.StatsFor(p), p)
	}

	// A new call starts with a fresh memo.
	_, err = f.Apply(paths)
	require.NoError(t, err)
	for _, p := range paths {
		assert.Equal(t, 2, counting.StatsFor(p), p)
	}
}

func TestApply_MissingPathMatchesNoTypedRule(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "gone.php")

	f := New(nil)
	f.BlockExtension("php")
	got, err := f.Apply([]string{missing})
	require.NoError(t, err)
	assert.Equal(t, []string{missing}, got)
}

func TestAddRule_InvalidPattern(t *testing.T) {
	f := New(nil)
	err := f.AddRule(`(unclosed`, true, entry.TypeAny)
	require.Error(t, err)
	assert.Empty(t, f.Rules())
}

func TestResolve(t *testing.T) {
	_, paths := fixture(t)

	built := New(nil)
	built.BlockHidden(entry.TypeAny)

	tests := []struct {
		name string
		spec Spec
		want []string
	}{
		{"nil spec", nil, []string{"a.php", "b.txt", ".hidden.php", "sub", ".git"}},
		{"nil built filter", (*Filter)(nil), []string{"a.php", "b.txt", ".hidden.php", "sub", ".git"}},
		{"built filter", built, []string{"a.php", "b.txt", "sub"}},
		{"patterns with negation", Patterns{
			{Expr: `\.php$`, Type: entry.TypeFile},
			{Expr: `!(^|/)\.[^/]*$`},
		}, []string{"a.php", "sub"}},
		{"configure", Configure(func(f *Filter) error {
			f.OnlyHidden(entry.TypeDir)
			return nil
		}), []string{"a.php", "b.txt", ".hidden.php", ".git"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Resolve(tt.spec, nil)
			require.NoError(t, err)
			got, err := f.Apply(paths)
			require.NoError(t, err)
			assert.Equal(t, tt.want, bases(got))
		})
	}
}

func TestResolve_Errors(t *testing.T) {
	_, err := Resolve(Patterns{{Expr: `[`}}, nil)
	assert.Error(t, err)

	_, err = Resolve(Configure(func(f *Filter) error {
		return f.AddRule(`(`, true, entry.TypeAny)
	}), nil)
	assert.Error(t, err)
}

func TestParsePattern(t *testing.T) {
	tests := []struct {
		in   string
		want Pattern
	}{
		{`\.md$`, Pattern{Expr: `\.md$`}},
		{`\.md$@file`, Pattern{Expr: `\.md$`, Type: entry.TypeFile}},
		{`!^\.@dir`, Pattern{Expr: `!^\.`, Type: entry.TypeDir}},
		{`user@example`, Pattern{Expr: `user@example`}},
		{`trailing@`, Pattern{Expr: `trailing@`}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePattern(tt.in))
		})
	}
}

func TestCombine(t *testing.T) {
	_, paths := fixture(t)

	hidden := Configure(func(f *Filter) error {
		f.BlockHidden(entry.TypeDir)
		return nil
	})
	built := New(nil)
	built.HasExtension("php")

	f, err := Resolve(Combine(nil, hidden, Patterns{{Expr: `!/sub$`}}, built), nil)
	require.NoError(t, err)
	assert.Len(t, f.Rules(), 3)

	kept, err := f.Apply(paths)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.php", ".hidden.php"}, bases(kept))
	assert.Len(t, built.Rules(), 1, "combining must not modify its inputs")

	_, err = Resolve(Combine(Patterns{{Expr: "("}}), nil)
	assert.Error(t, err)
}
