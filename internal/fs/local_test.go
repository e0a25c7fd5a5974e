package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalFS(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.md", "a.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}

	fsys := NewLocalFS(dir)

	data, err := fsys.ReadFile("a.md")
	if err != nil || string(data) != "a.md" {
		t.Fatalf("ReadFile relative: %q, %v", data, err)
	}
	if _, err := fsys.ReadFile(filepath.Join(dir, "b.md")); err != nil {
		t.Errorf("ReadFile absolute: %v", err)
	}

	info, err := fsys.Stat("sub")
	if err != nil {
		t.Fatal(err)
	}
	if !info.IsDir || info.IsRegular() {
		t.Errorf("expected sub to be a directory, got %+v", info)
	}
	info, err = fsys.Stat("a.md")
	if err != nil {
		t.Fatal(err)
	}
	if info.IsDir || !info.IsRegular() || info.Size != 4 {
		t.Errorf("unexpected file info %+v", info)
	}

	entries, err := fsys.ReadDir(".")
	if err != nil {
		t.Fatal(err)
	}
	want := []DirEntry{{"a.md", false}, {"b.md", false}, {"sub", true}}
	if len(entries) != len(want) {
		t.Fatalf("expected %v, got %v", want, entries)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d: expected %v, got %v", i, want[i], entries[i])
		}
	}

	if _, err := fsys.Stat("missing"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist, got %v", err)
	}
}

func TestOrDefault(t *testing.T) {
	if _, ok := OrDefault(nil).(*LocalFS); !ok {
		t.Error("expected a LocalFS for nil")
	}
	custom := NewLocalFS("/x")
	if OrDefault(custom) != custom {
		t.Error("expected the given filesystem back")
	}
}

func TestWrapIO(t *testing.T) {
	if WrapIO("read", "/x", nil) != nil {
		t.Error("expected nil for a nil error")
	}

	err := WrapIO("read", "/x", os.ErrPermission)
	if !IsIOError(err) {
		t.Errorf("expected an IOError, got %T", err)
	}
	if !errors.Is(err, os.ErrPermission) {
		t.Error("expected the cause to stay reachable")
	}
	if err.Error() != "read /x: permission denied" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if IsIOError(errors.New("plain")) {
		t.Error("plain errors are not IOErrors")
	}
}
