package cliapp

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestHashPathStableForUnchangedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	if err := os.WriteFile(path, []byte("some bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	h1 := hashPath(path)
	h2 := hashPath(path)
	if h1 != h2 || h1 == 0 {
		t.Fatalf("got %d, %d", h1, h2)
	}
}

func TestHashPathChangesWithContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}
	h1 := hashPath(path)

	// mtime resolution can be coarse; force it forward explicitly rather
	// than relying on wall-clock drift between the two writes.
	future := time.Now().Add(time.Hour)
	if err := os.WriteFile(path, []byte("v2 longer payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}
	h2 := hashPath(path)
	if h1 == h2 {
		t.Fatal("expected hash to change with size/mtime")
	}
}

func TestHashPathMissingFileIsZero(t *testing.T) {
	if h := hashPath("/nonexistent/path/for/swww/test"); h != 0 {
		t.Fatalf("got %d, want 0", h)
	}
}

func TestStageStdinImageRoundTrips(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	orig := os.Stdin
	os.Stdin = r
	defer func() { os.Stdin = orig }()

	payload := []byte("staged payload bytes")
	go func() {
		w.Write(payload)
		w.Close()
	}()

	fd, hash, cleanup, err := stageStdinImage()
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()
	if hash == 0 {
		t.Fatal("expected a non-zero content hash")
	}

	f := os.NewFile(uintptr(fd), "staged")
	got := make([]byte, len(payload))
	if _, err := f.ReadAt(got, 0); err != nil {
		t.Fatal(err)
	}
	if string(got) != string(payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}
