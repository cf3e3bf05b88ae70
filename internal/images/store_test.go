package images

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveAndDelete(t *testing.T) {
	s, err := NewDiskStore(filepath.Join(t.TempDir(), "receipts"))
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	ctx := context.Background()
	png := []byte("\x89PNG\r\n\x1a\nrest")

	id, path, err := s.Save(ctx, "ws1", png)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if id == "" || !strings.HasSuffix(path, id+".png") {
		t.Fatalf("Save = %q, %q", id, path)
	}
	got, err := os.ReadFile(path)
	if err != nil || string(got) != string(png) {
		t.Fatalf("stored bytes = %q, %v", got, err)
	}

	if err := s.Delete(ctx, path); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("image still present: %v", err)
	}
}

func TestRejectsEscapes(t *testing.T) {
	root := t.TempDir()
	s, _ := NewDiskStore(filepath.Join(root, "receipts"))
	ctx := context.Background()

	if _, _, err := s.Save(ctx, "../x", []byte("a")); err == nil {
		t.Fatal("Save accepted a path workspace id")
	}
	outside := filepath.Join(root, "keep.txt")
	os.WriteFile(outside, []byte("x"), 0o644)
	if err := s.Delete(ctx, outside); err == nil {
		t.Fatal("Delete removed a file outside the store")
	}
}
