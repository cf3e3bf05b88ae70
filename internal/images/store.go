// Package images keeps uploaded receipt images on the local filesystem.
package images

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// DiskStore writes images under root/<workspace>/<receipt id><ext>.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create image directory: %w", err)
	}
	return &DiskStore{root: root}, nil
}

// Save stores image under a fresh receipt id and returns the id and the
// file path.
func (s *DiskStore) Save(ctx context.Context, workspace string, image []byte) (string, string, error) {
	if workspace == "" || strings.ContainsAny(workspace, `/\`) || workspace == "." || workspace == ".." {
		return "", "", fmt.Errorf("invalid workspace id %q", workspace)
	}
	dir := filepath.Join(s.root, workspace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create workspace image directory: %w", err)
	}

	id := uuid.NewString()
	ext, ok := extensions[http.DetectContentType(image)]
	if !ok {
		ext = ".bin"
	}
	path := filepath.Join(dir, id+ext)
	if err := os.WriteFile(path, image, 0o644); err != nil {
		return "", "", fmt.Errorf("write image: %w", err)
	}
	slog.DebugContext(ctx, "Receipt image saved", "workspace_id", workspace, "receipt_id", id, "bytes", len(image))
	return id, path, nil
}

// Delete removes a stored image. Paths outside the store are refused.
func (s *DiskStore) Delete(_ context.Context, locator string) error {
	rel, err := filepath.Rel(s.root, locator)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("image %q is outside the store", locator)
	}
	if err := os.Remove(locator); err != nil {
		return fmt.Errorf("remove image: %w", err)
	}
	return nil
}
