package objectStore

import (
	"context"
	"io"
	"path/filepath"
	"strings"
)

// Store keeps the original uploaded bytes. Keys are opaque to callers.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// DocumentKey returns documents/{owner}/{document}{ext}.
func DocumentKey(ownerID, documentID, fileName string) string {
	return "documents/" + ownerID + "/" + documentID + strings.ToLower(filepath.Ext(fileName))
}
