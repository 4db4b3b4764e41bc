package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a blob is absent at read time. This is an
// expected failure: the backing file may have been cleaned up externally
// between upload and processing.
var ErrNotFound = errors.New("blob not found")

// ContentStore is write-once blob storage keyed by a generated path.
type ContentStore interface {
	Write(ctx context.Context, path string, data []byte) error
	Read(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
}

// GeneratePath builds a collision-free storage key preserving the original
// file extension.
func GeneratePath(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("uploads/%s%s", uuid.New().String(), ext)
}
