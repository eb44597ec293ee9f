// Package storage keeps uploaded files and rendered exports behind an opaque reference.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("stored object not found")

// Object is a stored blob with the name it was saved under.
type Object struct {
	Ref  string
	Name string
	Data []byte
}

type BlobStorage interface {
	// Save stores data and returns a reference usable with Open and Delete.
	Save(ctx context.Context, name string, data []byte) (string, error)
	Open(ctx context.Context, ref string) (*Object, error)
	Delete(ctx context.Context, ref string) error
	Name() string
}

// NewStorage selects the backend once at startup.
func NewStorage(provider, path string, client *redis.Client) (BlobStorage, error) {
	switch provider {
	case "local", "":
		return NewLocalStorage(path)
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("redis storage requires a redis client")
		}
		return NewRedisStorage(client, "medrag:blob:", 0), nil
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", provider)
	}
}

// newRef builds "<uuid><ext>" so the extension survives for content sniffing.
func newRef(name string) string {
	return uuid.NewString() + strings.ToLower(filepath.Ext(name))
}

// validRef rejects anything that could escape the storage namespace.
func validRef(ref string) bool {
	if ref == "" || ref != filepath.Base(ref) || strings.Contains(ref, "..") {
		return false
	}
	_, err := uuid.Parse(strings.TrimSuffix(ref, filepath.Ext(ref)))
	return err == nil
}
