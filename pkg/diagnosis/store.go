package diagnosis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Entry is a session's terminal record.
type Entry struct {
	Status     StatusKind `json:"status"`
	Result     *Result    `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
	Phase      Phase      `json:"phase,omitempty"`
	FinishedAt time.Time  `json:"finishedAt"`
}

// ResultStore keeps one terminal entry per session.
//
// Put is first-write-wins: it returns false without error when the session already has an entry
// or was deleted. Get returns nil for unknown and deleted sessions. Delete leaves a tombstone so
// that a job finishing later cannot make the session visible again.
type ResultStore interface {
	Put(ctx context.Context, sessionID string, entry Entry) (bool, error)
	Get(ctx context.Context, sessionID string) (*Entry, error)
	Delete(ctx context.Context, sessionID string) error
	Name() string
}

// NewResultStore selects the store backend once at startup.
func NewResultStore(provider string, ttl time.Duration, client *redis.Client) (ResultStore, error) {
	switch provider {
	case "memory", "":
		return NewMemoryResultStore(ttl), nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("redis result store requires a redis client")
		}
		return NewRedisResultStore(client, ttl), nil
	default:
		return nil, fmt.Errorf("unsupported result store provider: %s", provider)
	}
}
