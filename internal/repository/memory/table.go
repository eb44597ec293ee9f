// Package memory holds go-cache backed repositories used when no database is configured.
package memory

import (
	"sort"
	"strings"
	"time"

	"medrag-be/internal/repository/specification"

	"github.com/patrickmn/go-cache"
)

// table is an unexpiring keyed collection of records of one kind.
type table[T any] struct {
	items *cache.Cache
}

func newTable[T any]() table[T] {
	return table[T]{items: cache.New(cache.NoExpiration, 0)}
}

func (t table[T]) put(key string, v T) {
	t.items.Set(key, v, cache.NoExpiration)
}

func (t table[T]) get(key string) (T, bool) {
	var zero T
	v, ok := t.items.Get(key)
	if !ok {
		return zero, false
	}
	return v.(T), true
}

func (t table[T]) all() []T {
	items := t.items.Items()
	out := make([]T, 0, len(items))
	for _, it := range items {
		out = append(out, it.Object.(T))
	}
	return out
}

// query filters records with match, then applies OrderBy and Pagination the way the gorm
// repositories would. Records are ordered by createdAt unless told otherwise.
func query[T any](records []T, specs []specification.Specification, match func(T, specification.Specification) bool, createdAt func(T) time.Time) []T {
	var (
		order = specification.OrderBy{Field: "created_at"}
		page  *specification.Pagination
	)

	filtered := records[:0]
	for _, r := range records {
		keep := true
		for _, s := range specs {
			switch s := s.(type) {
			case specification.OrderBy:
				order = s
			case specification.Pagination:
				p := s
				page = &p
			default:
				if !match(r, s) {
					keep = false
				}
			}
		}
		if keep {
			filtered = append(filtered, r)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := createdAt(filtered[i]), createdAt(filtered[j])
		if order.Desc {
			return a.After(b)
		}
		return a.Before(b)
	})

	if page != nil {
		if page.Offset >= len(filtered) {
			return []T{}
		}
		filtered = filtered[page.Offset:]
		if page.Limit > 0 && page.Limit < len(filtered) {
			filtered = filtered[:page.Limit]
		}
	}
	return filtered
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(substr)))
}
