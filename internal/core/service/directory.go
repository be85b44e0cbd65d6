package service

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/civicfix/municipal-reports/internal/core/ports"
)

// UnknownUserName is rendered when a referenced user no longer resolves.
// Rows are kept rather than dropped so top-N counts stay consistent with
// the breakdown totals.
const UnknownUserName = "unknown user"

// Directory answers user display-name lookups behind a bounded, TTL-evicting
// in-process cache. It is constructed and closed explicitly by the process
// wiring; there is no package-level instance.
type Directory struct {
	users ports.UserRepository
	cache *ristretto.Cache[string, string]
	ttl   time.Duration
}

// NewDirectory builds a Directory whose cache holds at most maxCostBytes of
// display names, each entry expiring after ttl.
func NewDirectory(users ports.UserRepository, maxCostBytes int64, ttl time.Duration) (*Directory, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: maxCostBytes / 100 * 10, // ~10x expected items
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Directory{users: users, cache: cache, ttl: ttl}, nil
}

// DisplayNames resolves ids to display names, serving from cache where
// possible and fetching the remainder in one query. Missing users map to
// UnknownUserName.
func (d *Directory) DisplayNames(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	var misses []string
	for _, id := range ids {
		if name, ok := d.cache.Get(id); ok {
			names[id] = name
		} else {
			misses = append(misses, id)
		}
	}

	if len(misses) > 0 {
		found, err := d.users.FindByIDs(ctx, misses)
		if err != nil {
			return nil, err
		}
		for _, id := range misses {
			name := UnknownUserName
			if u, ok := found[id]; ok {
				name = u.Name
			}
			names[id] = name
			d.cache.SetWithTTL(id, name, int64(len(id)+len(name)), d.ttl)
		}
	}

	return names, nil
}

// Close releases the cache resources.
func (d *Directory) Close() {
	d.cache.Close()
}
