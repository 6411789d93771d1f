package registry

import (
	"context"
	"fmt"
	"log"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a cached snapshot stays live.
const DefaultTTL = 300 * time.Second

// Fetcher pulls a full snapshot from the remote source. Implemented by
// the sheets client; tests swap in fakes.
type Fetcher interface {
	FetchSnapshot(ctx context.Context, sourceID, view string) (Snapshot, error)
}

// Key identifies one cached snapshot: a spreadsheet and a worksheet.
type Key struct {
	SourceID string
	View     string
}

func (k Key) String() string {
	return k.SourceID + "|" + k.View
}

// SnapshotCache keeps the most recent snapshot per key with a TTL.
// Concurrent misses for the same key converge on a single fetch. A
// failed fetch is never stored, so callers never see partial data.
type SnapshotCache struct {
	fetcher Fetcher
	store   *gocache.Cache
	group   singleflight.Group
}

func NewSnapshotCache(fetcher Fetcher, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SnapshotCache{
		fetcher: fetcher,
		store:   gocache.New(ttl, 2*ttl),
	}
}

// Snapshot returns the live cached snapshot for key, or fetches,
// validates and stores a fresh one. Fetch failures wrap
// ErrSourceUnavailable.
func (c *SnapshotCache) Snapshot(ctx context.Context, key Key) (Snapshot, error) {
	ck := key.String()
	if v, ok := c.store.Get(ck); ok {
		return v.(Snapshot), nil
	}

	v, err, shared := c.group.Do(ck, func() (any, error) {
		// Another caller may have filled the entry while we waited.
		if v, ok := c.store.Get(ck); ok {
			return v.(Snapshot), nil
		}
		snap, err := c.fetcher.FetchSnapshot(ctx, key.SourceID, key.View)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		if err := ValidateColumns(snap); err != nil {
			return nil, err
		}
		c.store.Set(ck, snap, gocache.DefaultExpiration)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Printf("[cache] coalesced concurrent fetch for %s", ck)
	}
	return v.(Snapshot), nil
}

// Invalidate drops the entry for key so the next read fetches fresh
// data. Used after row edits and by the scheduled warm refresh.
func (c *SnapshotCache) Invalidate(key Key) {
	c.store.Delete(key.String())
}
