package gateway

import (
	"context"
	"sync"
)

// Names resolves display names for a set of distinct IDs by fanning out one
// Lookup per ID.  All lookups start before any is awaited and run
// concurrently; a slow or failing call delays the result only by its own
// timeout and never prevents the other lookups from completing.
//
// Every requested ID appears in the returned map.  IDs that resolved to
// NotFound or Unavailable map to the empty string, so callers on read paths
// render "name unknown" rather than fail.  An empty input returns an empty
// map without issuing any call.  Names never returns an error.
func (c *Client) Names(ctx context.Context, kind Resource, ids []uint64) map[uint64]string {
	names := make(map[uint64]string, len(ids))
	if len(ids) == 0 {
		return names
	}

	// Seed the map first so every key is present even when its lookup
	// fails, and so the goroutines below only ever touch existing keys.
	distinct := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, seen := names[id]; seen {
			continue
		}
		names[id] = ""
		distinct = append(distinct, id)
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, id := range distinct {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			res := c.Lookup(ctx, kind, id)
			if res.Status != StatusFound {
				return
			}
			mu.Lock()
			names[id] = res.Name
			mu.Unlock()
		}(id)
	}
	wg.Wait()
	return names
}
