package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/MyNameIsWhaaat/commentthread/internal/comment/model"
	"github.com/MyNameIsWhaaat/commentthread/internal/comment/storage"
)

// Authors memoizes author display fields in process.
type Authors struct {
	next  storage.Authors
	cache *ttlcache.Cache[string, model.Author]
}

func NewAuthors(next storage.Authors, ttl time.Duration) *Authors {
	c := ttlcache.New(ttlcache.WithTTL[string, model.Author](ttl))
	go c.Start()
	return &Authors{next: next, cache: c}
}

func (a *Authors) Lookup(ctx context.Context, ids []string) (map[string]model.Author, error) {
	out := make(map[string]model.Author, len(ids))
	var missing []string
	for _, id := range ids {
		if item := a.cache.Get(id); item != nil {
			out[id] = item.Value()
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	found, err := a.next.Lookup(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, au := range found {
		a.cache.Set(id, au, ttlcache.DefaultTTL)
		out[id] = au
	}
	return out, nil
}

// Stop halts the expiration loop.
func (a *Authors) Stop() {
	a.cache.Stop()
}
