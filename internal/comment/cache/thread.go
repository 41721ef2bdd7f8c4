// Package cache keeps read-side copies of data the engine fetches often.
// Nothing here is authoritative; every entry can be dropped at any time.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MyNameIsWhaaat/commentthread/internal/comment/model"
)

// ThreadCache stores the flat, author-resolved comment list of an article.
//
// Every article has a version that Invalidate bumps. Readers take the version
// from Get before loading from the store and hand it back to Set, which drops
// the fill when the version moved in between, so a snapshot taken before a
// write never outlives that write's invalidation.
type ThreadCache interface {
	Get(ctx context.Context, articleID string) (Entry, error)
	Set(ctx context.Context, articleID string, version int64, views []model.CommentView) error
	Invalidate(ctx context.Context, articleID string) error
}

// Entry is the outcome of a cache read.
type Entry struct {
	Views   []model.CommentView
	Version int64
	Hit     bool
}

// Noop never hits.
type Noop struct{}

func (Noop) Get(context.Context, string) (Entry, error)                    { return Entry{}, nil }
func (Noop) Set(context.Context, string, int64, []model.CommentView) error { return nil }
func (Noop) Invalidate(context.Context, string) error                      { return nil }

type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, prefix: "commentthread:thread:"}
}

func (r *Redis) key(articleID string) string {
	return r.prefix + articleID
}

func (r *Redis) versionKey(articleID string) string {
	return r.prefix + "version:" + articleID
}

func (r *Redis) Get(ctx context.Context, articleID string) (Entry, error) {
	vals, err := r.client.MGet(ctx, r.key(articleID), r.versionKey(articleID)).Result()
	if err != nil {
		return Entry{}, err
	}

	var e Entry
	if raw, ok := vals[1].(string); ok {
		if e.Version, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return Entry{}, err
		}
	}
	raw, ok := vals[0].(string)
	if !ok {
		return e, nil
	}
	if err := json.Unmarshal([]byte(raw), &e.Views); err != nil {
		return Entry{}, err
	}
	e.Hit = true
	return e, nil
}

// Set stores views only while the article is still at version. A concurrent
// Invalidate either changes the version before the check or aborts the
// transaction; both leave the cache empty.
func (r *Redis) Set(ctx context.Context, articleID string, version int64, views []model.CommentView) error {
	b, err := json.Marshal(views)
	if err != nil {
		return err
	}

	vk := r.versionKey(articleID)
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, vk).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.key(articleID), b, r.ttl)
			return nil
		})
		return err
	}, vk)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (r *Redis) Invalidate(ctx context.Context, articleID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, r.versionKey(articleID))
		pipe.Del(ctx, r.key(articleID))
		return nil
	})
	return err
}
