package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/MyNameIsWhaaat/commentthread/internal/comment/cache"
	"github.com/MyNameIsWhaaat/commentthread/internal/comment/events"
	"github.com/MyNameIsWhaaat/commentthread/internal/comment/model"
	inm "github.com/MyNameIsWhaaat/commentthread/internal/comment/storage/inmemory"
	"github.com/MyNameIsWhaaat/commentthread/internal/metrics"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// mapCache is a process-local thread cache that counts its traffic.
type mapCache struct {
	mu          sync.Mutex
	entries     map[string][]model.CommentView
	versions    map[string]int64
	hits        int
	invalidated []string
}

func newMapCache() *mapCache {
	return &mapCache{
		entries:  make(map[string][]model.CommentView),
		versions: make(map[string]int64),
	}
}

func (c *mapCache) Get(_ context.Context, articleID string) (cache.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[articleID]
	if ok {
		c.hits++
	}
	return cache.Entry{Views: v, Version: c.versions[articleID], Hit: ok}, nil
}

func (c *mapCache) Set(_ context.Context, articleID string, version int64, views []model.CommentView) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[articleID] == version {
		c.entries[articleID] = views
	}
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, articleID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, articleID)
	c.versions[articleID]++
	c.invalidated = append(c.invalidated, articleID)
	return nil
}

type fixture struct {
	repo     *inm.Repo
	articles *inm.Articles
	authors  *inm.Authors
	events   *recordingPublisher
	cache    *mapCache
	metrics  *metrics.Metrics
	svc      CommentService
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		repo:     inm.New(),
		articles: inm.NewArticles(),
		authors:  inm.NewAuthors(),
		events:   &recordingPublisher{},
		cache:    newMapCache(),
		metrics:  metrics.New(),
	}
	for _, a := range []model.Article{{ID: "a1", Title: "First"}, {ID: "a2", Title: "Second"}} {
		if err := f.articles.PutArticle(ctx, a); err != nil {
			t.Fatalf("put article: %v", err)
		}
	}
	for _, a := range []model.Author{
		{ID: "u1", Username: "ann", Name: "Ann", Avatar: "ann.png"},
		{ID: "u2", Username: "bob", Name: "Bob", Avatar: "bob.png"},
	} {
		if err := f.authors.PutAuthor(ctx, a); err != nil {
			t.Fatalf("put author: %v", err)
		}
	}

	clock := &testClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	all := append([]Option{
		WithClock(clock.Now),
		WithPublisher(f.events),
		WithCache(f.cache),
		WithMetrics(f.metrics),
		WithLogger(zerolog.Nop()),
	}, opts...)
	f.svc = New(f.repo, f.articles, f.authors, all...)
	return f
}

func (f *fixture) create(t *testing.T, articleID, authorID, parentID, content string) model.CommentView {
	t.Helper()
	c, err := f.svc.Create(context.Background(), CreateInput{
		ArticleID: articleID,
		AuthorID:  authorID,
		ParentID:  parentID,
		Content:   content,
	})
	if err != nil {
		t.Fatalf("create %q: %v", content, err)
	}
	return c
}

func (f *fixture) counter(t *testing.T, articleID string) int {
	t.Helper()
	n, err := f.articles.CommentCount(context.Background(), articleID)
	if err != nil {
		t.Fatalf("comment count: %v", err)
	}
	return n
}

func ids(nodes []model.CommentNode) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}
