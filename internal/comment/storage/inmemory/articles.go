package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/MyNameIsWhaaat/commentthread/internal/comment/model"
	"github.com/MyNameIsWhaaat/commentthread/internal/comment/storage"
)

type Articles struct {
	mu       sync.RWMutex
	articles map[string]model.Article
}

func NewArticles() *Articles {
	return &Articles{articles: make(map[string]model.Article)}
}

// PutArticle upserts an article. An existing article keeps its counter.
func (a *Articles) PutArticle(ctx context.Context, art model.Article) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if cur, ok := a.articles[art.ID]; ok {
		art.CommentsCount = cur.CommentsCount
	}
	a.articles[art.ID] = art
	return nil
}

func (a *Articles) Exists(ctx context.Context, articleID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.articles[articleID]
	return ok, nil
}

func (a *Articles) AdjustCommentCount(ctx context.Context, articleID string, delta int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	art, ok := a.articles[articleID]
	if !ok {
		return storage.ErrNotFound
	}
	art.CommentsCount += delta
	a.articles[articleID] = art
	return nil
}

func (a *Articles) SetCommentCount(ctx context.Context, articleID string, n int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	art, ok := a.articles[articleID]
	if !ok {
		return storage.ErrNotFound
	}
	art.CommentsCount = n
	a.articles[articleID] = art
	return nil
}

func (a *Articles) CommentCount(ctx context.Context, articleID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	art, ok := a.articles[articleID]
	if !ok {
		return 0, storage.ErrNotFound
	}
	return art.CommentsCount, nil
}

func (a *Articles) ListIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	ids := make([]string, 0, len(a.articles))
	for id := range a.articles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

type Authors struct {
	mu      sync.RWMutex
	authors map[string]model.Author
}

func NewAuthors() *Authors {
	return &Authors{authors: make(map[string]model.Author)}
}

func (a *Authors) PutAuthor(ctx context.Context, au model.Author) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.authors[au.ID] = au
	return nil
}

func (a *Authors) Lookup(ctx context.Context, ids []string) (map[string]model.Author, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]model.Author, len(ids))
	for _, id := range ids {
		if au, ok := a.authors[id]; ok {
			out[id] = au
		}
	}
	return out, nil
}

type seeder struct {
	*Articles
	*Authors
}

// NewBackend wires a fresh in-memory store.
func NewBackend() storage.Backend {
	articles := NewArticles()
	authors := NewAuthors()
	return storage.Backend{
		Comments: New(),
		Articles: articles,
		Authors:  authors,
		Seeder:   seeder{Articles: articles, Authors: authors},
		Close:    func(context.Context) error { return nil },
	}
}
