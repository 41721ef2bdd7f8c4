package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/MyNameIsWhaaat/commentthread/internal/comment/model"
	"github.com/MyNameIsWhaaat/commentthread/internal/comment/storage"
)

type Repo struct {
	mu sync.RWMutex

	byID      map[string]model.Comment
	byArticle map[string][]string
}

func New() *Repo {
	return &Repo{
		byID:      make(map[string]model.Comment),
		byArticle: make(map[string][]string),
	}
}

func (r *Repo) Create(ctx context.Context, c model.Comment) (model.Comment, error) {
	if err := ctx.Err(); err != nil {
		return model.Comment{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c = clone(c)
	r.byID[c.ID] = c
	r.byArticle[c.ArticleID] = append(r.byArticle[c.ArticleID], c.ID)

	return clone(c), nil
}

// Insert stores c exactly as given. Tests use it to plant records the engine
// itself would never write.
func (r *Repo) Insert(c model.Comment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[c.ID]; !ok {
		r.byArticle[c.ArticleID] = append(r.byArticle[c.ArticleID], c.ID)
	}
	r.byID[c.ID] = clone(c)
}

func (r *Repo) Get(ctx context.Context, id string) (model.Comment, error) {
	if err := ctx.Err(); err != nil {
		return model.Comment{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	if !ok {
		return model.Comment{}, storage.ErrNotFound
	}
	return clone(c), nil
}

func (r *Repo) FindByArticle(ctx context.Context, articleID string) ([]model.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byArticle[articleID]
	out := make([]model.Comment, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.byID[id]; ok {
			out = append(out, clone(c))
		}
	}
	return out, nil
}

func (r *Repo) HasChildren(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	if !ok {
		return false, nil
	}
	for _, sib := range r.byArticle[c.ArticleID] {
		if r.byID[sib].ParentID == id {
			return true, nil
		}
	}
	return false, nil
}

func (r *Repo) AppendChild(ctx context.Context, parentID, childID string) error {
	return r.update(ctx, parentID, func(c *model.Comment) {
		c.ChildIDs = append(c.ChildIDs, childID)
	})
}

func (r *Repo) RemoveChild(ctx context.Context, parentID, childID string) error {
	return r.update(ctx, parentID, func(c *model.Comment) {
		c.ChildIDs = removeID(c.ChildIDs, childID)
	})
}

func (r *Repo) SetChildren(ctx context.Context, id string, childIDs []string) error {
	return r.update(ctx, id, func(c *model.Comment) {
		c.ChildIDs = append([]string{}, childIDs...)
	})
}

func (r *Repo) UpdateContent(ctx context.Context, id, content string, at time.Time) (model.Comment, error) {
	var out model.Comment
	err := r.update(ctx, id, func(c *model.Comment) {
		c.Content = content
		c.UpdatedAt = at
		out = clone(*c)
	})
	return out, err
}

func (r *Repo) MarkDeleted(ctx context.Context, id string, at time.Time) (model.Comment, error) {
	var out model.Comment
	err := r.update(ctx, id, func(c *model.Comment) {
		c.Content = model.Tombstone
		c.Deleted = true
		c.UpdatedAt = at
		out = clone(*c)
	})
	return out, err
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return storage.ErrNotFound
	}
	delete(r.byID, id)
	r.byArticle[c.ArticleID] = removeID(r.byArticle[c.ArticleID], id)
	return nil
}

func (r *Repo) ToggleLike(ctx context.Context, id, userID string) (bool, int, error) {
	var (
		liked bool
		count int
	)
	err := r.update(ctx, id, func(c *model.Comment) {
		before := len(c.Likes)
		c.Likes = removeID(c.Likes, userID)
		if len(c.Likes) == before {
			c.Likes = append(c.Likes, userID)
			liked = true
		}
		count = len(c.Likes)
	})
	return liked, count, err
}

func (r *Repo) update(ctx context.Context, id string, fn func(c *model.Comment)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return storage.ErrNotFound
	}
	fn(&c)
	r.byID[id] = c
	return nil
}

func clone(c model.Comment) model.Comment {
	c.ChildIDs = append([]string{}, c.ChildIDs...)
	c.Likes = append([]string{}, c.Likes...)
	return c
}

func removeID(ids []string, target string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}
