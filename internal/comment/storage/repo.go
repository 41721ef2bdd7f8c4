package storage

import (
	"context"
	"errors"
	"time"

	"github.com/MyNameIsWhaaat/commentthread/internal/comment/model"
)

// ErrNotFound is returned by every backend when the addressed record does not exist.
var ErrNotFound = errors.New("record not found")

// Repository persists comments. Children are derived from ParentID by callers;
// the ChildIDs list maintained through AppendChild, RemoveChild and
// SetChildren is an index only.
type Repository interface {
	Create(ctx context.Context, c model.Comment) (model.Comment, error)
	Get(ctx context.Context, id string) (model.Comment, error)
	FindByArticle(ctx context.Context, articleID string) ([]model.Comment, error)
	HasChildren(ctx context.Context, id string) (bool, error)

	AppendChild(ctx context.Context, parentID, childID string) error
	RemoveChild(ctx context.Context, parentID, childID string) error
	SetChildren(ctx context.Context, id string, childIDs []string) error

	UpdateContent(ctx context.Context, id, content string, at time.Time) (model.Comment, error)
	MarkDeleted(ctx context.Context, id string, at time.Time) (model.Comment, error)
	Delete(ctx context.Context, id string) error

	ToggleLike(ctx context.Context, id, userID string) (liked bool, count int, err error)
}

// Articles is the article aggregate the engine reports comment counts to.
type Articles interface {
	Exists(ctx context.Context, articleID string) (bool, error)
	AdjustCommentCount(ctx context.Context, articleID string, delta int) error
	SetCommentCount(ctx context.Context, articleID string, n int) error
	CommentCount(ctx context.Context, articleID string) (int, error)
	ListIDs(ctx context.Context) ([]string, error)
}

// Authors resolves user ids to display fields. Unknown ids are absent from the result.
type Authors interface {
	Lookup(ctx context.Context, ids []string) (map[string]model.Author, error)
}

// Seeder writes the reference data the engine reads but does not own.
type Seeder interface {
	PutArticle(ctx context.Context, a model.Article) error
	PutAuthor(ctx context.Context, a model.Author) error
}

// Backend bundles what one storage engine provides.
type Backend struct {
	Comments Repository
	Articles Articles
	Authors  Authors
	Seeder   Seeder
	Close    func(ctx context.Context) error
}
