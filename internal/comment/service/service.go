package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MyNameIsWhaaat/commentthread/internal/comment/cache"
	"github.com/MyNameIsWhaaat/commentthread/internal/comment/events"
	"github.com/MyNameIsWhaaat/commentthread/internal/comment/model"
	"github.com/MyNameIsWhaaat/commentthread/internal/comment/storage"
	"github.com/MyNameIsWhaaat/commentthread/internal/metrics"
)

const defaultSideEffectTimeout = 5 * time.Second

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	// ErrStorage wraps failures of the backing store. They are retryable.
	ErrStorage = errors.New("storage unavailable")
)

type CommentService interface {
	GetThread(ctx context.Context, articleID string) ([]model.CommentNode, error)
	GetThreadPage(ctx context.Context, articleID string, page, limit int, sort model.Sort) (model.ThreadPage, error)
	GetSubtree(ctx context.Context, id string) (model.CommentNode, error)
	GetPath(ctx context.Context, id string) ([]model.CommentPathItem, error)

	Create(ctx context.Context, in CreateInput) (model.CommentView, error)
	Update(ctx context.Context, id, actorID, content string) (model.CommentView, error)
	Delete(ctx context.Context, id, actorID string) (model.DeleteResult, error)
	ToggleLike(ctx context.Context, id, userID string) (model.LikeResult, error)

	Reconcile(ctx context.Context, articleID string) (model.ReconcileReport, error)
	ReconcileAll(ctx context.Context) ([]model.ReconcileReport, error)
}

type CreateInput struct {
	ArticleID string
	AuthorID  string
	ParentID  string
	Content   string
}

type commentService struct {
	comments storage.Repository
	articles storage.Articles
	authors  storage.Authors

	cache   cache.ThreadCache
	events  events.Publisher
	metrics *metrics.Metrics
	log     zerolog.Logger

	now   func() time.Time
	newID func() string

	sideEffectTimeout time.Duration
}

type Option func(*commentService)

func WithCache(c cache.ThreadCache) Option {
	return func(s *commentService) { s.cache = c }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *commentService) { s.events = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *commentService) { s.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *commentService) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *commentService) { s.now = now }
}

func WithIDs(newID func() string) Option {
	return func(s *commentService) { s.newID = newID }
}

// WithSideEffectTimeout bounds the counter, cache and event work done after a
// write has been committed. It is independent of the request deadline.
func WithSideEffectTimeout(d time.Duration) Option {
	return func(s *commentService) { s.sideEffectTimeout = d }
}

func New(comments storage.Repository, articles storage.Articles, authors storage.Authors, opts ...Option) CommentService {
	s := &commentService{
		comments: comments,
		articles: articles,
		authors:  authors,
		cache:    cache.Noop{},
		events:   events.Noop{},
		log:      zerolog.Nop(),
		now:      time.Now,
		newID:    uuid.NewString,

		sideEffectTimeout: defaultSideEffectTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
