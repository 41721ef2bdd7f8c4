package service

import (
	"context"

	"github.com/MyNameIsWhaaat/commentthread/internal/comment/model"
	"github.com/MyNameIsWhaaat/commentthread/internal/comment/tree"
)

const maxPageLimit = 100

func (s *commentService) GetThread(ctx context.Context, articleID string) ([]model.CommentNode, error) {
	if articleID == "" {
		return nil, ErrInvalidInput
	}
	f, err := s.forest(ctx, articleID, model.SortCreatedAtDesc)
	if err != nil {
		return nil, err
	}
	return f.Roots, nil
}

func (s *commentService) GetThreadPage(ctx context.Context, articleID string, page, limit int, sortMode model.Sort) (model.ThreadPage, error) {
	if articleID == "" {
		return model.ThreadPage{}, ErrInvalidInput
	}
	if page <= 0 || limit < 0 || limit > maxPageLimit {
		return model.ThreadPage{}, ErrInvalidInput
	}
	if sortMode == "" {
		sortMode = model.SortCreatedAtDesc
	}
	if !sortMode.Valid() {
		return model.ThreadPage{}, ErrInvalidInput
	}

	f, err := s.forest(ctx, articleID, sortMode)
	if err != nil {
		return model.ThreadPage{}, err
	}

	tp := model.ThreadPage{
		ArticleID: articleID,
		Items:     f.Roots,
		Page:      page,
		Limit:     limit,
		Total:     len(f.Roots),
	}
	if limit == 0 {
		tp.Page = 1
		return tp, nil
	}

	from := (page - 1) * limit
	if from >= len(f.Roots) {
		tp.Items = []model.CommentNode{}
		return tp, nil
	}
	to := from + limit
	if to > len(f.Roots) {
		to = len(f.Roots)
	}
	tp.Items = f.Roots[from:to]
	return tp, nil
}

func (s *commentService) GetSubtree(ctx context.Context, id string) (model.CommentNode, error) {
	if id == "" {
		return model.CommentNode{}, ErrInvalidInput
	}
	c, err := s.comments.Get(ctx, id)
	if err != nil {
		return model.CommentNode{}, storeErr("get comment", err)
	}

	f, err := s.forest(ctx, c.ArticleID, model.SortCreatedAtAsc)
	if err != nil {
		return model.CommentNode{}, err
	}
	n, ok := tree.Find(f.Roots, id)
	if !ok {
		return model.CommentNode{}, ErrNotFound
	}
	return n, nil
}

func (s *commentService) GetPath(ctx context.Context, id string) ([]model.CommentPathItem, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	c, err := s.comments.Get(ctx, id)
	if err != nil {
		return nil, storeErr("get comment", err)
	}

	all, err := s.comments.FindByArticle(ctx, c.ArticleID)
	if err != nil {
		return nil, storeErr("find comments", err)
	}
	items, ok := tree.Path(all, id)
	if !ok {
		return nil, ErrNotFound
	}
	return items, nil
}

// forest loads the thread in one fetch and assembles it. Orphans are
// promoted by the assembly and reported here as a consistency warning.
func (s *commentService) forest(ctx context.Context, articleID string, top model.Sort) (tree.Forest, error) {
	views, err := s.views(ctx, articleID)
	if err != nil {
		return tree.Forest{}, err
	}

	f := tree.Build(views, top)
	if len(f.Orphans) > 0 {
		s.log.Warn().
			Str("article_id", articleID).
			Strs("comment_ids", f.Orphans).
			Msg("orphan_comments_promoted")
		if s.metrics != nil {
			s.metrics.OrphansPromoted.Add(float64(len(f.Orphans)))
		}
	}
	return f, nil
}

func (s *commentService) views(ctx context.Context, articleID string) ([]model.CommentView, error) {
	entry, err := s.cache.Get(ctx, articleID)
	cacheable := err == nil
	if err != nil {
		s.log.Warn().Err(err).Str("article_id", articleID).Msg("thread_cache_get_failed")
	}
	if entry.Hit {
		return entry.Views, nil
	}

	comments, err := s.comments.FindByArticle(ctx, articleID)
	if err != nil {
		return nil, storeErr("find comments", err)
	}
	views, err := s.resolve(ctx, comments)
	if err != nil {
		return nil, err
	}

	if !cacheable {
		return views, nil
	}
	if err := s.cache.Set(ctx, articleID, entry.Version, views); err != nil {
		s.log.Warn().Err(err).Str("article_id", articleID).Msg("thread_cache_set_failed")
	}
	return views, nil
}

// resolve attaches author display fields with one lookup for all authors.
func (s *commentService) resolve(ctx context.Context, comments []model.Comment) ([]model.CommentView, error) {
	ids := make([]string, 0, len(comments))
	seen := make(map[string]bool, len(comments))
	for _, c := range comments {
		if !seen[c.AuthorID] {
			seen[c.AuthorID] = true
			ids = append(ids, c.AuthorID)
		}
	}

	authors, err := s.authors.Lookup(ctx, ids)
	if err != nil {
		return nil, storeErr("lookup authors", err)
	}

	views := make([]model.CommentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, view(c, authors))
	}
	return views, nil
}

func view(c model.Comment, authors map[string]model.Author) model.CommentView {
	v := model.CommentView{Comment: c, LikesCount: len(c.Likes)}
	if a, ok := authors[c.AuthorID]; ok {
		v.Author = &a
	}
	return v
}

func (s *commentService) invalidate(ctx context.Context, articleID string) {
	if err := s.cache.Invalidate(ctx, articleID); err != nil {
		s.log.Warn().Err(err).Str("article_id", articleID).Msg("thread_cache_invalidate_failed")
	}
}
