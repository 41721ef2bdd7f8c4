package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/MyNameIsWhaaat/commentthread/internal/comment/model"
	"github.com/MyNameIsWhaaat/commentthread/internal/comment/tree"
)

// Reconcile brings the cached parts of an article back in line with the
// comments themselves: the child index of every comment is rewritten from
// ParentID where it differs, and the article counter is reset to the number
// of live comments.
func (s *commentService) Reconcile(ctx context.Context, articleID string) (model.ReconcileReport, error) {
	if articleID == "" {
		return model.ReconcileReport{}, ErrInvalidInput
	}

	ok, err := s.articles.Exists(ctx, articleID)
	if err != nil {
		return model.ReconcileReport{}, storeErr("article exists", err)
	}
	if !ok {
		return model.ReconcileReport{}, ErrNotFound
	}

	comments, err := s.comments.FindByArticle(ctx, articleID)
	if err != nil {
		return model.ReconcileReport{}, storeErr("find comments", err)
	}

	rep := model.ReconcileReport{ArticleID: articleID, Comments: len(comments)}

	derived := tree.Derive(comments)
	for _, c := range comments {
		if !c.Deleted {
			rep.Live++
		}
		want := derived[c.ID]
		if sameIDs(c.ChildIDs, want) {
			continue
		}
		if err := s.comments.SetChildren(ctx, c.ID, want); err != nil {
			return rep, storeErr("set children", err)
		}
		rep.ChildIndexFix = append(rep.ChildIndexFix, c.ID)
	}

	views := make([]model.CommentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, model.CommentView{Comment: c})
	}
	rep.OrphansPromoted = tree.Build(views, model.SortCreatedAtAsc).Orphans

	rep.CounterBefore, err = s.articles.CommentCount(ctx, articleID)
	if err != nil {
		return rep, storeErr("comment count", err)
	}
	rep.CounterAfter = rep.CounterBefore
	if rep.CounterBefore != rep.Live {
		if err := s.articles.SetCommentCount(ctx, articleID, rep.Live); err != nil {
			return rep, storeErr("set comment count", err)
		}
		rep.CounterAfter = rep.Live
	}

	if s.metrics != nil {
		if len(rep.ChildIndexFix) > 0 {
			s.metrics.ReconcileFixes.WithLabelValues("child_index").Add(float64(len(rep.ChildIndexFix)))
		}
		if rep.CounterAfter != rep.CounterBefore {
			s.metrics.ReconcileFixes.WithLabelValues("counter").Inc()
		}
	}
	if len(rep.ChildIndexFix) > 0 {
		s.invalidate(ctx, articleID)
	}

	s.log.Info().
		Str("article_id", articleID).
		Int("comments", rep.Comments).
		Int("counter_before", rep.CounterBefore).
		Int("counter_after", rep.CounterAfter).
		Int("child_index_fixed", len(rep.ChildIndexFix)).
		Int("orphans", len(rep.OrphansPromoted)).
		Msg("article_reconciled")
	return rep, nil
}

// ReconcileAll reconciles every article. A failing article does not stop the
// run; its error is joined into the returned error.
func (s *commentService) ReconcileAll(ctx context.Context) ([]model.ReconcileReport, error) {
	ids, err := s.articles.ListIDs(ctx)
	if err != nil {
		return nil, storeErr("list articles", err)
	}

	reports := make([]model.ReconcileReport, 0, len(ids))
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("%w: %w", ErrStorage, err))
			break
		}
		rep, err := s.Reconcile(ctx, id)
		if err != nil {
			s.log.Error().Err(err).Str("article_id", id).Msg("reconcile_failed")
			errs = append(errs, fmt.Errorf("article %s: %w", id, err))
			continue
		}
		reports = append(reports, rep)
	}
	return reports, errors.Join(errs...)
}

// sameIDs compares two id lists as sets. Concurrent replies may reach the
// index in any order, which is not worth a rewrite.
func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := slices.Clone(a)
	y := slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}
