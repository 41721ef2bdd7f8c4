package service

import (
	"context"

	"github.com/MyNameIsWhaaat/commentthread/internal/comment/events"
	"github.com/MyNameIsWhaaat/commentthread/internal/comment/model"
)

func (s *commentService) Create(ctx context.Context, in CreateInput) (model.CommentView, error) {
	content, err := validateContent(in.Content)
	if err != nil {
		return model.CommentView{}, err
	}
	if in.ArticleID == "" || in.AuthorID == "" {
		return model.CommentView{}, ErrInvalidInput
	}

	ok, err := s.articles.Exists(ctx, in.ArticleID)
	if err != nil {
		return model.CommentView{}, storeErr("article exists", err)
	}
	if !ok {
		return model.CommentView{}, ErrNotFound
	}

	if in.ParentID != "" {
		parent, err := s.comments.Get(ctx, in.ParentID)
		if err != nil {
			return model.CommentView{}, storeErr("get parent", err)
		}
		if parent.ArticleID != in.ArticleID || parent.Deleted {
			return model.CommentView{}, ErrNotFound
		}
	}

	now := s.now().UTC()
	c, err := s.comments.Create(ctx, model.Comment{
		ID:        s.newID(),
		ArticleID: in.ArticleID,
		AuthorID:  in.AuthorID,
		ParentID:  in.ParentID,
		Content:   content,
		ChildIDs:  []string{},
		Likes:     []string{},
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return model.CommentView{}, storeErr("create comment", err)
	}

	log := s.log.With().Str("article_id", c.ArticleID).Str("comment_id", c.ID).Logger()

	ctx, cancel := s.detach(ctx)
	defer cancel()

	// The child index and the counter are repaired by Reconcile if these fail.
	if c.ParentID != "" {
		if err := s.comments.AppendChild(ctx, c.ParentID, c.ID); err != nil {
			log.Warn().Err(err).Str("parent_id", c.ParentID).Msg("append_child_failed")
		}
	}
	if err := s.articles.AdjustCommentCount(ctx, c.ArticleID, 1); err != nil {
		log.Error().Err(err).Msg("comment_counter_increment_failed")
	}

	s.invalidate(ctx, c.ArticleID)
	s.publish(ctx, s.event(events.CommentCreated, c, c.AuthorID))
	if s.metrics != nil {
		s.metrics.CommentsCreated.Inc()
	}

	authors, err := s.authors.Lookup(ctx, []string{c.AuthorID})
	if err != nil {
		log.Warn().Err(err).Msg("author_lookup_failed")
	}
	log.Debug().Str("parent_id", c.ParentID).Msg("comment_created")
	return view(c, authors), nil
}

func (s *commentService) Update(ctx context.Context, id, actorID, content string) (model.CommentView, error) {
	content, err := validateContent(content)
	if err != nil {
		return model.CommentView{}, err
	}
	if id == "" || actorID == "" {
		return model.CommentView{}, ErrInvalidInput
	}

	c, err := s.owned(ctx, id, actorID)
	if err != nil {
		return model.CommentView{}, err
	}

	c, err = s.comments.UpdateContent(ctx, c.ID, content, s.now().UTC())
	if err != nil {
		return model.CommentView{}, storeErr("update comment", err)
	}

	ctx, cancel := s.detach(ctx)
	defer cancel()

	s.invalidate(ctx, c.ArticleID)
	s.publish(ctx, s.event(events.CommentUpdated, c, actorID))

	authors, err := s.authors.Lookup(ctx, []string{c.AuthorID})
	if err != nil {
		s.log.Warn().Err(err).Str("comment_id", c.ID).Msg("author_lookup_failed")
	}
	return view(c, authors), nil
}

// Delete tombstones a comment that has replies and removes one that has none.
// A removal may leave tombstoned ancestors without replies; those are removed
// too. The article counter drops by one for the deleted comment only, since a
// tombstoned ancestor released its unit when it was tombstoned.
//
// Once the comment itself is changed, the follow-up writes run on a context
// detached from the caller's deadline and events go out last, so a slow event
// sink cannot leave the counter or the cache behind.
func (s *commentService) Delete(ctx context.Context, id, actorID string) (model.DeleteResult, error) {
	if id == "" || actorID == "" {
		return model.DeleteResult{}, ErrInvalidInput
	}

	c, err := s.owned(ctx, id, actorID)
	if err != nil {
		return model.DeleteResult{}, err
	}

	hasChildren, err := s.comments.HasChildren(ctx, c.ID)
	if err != nil {
		return model.DeleteResult{}, storeErr("has children", err)
	}

	res := model.DeleteResult{ID: c.ID, ArticleID: c.ArticleID}
	log := s.log.With().Str("article_id", c.ArticleID).Str("comment_id", c.ID).Logger()

	var out []events.Event
	if hasChildren {
		c, err = s.comments.MarkDeleted(ctx, c.ID, s.now().UTC())
		if err != nil {
			return model.DeleteResult{}, storeErr("tombstone comment", err)
		}
	} else if err := s.comments.Delete(ctx, c.ID); err != nil {
		return model.DeleteResult{}, storeErr("delete comment", err)
	}

	ctx, cancel := s.detach(ctx)
	defer cancel()

	if hasChildren {
		res.Tombstoned = true
		s.countDeleted("soft", 1)
		out = append(out, s.event(events.CommentTombstoned, c, actorID))
	} else {
		s.unlink(ctx, c)
		s.countDeleted("hard", 1)
		out = append(out, s.event(events.CommentDeleted, c, actorID))

		for _, p := range s.prune(ctx, c.ParentID) {
			res.Pruned = append(res.Pruned, p.ID)
			out = append(out, s.event(events.CommentDeleted, p, ""))
		}
		s.countDeleted("pruned", len(res.Pruned))
	}

	if err := s.articles.AdjustCommentCount(ctx, c.ArticleID, -1); err != nil {
		log.Error().Err(err).Msg("comment_counter_decrement_failed")
	}
	s.invalidate(ctx, c.ArticleID)
	s.publish(ctx, out...)

	log.Debug().Bool("tombstoned", res.Tombstoned).Strs("pruned", res.Pruned).Msg("comment_deleted")
	return res, nil
}

// prune walks up from parentID removing tombstoned comments that no longer
// have replies and returns them in removal order. Failures stop the walk; the
// removal that triggered it has already succeeded.
func (s *commentService) prune(ctx context.Context, parentID string) []model.Comment {
	var pruned []model.Comment
	seen := make(map[string]bool)

	for id := parentID; id != "" && !seen[id]; {
		seen[id] = true

		p, err := s.comments.Get(ctx, id)
		if err != nil || !p.Deleted {
			break
		}
		has, err := s.comments.HasChildren(ctx, p.ID)
		if err != nil || has {
			break
		}
		if err := s.comments.Delete(ctx, p.ID); err != nil {
			s.log.Warn().Err(err).Str("comment_id", p.ID).Msg("prune_tombstone_failed")
			break
		}
		s.unlink(ctx, p)
		pruned = append(pruned, p)
		id = p.ParentID
	}
	return pruned
}

// unlink drops c from its parent's child index.
func (s *commentService) unlink(ctx context.Context, c model.Comment) {
	if c.ParentID == "" {
		return
	}
	if err := s.comments.RemoveChild(ctx, c.ParentID, c.ID); err != nil {
		s.log.Warn().Err(err).
			Str("comment_id", c.ID).
			Str("parent_id", c.ParentID).
			Msg("remove_child_failed")
	}
}

func (s *commentService) ToggleLike(ctx context.Context, id, userID string) (model.LikeResult, error) {
	if id == "" || userID == "" {
		return model.LikeResult{}, ErrInvalidInput
	}

	c, err := s.comments.Get(ctx, id)
	if err != nil {
		return model.LikeResult{}, storeErr("get comment", err)
	}
	if c.Deleted {
		return model.LikeResult{}, ErrNotFound
	}

	liked, count, err := s.comments.ToggleLike(ctx, id, userID)
	if err != nil {
		return model.LikeResult{}, storeErr("toggle like", err)
	}

	ctx, cancel := s.detach(ctx)
	defer cancel()

	s.invalidate(ctx, c.ArticleID)
	t := events.CommentUnliked
	if liked {
		t = events.CommentLiked
	}
	s.publish(ctx, s.event(t, c, userID))
	return model.LikeResult{ID: id, Liked: liked, LikesCount: count}, nil
}

// owned loads a live comment and checks that actorID wrote it.
func (s *commentService) owned(ctx context.Context, id, actorID string) (model.Comment, error) {
	c, err := s.comments.Get(ctx, id)
	if err != nil {
		return model.Comment{}, storeErr("get comment", err)
	}
	if c.Deleted {
		return model.Comment{}, ErrNotFound
	}
	if c.AuthorID != actorID {
		return model.Comment{}, ErrForbidden
	}
	return c, nil
}

// detach returns a context that keeps the caller's values but not its
// cancellation, bounded by the side effect timeout. Work that follows a
// committed write runs on it.
func (s *commentService) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.sideEffectTimeout)
}

func (s *commentService) event(t events.Type, c model.Comment, actorID string) events.Event {
	return events.Event{
		Type:      t,
		CommentID: c.ID,
		ArticleID: c.ArticleID,
		ParentID:  c.ParentID,
		ActorID:   actorID,
		At:        s.now().UTC(),
	}
}

// publish is best effort: failures are logged and never reach the caller.
func (s *commentService) publish(ctx context.Context, evs ...events.Event) {
	for _, e := range evs {
		if err := s.events.Publish(ctx, e); err != nil {
			s.log.Warn().Err(err).Str("event", string(e.Type)).Str("comment_id", e.CommentID).Msg("event_publish_failed")
		}
	}
}

func (s *commentService) countDeleted(mode string, n int) {
	if s.metrics != nil && n > 0 {
		s.metrics.CommentsDeleted.WithLabelValues(mode).Add(float64(n))
	}
}
