package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MyNameIsWhaaat/commentthread/internal/comment/model"
	"github.com/MyNameIsWhaaat/commentthread/internal/comment/storage"
)

func TestRepoCreateAndFind(t *testing.T) {
	ctx := context.Background()
	r := New()

	now := time.Now().UTC()
	if _, err := r.Create(ctx, model.Comment{ID: "c1", ArticleID: "a1", Content: "root", CreatedAt: now}); err != nil {
		t.Fatalf("create c1: %v", err)
	}
	if _, err := r.Create(ctx, model.Comment{ID: "c2", ArticleID: "a1", ParentID: "c1", Content: "reply", CreatedAt: now}); err != nil {
		t.Fatalf("create c2: %v", err)
	}
	if _, err := r.Create(ctx, model.Comment{ID: "x1", ArticleID: "a2", Content: "other", CreatedAt: now}); err != nil {
		t.Fatalf("create x1: %v", err)
	}

	got, err := r.FindByArticle(ctx, "a1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 comments for a1, got %d", len(got))
	}

	has, err := r.HasChildren(ctx, "c1")
	if err != nil || !has {
		t.Fatalf("expected c1 to have children, got %v %v", has, err)
	}
	has, err = r.HasChildren(ctx, "c2")
	if err != nil || has {
		t.Fatalf("expected c2 to be a leaf, got %v %v", has, err)
	}
}

func TestRepoChildIndex(t *testing.T) {
	ctx := context.Background()
	r := New()
	_, _ = r.Create(ctx, model.Comment{ID: "p", ArticleID: "a1"})

	if err := r.AppendChild(ctx, "p", "c1"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := r.AppendChild(ctx, "p", "c2"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := r.RemoveChild(ctx, "p", "c1"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	p, err := r.Get(ctx, "p")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(p.ChildIDs) != 1 || p.ChildIDs[0] != "c2" {
		t.Fatalf("expected child index [c2], got %v", p.ChildIDs)
	}

	if err := r.AppendChild(ctx, "missing", "c1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRepoMarkDeletedAndDelete(t *testing.T) {
	ctx := context.Background()
	r := New()
	_, _ = r.Create(ctx, model.Comment{ID: "c1", ArticleID: "a1", Content: "hello"})

	c, err := r.MarkDeleted(ctx, "c1", time.Now())
	if err != nil {
		t.Fatalf("mark deleted: %v", err)
	}
	if !c.Deleted || c.Content != model.Tombstone {
		t.Fatalf("expected tombstone, got %+v", c)
	}

	if err := r.Delete(ctx, "c1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := r.Get(ctx, "c1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	left, _ := r.FindByArticle(ctx, "a1")
	if len(left) != 0 {
		t.Fatalf("expected article index cleaned, got %d", len(left))
	}
}

func TestRepoToggleLike(t *testing.T) {
	ctx := context.Background()
	r := New()
	_, _ = r.Create(ctx, model.Comment{ID: "c1", ArticleID: "a1"})

	liked, n, err := r.ToggleLike(ctx, "c1", "u1")
	if err != nil || !liked || n != 1 {
		t.Fatalf("expected like, got %v %d %v", liked, n, err)
	}
	liked, n, err = r.ToggleLike(ctx, "c1", "u1")
	if err != nil || liked || n != 0 {
		t.Fatalf("expected unlike, got %v %d %v", liked, n, err)
	}
}

func TestRepoReturnsCopies(t *testing.T) {
	ctx := context.Background()
	r := New()
	_, _ = r.Create(ctx, model.Comment{ID: "p", ArticleID: "a1"})
	_ = r.AppendChild(ctx, "p", "c1")

	p, _ := r.Get(ctx, "p")
	p.ChildIDs[0] = "mutated"

	again, _ := r.Get(ctx, "p")
	if again.ChildIDs[0] != "c1" {
		t.Fatalf("expected stored index untouched, got %v", again.ChildIDs)
	}
}

func TestArticlesCounter(t *testing.T) {
	ctx := context.Background()
	a := NewArticles()
	_ = a.PutArticle(ctx, model.Article{ID: "a1"})

	if err := a.AdjustCommentCount(ctx, "a1", 2); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if err := a.AdjustCommentCount(ctx, "a1", -1); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	n, err := a.CommentCount(ctx, "a1")
	if err != nil || n != 1 {
		t.Fatalf("expected count 1, got %d %v", n, err)
	}
	if err := a.AdjustCommentCount(ctx, "nope", 1); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutArticleKeepsCounter(t *testing.T) {
	ctx := context.Background()
	a := NewArticles()
	_ = a.PutArticle(ctx, model.Article{ID: "a1", Title: "Old"})
	_ = a.AdjustCommentCount(ctx, "a1", 3)

	if err := a.PutArticle(ctx, model.Article{ID: "a1", Title: "New"}); err != nil {
		t.Fatalf("put again: %v", err)
	}
	n, err := a.CommentCount(ctx, "a1")
	if err != nil || n != 3 {
		t.Fatalf("expected counter 3 kept across re-put, got %d %v", n, err)
	}
	if got := a.articles["a1"].Title; got != "New" {
		t.Fatalf("expected title updated, got %q", got)
	}
}
