package service

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/MyNameIsWhaaat/commentthread/internal/comment/events"
	inm "github.com/MyNameIsWhaaat/commentthread/internal/comment/storage/inmemory"
)

// stalledPublisher never delivers; it holds every call until ctx ends.
type stalledPublisher struct{}

func (stalledPublisher) Publish(ctx context.Context, _ events.Event) error {
	<-ctx.Done()
	return ctx.Err()
}

func (stalledPublisher) Close() error { return nil }

func TestDeleteCompletesWhenPublisherStalls(t *testing.T) {
	f := newFixture(t, WithPublisher(stalledPublisher{}), WithSideEffectTimeout(50*time.Millisecond))
	c := f.create(t, "a1", "u1", "", "root")
	if got := f.counter(t, "a1"); got != 1 {
		t.Fatalf("expected counter 1 before delete, got %d", got)
	}
	if _, err := f.svc.GetThread(context.Background(), "a1"); err != nil {
		t.Fatalf("GetThread: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := f.svc.Delete(ctx, c.ID, "u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if got := f.counter(t, "a1"); got != 0 {
		t.Fatalf("expected counter 0 after delete, got %d", got)
	}
	roots, err := f.svc.GetThread(context.Background(), "a1")
	if err != nil {
		t.Fatalf("GetThread: %v", err)
	}
	if len(roots) != 0 {
		t.Fatalf("expected deleted comment gone from the thread, got %+v", roots)
	}
}

// cancelOnDeleteRepo ends the caller's context as soon as a removal commits.
type cancelOnDeleteRepo struct {
	*inm.Repo
	cancel context.CancelFunc
}

func (r *cancelOnDeleteRepo) Delete(ctx context.Context, id string) error {
	err := r.Repo.Delete(ctx, id)
	r.cancel()
	return err
}

func TestDeleteSideEffectsSurviveCallerDeadline(t *testing.T) {
	f := newFixture(t)
	root := f.create(t, "a1", "u1", "", "root")
	mid := f.create(t, "a1", "u2", root.ID, "mid")
	leaf := f.create(t, "a1", "u1", mid.ID, "leaf")

	if _, err := f.svc.Delete(context.Background(), mid.ID, "u2"); err != nil {
		t.Fatalf("tombstone mid: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo := &cancelOnDeleteRepo{Repo: f.repo, cancel: cancel}
	svc := New(repo, f.articles, f.authors, WithPublisher(f.events), WithCache(f.cache), WithLogger(zerolog.Nop()))

	res, err := svc.Delete(ctx, leaf.ID, "u1")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(res.Pruned) != 1 || res.Pruned[0] != mid.ID {
		t.Fatalf("expected tombstoned mid pruned, got %v", res.Pruned)
	}
	if got := f.counter(t, "a1"); got != 1 {
		t.Fatalf("expected counter 1 after deletes, got %d", got)
	}
	want := []events.Type{
		events.CommentCreated, events.CommentCreated, events.CommentCreated,
		events.CommentTombstoned, events.CommentDeleted, events.CommentDeleted,
	}
	if got := f.events.types(); !slices.Equal(got, want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}
}
