package events

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMessageKeyedByArticle(t *testing.T) {
	at := time.Date(2025, 1, 12, 10, 22, 13, 0, time.UTC)
	e := Event{
		Type:      CommentCreated,
		CommentID: "c2",
		ArticleID: "a1",
		ParentID:  "c1",
		ActorID:   "u1",
		At:        at,
	}

	msg, err := Message(e)
	if err != nil {
		t.Fatalf("message: %v", err)
	}
	if string(msg.Key) != "a1" {
		t.Errorf("want key a1, got %s", msg.Key)
	}
	if !msg.Time.Equal(at) {
		t.Errorf("want time %v, got %v", at, msg.Time)
	}

	var got map[string]any
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["type"] != "comment.created" || got["parent_id"] != "c1" {
		t.Errorf("unexpected payload %v", got)
	}
}
