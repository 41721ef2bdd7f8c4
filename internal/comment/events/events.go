// Package events publishes comment lifecycle notifications for downstream
// consumers such as feed builders and notification senders.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

type Type string

const (
	CommentCreated    Type = "comment.created"
	CommentUpdated    Type = "comment.updated"
	CommentDeleted    Type = "comment.deleted"
	CommentTombstoned Type = "comment.tombstoned"
	CommentLiked      Type = "comment.liked"
	CommentUnliked    Type = "comment.unliked"
)

type Event struct {
	Type      Type      `json:"type"`
	CommentID string    `json:"comment_id"`
	ArticleID string    `json:"article_id"`
	ParentID  string    `json:"parent_id,omitempty"`
	ActorID   string    `json:"actor_id"`
	At        time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// Kafka writes events to one topic, keyed by article so that the events of a
// thread stay ordered within a partition.
type Kafka struct {
	w *kafka.Writer
}

func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}}
}

func (k *Kafka) Publish(ctx context.Context, e Event) error {
	msg, err := Message(e)
	if err != nil {
		return err
	}
	return k.w.WriteMessages(ctx, msg)
}

func (k *Kafka) Close() error {
	return k.w.Close()
}

func Message(e Event) (kafka.Message, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(e.ArticleID),
		Value: b,
		Time:  e.At,
	}, nil
}
