package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MyNameIsWhaaat/commentthread/internal/comment/model"
	"github.com/MyNameIsWhaaat/commentthread/internal/comment/storage"
)

const (
	commentsColl = "comments"
	articlesColl = "articles"
	usersColl    = "users"
)

var (
	ErrConnectDB       = fmt.Errorf("unable to establish DB connection")
	ErrDBNotResponding = fmt.Errorf("DB not responding")
)

// Storage keeps comments, articles and users in one Mongo database.
type Storage struct {
	client *mongo.Client
	dbName string
}

func New(ctx context.Context, conf *Config) (*Storage, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	client, err := mongo.Connect(ctx, conf.Options())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectDB, err)
	}

	s := Storage{client: client, dbName: conf.DBName}
	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%w: %v", ErrDBNotResponding, err)
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return &s, nil
}

// NewBackend connects and exposes the storage through every engine contract.
func NewBackend(ctx context.Context, conf *Config) (storage.Backend, error) {
	s, err := New(ctx, conf)
	if err != nil {
		return storage.Backend{}, err
	}
	return storage.Backend{
		Comments: s,
		Articles: s,
		Authors:  s,
		Seeder:   s,
		Close:    s.Close,
	}, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Storage) coll(name string) *mongo.Collection {
	return s.client.Database(s.dbName).Collection(name)
}

// ensureIndexes backs the two access paths of the engine: the bulk fetch of
// one article and the parent lookup used before deletion.
func (s *Storage) ensureIndexes(ctx context.Context) error {
	_, err := s.coll(commentsColl).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "article_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "parent_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create comment indexes: %w", err)
	}
	return nil
}

func (s *Storage) Create(ctx context.Context, c model.Comment) (model.Comment, error) {
	if c.ChildIDs == nil {
		c.ChildIDs = []string{}
	}
	if c.Likes == nil {
		c.Likes = []string{}
	}

	if _, err := s.coll(commentsColl).InsertOne(ctx, c); err != nil {
		return model.Comment{}, err
	}
	return c, nil
}

func (s *Storage) Get(ctx context.Context, id string) (model.Comment, error) {
	var c model.Comment
	err := s.coll(commentsColl).FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if err != nil {
		return model.Comment{}, notFound(err)
	}
	return c, nil
}

// FindByArticle loads the whole thread of an article with a single query.
func (s *Storage) FindByArticle(ctx context.Context, articleID string) ([]model.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.coll(commentsColl).Find(ctx, bson.M{"article_id": articleID}, opts)
	if err != nil {
		return nil, err
	}

	comments := make([]model.Comment, 0)
	if err := cur.All(ctx, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (s *Storage) HasChildren(ctx context.Context, id string) (bool, error) {
	n, err := s.coll(commentsColl).CountDocuments(ctx, bson.M{"parent_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Storage) AppendChild(ctx context.Context, parentID, childID string) error {
	return s.updateComment(ctx, parentID, bson.M{"$push": bson.M{"child_ids": childID}})
}

func (s *Storage) RemoveChild(ctx context.Context, parentID, childID string) error {
	return s.updateComment(ctx, parentID, bson.M{"$pull": bson.M{"child_ids": childID}})
}

func (s *Storage) SetChildren(ctx context.Context, id string, childIDs []string) error {
	if childIDs == nil {
		childIDs = []string{}
	}
	return s.updateComment(ctx, id, bson.M{"$set": bson.M{"child_ids": childIDs}})
}

func (s *Storage) UpdateContent(ctx context.Context, id, content string, at time.Time) (model.Comment, error) {
	return s.findAndUpdate(ctx, id, bson.M{"$set": bson.M{
		"content":    content,
		"updated_at": at,
	}})
}

func (s *Storage) MarkDeleted(ctx context.Context, id string, at time.Time) (model.Comment, error) {
	return s.findAndUpdate(ctx, id, bson.M{"$set": bson.M{
		"content":    model.Tombstone,
		"deleted":    true,
		"updated_at": at,
	}})
}

func (s *Storage) Delete(ctx context.Context, id string) error {
	res, err := s.coll(commentsColl).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ToggleLike adds userID to the likes of a comment, or removes it when
// already present.
func (s *Storage) ToggleLike(ctx context.Context, id, userID string) (bool, int, error) {
	coll := s.coll(commentsColl)

	res, err := coll.UpdateOne(ctx,
		bson.M{"_id": id, "likes": bson.M{"$ne": userID}},
		bson.M{"$push": bson.M{"likes": userID}},
	)
	if err != nil {
		return false, 0, err
	}
	liked := res.ModifiedCount == 1

	if !liked {
		res, err = coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$pull": bson.M{"likes": userID}})
		if err != nil {
			return false, 0, err
		}
		if res.MatchedCount == 0 {
			return false, 0, storage.ErrNotFound
		}
	}

	var doc struct {
		Likes []string `bson:"likes"`
	}
	opts := options.FindOne().SetProjection(bson.M{"likes": 1})
	if err := coll.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&doc); err != nil {
		return false, 0, notFound(err)
	}
	return liked, len(doc.Likes), nil
}

func (s *Storage) updateComment(ctx context.Context, id string, update bson.M) error {
	res, err := s.coll(commentsColl).UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Storage) findAndUpdate(ctx context.Context, id string, update bson.M) (model.Comment, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var c model.Comment
	err := s.coll(commentsColl).FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&c)
	if err != nil {
		return model.Comment{}, notFound(err)
	}
	return c, nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.ErrNotFound
	}
	return err
}
