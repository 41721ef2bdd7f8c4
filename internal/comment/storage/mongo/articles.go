package mongo

import (
	"context"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MyNameIsWhaaat/commentthread/internal/comment/model"
	"github.com/MyNameIsWhaaat/commentthread/internal/comment/storage"
)

func (s *Storage) Exists(ctx context.Context, articleID string) (bool, error) {
	n, err := s.coll(articlesColl).CountDocuments(ctx, bson.M{"_id": articleID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Storage) AdjustCommentCount(ctx context.Context, articleID string, delta int) error {
	res, err := s.coll(articlesColl).UpdateOne(ctx,
		bson.M{"_id": articleID},
		bson.M{"$inc": bson.M{"comments_count": delta}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Storage) SetCommentCount(ctx context.Context, articleID string, n int) error {
	res, err := s.coll(articlesColl).UpdateOne(ctx,
		bson.M{"_id": articleID},
		bson.M{"$set": bson.M{"comments_count": n}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Storage) CommentCount(ctx context.Context, articleID string) (int, error) {
	var a model.Article
	opts := options.FindOne().SetProjection(bson.M{"comments_count": 1})
	if err := s.coll(articlesColl).FindOne(ctx, bson.M{"_id": articleID}, opts).Decode(&a); err != nil {
		return 0, notFound(err)
	}
	return a.CommentsCount, nil
}

func (s *Storage) ListIDs(ctx context.Context) ([]string, error) {
	raw, err := s.coll(articlesColl).Distinct(ctx, "_id", bson.D{})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		id, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected article id type %T", v)
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Lookup resolves author display fields with one $in query.
func (s *Storage) Lookup(ctx context.Context, ids []string) (map[string]model.Author, error) {
	out := make(map[string]model.Author, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	opts := options.Find().SetProjection(bson.M{"username": 1, "name": 1, "avatar": 1})
	cur, err := s.coll(usersColl).Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}

	var authors []model.Author
	if err := cur.All(ctx, &authors); err != nil {
		return nil, err
	}
	for _, a := range authors {
		out[a.ID] = a
	}
	return out, nil
}

// PutArticle upserts an article. The counter is only written on insert; it is
// owned by AdjustCommentCount afterwards.
func (s *Storage) PutArticle(ctx context.Context, a model.Article) error {
	update := bson.M{
		"$set":         bson.M{"title": a.Title},
		"$setOnInsert": bson.M{"comments_count": a.CommentsCount},
	}
	opts := options.Update().SetUpsert(true)
	_, err := s.coll(articlesColl).UpdateOne(ctx, bson.M{"_id": a.ID}, update, opts)
	return err
}

func (s *Storage) PutAuthor(ctx context.Context, a model.Author) error {
	opts := options.Replace().SetUpsert(true)
	_, err := s.coll(usersColl).ReplaceOne(ctx, bson.M{"_id": a.ID}, a, opts)
	return err
}
