package postgres

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"

	"github.com/MyNameIsWhaaat/commentthread/internal/comment/model"
	"github.com/MyNameIsWhaaat/commentthread/internal/comment/storage"
)

func (r *Repo) Exists(ctx context.Context, articleID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM articles WHERE id = $1`, articleID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (r *Repo) AdjustCommentCount(ctx context.Context, articleID string, delta int) error {
	return r.setCount(ctx, articleID, sq.Expr("comments_count + ?", delta))
}

func (r *Repo) SetCommentCount(ctx context.Context, articleID string, n int) error {
	return r.setCount(ctx, articleID, n)
}

func (r *Repo) setCount(ctx context.Context, articleID string, value any) error {
	query, args, err := psql.Update("articles").
		Set("comments_count", value).
		Where(sq.Eq{"id": articleID}).
		ToSql()
	if err != nil {
		return err
	}
	return r.exec(ctx, query, args...)
}

func (r *Repo) CommentCount(ctx context.Context, articleID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT comments_count FROM articles WHERE id = $1`, articleID).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, storage.ErrNotFound
	}
	return n, err
}

func (r *Repo) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM articles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repo) Lookup(ctx context.Context, ids []string) (map[string]model.Author, error) {
	out := make(map[string]model.Author, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query, args, err := psql.Select("id", "username", "name", "avatar").
		From("users").
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var a model.Author
		if err := rows.Scan(&a.ID, &a.Username, &a.Name, &a.Avatar); err != nil {
			return nil, err
		}
		out[a.ID] = a
	}
	return out, rows.Err()
}

// PutArticle upserts an article. An existing row keeps its counter.
func (r *Repo) PutArticle(ctx context.Context, a model.Article) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO articles (id, title, comments_count)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title
	`, a.ID, a.Title, a.CommentsCount)
	return err
}

func (r *Repo) PutAuthor(ctx context.Context, a model.Author) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, name, avatar)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username, name = EXCLUDED.name, avatar = EXCLUDED.avatar
	`, a.ID, a.Username, a.Name, a.Avatar)
	return err
}
