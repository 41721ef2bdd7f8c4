package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgtype"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/MyNameIsWhaaat/commentthread/internal/comment/model"
	"github.com/MyNameIsWhaaat/commentthread/internal/comment/storage"
)

const commentCols = `id, article_id, author_id, parent_id, content, child_ids, likes, deleted, created_at, updated_at`

const schema = `
CREATE TABLE IF NOT EXISTS articles (
	id             TEXT PRIMARY KEY,
	title          TEXT NOT NULL DEFAULT '',
	comments_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS users (
	id       TEXT PRIMARY KEY,
	username TEXT NOT NULL DEFAULT '',
	name     TEXT NOT NULL DEFAULT '',
	avatar   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS comments (
	id         TEXT PRIMARY KEY,
	article_id TEXT NOT NULL,
	author_id  TEXT NOT NULL,
	parent_id  TEXT,
	content    TEXT NOT NULL,
	child_ids  TEXT[] NOT NULL DEFAULT '{}',
	likes      TEXT[] NOT NULL DEFAULT '{}',
	deleted    BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS comments_article_created_idx ON comments (article_id, created_at);
CREATE INDEX IF NOT EXISTS comments_parent_idx ON comments (parent_id);
`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type Repo struct {
	db *sql.DB
	m  *pgtype.Map
}

func New(db *sql.DB) *Repo {
	return &Repo{db: db, m: pgtype.NewMap()}
}

// Open connects through the pgx database/sql driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewBackend opens dsn, applies the schema and exposes the repo through every
// engine contract.
func NewBackend(ctx context.Context, dsn string) (storage.Backend, error) {
	db, err := Open(ctx, dsn)
	if err != nil {
		return storage.Backend{}, fmt.Errorf("postgres open: %w", err)
	}
	r := New(db)
	if err := r.Migrate(ctx); err != nil {
		_ = db.Close()
		return storage.Backend{}, fmt.Errorf("postgres migrate: %w", err)
	}
	return storage.Backend{
		Comments: r,
		Articles: r,
		Authors:  r,
		Seeder:   r,
		Close:    func(context.Context) error { return db.Close() },
	}, nil
}

func (r *Repo) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repo) scanComment(row rowScanner) (model.Comment, error) {
	var (
		c      model.Comment
		parent sql.NullString
	)
	err := row.Scan(
		&c.ID, &c.ArticleID, &c.AuthorID, &parent, &c.Content,
		r.m.SQLScanner(&c.ChildIDs), r.m.SQLScanner(&c.Likes),
		&c.Deleted, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return model.Comment{}, err
	}
	c.ParentID = parent.String
	if c.ChildIDs == nil {
		c.ChildIDs = []string{}
	}
	if c.Likes == nil {
		c.Likes = []string{}
	}
	return c, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r *Repo) Create(ctx context.Context, c model.Comment) (model.Comment, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO comments (id, article_id, author_id, parent_id, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+commentCols,
		c.ID, c.ArticleID, c.AuthorID, nullable(c.ParentID), c.Content, c.CreatedAt, c.UpdatedAt)
	return r.scanComment(row)
}

func (r *Repo) Get(ctx context.Context, id string) (model.Comment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+commentCols+` FROM comments WHERE id = $1`, id)
	c, err := r.scanComment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Comment{}, storage.ErrNotFound
	}
	return c, err
}

func (r *Repo) FindByArticle(ctx context.Context, articleID string) ([]model.Comment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+commentCols+`
		FROM comments
		WHERE article_id = $1
		ORDER BY created_at ASC
	`, articleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Comment, 0, 64)
	for rows.Next() {
		c, err := r.scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) HasChildren(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM comments WHERE parent_id = $1 LIMIT 1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (r *Repo) AppendChild(ctx context.Context, parentID, childID string) error {
	return r.exec(ctx, `UPDATE comments SET child_ids = array_append(child_ids, $2) WHERE id = $1`, parentID, childID)
}

func (r *Repo) RemoveChild(ctx context.Context, parentID, childID string) error {
	return r.exec(ctx, `UPDATE comments SET child_ids = array_remove(child_ids, $2) WHERE id = $1`, parentID, childID)
}

func (r *Repo) SetChildren(ctx context.Context, id string, childIDs []string) error {
	if childIDs == nil {
		childIDs = []string{}
	}
	return r.exec(ctx, `UPDATE comments SET child_ids = $2 WHERE id = $1`, id, childIDs)
}

func (r *Repo) UpdateContent(ctx context.Context, id, content string, at time.Time) (model.Comment, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE comments SET content = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+commentCols, id, content, at)
	c, err := r.scanComment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Comment{}, storage.ErrNotFound
	}
	return c, err
}

func (r *Repo) MarkDeleted(ctx context.Context, id string, at time.Time) (model.Comment, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE comments SET content = $2, deleted = true, updated_at = $3
		WHERE id = $1
		RETURNING `+commentCols, id, model.Tombstone, at)
	c, err := r.scanComment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Comment{}, storage.ErrNotFound
	}
	return c, err
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
}

func (r *Repo) ToggleLike(ctx context.Context, id, userID string) (bool, int, error) {
	var (
		liked bool
		count int
	)
	err := r.db.QueryRowContext(ctx, `
		UPDATE comments
		SET likes = CASE
			WHEN $2 = ANY(likes) THEN array_remove(likes, $2)
			ELSE array_append(likes, $2)
		END
		WHERE id = $1
		RETURNING $2 = ANY(likes), cardinality(likes)
	`, id, userID).Scan(&liked, &count)
	if errors.Is(err, sql.ErrNoRows) {
		return false, 0, storage.ErrNotFound
	}
	if err != nil {
		return false, 0, err
	}
	return liked, count, nil
}

func (r *Repo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
