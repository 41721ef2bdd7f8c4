package model

import "time"

// Tombstone replaces the content of a soft-deleted comment.
const Tombstone = "[deleted]"

// MaxContentLength is the upper bound on comment content, in characters.
const MaxContentLength = 2000

type Comment struct {
	ID        string    `json:"id" bson:"_id"`
	ArticleID string    `json:"article_id" bson:"article_id"`
	AuthorID  string    `json:"author_id" bson:"author_id"`
	ParentID  string    `json:"parent_id,omitempty" bson:"parent_id,omitempty"`
	Content   string    `json:"content" bson:"content"`
	ChildIDs  []string  `json:"child_ids" bson:"child_ids"`
	Likes     []string  `json:"likes" bson:"likes"`
	Deleted   bool      `json:"deleted" bson:"deleted"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// IsReply reports whether the comment hangs under another comment.
func (c Comment) IsReply() bool {
	return c.ParentID != ""
}

// Author holds the display fields returned alongside a comment.
type Author struct {
	ID       string `json:"id" bson:"_id"`
	Username string `json:"username" bson:"username"`
	Name     string `json:"name" bson:"name"`
	Avatar   string `json:"avatar" bson:"avatar"`
}

type Article struct {
	ID            string `json:"id" bson:"_id"`
	Title         string `json:"title" bson:"title"`
	CommentsCount int    `json:"comments_count" bson:"comments_count"`
}

// CommentView is a single comment with its author resolved.
type CommentView struct {
	Comment
	Author     *Author `json:"author,omitempty"`
	LikesCount int     `json:"likes_count"`
}

type CommentNode struct {
	CommentView
	Children []CommentNode `json:"children"`
}

type ThreadPage struct {
	ArticleID string        `json:"article_id"`
	Items     []CommentNode `json:"items"`
	Page      int           `json:"page"`
	Limit     int           `json:"limit"`
	Total     int           `json:"total"`
}
