package model

type CommentPathItem struct {
	ID       string `json:"id"`
	ParentID string `json:"parent_id,omitempty"`
	Content  string `json:"content"`
	Deleted  bool   `json:"deleted"`
}
