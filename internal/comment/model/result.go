package model

// DeleteResult reports how a delete was carried out.
type DeleteResult struct {
	ID         string `json:"id"`
	ArticleID  string `json:"article_id"`
	Tombstoned bool   `json:"tombstoned"`
	// Pruned lists tombstoned ancestors removed because the delete left them
	// without replies.
	Pruned []string `json:"pruned,omitempty"`
}

type LikeResult struct {
	ID         string `json:"id"`
	Liked      bool   `json:"liked"`
	LikesCount int    `json:"likes_count"`
}
