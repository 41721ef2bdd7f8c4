package model

// ReconcileReport describes what a reconciliation pass changed for one article.
type ReconcileReport struct {
	ArticleID       string   `json:"article_id"`
	Comments        int      `json:"comments"`
	Live            int      `json:"live"`
	CounterBefore   int      `json:"counter_before"`
	CounterAfter    int      `json:"counter_after"`
	ChildIndexFix   []string `json:"child_index_fixed"`
	OrphansPromoted []string `json:"orphans_promoted"`
}
