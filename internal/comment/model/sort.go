package model

// Sort orders the top level of a thread. Replies are always chronological.
type Sort string

const (
	SortCreatedAtDesc Sort = "created_at_desc"
	SortCreatedAtAsc  Sort = "created_at_asc"
)

func (s Sort) Valid() bool {
	return s == SortCreatedAtDesc || s == SortCreatedAtAsc
}
