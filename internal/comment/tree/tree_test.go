package tree

import (
	"strconv"
	"testing"
	"time"

	"github.com/MyNameIsWhaaat/commentthread/internal/comment/model"
)

var base = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

func view(id, parent string, minute int) model.CommentView {
	return model.CommentView{Comment: model.Comment{
		ID:        id,
		ArticleID: "A1",
		ParentID:  parent,
		Content:   "text " + id,
		CreatedAt: base.Add(time.Duration(minute) * time.Minute),
	}}
}

func ids(nodes []model.CommentNode) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBuildEmpty(t *testing.T) {
	f := Build(nil, model.SortCreatedAtDesc)
	if f.Roots == nil {
		t.Fatalf("expected empty non-nil forest")
	}
	if len(f.Roots) != 0 || f.Size != 0 || len(f.Orphans) != 0 {
		t.Fatalf("expected empty forest, got %+v", f)
	}
}

func TestBuildReplyUnderRoot(t *testing.T) {
	f := Build([]model.CommentView{
		view("C2", "C1", 1),
		view("C1", "", 0),
	}, model.SortCreatedAtDesc)

	if len(f.Roots) != 1 {
		t.Fatalf("expected exactly one root, got %d", len(f.Roots))
	}
	root := f.Roots[0]
	if root.ID != "C1" {
		t.Fatalf("expected root C1, got %s", root.ID)
	}
	if len(root.Children) != 1 || root.Children[0].ID != "C2" {
		t.Fatalf("expected single child C2, got %v", ids(root.Children))
	}
	if len(root.Children[0].Children) != 0 {
		t.Fatalf("expected reply to be a leaf")
	}
}

func TestBuildOrdering(t *testing.T) {
	// c1 (0)        c2 (5)
	// ├─ r1b (3)
	// ├─ r1a (1)
	// │  └─ r1a1 (2)
	// └─ r1c (4)
	views := []model.CommentView{
		view("r1c", "c1", 4),
		view("c2", "", 5),
		view("r1a1", "r1a", 2),
		view("r1b", "c1", 3),
		view("c1", "", 0),
		view("r1a", "c1", 1),
	}

	f := Build(views, model.SortCreatedAtDesc)
	if got := ids(f.Roots); !equal(got, []string{"c2", "c1"}) {
		t.Fatalf("expected roots newest first, got %v", got)
	}
	c1 := f.Roots[1]
	if got := ids(c1.Children); !equal(got, []string{"r1a", "r1b", "r1c"}) {
		t.Fatalf("expected replies oldest first, got %v", got)
	}
	if got := ids(c1.Children[0].Children); !equal(got, []string{"r1a1"}) {
		t.Fatalf("expected nested reply, got %v", got)
	}
	if f.Size != 6 {
		t.Fatalf("expected size 6, got %d", f.Size)
	}

	f = Build(views, model.SortCreatedAtAsc)
	if got := ids(f.Roots); !equal(got, []string{"c1", "c2"}) {
		t.Fatalf("expected roots oldest first, got %v", got)
	}
}

func TestBuildTiesBrokenByID(t *testing.T) {
	f := Build([]model.CommentView{
		view("p", "", 0),
		view("b", "p", 1),
		view("a", "p", 1),
	}, model.SortCreatedAtDesc)

	if got := ids(f.Roots[0].Children); !equal(got, []string{"a", "b"}) {
		t.Fatalf("expected tie broken by id, got %v", got)
	}
}

func TestBuildPromotesOrphans(t *testing.T) {
	f := Build([]model.CommentView{
		view("c1", "", 0),
		view("lost", "missing", 1),
		view("lost-reply", "lost", 2),
	}, model.SortCreatedAtDesc)

	if got := ids(f.Roots); !equal(got, []string{"lost", "c1"}) {
		t.Fatalf("expected orphan promoted to top level, got %v", got)
	}
	if !equal(f.Orphans, []string{"lost"}) {
		t.Fatalf("expected orphans [lost], got %v", f.Orphans)
	}
	if got := ids(f.Roots[0].Children); !equal(got, []string{"lost-reply"}) {
		t.Fatalf("expected orphan to keep its subtree, got %v", got)
	}
}

func TestBuildBreaksCycles(t *testing.T) {
	f := Build([]model.CommentView{
		view("root", "", 0),
		view("a", "b", 1),
		view("b", "a", 2),
		view("c", "b", 3),
		view("self", "self", 4),
	}, model.SortCreatedAtAsc)

	if f.Size != 5 {
		t.Fatalf("expected all 5 comments placed, got %d", f.Size)
	}
	if got := Count(f.Roots); got != 5 {
		t.Fatalf("expected 5 nodes in forest, got %d", got)
	}
	if got := ids(f.Roots); !equal(got, []string{"root", "a", "self"}) {
		t.Fatalf("expected cycle broken at oldest member, got %v", got)
	}
	a := f.Roots[1]
	if got := ids(a.Children); !equal(got, []string{"b"}) {
		t.Fatalf("expected b under a, got %v", got)
	}
	if got := ids(a.Children[0].Children); !equal(got, []string{"c"}) {
		t.Fatalf("expected c under b, got %v", got)
	}
	if !equal(f.Orphans, []string{"a", "self"}) {
		t.Fatalf("expected orphans [a self], got %v", f.Orphans)
	}
}

func TestBuildKeepsOlderDescendantOfCycleInPlace(t *testing.T) {
	f := Build([]model.CommentView{
		view("c", "b", 0),
		view("a", "b", 1),
		view("b", "a", 2),
	}, model.SortCreatedAtAsc)

	if got := ids(f.Roots); !equal(got, []string{"a"}) {
		t.Fatalf("expected only the cycle member a promoted, got %v", got)
	}
	if !equal(f.Orphans, []string{"a"}) {
		t.Fatalf("expected orphans [a], got %v", f.Orphans)
	}
	b := f.Roots[0].Children
	if got := ids(b); !equal(got, []string{"b"}) {
		t.Fatalf("expected b under a, got %v", got)
	}
	if got := ids(b[0].Children); !equal(got, []string{"c"}) {
		t.Fatalf("expected c under its parent b, got %v", got)
	}
}

func TestBuildBreaksSeparateCycles(t *testing.T) {
	f := Build([]model.CommentView{
		view("x2", "x1", 0),
		view("y1", "y2", 1),
		view("x1", "x2", 2),
		view("y2", "y1", 3),
		view("below", "y2", 4),
	}, model.SortCreatedAtAsc)

	if f.Size != 5 || Count(f.Roots) != 5 {
		t.Fatalf("expected all 5 comments placed, got size %d count %d", f.Size, Count(f.Roots))
	}
	if !equal(f.Orphans, []string{"x2", "y1"}) {
		t.Fatalf("expected one break per cycle [x2 y1], got %v", f.Orphans)
	}
	y2, ok := Find(f.Roots, "y2")
	if !ok || !equal(ids(y2.Children), []string{"below"}) {
		t.Fatalf("expected below under y2, got %+v", y2)
	}
}

func TestBuildIgnoresDuplicates(t *testing.T) {
	f := Build([]model.CommentView{
		view("c1", "", 0),
		view("c1", "", 0),
	}, model.SortCreatedAtDesc)
	if len(f.Roots) != 1 {
		t.Fatalf("expected duplicate ids collapsed, got %d roots", len(f.Roots))
	}
}

func TestBuildDeepThread(t *testing.T) {
	const depth = 100000
	views := make([]model.CommentView, 0, depth)
	views = append(views, view("n0", "", 0))
	for i := 1; i < depth; i++ {
		views = append(views, view("n"+strconv.Itoa(i), "n"+strconv.Itoa(i-1), i))
	}

	f := Build(views, model.SortCreatedAtDesc)
	if len(f.Roots) != 1 {
		t.Fatalf("expected one root, got %d", len(f.Roots))
	}
	if got := Count(f.Roots); got != depth {
		t.Fatalf("expected %d nodes, got %d", depth, got)
	}
	last, ok := Find(f.Roots, "n"+strconv.Itoa(depth-1))
	if !ok {
		t.Fatalf("expected to find deepest node")
	}
	if len(last.Children) != 0 {
		t.Fatalf("expected deepest node to be a leaf")
	}
}

func TestFind(t *testing.T) {
	f := Build([]model.CommentView{
		view("c1", "", 0),
		view("r1", "c1", 1),
		view("r2", "r1", 2),
	}, model.SortCreatedAtDesc)

	n, ok := Find(f.Roots, "r1")
	if !ok {
		t.Fatalf("expected r1 to be found")
	}
	if got := ids(n.Children); !equal(got, []string{"r2"}) {
		t.Fatalf("expected subtree of r1, got %v", got)
	}
	if _, ok := Find(f.Roots, "nope"); ok {
		t.Fatalf("expected missing id not to be found")
	}
}

func TestPath(t *testing.T) {
	comments := []model.Comment{
		view("c1", "", 0).Comment,
		view("r1", "c1", 1).Comment,
		view("r2", "r1", 2).Comment,
		view("loop-a", "loop-b", 3).Comment,
		view("loop-b", "loop-a", 4).Comment,
	}

	items, ok := Path(comments, "r2")
	if !ok {
		t.Fatalf("expected path for r2")
	}
	got := make([]string, 0, len(items))
	for _, it := range items {
		got = append(got, it.ID)
	}
	if !equal(got, []string{"c1", "r1", "r2"}) {
		t.Fatalf("expected root to leaf path, got %v", got)
	}

	items, ok = Path(comments, "loop-a")
	if !ok || len(items) != 2 {
		t.Fatalf("expected cycle-guarded path of 2, got %v", items)
	}

	if _, ok := Path(comments, "missing"); ok {
		t.Fatalf("expected no path for unknown id")
	}
}

func TestDerive(t *testing.T) {
	comments := []model.Comment{
		view("r2", "c1", 2).Comment,
		view("c1", "", 0).Comment,
		view("r1", "c1", 1).Comment,
		view("lost", "missing", 3).Comment,
	}

	got := Derive(comments)
	if !equal(got["c1"], []string{"r1", "r2"}) {
		t.Fatalf("expected derived children [r1 r2], got %v", got["c1"])
	}
	if _, ok := got["missing"]; ok {
		t.Fatalf("expected unresolved parent to be skipped")
	}
}
