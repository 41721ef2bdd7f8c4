// Package tree assembles the flat comment list of one article into a forest.
//
// Children are always derived from ParentID. The ChildIDs index stored on a
// comment is never consulted here, so a lost or stale index cannot hide a reply.
// All walks use explicit stacks; thread depth is unbounded.
package tree

import (
	"sort"

	"github.com/MyNameIsWhaaat/commentthread/internal/comment/model"
)

// Forest is the result of Build.
type Forest struct {
	Roots []model.CommentNode
	// Orphans lists comments emitted at the top level although they have a
	// ParentID: the parent is missing, belongs elsewhere, or sits in a cycle.
	Orphans []string
	// Size is the number of nodes placed in the forest.
	Size int
}

type frame struct {
	idx  int
	next int
}

// Build assembles views into a forest. Roots are ordered by top, replies at
// every level by creation time ascending. Ties are broken by id.
func Build(views []model.CommentView, top model.Sort) Forest {
	byID := make(map[string]int, len(views))
	uniq := make([]model.CommentView, 0, len(views))
	for _, v := range views {
		if _, dup := byID[v.ID]; dup {
			continue
		}
		byID[v.ID] = len(uniq)
		uniq = append(uniq, v)
	}
	views = uniq

	children := make(map[int][]int, len(views))
	parent := make([]int, len(views))
	roots := make([]int, 0, len(views))
	promoted := make(map[int]bool)

	for i, v := range views {
		parent[i] = -1
		if v.ParentID == "" {
			roots = append(roots, i)
			continue
		}
		p, ok := byID[v.ParentID]
		if !ok || p == i {
			roots = append(roots, i)
			promoted[i] = true
			continue
		}
		parent[i] = p
		children[p] = append(children[p], i)
	}

	for p := range children {
		sortChronological(views, children[p])
	}

	built := make([]model.CommentNode, len(views))
	visited := make([]bool, len(views))
	owner := make([]int, len(views))

	walk := func(root int) {
		visited[root] = true
		owner[root] = -1
		stack := []frame{{idx: root}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			kids := children[top.idx]
			if top.next < len(kids) {
				k := kids[top.next]
				top.next++
				if visited[k] {
					continue
				}
				visited[k] = true
				owner[k] = top.idx
				stack = append(stack, frame{idx: k})
				continue
			}

			node := model.CommentNode{
				CommentView: views[top.idx],
				Children:    make([]model.CommentNode, 0, len(kids)),
			}
			for _, k := range kids {
				if owner[k] == top.idx {
					node.Children = append(node.Children, built[k])
				}
			}
			built[top.idx] = node
			stack = stack[:len(stack)-1]
		}
	}

	for _, r := range roots {
		walk(r)
	}

	// Whatever is still unvisited sits in a cycle or below one. Break each
	// cycle at its oldest member; the walk from there places the rest.
	for _, i := range cycleHeads(views, parent, visited) {
		promoted[i] = true
		roots = append(roots, i)
		walk(i)
	}

	if top == model.SortCreatedAtAsc {
		sortChronological(views, roots)
	} else {
		sortNewestFirst(views, roots)
	}

	f := Forest{
		Roots: make([]model.CommentNode, 0, len(roots)),
		Size:  len(views),
	}
	for _, r := range roots {
		f.Roots = append(f.Roots, built[r])
		if promoted[r] {
			f.Orphans = append(f.Orphans, views[r].ID)
		}
	}
	return f
}

// Find returns the node with the given id from a materialized forest.
func Find(roots []model.CommentNode, id string) (model.CommentNode, bool) {
	stack := make([]*model.CommentNode, 0, len(roots))
	for i := range roots {
		stack = append(stack, &roots[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.ID == id {
			return *n, true
		}
		for i := range n.Children {
			stack = append(stack, &n.Children[i])
		}
	}
	return model.CommentNode{}, false
}

// Count returns the number of nodes in the forest.
func Count(roots []model.CommentNode) int {
	total := 0
	stack := make([]*model.CommentNode, 0, len(roots))
	for i := range roots {
		stack = append(stack, &roots[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		total++
		for i := range n.Children {
			stack = append(stack, &n.Children[i])
		}
	}
	return total
}

// Path returns the chain of comments from the top of the thread down to id.
// The walk stops at a parent that cannot be resolved or that was already seen.
func Path(comments []model.Comment, id string) ([]model.CommentPathItem, bool) {
	byID := make(map[string]model.Comment, len(comments))
	for _, c := range comments {
		byID[c.ID] = c
	}

	cur, ok := byID[id]
	if !ok {
		return nil, false
	}

	seen := make(map[string]bool)
	var items []model.CommentPathItem
	for {
		seen[cur.ID] = true
		items = append(items, model.CommentPathItem{
			ID:       cur.ID,
			ParentID: cur.ParentID,
			Content:  cur.Content,
			Deleted:  cur.Deleted,
		})
		if cur.ParentID == "" || seen[cur.ParentID] {
			break
		}
		next, ok := byID[cur.ParentID]
		if !ok {
			break
		}
		cur = next
	}

	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items, true
}

// Derive returns the child ids of every comment computed from ParentID,
// in chronological order. Comments without replies are absent from the map.
func Derive(comments []model.Comment) map[string][]string {
	byID := make(map[string]bool, len(comments))
	for _, c := range comments {
		byID[c.ID] = true
	}

	idx := make([]int, 0, len(comments))
	for i := range comments {
		idx = append(idx, i)
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return earlier(comments[idx[a]], comments[idx[b]])
	})

	out := make(map[string][]string)
	for _, i := range idx {
		c := comments[i]
		if c.ParentID == "" || c.ParentID == c.ID || !byID[c.ParentID] {
			continue
		}
		out[c.ParentID] = append(out[c.ParentID], c.ID)
	}
	return out
}

// cycleHeads follows parent links from every unvisited node. A chain that
// returns to a node on the same chain has closed a cycle; its oldest member is
// reported. Nodes that merely descend from a cycle are never reported.
func cycleHeads(views []model.CommentView, parent []int, visited []bool) []int {
	const (
		fresh = iota
		onPath
		done
	)
	state := make([]int8, len(parent))
	var heads []int

	for i := range parent {
		if visited[i] || state[i] != fresh {
			continue
		}
		var path []int
		j := i
		for j >= 0 && !visited[j] && state[j] == fresh {
			state[j] = onPath
			path = append(path, j)
			j = parent[j]
		}
		if j >= 0 && state[j] == onPath {
			head := j
			for k := len(path) - 1; path[k] != j; k-- {
				if earlier(views[path[k]].Comment, views[head].Comment) {
					head = path[k]
				}
			}
			heads = append(heads, head)
		}
		for _, k := range path {
			state[k] = done
		}
	}

	sortChronological(views, heads)
	return heads
}

func earlier(a, b model.Comment) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func sortChronological(views []model.CommentView, idx []int) {
	sort.SliceStable(idx, func(i, j int) bool {
		return earlier(views[idx[i]].Comment, views[idx[j]].Comment)
	})
}

func sortNewestFirst(views []model.CommentView, idx []int) {
	sort.SliceStable(idx, func(i, j int) bool {
		a, b := views[idx[i]].Comment, views[idx[j]].Comment
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}
