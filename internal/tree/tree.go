// Package tree builds a rooted category tree out of the flat,
// parent-referencing category list the remote API returns.
package tree

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/lorebridge/lorebridge/internal/remote"
)

// Sentinel category ids. Both nodes exist in every tree regardless of
// remote data, so every article resolves to exactly one node.
const (
	RootID          = "__root__"
	UncategorizedID = "__uncategorized__"
)

// maxDepth bounds the recursive partition. The category graph is supposed
// to be a tree; parent chains deeper than this mean malformed remote data.
const maxDepth = 1000

// ConsistencyError means the remote category data violated a structural
// invariant badly enough that the tree could not be built.
type ConsistencyError struct {
	Reason string
}

func (e *ConsistencyError) Error() string {
	return "tree: inconsistent category data: " + e.Reason
}

// Node is one category in the built tree. Children are ordered.
type Node struct {
	ID       string
	Title    string
	Position *float64
	ParentID string
	Children []*Node
}

// Root reports whether this is the synthetic root node.
func (n *Node) Root() bool { return n.ID == RootID }

// Tree is the populated root plus a flat id lookup over every node.
type Tree struct {
	Root  *Node
	Index map[string]*Node
}

// Build converts a flat category list into a rooted tree. Every input
// category appears in the result exactly once: categories whose parent
// chain cannot be resolved (dangling reference, cycle) are warned about
// and attached directly under the root. The synthetic uncategorized node
// is always the root's last child.
func Build(categories []remote.Category) (*Tree, error) {
	root := &Node{ID: RootID, Title: "Root"}
	uncategorized := &Node{ID: UncategorizedID, Title: "Uncategorized", ParentID: RootID}

	index := map[string]*Node{
		RootID:          root,
		UncategorizedID: uncategorized,
	}

	pool := make([]*Node, 0, len(categories))
	for _, c := range categories {
		if _, exists := index[c.ID]; exists {
			log.Printf("tree: duplicate category id %q, keeping first occurrence", c.ID)
			continue
		}
		n := &Node{ID: c.ID, Title: c.Title, Position: c.Position, ParentID: RootID}
		if c.Parent != nil && c.Parent.ID != "" {
			n.ParentID = c.Parent.ID
		}
		index[n.ID] = n
		pool = append(pool, n)
	}

	rest, err := attach(root, pool, 0)
	if err != nil {
		return nil, err
	}

	// Whatever is left points at a parent that never resolved. Keep the
	// nodes rather than dropping them: reparent under root.
	sortSiblings(rest)
	for _, n := range rest {
		log.Printf("tree: category %q (%s) has unresolvable parent %q, attaching under root", n.Title, n.ID, n.ParentID)
		n.ParentID = RootID
		root.Children = append(root.Children, n)
	}

	root.Children = append(root.Children, uncategorized)

	return &Tree{Root: root, Index: index}, nil
}

// attach recursively partitions pool into direct children of parent and
// everything else, returning the unplaced remainder.
func attach(parent *Node, pool []*Node, depth int) ([]*Node, error) {
	if depth > maxDepth {
		return nil, &ConsistencyError{
			Reason: fmt.Sprintf("category nesting exceeds %d levels under %q (cyclic parent chain?)", maxDepth, parent.ID),
		}
	}

	var children, rest []*Node
	for _, n := range pool {
		if n.ParentID == parent.ID {
			children = append(children, n)
		} else {
			rest = append(rest, n)
		}
	}

	sortSiblings(children)
	for _, child := range children {
		parent.Children = append(parent.Children, child)
		var err error
		rest, err = attach(child, rest, depth+1)
		if err != nil {
			return nil, err
		}
	}
	return rest, nil
}

// sortSiblings orders nodes by numeric position when both carry one,
// falling back to case-insensitive title, with the raw title as the
// final tie-breaker. The order is total, so builds are deterministic.
func sortSiblings(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if a.Position != nil && b.Position != nil && *a.Position != *b.Position {
			return *a.Position < *b.Position
		}
		at, bt := strings.ToLower(a.Title), strings.ToLower(b.Title)
		if at != bt {
			return at < bt
		}
		return a.Title < b.Title
	})
}

// Resolve maps a category id onto its node, falling back to the
// uncategorized node for empty or unknown ids.
func (t *Tree) Resolve(categoryID string) *Node {
	if categoryID != "" {
		if n, ok := t.Index[categoryID]; ok {
			return n
		}
	}
	return t.Index[UncategorizedID]
}

// Walk visits node and its descendants depth-first, parents before
// children.
func Walk(node *Node, visit func(*Node)) {
	visit(node)
	for _, child := range node.Children {
		Walk(child, visit)
	}
}

// Count returns the number of nodes in the tree, sentinels included.
func (t *Tree) Count() int {
	n := 0
	Walk(t.Root, func(*Node) { n++ })
	return n
}
