package tree

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// Forest is an ordered collection of trees with nested-set numbering.
// Every mutation renumbers the whole forest, so bounds are always
// consistent with the parent links.
type Forest struct {
	order    Order
	nodes    map[uuid.UUID]*Node
	roots    []*Node
	children map[uuid.UUID][]*Node
}

// New builds a forest from nodes in any order. Every ParentID must name a
// node in the set and the parent links must be acyclic.
func New(order Order, nodes []Node) (*Forest, error) {
	f := &Forest{
		order:    order,
		nodes:    make(map[uuid.UUID]*Node, len(nodes)),
		children: make(map[uuid.UUID][]*Node),
	}

	for i := range nodes {
		n := clone(&nodes[i])
		if _, dup := f.nodes[n.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
		}
		f.nodes[n.ID] = &n
	}

	for _, n := range f.nodes {
		if n.ParentID == nil {
			f.roots = append(f.roots, n)
			continue
		}
		if *n.ParentID == n.ID {
			return nil, fmt.Errorf("%w: %s is its own parent", ErrCycle, n.ID)
		}
		if _, ok := f.nodes[*n.ParentID]; !ok {
			return nil, fmt.Errorf("%w: parent %s of %s", ErrNodeNotFound, *n.ParentID, n.ID)
		}
		f.children[*n.ParentID] = append(f.children[*n.ParentID], n)
	}

	f.sort(f.roots)
	for _, kids := range f.children {
		f.sort(kids)
	}

	// Nodes on a cycle are unreachable from any root.
	if visited := f.renumber(); visited != len(f.nodes) {
		return nil, fmt.Errorf("%w: %d of %d nodes unreachable from a root",
			ErrCycle, len(f.nodes)-visited, len(f.nodes))
	}
	return f, nil
}

// Node returns a copy of the node with the given ID.
func (f *Forest) Node(id uuid.UUID) (Node, bool) {
	n, ok := f.nodes[id]
	if !ok {
		return Node{}, false
	}
	return clone(n), true
}

// Nodes returns every node in preorder (ascending Left).
func (f *Forest) Nodes() []Node {
	out := make([]Node, 0, len(f.nodes))
	for _, n := range f.nodes {
		out = append(out, clone(n))
	}
	slices.SortFunc(out, func(a, b Node) int { return a.Left - b.Left })
	return out
}

// Children returns the direct children of parent in sibling order. A nil
// parent returns the roots.
func (f *Forest) Children(parent *uuid.UUID) ([]Node, error) {
	var kids []*Node
	if parent == nil {
		kids = f.roots
	} else {
		if _, ok := f.nodes[*parent]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, *parent)
		}
		kids = f.children[*parent]
	}
	out := make([]Node, len(kids))
	for i, n := range kids {
		out[i] = clone(n)
	}
	return out, nil
}

// Subtree returns id and all of its descendants in preorder.
func (f *Forest) Subtree(id uuid.UUID) ([]Node, error) {
	root, ok := f.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	out := make([]Node, 0, root.Bounds().Size())
	for _, n := range f.nodes {
		if n.Left >= root.Left && n.Right <= root.Right {
			out = append(out, clone(n))
		}
	}
	slices.SortFunc(out, func(a, b Node) int { return a.Left - b.Left })
	return out, nil
}

// IsDescendant reports whether id lies strictly below ancestor. A node is
// never its own descendant.
func (f *Forest) IsDescendant(id, ancestor uuid.UUID) (bool, error) {
	n, ok := f.nodes[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	a, ok := f.nodes[ancestor]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNodeNotFound, ancestor)
	}
	return a.Bounds().Contains(n.Bounds()), nil
}

// Depth returns the number of ancestors of id. Roots have depth 0.
func (f *Forest) Depth(id uuid.UUID) (int, error) {
	n, ok := f.nodes[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return n.Depth, nil
}

// Path returns the nodes from the root of id's tree down to id itself.
func (f *Forest) Path(id uuid.UUID) ([]Node, error) {
	n, ok := f.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	path := make([]Node, 0, n.Depth+1)
	for cur := n; cur != nil; {
		path = append(path, clone(cur))
		if cur.ParentID == nil {
			break
		}
		cur = f.nodes[*cur.ParentID]
	}
	slices.Reverse(path)
	return path, nil
}

// Insert adds n under n.ParentID (or as a root) at its sibling position and
// returns it with fresh bounds.
func (f *Forest) Insert(n Node) (Node, error) {
	if _, dup := f.nodes[n.ID]; dup {
		return Node{}, fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
	}
	if n.ParentID != nil {
		if *n.ParentID == n.ID {
			return Node{}, fmt.Errorf("%w: %s is its own parent", ErrCycle, n.ID)
		}
		if _, ok := f.nodes[*n.ParentID]; !ok {
			return Node{}, fmt.Errorf("%w: parent %s", ErrNodeNotFound, *n.ParentID)
		}
	}

	node := clone(&n)
	f.nodes[node.ID] = &node
	f.attach(&node)
	f.renumber()
	return clone(&node), nil
}

// Reparent moves id, with its whole subtree, under parent. A nil parent
// makes it a root. Moving a node below itself or below one of its own
// descendants fails with ErrCycle and leaves the forest untouched.
func (f *Forest) Reparent(id uuid.UUID, parent *uuid.UUID) error {
	n, ok := f.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if parent != nil {
		if *parent == id {
			return fmt.Errorf("%w: %s cannot be its own parent", ErrCycle, id)
		}
		p, ok := f.nodes[*parent]
		if !ok {
			return fmt.Errorf("%w: parent %s", ErrNodeNotFound, *parent)
		}
		if n.Bounds().Contains(p.Bounds()) {
			return fmt.Errorf("%w: %s is a descendant of %s", ErrCycle, *parent, id)
		}
	}
	if sameParent(n.ParentID, parent) {
		return nil
	}

	f.detach(n)
	if parent == nil {
		n.ParentID = nil
	} else {
		p := *parent
		n.ParentID = &p
	}
	f.attach(n)
	f.renumber()
	return nil
}

// Delete removes id. With cascade the whole subtree goes and is returned in
// preorder; without it a node that has children is refused with
// ErrNotEmpty.
func (f *Forest) Delete(id uuid.UUID, cascade bool) ([]Node, error) {
	n, ok := f.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if !cascade && len(f.children[id]) > 0 {
		return nil, fmt.Errorf("%w: %s has %d children", ErrNotEmpty, id, len(f.children[id]))
	}

	removed, err := f.Subtree(id)
	if err != nil {
		return nil, err
	}
	f.detach(n)
	for _, r := range removed {
		delete(f.nodes, r.ID)
		delete(f.children, r.ID)
	}
	f.renumber()
	return removed, nil
}

// attach inserts n into its parent's sibling list, keeping it sorted.
func (f *Forest) attach(n *Node) {
	if n.ParentID == nil {
		f.roots = append(f.roots, n)
		f.sort(f.roots)
		return
	}
	kids := append(f.children[*n.ParentID], n)
	f.sort(kids)
	f.children[*n.ParentID] = kids
}

// detach removes n from its parent's sibling list.
func (f *Forest) detach(n *Node) {
	drop := func(list []*Node) []*Node {
		return slices.DeleteFunc(list, func(x *Node) bool { return x.ID == n.ID })
	}
	if n.ParentID == nil {
		f.roots = drop(f.roots)
		return
	}
	kids := drop(f.children[*n.ParentID])
	if len(kids) == 0 {
		delete(f.children, *n.ParentID)
		return
	}
	f.children[*n.ParentID] = kids
}

func (f *Forest) sort(list []*Node) {
	slices.SortFunc(list, func(a, b *Node) int { return compareSiblings(f.order, a, b) })
}

// frame is a stack entry for the iterative numbering walk.
type frame struct {
	node *Node
	next int // index of the next child to visit
}

// renumber assigns Left/Right/Depth with an iterative depth-first walk over
// the roots in order and returns the number of nodes reached.
func (f *Forest) renumber() int {
	counter, visited := 0, 0
	stack := make([]frame, 0, 16)

	for _, root := range f.roots {
		counter++
		root.Left, root.Depth = counter, 0
		visited++
		stack = append(stack[:0], frame{node: root})

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			kids := f.children[top.node.ID]
			if top.next < len(kids) {
				child := kids[top.next]
				top.next++
				counter++
				child.Left, child.Depth = counter, top.node.Depth+1
				visited++
				stack = append(stack, frame{node: child})
				continue
			}
			counter++
			top.node.Right = counter
			stack = stack[:len(stack)-1]
		}
	}
	return visited
}

func clone(n *Node) Node {
	c := *n
	if n.ParentID != nil {
		p := *n.ParentID
		c.ParentID = &p
	}
	return c
}
