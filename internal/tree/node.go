package tree

import (
	"bytes"
	"cmp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Node is one element of a forest. Title and CreatedAt are ordering keys;
// which one matters depends on the forest's Order. Left, Right and Depth
// are owned by the forest and overwritten on every renumbering.
type Node struct {
	ID        uuid.UUID
	ParentID  *uuid.UUID
	Title     string
	CreatedAt time.Time
	Seq       int64

	Left  int
	Right int
	Depth int
}

// Bounds returns the node's nested-set interval.
func (n Node) Bounds() Bounds {
	return Bounds{Left: n.Left, Right: n.Right}
}

// Bounds is a nested-set interval.
type Bounds struct {
	Left  int
	Right int
}

// Contains reports whether other lies strictly inside b, i.e. whether the
// node owning other is a descendant of the node owning b.
func (b Bounds) Contains(other Bounds) bool {
	return b.Left < other.Left && other.Right < b.Right
}

// Size returns the number of nodes in the subtree the interval spans.
func (b Bounds) Size() int {
	return (b.Right - b.Left + 1) / 2
}

// Order compares two siblings and returns a negative number when a sorts
// before b, zero when their keys are equal and a positive number otherwise.
type Order func(a, b *Node) int

// ByTitle orders siblings alphabetically by title.
func ByTitle(a, b *Node) int {
	return strings.Compare(a.Title, b.Title)
}

// ByNewest orders siblings by creation time, most recent first.
func ByNewest(a, b *Node) int {
	return b.CreatedAt.Compare(a.CreatedAt)
}

// compareSiblings applies order and breaks ties by Seq, then ID.
func compareSiblings(order Order, a, b *Node) int {
	if c := order(a, b); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Seq, b.Seq); c != 0 {
		return c
	}
	return bytes.Compare(a.ID[:], b.ID[:])
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
