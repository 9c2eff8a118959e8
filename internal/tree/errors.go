// Package tree maintains ordered forests with nested-set numbering.
//
// A Forest assigns every node a [Left, Right] interval such that a node's
// descendants are exactly the nodes whose intervals it strictly contains.
// Subtree membership and ancestry therefore reduce to integer comparisons,
// and the same bounds can be stored next to each row so SQL can answer
// "everything under X" with a single range predicate.
//
// # Ordering
//
// Siblings are kept in the order given by an Order function. Equal keys
// fall back to Seq (insertion order) and then to the ID, so numbering is a
// deterministic function of the node set.
//
// # Thread Safety
//
// Forest is not safe for concurrent use. Persistent stores build one per
// transaction, after taking the lock that scopes the forest.
package tree

import "errors"

// Sentinel errors for forest operations.
var (
	// ErrCycle is returned when a mutation would make a node its own
	// ancestor, including parenting a node to itself.
	ErrCycle = errors.New("tree cycle")

	// ErrNotEmpty is returned when a non-cascading delete targets a node
	// that still has children.
	ErrNotEmpty = errors.New("tree node has children")

	// ErrNodeNotFound is returned when an operation names a node, or a
	// parent, that is not in the forest.
	ErrNodeNotFound = errors.New("tree node not found")

	// ErrDuplicateNode is returned when inserting an ID that already exists.
	ErrDuplicateNode = errors.New("duplicate tree node")
)
