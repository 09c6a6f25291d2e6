// Package doublylinkedtree implements the fork-choice store (C4, §4.4) as a
// doubly-linked tree of Nodes: each node points at its parent and its
// children, so get_head and the weight recomputation walk real pointers
// instead of re-deriving adjacency from a flat array on every call (the
// approach the teacher's older protoarray implementation used). This is
// the teacher's newer, canonical generation — see DESIGN.md for why the
// older one is not carried forward (spec.md §9 Open Question a).
package doublylinkedtree

import (
	"context"

	"github.com/pkg/errors"
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
)

// Node is one block in the fork-choice tree.
type Node struct {
	slot           primitives.Slot
	root           [32]byte
	payloadHash    [32]byte
	parent         *Node
	children       []*Node
	weight         uint64 // cumulative effective balance of this node and all descendants
	balance        uint64 // effective balance attributable to this node alone
	bestDescendant *Node  // deepest descendant with maximal (weight, slot, root)
	justifiedEpoch primitives.Epoch
	finalizedEpoch primitives.Epoch
	// unrealizedJustifiedEpoch/unrealizedFinalizedEpoch are the checkpoints
	// that would become realized if an epoch boundary were crossed at this
	// block's post-state (§4.4 step 5, filter_block_tree).
	unrealizedJustifiedEpoch primitives.Epoch
	unrealizedFinalizedEpoch primitives.Epoch
	timestamp                uint64 // on_tick time the node became known to the store
	timely                   bool   // block_timeliness flag, §3 invariant
}

var errInvalidBestDescendant = errors.New("invalid best descendant index")

// applyWeightChanges recomputes weight bottom-up: a node's weight is its own
// attributable balance plus the weight of every descendant. Matches
// TestNode_ApplyWeightChanges_{Positive,Negative}Change in the teacher's
// node_test.go: set raw balances on every node then call this once on the
// tree root to derive cumulative weights.
func (n *Node) applyWeightChanges(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	childrenWeight := uint64(0)
	for _, child := range n.children {
		if err := child.applyWeightChanges(ctx); err != nil {
			return err
		}
		childrenWeight += child.weight
	}
	n.weight = n.balance + childrenWeight
	return nil
}

// updateBestDescendant recomputes n.bestDescendant given the store's current
// justified/finalized epochs (children that are no longer viable for head
// are skipped; among viable children the heaviest wins, root-bytes
// descending breaks ties on exact weight equality).
func (n *Node) updateBestDescendant(ctx context.Context, justifiedEpoch, finalizedEpoch, currentEpoch primitives.Epoch) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if len(n.children) == 0 {
		n.bestDescendant = nil
		return nil
	}

	var bestChild *Node
	var bestDescendant *Node
	for _, child := range n.children {
		if err := child.updateBestDescendant(ctx, justifiedEpoch, finalizedEpoch, currentEpoch); err != nil {
			return err
		}
		if !child.viableForHead(justifiedEpoch, finalizedEpoch) {
			continue
		}
		descendant := child
		if child.bestDescendant != nil {
			descendant = child.bestDescendant
		}
		if bestChild == nil {
			bestChild = child
			bestDescendant = descendant
			continue
		}
		if isBetter(descendant, bestDescendant) {
			bestChild = child
			bestDescendant = descendant
		}
	}
	_ = bestChild
	n.bestDescendant = bestDescendant
	return nil
}

// isBetter reports whether a should replace b as the head candidate, per
// §4.4: "(weight, slot, root-bytes descending)".
func isBetter(a, b *Node) bool {
	if a.weight != b.weight {
		return a.weight > b.weight
	}
	if a.slot != b.slot {
		return a.slot > b.slot
	}
	return bytesGreater(a.root[:], b.root[:])
}

func bytesGreater(a, b []byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return false
}

// viableForHead implements the filtered-block-tree admission rule of §4.4:
// a node is a head candidate only if its unrealized-justified checkpoint is
// at least as recent as the store's justified checkpoint, or it sits at the
// justified epoch itself (genesis / the justified block is always viable).
func (n *Node) viableForHead(justifiedEpoch, finalizedEpoch primitives.Epoch) bool {
	justified := justifiedEpoch == 0 || n.unrealizedJustifiedEpoch >= justifiedEpoch
	finalized := finalizedEpoch == 0 || n.unrealizedFinalizedEpoch == finalizedEpoch || n.unrealizedFinalizedEpoch >= finalizedEpoch
	return justified && finalized
}

// depthFirstWalk visits n and all its descendants, used by pruning and
// debugging accessors.
func (n *Node) depthFirstWalk(visit func(*Node) bool) {
	if !visit(n) {
		return
	}
	for _, c := range n.children {
		c.depthFirstWalk(visit)
	}
}
