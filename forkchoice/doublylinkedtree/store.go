package doublylinkedtree

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
	fctypes "github.com/syjn99/ream-sub001/forkchoice/types"
)

var (
	errUnknownJustifiedRoot = errors.New("unknown justified root")
	errUnknownNilNode       = errors.New("nil node")
	errInvalidUnrealizedJustifiedEpoch = errors.New("invalid unrealized justified epoch")
	errParentNotFound       = errors.New("parent not found in fork choice store")
	errInvalidTimestamp     = errors.New("invalid timestamp")
)

// Store is the fork-choice state of §3: the tree itself plus the
// checkpoints, proposer-boost root, and per-root unrealized-justification
// cache that on_tick/on_block/get_head read and mutate. All mutation runs
// under nodesLock; the chain service additionally serializes callers so
// contention here is uncontended in the common case (§5).
type Store struct {
	nodesLock sync.RWMutex

	treeRootNode *Node
	nodeByRoot   map[[32]byte]*Node
	nodeByPayload map[[32]byte]*Node

	justifiedCheckpoint  *fctypes.Checkpoint
	finalizedCheckpoint  *fctypes.Checkpoint
	unrealizedJustifiedCheckpoint *fctypes.Checkpoint
	unrealizedFinalizedCheckpoint *fctypes.Checkpoint

	proposerBoostRoot [32]byte
	previousProposerBoostRoot  [32]byte
	previousProposerBoostScore uint64

	genesisTime    uint64
	genesisTimeSet bool
	currentSlot    primitives.Slot
	highestReceivedNode *Node

	equivocatingIndices map[primitives.ValidatorIndex]bool
}

func newStore(justifiedEpoch, finalizedEpoch primitives.Epoch) *Store {
	return &Store{
		nodeByRoot:    make(map[[32]byte]*Node),
		nodeByPayload: make(map[[32]byte]*Node),
		justifiedCheckpoint: &fctypes.Checkpoint{Epoch: justifiedEpoch},
		finalizedCheckpoint: &fctypes.Checkpoint{Epoch: finalizedEpoch},
		unrealizedJustifiedCheckpoint: &fctypes.Checkpoint{Epoch: justifiedEpoch},
		unrealizedFinalizedCheckpoint: &fctypes.Checkpoint{Epoch: finalizedEpoch},
		equivocatingIndices: make(map[primitives.ValidatorIndex]bool),
		highestReceivedNode: &Node{},
	}
}

// insert adds a new node to the tree with parent looked up by root. The
// first node inserted into an empty store becomes the tree root with no
// parent (§3 invariant: "Every stored block's parent is already stored" —
// the tree root is the one exception, it is the checkpoint state fork
// choice was seeded from).
func (s *Store) insert(
	ctx context.Context,
	slot primitives.Slot,
	root, parentRoot, payloadHash [32]byte,
	justifiedEpoch, finalizedEpoch primitives.Epoch,
) (*Node, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	s.nodesLock.Lock()
	defer s.nodesLock.Unlock()

	if n, ok := s.nodeByRoot[root]; ok {
		return n, nil
	}

	n := &Node{
		slot:                     slot,
		root:                     root,
		payloadHash:              payloadHash,
		justifiedEpoch:           justifiedEpoch,
		finalizedEpoch:           finalizedEpoch,
		unrealizedJustifiedEpoch: justifiedEpoch,
		unrealizedFinalizedEpoch: finalizedEpoch,
	}

	parent, hasParent := s.nodeByRoot[parentRoot]
	if hasParent {
		n.parent = parent
		parent.children = append(parent.children, n)
	} else if s.treeRootNode == nil {
		// Seeding the tree: this node has no known parent and none is
		// expected yet.
	} else {
		return nil, errParentNotFound
	}

	s.nodeByRoot[root] = n
	s.nodeByPayload[payloadHash] = n
	if s.treeRootNode == nil {
		s.treeRootNode = n
	}
	if n.slot >= s.highestReceivedNode.slot {
		s.highestReceivedNode = n
	}

	return n, nil
}

// node returns the node for root, or nil if unknown. Caller must hold
// nodesLock (or a read lock) as appropriate.
func (s *Store) node(root [32]byte) *Node {
	return s.nodeByRoot[root]
}

// head implements get_head of §4.4: starting at the justified checkpoint's
// root, descend into the cached best descendant. If the justified root is
// unknown to the store that is a caller bug — every checkpoint the store
// adopts must already be inserted.
func (s *Store) head(ctx context.Context) ([32]byte, error) {
	s.nodesLock.RLock()
	defer s.nodesLock.RUnlock()

	jRoot := s.justifiedCheckpoint.Root
	justifiedNode, ok := s.nodeByRoot[jRoot]
	if !ok {
		if s.treeRootNode != nil && jRoot == [32]byte{} {
			justifiedNode = s.treeRootNode
		} else {
			return [32]byte{}, errUnknownJustifiedRoot
		}
	}

	if err := s.treeRootNode.updateBestDescendant(ctx, s.justifiedCheckpoint.Epoch, s.finalizedCheckpoint.Epoch, s.currentSlot.ToEpoch()); err != nil {
		return [32]byte{}, err
	}

	best := justifiedNode.bestDescendant
	if best == nil {
		best = justifiedNode
	}
	return best.root, nil
}

// weight returns the cumulative attester-balance weight of root's subtree.
func (s *Store) weight(root [32]byte) (uint64, error) {
	s.nodesLock.RLock()
	defer s.nodesLock.RUnlock()
	n, ok := s.nodeByRoot[root]
	if !ok {
		return 0, errUnknownNilNode
	}
	return n.weight, nil
}

// isCanonical reports whether root is an ancestor of the current head, used
// by the HTTP layer's execution_optimistic/finalized flags (§6).
func (s *Store) isCanonical(ctx context.Context, root [32]byte) bool {
	s.nodesLock.RLock()
	defer s.nodesLock.RUnlock()
	head := s.treeRootNode
	if head == nil {
		return false
	}
	for head.bestDescendant != nil {
		head = head.bestDescendant
	}
	n := s.nodeByRoot[root]
	if n == nil {
		return false
	}
	for cur := head; cur != nil; cur = cur.parent {
		if cur.root == root {
			return true
		}
	}
	return false
}
