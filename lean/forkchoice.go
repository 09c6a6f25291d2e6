package lean

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
)

var (
	errNoBlocks       = errors.New("no blocks found to calculate fork choice")
	errBlockNotFound  = errors.New("block not found")
)

// GetLatestJustifiedHash returns the justified-hash of whichever of the
// given post-states has the highest justified slot, used to pick the
// fork-choice root when a validator has multiple candidate chain tips.
func GetLatestJustifiedHash(postStates map[[32]byte]*State) ([32]byte, bool) {
	var best *State
	var bestRoot [32]byte
	for root, st := range postStates {
		if best == nil || st.LatestJustifiedSlot > best.LatestJustifiedSlot {
			best = st
			bestRoot = st.LatestJustifiedHash
			_ = root
		}
	}
	if best == nil {
		return [32]byte{}, false
	}
	return bestRoot, true
}

// GetForkChoiceHead runs LMD-GHOST over the lean chain's minimal block
// DAG starting from root (usually the latest justified hash, or genesis
// if root is the zero hash): every validator's latest vote counts as a
// vote for its head block and every ancestor of that block back to root;
// children with fewer than minScore votes are pruned before descending
// (§3, original_source lib.rs get_fork_choice_head).
func GetForkChoiceHead(blocks map[[32]byte]*Block, root [32]byte, votes []Vote, minScore uint64) ([32]byte, error) {
	if root == ([32]byte{}) {
		var earliest [32]byte
		found := false
		var earliestSlot primitives.Slot
		for hash, b := range blocks {
			if !found || b.Slot < earliestSlot {
				earliest = hash
				earliestSlot = b.Slot
				found = true
			}
		}
		if !found {
			return [32]byte{}, errNoBlocks
		}
		root = earliest
	}

	sorted := append([]Vote(nil), votes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Slot < sorted[j].Slot })

	latestVotes := make(map[primitives.ValidatorIndex]Vote, len(sorted))
	for _, v := range sorted {
		latestVotes[v.ValidatorIndex] = v
	}

	rootBlock, ok := blocks[root]
	if !ok {
		return [32]byte{}, errors.Wrapf(errBlockNotFound, "root %x", root)
	}

	voteWeights := make(map[[32]byte]uint64)
	for _, v := range latestVotes {
		if _, ok := blocks[v.Head.Root]; !ok {
			continue
		}
		hash := v.Head.Root
		for {
			cur, ok := blocks[hash]
			if !ok {
				return [32]byte{}, errors.Wrapf(errBlockNotFound, "vote head ancestor %x", hash)
			}
			if cur.Slot <= rootBlock.Slot {
				break
			}
			voteWeights[hash]++
			hash = cur.ParentRoot
		}
	}

	children := make(map[[32]byte][][32]byte)
	for hash, b := range blocks {
		if b.ParentRoot == ([32]byte{}) {
			continue
		}
		if voteWeights[hash] >= minScore {
			children[b.ParentRoot] = append(children[b.ParentRoot], hash)
		}
	}

	current := root
	for {
		kids, ok := children[current]
		if !ok || len(kids) == 0 {
			return current, nil
		}
		best := kids[0]
		for _, k := range kids[1:] {
			if isBetterLeanHead(k, best, blocks, voteWeights) {
				best = k
			}
		}
		current = best
	}
}

func isBetterLeanHead(a, b [32]byte, blocks map[[32]byte]*Block, weights map[[32]byte]uint64) bool {
	wa, wb := weights[a], weights[b]
	if wa != wb {
		return wa > wb
	}
	sa, sb := blocks[a].Slot, blocks[b].Slot
	if sa != sb {
		return sa > sb
	}
	return bytesGreater(a[:], b[:])
}

func bytesGreater(a, b []byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return false
}
