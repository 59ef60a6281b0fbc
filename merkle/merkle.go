// Package merkle builds Bitcoin-style Merkle trees over ordered 32-byte leaves.
//
// Interior nodes are the double SHA-256 of the two children concatenated. When a
// level has an odd number of nodes the last one is paired with itself. The rule is
// part of the wire protocol: peers recompute roots from the same leaves and must
// arrive at identical bytes.
package merkle

import (
	"fmt"

	"github.com/mezonai/mnlight/common"
)

// ComputeRoot returns the Merkle root of leaves. An empty input yields the zero hash
// and a single leaf is its own root.
func ComputeRoot(leaves []common.Hash) common.Hash {
	if len(leaves) == 0 {
		return common.ZeroHash
	}

	level := make([]common.Hash, len(leaves))
	copy(level, leaves)
	for len(level) > 1 {
		level = nextLevel(level)
	}
	return level[0]
}

// Branch returns the sibling hashes needed to recompute the root from leaves[index],
// ordered from the leaf level upwards.
func Branch(leaves []common.Hash, index int) ([]common.Hash, error) {
	if index < 0 || index >= len(leaves) {
		return nil, fmt.Errorf("leaf index %d out of range [0,%d)", index, len(leaves))
	}

	level := make([]common.Hash, len(leaves))
	copy(level, leaves)

	var branch []common.Hash
	for len(level) > 1 {
		sibling := index ^ 1
		if sibling >= len(level) {
			sibling = index
		}
		branch = append(branch, level[sibling])
		level = nextLevel(level)
		index /= 2
	}
	return branch, nil
}

// VerifyBranch folds branch into leaf and reports whether the result equals root.
func VerifyBranch(leaf common.Hash, index int, branch []common.Hash, root common.Hash) bool {
	if index < 0 {
		return false
	}
	cur := leaf
	for _, sibling := range branch {
		if index&1 == 1 {
			cur = hashPair(sibling, cur)
		} else {
			cur = hashPair(cur, sibling)
		}
		index >>= 1
	}
	return index == 0 && cur == root
}

func nextLevel(level []common.Hash) []common.Hash {
	next := make([]common.Hash, 0, (len(level)+1)/2)
	for i := 0; i < len(level); i += 2 {
		right := level[i]
		if i+1 < len(level) {
			right = level[i+1]
		}
		next = append(next, hashPair(level[i], right))
	}
	return next
}

func hashPair(left, right common.Hash) common.Hash {
	return common.DoubleSHA256(left[:], right[:])
}
