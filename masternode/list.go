package masternode

import (
	"sort"
	"sync"

	"github.com/mezonai/mnlight/common"
	mnerrors "github.com/mezonai/mnlight/errors"
	"github.com/mezonai/mnlight/merkle"
)

// List is an immutable masternode list snapshot at one block.
type List struct {
	height    uint32
	blockHash common.Hash
	byID      map[common.Hash]Entry
	sorted    []Entry

	rootOnce sync.Once
	root     common.Hash
}

// BuildList validates uniqueness and sorts entries by registration txid, compared as
// unsigned bytes of the internal representation.
func BuildList(height uint32, blockHash common.Hash, entries []Entry) (*List, error) {
	byID := make(map[common.Hash]Entry, len(entries))
	for _, e := range entries {
		if _, ok := byID[e.RegistrationTxID]; ok {
			return nil, newDuplicateEntryError(e.RegistrationTxID)
		}
		byID[e.RegistrationTxID] = e
	}
	sorted := make([]Entry, 0, len(byID))
	for _, e := range byID {
		sorted = append(sorted, e)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].RegistrationTxID.Compare(sorted[j].RegistrationTxID) < 0
	})
	return &List{
		height:    height,
		blockHash: blockHash,
		byID:      byID,
		sorted:    sorted,
	}, nil
}

// EmptyList is the list before any masternode is registered.
func EmptyList(height uint32, blockHash common.Hash) *List {
	l, _ := BuildList(height, blockHash, nil)
	return l
}

func (l *List) Height() uint32 {
	return l.height
}

func (l *List) BlockHash() common.Hash {
	return l.blockHash
}

// MerkleRoot commits to the entry set. Computed once.
func (l *List) MerkleRoot() common.Hash {
	l.rootOnce.Do(func() {
		leaves := make([]common.Hash, len(l.sorted))
		for i := range l.sorted {
			leaves[i] = l.sorted[i].Hash()
		}
		l.root = merkle.ComputeRoot(leaves)
	})
	return l.root
}

// VerifyAgainst reports whether the list hashes to expected.
func (l *List) VerifyAgainst(expected common.Hash) bool {
	return l.MerkleRoot() == expected
}

// Get returns the entry registered by txid.
func (l *List) Get(txid common.Hash) (Entry, bool) {
	e, ok := l.byID[txid]
	return e, ok
}

// Entries returns a copy of all entries in canonical order.
func (l *List) Entries() []Entry {
	out := make([]Entry, len(l.sorted))
	copy(out, l.sorted)
	return out
}

// ValidEntries returns the entries that are not flagged invalid, in canonical order.
func (l *List) ValidEntries() []Entry {
	out := make([]Entry, 0, len(l.sorted))
	for _, e := range l.sorted {
		if e.IsValid {
			out = append(out, e)
		}
	}
	return out
}

func (l *List) Size() int {
	return len(l.sorted)
}

func (l *List) ValidCount() int {
	n := 0
	for _, e := range l.sorted {
		if e.IsValid {
			n++
		}
	}
	return n
}

// Apply builds the list that results from applying d on top of l.
func (l *List) Apply(d *Diff, height uint32, blockHash common.Hash) (*List, error) {
	next := make(map[common.Hash]Entry, len(l.byID)+len(d.Added))
	for id, e := range l.byID {
		next[id] = e
	}
	for _, id := range d.Removed {
		if _, ok := next[id]; !ok {
			return nil, newVerificationError(mnerrors.ErrCodeUnknownEntry, "cannot remove unknown masternode %s", id)
		}
		delete(next, id)
	}
	for _, e := range d.Updated {
		if _, ok := next[e.RegistrationTxID]; !ok {
			return nil, newVerificationError(mnerrors.ErrCodeUnknownEntry, "cannot update unknown masternode %s", e.RegistrationTxID)
		}
		next[e.RegistrationTxID] = e
	}
	for _, e := range d.Added {
		if _, ok := next[e.RegistrationTxID]; ok {
			return nil, newDuplicateEntryError(e.RegistrationTxID)
		}
		next[e.RegistrationTxID] = e
	}
	entries := make([]Entry, 0, len(next))
	for _, e := range next {
		entries = append(entries, e)
	}
	return BuildList(height, blockHash, entries)
}
