package masternode

import (
	"context"
	"fmt"
	"sync"

	"github.com/mezonai/mnlight/common"
)

// Diff transforms the list at BaseBlockHash into the list at BlockHash.
type Diff struct {
	BaseBlockHash common.Hash   `json:"baseBlockHash"`
	BlockHash     common.Hash   `json:"blockHash"`
	Added         []Entry       `json:"added,omitempty"`
	Removed       []common.Hash `json:"removed,omitempty"`
	Updated       []Entry       `json:"updated,omitempty"`
}

func (d *Diff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Updated) == 0
}

func (d *Diff) String() string {
	return fmt.Sprintf("diff %s -> %s (+%d -%d ~%d)",
		d.BaseBlockHash, d.BlockHash, len(d.Added), len(d.Removed), len(d.Updated))
}

// DiffSource supplies the masternode list diff associated with an accepted block.
// A nil diff with nil error means the block changes nothing.
type DiffSource interface {
	DiffForBlock(ctx context.Context, blockHash common.Hash) (*Diff, error)
}

// MemoryDiffSource serves diffs registered ahead of time, keyed by block hash.
type MemoryDiffSource struct {
	mu    sync.RWMutex
	diffs map[common.Hash]*Diff
}

func NewMemoryDiffSource() *MemoryDiffSource {
	return &MemoryDiffSource{diffs: make(map[common.Hash]*Diff)}
}

// Add registers d under d.BlockHash, replacing any earlier diff for that block.
func (s *MemoryDiffSource) Add(d *Diff) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diffs[d.BlockHash] = d
}

func (s *MemoryDiffSource) DiffForBlock(ctx context.Context, blockHash common.Hash) (*Diff, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.diffs[blockHash], nil
}

func (s *MemoryDiffSource) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.diffs)
}
