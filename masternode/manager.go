package masternode

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mezonai/mnlight/block"
	"github.com/mezonai/mnlight/blskey"
	"github.com/mezonai/mnlight/common"
	"github.com/mezonai/mnlight/config"
	mnerrors "github.com/mezonai/mnlight/errors"
	"github.com/mezonai/mnlight/events"
	"github.com/mezonai/mnlight/flatdb"
	"github.com/mezonai/mnlight/logx"
	"github.com/mezonai/mnlight/monitoring"
)

const (
	DefaultMagicMessage  = "MasternodeListManager"
	CurrentFormatVersion = byte(1)
)

type State int32

const (
	StateEmpty State = iota
	StateSynced
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateSynced:
		return "synced"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Manager owns the current masternode list and a bounded history of earlier lists.
// Writers are serialized; readers load the current list without locking.
type Manager struct {
	cfg   config.MasternodeConfig
	diffs DiffSource
	bus   *events.EventBus
	flat  *flatdb.FlatDB

	writeMu sync.Mutex
	current atomic.Pointer[List]

	histMu  sync.RWMutex
	history map[uint32]*List
}

// NewManager creates an empty manager. diffs and bus may be nil. A zero retention
// takes the default.
func NewManager(cfg config.MasternodeConfig, diffs DiffSource, bus *events.EventBus) *Manager {
	if cfg.Retention == 0 {
		cfg.Retention = config.DefaultMasternodeConfig().Retention
	}
	m := &Manager{
		cfg:     cfg,
		diffs:   diffs,
		bus:     bus,
		history: make(map[uint32]*List),
	}
	if cfg.SnapshotPath != "" {
		m.flat = flatdb.New(cfg.SnapshotPath)
	}
	return m
}

func (m *Manager) State() State {
	if m.current.Load() == nil {
		return StateEmpty
	}
	return StateSynced
}

// CurrentList returns the active list, or nil while empty.
func (m *Manager) CurrentList() *List {
	return m.current.Load()
}

// ListAtHeight returns a retained list.
func (m *Manager) ListAtHeight(height uint32) (*List, bool) {
	m.histMu.RLock()
	defer m.histMu.RUnlock()
	l, ok := m.history[height]
	return l, ok
}

// RetainedHeights lists the heights held in history, ascending.
func (m *Manager) RetainedHeights() []uint32 {
	m.histMu.RLock()
	defer m.histMu.RUnlock()
	return m.sortedHeightsLocked()
}

func (m *Manager) sortedHeightsLocked() []uint32 {
	heights := make([]uint32, 0, len(m.history))
	for h := range m.history {
		heights = append(heights, h)
	}
	sort.Slice(heights, func(i, j int) bool { return heights[i] < heights[j] })
	return heights
}

// Entry looks up an entry in the current list.
func (m *Manager) Entry(txid common.Hash) (Entry, bool) {
	l := m.current.Load()
	if l == nil {
		return Entry{}, false
	}
	return l.Get(txid)
}

// ValidEntries returns the valid entries of the current list.
func (m *Manager) ValidEntries() []Entry {
	l := m.current.Load()
	if l == nil {
		return nil
	}
	return l.ValidEntries()
}

// ApplyDiff applies diff on top of the list at baseHeight and installs the result at
// newHeight if it matches the commitment in header.
func (m *Manager) ApplyDiff(baseHeight uint32, diff *Diff, newHeight uint32, header *block.Header) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return m.applyLocked(baseHeight, diff, newHeight, header)
}

func (m *Manager) applyLocked(baseHeight uint32, diff *Diff, newHeight uint32, header *block.Header) error {
	if diff == nil {
		diff = &Diff{}
	}
	cur := m.current.Load()

	var base *List
	if cur == nil {
		if baseHeight != 0 {
			return newVerificationError(mnerrors.ErrCodeBaseMismatch,
				"manager is empty, diff must apply to height 0, got base height %d", baseHeight)
		}
		base = EmptyList(0, diff.BaseBlockHash)
	} else {
		if baseHeight != cur.Height() {
			return newVerificationError(mnerrors.ErrCodeBaseMismatch,
				"diff base height %d does not match current list height %d", baseHeight, cur.Height())
		}
		if !diff.BaseBlockHash.IsZero() && diff.BaseBlockHash != cur.BlockHash() {
			return newVerificationError(mnerrors.ErrCodeBaseMismatch,
				"diff base block %s does not match current list block %s", diff.BaseBlockHash, cur.BlockHash())
		}
		base = cur
	}
	if newHeight <= baseHeight {
		return newVerificationError(mnerrors.ErrCodeBaseMismatch,
			"diff target height %d is not above base height %d", newHeight, baseHeight)
	}

	blockHash := header.BlockHash()
	if !diff.BlockHash.IsZero() && diff.BlockHash != blockHash {
		return newVerificationError(mnerrors.ErrCodeBaseMismatch,
			"diff is for block %s, header is %s", diff.BlockHash, blockHash)
	}

	next, err := base.Apply(diff, newHeight, blockHash)
	if err != nil {
		return err
	}
	return m.verifyAndInstall(next, header.MasternodeListRoot)
}

func (m *Manager) verifyAndInstall(next *List, expected common.Hash) error {
	if !next.VerifyAgainst(expected) {
		actual := next.MerkleRoot()
		monitoring.IncreaseCommitmentMismatch()
		logx.Warn("MNLIST", fmt.Sprintf("rejecting list update | height=%d | block=%s | expected=%s | computed=%s",
			next.Height(), next.BlockHash(), expected, actual))
		m.publish(events.NewCommitmentMismatch(next.Height(), next.BlockHash(), expected, actual))
		return newCommitmentMismatchError(next.Height(), expected, actual)
	}
	m.install(next)
	if m.cfg.SaveOnUpdate && m.flat != nil {
		if err := m.Save(); err != nil {
			logx.Error("MNLIST", "failed to save snapshot after update:", err)
		}
	}
	return nil
}

func (m *Manager) install(next *List) {
	m.histMu.Lock()
	m.history[next.Height()] = next
	if next.Height() > m.cfg.Retention {
		floor := next.Height() - m.cfg.Retention
		for h := range m.history {
			if h < floor {
				delete(m.history, h)
			}
		}
	}
	m.histMu.Unlock()

	m.current.Store(next)
	m.reportCurrent(next)
}

func (m *Manager) reportCurrent(l *List) {
	monitoring.SetMasternodeList(l.Height(), l.Size(), l.ValidCount())
	logx.Debug("MNLIST", fmt.Sprintf("current list | height=%d | block=%s | root=%s | size=%d | valid=%d",
		l.Height(), l.BlockHash(), l.MerkleRoot(), l.Size(), l.ValidCount()))
	m.publish(events.NewMasternodeListUpdated(l.Height(), l.BlockHash(), l.MerkleRoot(), l.Size(), l.ValidCount()))
}

// RollbackTo makes the retained list at height current and forgets newer lists.
func (m *Manager) RollbackTo(height uint32) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return m.rollbackLocked(height)
}

func (m *Manager) rollbackLocked(height uint32) error {
	m.histMu.Lock()
	l, ok := m.history[height]
	if !ok {
		m.histMu.Unlock()
		return newRollbackUnavailableError(height)
	}
	for h := range m.history {
		if h > height {
			delete(m.history, h)
		}
	}
	m.histMu.Unlock()

	m.current.Store(l)
	logx.Info("MNLIST", fmt.Sprintf("rolled back to height %d | block=%s", height, l.BlockHash()))
	m.reportCurrent(l)
	return nil
}

// BlockConnected advances the list to a newly connected block. A block without a
// diff carries the list forward unchanged and its commitment is still checked.
func (m *Manager) BlockConnected(ctx context.Context, stored *block.StoredHeader) error {
	var diff *Diff
	if m.diffs != nil {
		var err error
		diff, err = m.diffs.DiffForBlock(ctx, stored.Hash())
		if err != nil {
			return fmt.Errorf("failed to fetch masternode diff for block %s: %w", stored.Hash(), err)
		}
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	cur := m.current.Load()
	if stored.Height == 0 {
		if cur != nil {
			return nil
		}
		if diff == nil {
			diff = &Diff{}
		}
		genesis, err := EmptyList(0, common.ZeroHash).Apply(diff, 0, stored.Hash())
		if err != nil {
			return err
		}
		return m.verifyAndInstall(genesis, stored.Header.MasternodeListRoot)
	}
	if cur != nil && cur.Height() == stored.Height && cur.BlockHash() == stored.Hash() {
		return nil
	}
	return m.applyLocked(stored.Height-1, diff, stored.Height, &stored.Header)
}

// BlockDisconnected rewinds to the newest retained list at or below the parent of
// the disconnected block.
func (m *Manager) BlockDisconnected(ctx context.Context, stored *block.StoredHeader) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	cur := m.current.Load()
	if cur == nil || cur.Height() < stored.Height || stored.Height == 0 {
		return nil
	}
	parent := stored.Height - 1

	m.histMu.RLock()
	heights := m.sortedHeightsLocked()
	m.histMu.RUnlock()

	for i := len(heights) - 1; i >= 0; i-- {
		if heights[i] <= parent {
			return m.rollbackLocked(heights[i])
		}
	}
	return newRollbackUnavailableError(parent)
}

// VerifyOperatorSignature checks sig over msg by the operator of a valid entry.
func (m *Manager) VerifyOperatorSignature(txid common.Hash, msg []byte, sig blskey.Signature) error {
	e, ok := m.Entry(txid)
	if !ok {
		return newVerificationError(mnerrors.ErrCodeUnknownEntry, "unknown masternode %s", txid)
	}
	if !e.IsValid {
		return newVerificationError(mnerrors.ErrCodeInvalidSignature, "masternode %s is not valid", txid)
	}
	if !blskey.Verify(e.OperatorPublicKey, msg, sig) {
		return newVerificationError(mnerrors.ErrCodeInvalidSignature, "bad operator signature from %s", txid)
	}
	return nil
}

// VerifyQuorumSignature checks an aggregate signature over msg by the operators of
// every listed masternode, all of which must be valid members of the current list.
func (m *Manager) VerifyQuorumSignature(members []common.Hash, msg []byte, sig blskey.Signature) error {
	if len(members) == 0 {
		return newVerificationError(mnerrors.ErrCodeInvalidSignature, "empty quorum")
	}
	l := m.current.Load()
	if l == nil {
		return newVerificationError(mnerrors.ErrCodeUnknownEntry, "masternode list is empty")
	}
	keys := make([]blskey.PublicKey, 0, len(members))
	for _, txid := range members {
		e, ok := l.Get(txid)
		if !ok {
			return newVerificationError(mnerrors.ErrCodeUnknownEntry, "unknown quorum member %s", txid)
		}
		if !e.IsValid {
			return newVerificationError(mnerrors.ErrCodeInvalidSignature, "quorum member %s is not valid", txid)
		}
		keys = append(keys, e.OperatorPublicKey)
	}
	if !blskey.VerifyAggregate(keys, msg, sig) {
		return newVerificationError(mnerrors.ErrCodeInvalidSignature, "bad quorum signature over %d members", len(members))
	}
	return nil
}

func (m *Manager) publish(ev events.ChainEvent) {
	if m.bus != nil {
		m.bus.Publish(ev)
	}
}

// DefaultMagicMessage tags snapshot files written by this manager.
func (m *Manager) DefaultMagicMessage() string {
	return DefaultMagicMessage
}

// CurrentFormatVersion is the snapshot payload version this manager reads and writes.
func (m *Manager) CurrentFormatVersion() byte {
	return CurrentFormatVersion
}

// Save writes the snapshot to the configured path.
func (m *Manager) Save() error {
	if m.flat == nil {
		return fmt.Errorf("no snapshot path configured")
	}
	start := time.Now()
	if err := m.flat.Save(m); err != nil {
		return err
	}
	monitoring.RecordSnapshotSave(time.Since(start))
	return nil
}

// Load restores from the configured path. False with nil error means nothing usable
// was there.
func (m *Manager) Load() (bool, error) {
	return m.LoadWith(DefaultMagicMessage, CurrentFormatVersion)
}

// LoadWith restores from a file tagged with magic and version.
func (m *Manager) LoadWith(magic string, version byte) (bool, error) {
	if m.flat == nil {
		return false, fmt.Errorf("no snapshot path configured")
	}
	return m.flat.LoadWith(m, magic, version)
}
