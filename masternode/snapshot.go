package masternode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/mezonai/mnlight/common"
)

// maxSnapshotEntries bounds allocations when decoding a damaged or hostile payload.
const maxSnapshotEntries = 1 << 20

// MarshalSnapshot encodes every retained list, ascending by height:
//
//	uvarint count | { height uint32 | block hash | merkle root | uvarint n | n entries }
func (m *Manager) MarshalSnapshot() ([]byte, error) {
	m.histMu.RLock()
	defer m.histMu.RUnlock()

	var buf bytes.Buffer
	var lenBuf [binary.MaxVarintLen64]byte

	heights := m.sortedHeightsLocked()
	buf.Write(lenBuf[:binary.PutUvarint(lenBuf[:], uint64(len(heights)))])
	for _, h := range heights {
		l := m.history[h]
		var height [4]byte
		binary.BigEndian.PutUint32(height[:], l.Height())
		buf.Write(height[:])
		bh := l.BlockHash()
		buf.Write(bh[:])
		root := l.MerkleRoot()
		buf.Write(root[:])
		buf.Write(lenBuf[:binary.PutUvarint(lenBuf[:], uint64(len(l.sorted)))])
		for i := range l.sorted {
			buf.Write(l.sorted[i].Serialize())
		}
	}
	return buf.Bytes(), nil
}

// UnmarshalSnapshot replaces the manager state with a decoded snapshot. Every list's
// root is recomputed and must match the stored one; on any failure the manager is
// left as it was.
func (m *Manager) UnmarshalSnapshot(payload []byte) error {
	lists, err := decodeSnapshot(payload)
	if err != nil {
		return err
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	history := make(map[uint32]*List, len(lists))
	var newest *List
	for _, l := range lists {
		history[l.Height()] = l
		if newest == nil || l.Height() > newest.Height() {
			newest = l
		}
	}

	m.histMu.Lock()
	m.history = history
	m.histMu.Unlock()

	m.current.Store(newest)
	if newest != nil {
		m.reportCurrent(newest)
	}
	return nil
}

func decodeSnapshot(payload []byte) ([]*List, error) {
	r := bytes.NewReader(payload)
	count, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("read list count: %w", err)
	}
	if count > uint64(r.Len()) {
		return nil, fmt.Errorf("list count %d exceeds payload", count)
	}

	lists := make([]*List, 0, count)
	seen := make(map[uint32]bool, count)
	for i := uint64(0); i < count; i++ {
		var height [4]byte
		var blockHash, root common.Hash
		if _, err := io.ReadFull(r, height[:]); err != nil {
			return nil, fmt.Errorf("list %d: read height: %w", i, err)
		}
		if _, err := io.ReadFull(r, blockHash[:]); err != nil {
			return nil, fmt.Errorf("list %d: read block hash: %w", i, err)
		}
		if _, err := io.ReadFull(r, root[:]); err != nil {
			return nil, fmt.Errorf("list %d: read root: %w", i, err)
		}
		n, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, fmt.Errorf("list %d: read entry count: %w", i, err)
		}
		if n > maxSnapshotEntries || n*EntrySize > uint64(r.Len()) {
			return nil, fmt.Errorf("list %d: entry count %d exceeds payload", i, n)
		}

		entries := make([]Entry, 0, n)
		raw := make([]byte, EntrySize)
		for j := uint64(0); j < n; j++ {
			if _, err := io.ReadFull(r, raw); err != nil {
				return nil, fmt.Errorf("list %d entry %d: %w", i, j, err)
			}
			e, err := DeserializeEntry(raw)
			if err != nil {
				return nil, fmt.Errorf("list %d entry %d: %w", i, j, err)
			}
			entries = append(entries, *e)
		}

		h := binary.BigEndian.Uint32(height[:])
		if seen[h] {
			return nil, fmt.Errorf("list %d: duplicate height %d", i, h)
		}
		seen[h] = true

		l, err := BuildList(h, blockHash, entries)
		if err != nil {
			return nil, fmt.Errorf("list at height %d: %w", h, err)
		}
		if !l.VerifyAgainst(root) {
			return nil, fmt.Errorf("list at height %d: stored root %s, computed %s", h, root, l.MerkleRoot())
		}
		lists = append(lists, l)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes after snapshot", r.Len())
	}
	return lists, nil
}
