package store

import (
	"fmt"
	"sync"

	"github.com/mezonai/mnlight/block"
	"github.com/mezonai/mnlight/common"
	"github.com/mezonai/mnlight/db"
	"github.com/mezonai/mnlight/logx"
)

// BlockStore abstracts the header storage backend.
// Get and GetChainHead return nil, nil when nothing is stored.
type BlockStore interface {
	Get(hash common.Hash) (*block.StoredHeader, error)
	Put(stored *block.StoredHeader) error
	GetChainHead() (*block.StoredHeader, error)
	SetChainHead(stored *block.StoredHeader) error
	Close() error
}

// GenericBlockStore is a database-agnostic implementation that uses DatabaseProvider
// This allows it to work with any database backend (LevelDB, Pebble, bbolt, Redis)
type GenericBlockStore struct {
	provider db.DatabaseProvider
	mu       sync.RWMutex
}

// NewGenericBlockStore creates a new generic block store with the given provider
func NewGenericBlockStore(provider db.DatabaseProvider) (BlockStore, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	return &GenericBlockStore{provider: provider}, nil
}

// hashToHeaderKey converts a block hash to a header storage key
func hashToHeaderKey(hash common.Hash) []byte {
	key := make([]byte, len(PrefixHeader)+common.HashSize)
	copy(key, PrefixHeader)
	copy(key[len(PrefixHeader):], hash[:])
	return key
}

func chainHeadKey() []byte {
	return []byte(PrefixHeaderMeta + HeaderMetaKeyChainHead)
}

// Get retrieves a stored header by block hash
func (s *GenericBlockStore) Get(hash common.Hash) (*block.StoredHeader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, err := s.provider.Get(hashToHeaderKey(hash))
	if err != nil {
		return nil, fmt.Errorf("failed to get header %s: %w", hash, err)
	}
	if value == nil {
		return nil, nil
	}

	stored, err := block.DeserializeStored(value)
	if err != nil {
		return nil, fmt.Errorf("failed to decode header %s: %w", hash, err)
	}
	return stored, nil
}

// Put stores a header under its block hash. Writing an existing hash is a no-op overwrite.
func (s *GenericBlockStore) Put(stored *block.StoredHeader) error {
	if stored == nil {
		return fmt.Errorf("header cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.provider.Put(hashToHeaderKey(stored.Hash()), stored.Serialize()); err != nil {
		return fmt.Errorf("failed to store header at height %d: %w", stored.Height, err)
	}
	logx.Debug("BLOCKSTORE", "Stored header", stored.Hash(), "height", stored.Height)
	return nil
}

// GetChainHead returns the header recorded as the best chain head
func (s *GenericBlockStore) GetChainHead() (*block.StoredHeader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, err := s.provider.Get(chainHeadKey())
	if err != nil {
		return nil, fmt.Errorf("failed to get chain head: %w", err)
	}
	if value == nil {
		return nil, nil
	}
	stored, err := block.DeserializeStored(value)
	if err != nil {
		return nil, fmt.Errorf("failed to decode chain head: %w", err)
	}
	return stored, nil
}

// SetChainHead records the best chain head. The header itself is written in the same batch.
func (s *GenericBlockStore) SetChainHead(stored *block.StoredHeader) error {
	if stored == nil {
		return fmt.Errorf("header cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	raw := stored.Serialize()
	batch := s.provider.Batch()
	defer batch.Close()
	batch.Put(hashToHeaderKey(stored.Hash()), raw)
	batch.Put(chainHeadKey(), raw)
	if err := batch.Write(); err != nil {
		return fmt.Errorf("failed to update chain head: %w", err)
	}

	logx.Debug("BLOCKSTORE", "Chain head set to", stored.Hash(), "height", stored.Height)
	return nil
}

// Close closes the underlying database provider
func (s *GenericBlockStore) Close() error {
	if err := s.provider.Close(); err != nil {
		logx.Error("BLOCKSTORE", "Failed to close provider:", err)
		return err
	}
	return nil
}
