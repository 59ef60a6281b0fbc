package store

import (
	"sync"

	"github.com/mezonai/mnlight/block"
	"github.com/mezonai/mnlight/common"
)

// MemoryBlockStore keeps headers in a map. Returned headers are copies.
type MemoryBlockStore struct {
	mu      sync.RWMutex
	headers map[common.Hash]*block.StoredHeader
	head    *block.StoredHeader
}

func NewMemoryBlockStore() *MemoryBlockStore {
	return &MemoryBlockStore{headers: make(map[common.Hash]*block.StoredHeader)}
}

func (s *MemoryBlockStore) Get(hash common.Hash) (*block.StoredHeader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyStored(s.headers[hash]), nil
}

func (s *MemoryBlockStore) Put(stored *block.StoredHeader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headers[stored.Hash()] = copyStored(stored)
	return nil
}

func (s *MemoryBlockStore) GetChainHead() (*block.StoredHeader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyStored(s.head), nil
}

func (s *MemoryBlockStore) SetChainHead(stored *block.StoredHeader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := copyStored(stored)
	s.headers[c.Hash()] = c
	s.head = c
	return nil
}

func (s *MemoryBlockStore) Close() error {
	return nil
}

// Len returns the number of stored headers.
func (s *MemoryBlockStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.headers)
}

func copyStored(s *block.StoredHeader) *block.StoredHeader {
	if s == nil {
		return nil
	}
	c := *s
	if s.ChainWork != nil {
		c.ChainWork = s.ChainWork.Clone()
	}
	return &c
}
