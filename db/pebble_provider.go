package db

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

const pebbleSyncInterval = 100 * time.Millisecond

// PebbleProvider implements DatabaseProvider for Pebble.
// Writes are NoSync and a background goroutine periodically syncs the WAL.
type PebbleProvider struct {
	db       *pebble.DB
	stopSync chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// NewPebbleProvider opens a Pebble database in directory
func NewPebbleProvider(directory string) (DatabaseProvider, error) {
	return openPebble(directory, &pebble.Options{
		Cache:                       pebble.NewCache(32 << 20),
		MemTableSize:                16 << 20,
		MemTableStopWritesThreshold: 2,
	})
}

// NewMemPebbleProvider opens a Pebble database on an in-memory filesystem
func NewMemPebbleProvider() (DatabaseProvider, error) {
	return openPebble("", &pebble.Options{FS: vfs.NewMem()})
}

func openPebble(directory string, opts *pebble.Options) (*PebbleProvider, error) {
	db, err := pebble.Open(directory, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open Pebble: %w", err)
	}
	p := &PebbleProvider{
		db:       db,
		stopSync: make(chan struct{}),
	}
	p.startSyncLoop()
	return p, nil
}

// Get retrieves a value by key
func (p *PebbleProvider) Get(key []byte) ([]byte, error) {
	value, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	// value is invalid after closer.Close()
	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

// GetBatch retrieves multiple values by keys
func (p *PebbleProvider) GetBatch(keys [][]byte) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	for _, key := range keys {
		value, err := p.Get(key)
		if err != nil {
			return nil, err
		}
		if value != nil {
			result[string(key)] = value
		}
	}
	return result, nil
}

// Put stores a key-value pair
func (p *PebbleProvider) Put(key, value []byte) error {
	return p.db.Set(key, value, pebble.NoSync)
}

// Delete removes a key-value pair
func (p *PebbleProvider) Delete(key []byte) error {
	return p.db.Delete(key, pebble.NoSync)
}

// Has checks if a key exists
func (p *PebbleProvider) Has(key []byte) (bool, error) {
	_, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	closer.Close()
	return true, nil
}

// Close stops the sync loop, syncs once more and closes the database
func (p *PebbleProvider) Close() error {
	var err error
	p.once.Do(func() {
		close(p.stopSync)
		p.wg.Wait()
		if err = p.sync(); err != nil {
			_ = p.db.Close()
			return
		}
		err = p.db.Close()
	})
	return err
}

// Batch returns a new batch for atomic operations
func (p *PebbleProvider) Batch() DatabaseBatch {
	return &PebbleBatch{batch: p.db.NewBatch()}
}

// IteratePrefix iterates over all key-value pairs with the given prefix
func (p *PebbleProvider) IteratePrefix(prefix []byte, callback func(key, value []byte) bool) error {
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		value, err := iter.ValueAndErr()
		if err != nil {
			return err
		}
		if !callback(iter.Key(), value) {
			break
		}
	}
	return iter.Error()
}

// prefixUpperBound computes the exclusive upper bound for a prefix scan.
// Returns nil (unbounded) when the prefix is all 0xFF.
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)

	for i := len(upper) - 1; i >= 0; i-- {
		upper[i]++
		if upper[i] != 0 {
			return upper[:i+1]
		}
	}
	return nil
}

func (p *PebbleProvider) startSyncLoop() {
	p.wg.Add(1)

	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(pebbleSyncInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				_ = p.sync()
			case <-p.stopSync:
				return
			}
		}
	}()
}

func (p *PebbleProvider) sync() error {
	return p.db.LogData(nil, pebble.Sync)
}

// PebbleBatch implements DatabaseBatch for Pebble
type PebbleBatch struct {
	batch *pebble.Batch
}

// Put adds a key-value pair to the batch
func (b *PebbleBatch) Put(key, value []byte) {
	_ = b.batch.Set(key, value, nil)
}

// Delete adds a deletion to the batch
func (b *PebbleBatch) Delete(key []byte) {
	_ = b.batch.Delete(key, nil)
}

// Write commits all operations in the batch
func (b *PebbleBatch) Write() error {
	return b.batch.Commit(pebble.NoSync)
}

// Reset clears the batch
func (b *PebbleBatch) Reset() {
	b.batch.Reset()
}

// Close releases batch resources
func (b *PebbleBatch) Close() {
	_ = b.batch.Close()
}
