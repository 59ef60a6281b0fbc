package store

import (
	"fmt"

	"github.com/mezonai/mnlight/db"
)

// StoreType represents the type of store implementation
type StoreType string

const (
	// LevelDBStoreType uses the LevelDB implementation
	LevelDBStoreType StoreType = "leveldb"

	// PebbleStoreType uses the Pebble implementation
	PebbleStoreType StoreType = "pebble"

	// BoltStoreType uses the bbolt implementation
	BoltStoreType StoreType = "bbolt"

	// RedisStoreType uses the Redis implementation
	RedisStoreType StoreType = "redis"

	// MemoryStoreType keeps headers in process memory
	MemoryStoreType StoreType = "memory"
)

// StoreConfig holds configuration for creating store instances
type StoreConfig struct {
	// Type specifies which store implementation to use
	Type StoreType `json:"type" yaml:"type" ini:"type"`

	// Directory is the database directory path (for file-based databases)
	Directory string `json:"directory" yaml:"directory" ini:"directory"`

	// RedisAddr is the host:port of the Redis server (redis only)
	RedisAddr string `json:"redis_addr" yaml:"redis_addr" ini:"redis_addr"`

	// RedisDB selects the Redis logical database (redis only)
	RedisDB int `json:"redis_db" yaml:"redis_db" ini:"redis_db"`
}

// Validate validates the store configuration
func (sc *StoreConfig) Validate() error {
	if sc.Type == "" {
		return fmt.Errorf("store type cannot be empty")
	}

	switch sc.Type {
	case LevelDBStoreType, PebbleStoreType, BoltStoreType:
		if sc.Directory == "" {
			return fmt.Errorf("directory cannot be empty")
		}
		return nil
	case RedisStoreType:
		if sc.RedisAddr == "" {
			return fmt.Errorf("redis address cannot be empty")
		}
		return nil
	case MemoryStoreType:
		return nil
	default:
		return fmt.Errorf("unsupported store type: %s", sc.Type)
	}
}

// StoreFactory take responsibility to create store instances
type StoreFactory struct{}

// NewStoreFactory creates a new store factory
func NewStoreFactory() *StoreFactory {
	return &StoreFactory{}
}

// CreateBlockStore creates a block store using the provider pattern
func (sf *StoreFactory) CreateBlockStore(config *StoreConfig) (BlockStore, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if config.Type == MemoryStoreType {
		return NewMemoryBlockStore(), nil
	}

	provider, err := sf.CreateProvider(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	blkStore, err := NewGenericBlockStore(provider)
	if err != nil {
		_ = provider.Close()
		return nil, fmt.Errorf("failed to create block store: %w", err)
	}
	return blkStore, nil
}

// CreateProvider creates a database provider based on the configuration
func (sf *StoreFactory) CreateProvider(config *StoreConfig) (db.DatabaseProvider, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	switch config.Type {
	case LevelDBStoreType:
		return db.NewLevelDBProvider(config.Directory)

	case PebbleStoreType:
		return db.NewPebbleProvider(config.Directory)

	case BoltStoreType:
		return db.NewBoltProvider(config.Directory)

	case RedisStoreType:
		return db.NewRedisProvider(config.RedisAddr, config.RedisDB)

	default:
		return nil, fmt.Errorf("store type %s has no database provider", config.Type)
	}
}

// Global factory instance
var globalFactory = NewStoreFactory()

// CreateStore creates a new block store using the global factory
func CreateStore(config *StoreConfig) (BlockStore, error) {
	return globalFactory.CreateBlockStore(config)
}
