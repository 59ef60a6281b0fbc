package store

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/mezonai/mnlight/block"
	"github.com/mezonai/mnlight/common"
	"github.com/mezonai/mnlight/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleChain() []*block.StoredHeader {
	genesis := block.NewGenesisStored(&block.Header{Version: 1, Time: 1000, Bits: 0x207fffff})
	out := []*block.StoredHeader{genesis}
	prev := genesis
	for i := 1; i < 4; i++ {
		next := prev.Build(&block.Header{
			Version:   1,
			PrevBlock: prev.Hash(),
			Time:      1000 + uint32(i)*60,
			Bits:      0x207fffff,
			Nonce:     uint32(i),
		})
		out = append(out, next)
		prev = next
	}
	return out
}

func blockStores(t *testing.T) map[string]BlockStore {
	t.Helper()

	level, err := db.NewMemLevelDBProvider()
	require.NoError(t, err)
	generic, err := NewGenericBlockStore(level)
	require.NoError(t, err)

	bolt, err := CreateStore(&StoreConfig{Type: BoltStoreType, Directory: t.TempDir()})
	require.NoError(t, err)

	all := map[string]BlockStore{
		"memory":  NewMemoryBlockStore(),
		"leveldb": generic,
		"bbolt":   bolt,
	}
	t.Cleanup(func() {
		for _, s := range all {
			_ = s.Close()
		}
	})
	return all
}

func TestBlockStoreRoundTrip(t *testing.T) {
	chain := sampleChain()
	for name, s := range blockStores(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.Get(chain[1].Hash())
			require.NoError(t, err)
			assert.Nil(t, got)

			head, err := s.GetChainHead()
			require.NoError(t, err)
			assert.Nil(t, head)

			for _, h := range chain[:3] {
				require.NoError(t, s.Put(h))
			}
			got, err = s.Get(chain[2].Hash())
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, chain[2].Header, got.Header)
			assert.Equal(t, uint32(2), got.Height)
			assert.True(t, chain[2].ChainWork.Eq(got.ChainWork))

			require.NoError(t, s.SetChainHead(chain[3]))
			head, err = s.GetChainHead()
			require.NoError(t, err)
			require.NotNil(t, head)
			assert.Equal(t, chain[3].Hash(), head.Hash())

			// the head is also retrievable by hash
			got, err = s.Get(chain[3].Hash())
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, uint32(3), got.Height)
		})
	}
}

func TestMemoryBlockStoreReturnsCopies(t *testing.T) {
	s := NewMemoryBlockStore()
	genesis := sampleChain()[0]
	require.NoError(t, s.Put(genesis))

	got, err := s.Get(genesis.Hash())
	require.NoError(t, err)
	got.ChainWork.Add(got.ChainWork, uint256.NewInt(1))
	got.Height = 99

	again, err := s.Get(genesis.Hash())
	require.NoError(t, err)
	assert.Equal(t, uint32(0), again.Height)
	assert.True(t, genesis.ChainWork.Eq(again.ChainWork))
	assert.Equal(t, 1, s.Len())

	missing, err := s.Get(common.Hash{1})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStoreConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  StoreConfig
		ok   bool
	}{
		{"leveldb", StoreConfig{Type: LevelDBStoreType, Directory: "x"}, true},
		{"pebble no dir", StoreConfig{Type: PebbleStoreType}, false},
		{"redis", StoreConfig{Type: RedisStoreType, RedisAddr: "localhost:6379"}, true},
		{"redis no addr", StoreConfig{Type: RedisStoreType}, false},
		{"memory", StoreConfig{Type: MemoryStoreType}, true},
		{"empty", StoreConfig{}, false},
		{"rocksdb", StoreConfig{Type: "rocksdb", Directory: "x"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestCreateStoreMemory(t *testing.T) {
	s, err := CreateStore(&StoreConfig{Type: MemoryStoreType})
	require.NoError(t, err)
	_, ok := s.(*MemoryBlockStore)
	assert.True(t, ok)

	_, err = CreateStore(nil)
	assert.Error(t, err)
}
