package db

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func providers(t *testing.T) map[string]DatabaseProvider {
	t.Helper()

	level, err := NewMemLevelDBProvider()
	require.NoError(t, err)
	levelDisk, err := NewLevelDBProvider(t.TempDir())
	require.NoError(t, err)
	peb, err := NewMemPebbleProvider()
	require.NoError(t, err)
	bolt, err := NewBoltProvider(t.TempDir())
	require.NoError(t, err)

	all := map[string]DatabaseProvider{
		"leveldb-mem":  level,
		"leveldb-disk": levelDisk,
		"pebble":       peb,
		"bbolt":        bolt,
	}
	t.Cleanup(func() {
		for _, p := range all {
			_ = p.Close()
		}
	})
	return all
}

func TestProviderContract(t *testing.T) {
	for name, p := range providers(t) {
		t.Run(name, func(t *testing.T) {
			v, err := p.Get([]byte("missing"))
			require.NoError(t, err)
			assert.Nil(t, v)

			has, err := p.Has([]byte("missing"))
			require.NoError(t, err)
			assert.False(t, has)

			key := []byte("hdr:\x00\x01\x02")
			require.NoError(t, p.Put(key, []byte("value")))
			v, err = p.Get(key)
			require.NoError(t, err)
			assert.Equal(t, []byte("value"), v)

			has, err = p.Has(key)
			require.NoError(t, err)
			assert.True(t, has)

			got, err := p.GetBatch([][]byte{key, []byte("missing")})
			require.NoError(t, err)
			assert.Len(t, got, 1)
			assert.Equal(t, []byte("value"), got[string(key)])

			require.NoError(t, p.Delete(key))
			v, err = p.Get(key)
			require.NoError(t, err)
			assert.Nil(t, v)
		})
	}
}

func TestProviderBatchAndIterate(t *testing.T) {
	for name, p := range providers(t) {
		t.Run(name, func(t *testing.T) {
			batch := p.Batch()
			defer batch.Close()
			for i := 0; i < 5; i++ {
				batch.Put([]byte(fmt.Sprintf("hdr:%02d", i)), []byte{byte(i)})
			}
			batch.Put([]byte("meta:head"), []byte("x"))
			batch.Delete([]byte("hdr:04"))
			require.NoError(t, batch.Write())

			iterable, ok := p.(IterableProvider)
			require.True(t, ok)

			var keys []string
			require.NoError(t, iterable.IteratePrefix([]byte("hdr:"), func(key, value []byte) bool {
				keys = append(keys, string(key))
				return true
			}))
			assert.Equal(t, []string{"hdr:00", "hdr:01", "hdr:02", "hdr:03"}, keys)

			count := 0
			require.NoError(t, iterable.IteratePrefix([]byte("hdr:"), func(key, value []byte) bool {
				count++
				return false
			}))
			assert.Equal(t, 1, count)
		})
	}
}

func TestPrefixUpperBound(t *testing.T) {
	assert.Equal(t, []byte("hds"), prefixUpperBound([]byte("hdr")))
	assert.Equal(t, []byte{0x02}, prefixUpperBound([]byte{0x01, 0xff}))
	assert.Nil(t, prefixUpperBound([]byte{0xff, 0xff}))
}

func TestRedisKeyConversion(t *testing.T) {
	assert.Equal(t, "meta:head", convertKeyToHumanReadable([]byte("meta:head")))

	bin := append([]byte("hdr:"), 0x00, 0xab)
	human := convertKeyToHumanReadable(bin)
	assert.Equal(t, "hdr:00ab", human)
	assert.Equal(t, bin, convertKeyFromHumanReadable(human, map[string]bool{"hdr:": true}))
}
