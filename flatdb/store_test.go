package flatdb

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mncache.dat")
	s := NewStore(path)

	payload := bytes.Repeat([]byte("masternode"), 100)
	require.NoError(t, s.Save(Record{Magic: "MasternodeListManager", Version: 1, Payload: payload}))

	res, err := s.Load("MasternodeListManager", 1)
	require.NoError(t, err)
	assert.True(t, res.Loaded)
	assert.Equal(t, ReasonLoaded, res.Reason)
	assert.Equal(t, payload, res.Payload)
}

func TestLoadMismatches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mncache.dat")
	s := NewStore(path)

	res, err := s.Load("MasternodeListManager", 1)
	require.NoError(t, err)
	assert.False(t, res.Loaded)
	assert.Equal(t, ReasonFileMissing, res.Reason)

	require.NoError(t, s.Save(Record{Magic: "MasternodeListManager", Version: 1, Payload: []byte{1, 2, 3}}))

	res, err = s.Load("GovernanceManager", 1)
	require.NoError(t, err)
	assert.False(t, res.Loaded)
	assert.Equal(t, ReasonMagicMismatch, res.Reason)

	res, err = s.Load("MasternodeListManager", 2)
	require.NoError(t, err)
	assert.False(t, res.Loaded)
	assert.Equal(t, ReasonVersionMismatch, res.Reason)
	assert.Nil(t, res.Payload)
}

func TestLoadDetectsDamage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mncache.dat")
	s := NewStore(path)
	require.NoError(t, s.Save(Record{Magic: "m", Version: 1, Payload: bytes.Repeat([]byte{7}, 64)}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	flipped := append([]byte(nil), raw...)
	flipped[len(flipped)-40] ^= 0xff
	require.NoError(t, os.WriteFile(path, flipped, 0o644))
	res, err := s.Load("m", 1)
	require.NoError(t, err)
	assert.False(t, res.Loaded)
	assert.Equal(t, ReasonChecksumMismatch, res.Reason)

	require.NoError(t, os.WriteFile(path, raw[:len(raw)-5], 0o644))
	res, err = s.Load("m", 1)
	require.NoError(t, err)
	assert.False(t, res.Loaded)
	assert.Equal(t, ReasonCorrupt, res.Reason)

	require.NoError(t, os.WriteFile(path, nil, 0o644))
	res, err = s.Load("m", 1)
	require.NoError(t, err)
	assert.Equal(t, ReasonCorrupt, res.Reason)
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "snap.dat"))
	require.NoError(t, s.Save(Record{Magic: "m", Version: 1, Payload: []byte("a")}))
	require.NoError(t, s.Save(Record{Magic: "m", Version: 1, Payload: []byte("b")}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "snap.dat", entries[0].Name())

	res, err := s.Load("m", 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), res.Payload)
}

func TestSaveRejectsLongMagic(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "snap.dat"))
	err := s.Save(Record{Magic: string(bytes.Repeat([]byte("x"), maxMagicLength+1)), Version: 1})
	assert.Error(t, err)
}

type counter struct {
	value    []byte
	restored int
}

func (c *counter) DefaultMagicMessage() string { return "Counter" }
func (c *counter) CurrentFormatVersion() byte { return 3 }
func (c *counter) MarshalSnapshot() ([]byte, error) { return c.value, nil }
func (c *counter) UnmarshalSnapshot(p []byte) error {
	c.value = append([]byte(nil), p...)
	c.restored++
	return nil
}

func TestFlatDBPersistable(t *testing.T) {
	db := New(filepath.Join(t.TempDir(), "counter.dat"))
	require.NoError(t, db.Save(&counter{value: []byte("42")}))

	c := &counter{}
	ok, err := db.LoadWith(c, "Counter", 4)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, c.restored)

	ok, err = db.Load(c)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("42"), c.value)
}
