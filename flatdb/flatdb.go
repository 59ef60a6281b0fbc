package flatdb

import (
	"fmt"

	"github.com/mezonai/mnlight/logx"
)

// Persistable is an object that can be snapshotted into a flat file.
type Persistable interface {
	DefaultMagicMessage() string
	CurrentFormatVersion() byte
	MarshalSnapshot() ([]byte, error)
	UnmarshalSnapshot(payload []byte) error
}

// FlatDB saves and restores a Persistable through a Store.
type FlatDB struct {
	store *Store
}

func New(path string) *FlatDB {
	return &FlatDB{store: NewStore(path)}
}

func (f *FlatDB) Path() string {
	return f.store.Path()
}

// Save writes obj tagged with its default magic message and current format version.
func (f *FlatDB) Save(obj Persistable) error {
	payload, err := obj.MarshalSnapshot()
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", obj.DefaultMagicMessage(), err)
	}
	return f.store.Save(Record{
		Magic:   obj.DefaultMagicMessage(),
		Version: obj.CurrentFormatVersion(),
		Payload: payload,
	})
}

// Load restores obj using its default magic message and format version.
func (f *FlatDB) Load(obj Persistable) (bool, error) {
	return f.LoadWith(obj, obj.DefaultMagicMessage(), obj.CurrentFormatVersion())
}

// LoadWith restores obj only if the file carries exactly magic and version. A false
// result with nil error means the file was absent or did not match; obj is untouched.
func (f *FlatDB) LoadWith(obj Persistable, magic string, version byte) (bool, error) {
	res, err := f.store.Load(magic, version)
	if err != nil {
		return false, err
	}
	if !res.Loaded {
		return false, nil
	}
	if err := obj.UnmarshalSnapshot(res.Payload); err != nil {
		return false, fmt.Errorf("failed to restore %s from %s: %w", magic, f.store.Path(), err)
	}
	logx.Info("FLATDB", fmt.Sprintf("loaded %s from %s | version=%d", magic, f.store.Path(), version))
	return true, nil
}
