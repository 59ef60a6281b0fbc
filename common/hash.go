package common

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/ripemd160"
)

const (
	HashSize  = 32
	KeyIDSize = 20
)

// Hash is a double SHA-256 digest in internal (wire) byte order.
// String renders it byte-reversed, the way explorers and RPC display it.
type Hash [HashSize]byte

// ZeroHash is the all-zero hash, used as "no parent" and as the empty Merkle root.
var ZeroHash Hash

// KeyID is a HASH160 key identifier.
type KeyID [KeyIDSize]byte

// DoubleSHA256 hashes the concatenation of parts twice with SHA-256.
func DoubleSHA256(parts ...[]byte) Hash {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	first := h.Sum(nil)
	return Hash(sha256.Sum256(first))
}

// Hash160 returns RIPEMD160(SHA256(b)).
func Hash160(b []byte) KeyID {
	sum := sha256.Sum256(b)
	r := ripemd160.New()
	r.Write(sum[:])
	var out KeyID
	copy(out[:], r.Sum(nil))
	return out
}

func (h Hash) String() string {
	var rev [HashSize]byte
	for i := 0; i < HashSize; i++ {
		rev[i] = h[HashSize-1-i]
	}
	return hex.EncodeToString(rev[:])
}

func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// Compare orders hashes by unsigned byte value of their internal representation.
func (h Hash) Compare(other Hash) int {
	return bytes.Compare(h[:], other[:])
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := NewHashFromStr(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// NewHashFromStr parses a hash in display (byte-reversed) hex form.
func NewHashFromStr(s string) (Hash, error) {
	var h Hash
	if len(s) != HashSize*2 {
		return h, fmt.Errorf("invalid hash length %d, want %d hex chars", len(s), HashSize*2)
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("failed to decode hash: %w", err)
	}
	for i := 0; i < HashSize; i++ {
		h[i] = raw[HashSize-1-i]
	}
	return h, nil
}

// MustHashFromStr is NewHashFromStr for package-level constants; it panics on bad input.
func MustHashFromStr(s string) Hash {
	h, err := NewHashFromStr(s)
	if err != nil {
		panic(err)
	}
	return h
}

func (k KeyID) String() string {
	return hex.EncodeToString(k[:])
}

func (k KeyID) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *KeyID) UnmarshalText(text []byte) error {
	raw, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("failed to decode key id: %w", err)
	}
	if len(raw) != KeyIDSize {
		return fmt.Errorf("invalid key id length %d, want %d", len(raw), KeyIDSize)
	}
	copy(k[:], raw)
	return nil
}
