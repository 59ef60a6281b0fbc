// Package blskey wraps the BLS12-381 library used for masternode operator keys.
//
// Operator public keys travel on the wire in the legacy 48-byte form: the big-endian
// x coordinate with the top bit set when y is the lexicographically larger root, and
// all zeroes for the point at infinity. The library speaks the compressed (ZCash)
// form, so keys are converted at this boundary and nowhere else.
package blskey

import (
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/herumi/bls-eth-go-binary/bls"
)

const (
	PublicKeySize = 48
	SignatureSize = 96
	SecretKeySize = 32

	legacySignBit  = 0x80
	zcashCompress  = 0x80
	zcashInfinity  = 0x40
	zcashSignBit   = 0x20
	zcashFlagsMask = 0xe0
)

var (
	initOnce sync.Once
	initErr  error
)

// Init prepares the BLS library. It is safe to call many times.
func Init() error {
	initOnce.Do(func() {
		if err := bls.Init(bls.BLS12_381); err != nil {
			initErr = fmt.Errorf("bls init: %w", err)
			return
		}
		if err := bls.SetETHmode(bls.EthModeDraft07); err != nil {
			initErr = fmt.Errorf("bls eth mode: %w", err)
		}
	})
	return initErr
}

func mustInit() {
	if err := Init(); err != nil {
		panic(err)
	}
}

// PublicKey is an operator public key in legacy wire encoding.
type PublicKey [PublicKeySize]byte

// Signature is a compressed G2 signature.
type Signature [SignatureSize]byte

// PublicKeyFromBytes validates the layout of a legacy-encoded key. It does not check
// that the point is on the curve; Library does.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != PublicKeySize {
		return pk, fmt.Errorf("invalid public key length %d, want %d", len(b), PublicKeySize)
	}
	copy(pk[:], b)
	// x < p < 2^381 so the two bits below the sign bit are always clear
	if pk[0]&(zcashFlagsMask&^legacySignBit) != 0 {
		return PublicKey{}, fmt.Errorf("invalid public key encoding: reserved bits set")
	}
	return pk, nil
}

// PublicKeyFromHex parses a hex legacy-encoded key.
func PublicKeyFromHex(s string) (PublicKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("failed to decode public key: %w", err)
	}
	return PublicKeyFromBytes(raw)
}

// FromLibrary converts a library public key to the legacy encoding.
func FromLibrary(pub *bls.PublicKey) PublicKey {
	mustInit()
	var pk PublicKey
	compressed := pub.Serialize()
	if len(compressed) != PublicKeySize || compressed[0]&zcashInfinity != 0 {
		return pk
	}
	copy(pk[:], compressed)
	sign := pk[0]&zcashSignBit != 0
	pk[0] &^= zcashFlagsMask
	if sign {
		pk[0] |= legacySignBit
	}
	return pk
}

// Library converts the key to the library form, checking the point.
func (pk PublicKey) Library() (*bls.PublicKey, error) {
	mustInit()
	compressed := pk.compressed()
	var pub bls.PublicKey
	if err := pub.Deserialize(compressed[:]); err != nil {
		return nil, fmt.Errorf("invalid operator public key %s: %w", pk, err)
	}
	return &pub, nil
}

func (pk PublicKey) compressed() [PublicKeySize]byte {
	var out [PublicKeySize]byte
	if pk.IsZero() {
		out[0] = zcashCompress | zcashInfinity
		return out
	}
	out = pk
	sign := out[0]&legacySignBit != 0
	out[0] &^= legacySignBit
	out[0] |= zcashCompress
	if sign {
		out[0] |= zcashSignBit
	}
	return out
}

func (pk PublicKey) IsZero() bool {
	return pk == PublicKey{}
}

func (pk PublicKey) String() string {
	return hex.EncodeToString(pk[:])
}

func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

func (pk *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := PublicKeyFromHex(string(text))
	if err != nil {
		return err
	}
	*pk = parsed
	return nil
}

// SecretKey is an operator signing key.
type SecretKey struct {
	sk bls.SecretKey
}

// GenerateSecretKey draws a fresh random key.
func GenerateSecretKey() *SecretKey {
	mustInit()
	k := &SecretKey{}
	k.sk.SetByCSPRNG()
	return k
}

// SecretKeyFromBytes reads a 32-byte big-endian scalar.
func SecretKeyFromBytes(b []byte) (*SecretKey, error) {
	mustInit()
	if len(b) != SecretKeySize {
		return nil, fmt.Errorf("invalid secret key length %d, want %d", len(b), SecretKeySize)
	}
	k := &SecretKey{}
	if err := k.sk.Deserialize(b); err != nil {
		return nil, fmt.Errorf("invalid secret key: %w", err)
	}
	return k, nil
}

// PublicKey returns the legacy-encoded public key.
func (k *SecretKey) PublicKey() PublicKey {
	return FromLibrary(k.sk.GetPublicKey())
}

// Sign signs msg.
func (k *SecretKey) Sign(msg []byte) Signature {
	var sig Signature
	copy(sig[:], k.sk.SignByte(msg).Serialize())
	return sig
}

// Verify checks sig over msg by pk. Malformed keys or signatures verify false.
func Verify(pk PublicKey, msg []byte, sig Signature) bool {
	pub, err := pk.Library()
	if err != nil {
		return false
	}
	var s bls.Sign
	if err := s.Deserialize(sig[:]); err != nil {
		return false
	}
	return s.VerifyByte(pub, msg)
}

// Aggregate combines signatures into one.
func Aggregate(sigs []Signature) (Signature, error) {
	mustInit()
	var out Signature
	if len(sigs) == 0 {
		return out, fmt.Errorf("no signatures to aggregate")
	}
	parsed := make([]bls.Sign, len(sigs))
	for i := range sigs {
		if err := parsed[i].Deserialize(sigs[i][:]); err != nil {
			return out, fmt.Errorf("signature %d: %w", i, err)
		}
	}
	var agg bls.Sign
	agg.Aggregate(parsed)
	copy(out[:], agg.Serialize())
	return out, nil
}

// VerifyAggregate checks an aggregate signature of the same msg by every key in pks.
func VerifyAggregate(pks []PublicKey, msg []byte, sig Signature) bool {
	if len(pks) == 0 {
		return false
	}
	pubs := make([]bls.PublicKey, len(pks))
	for i, pk := range pks {
		pub, err := pk.Library()
		if err != nil {
			return false
		}
		pubs[i] = *pub
	}
	var s bls.Sign
	if err := s.Deserialize(sig[:]); err != nil {
		return false
	}
	return s.FastAggregateVerify(pubs, msg)
}
