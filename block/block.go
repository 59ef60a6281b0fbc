package block

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/mezonai/mnlight/common"
	"github.com/mezonai/mnlight/merkle"
)

// HeaderSize is the serialized size of a header on the wire.
const HeaderSize = 4 + common.HashSize + common.HashSize + 4 + 4 + 4 + common.HashSize

// Header is a block header carrying the masternode list commitment.
type Header struct {
	Version            int32
	PrevBlock          common.Hash
	MerkleRoot         common.Hash
	Time               uint32
	Bits               uint32
	Nonce              uint32
	MasternodeListRoot common.Hash
}

// Serialize writes the 112-byte wire form. Integers are little-endian.
func (h *Header) Serialize() []byte {
	buf := make([]byte, HeaderSize)
	off := 0
	binary.LittleEndian.PutUint32(buf[off:], uint32(h.Version))
	off += 4
	off += copy(buf[off:], h.PrevBlock[:])
	off += copy(buf[off:], h.MerkleRoot[:])
	binary.LittleEndian.PutUint32(buf[off:], h.Time)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], h.Bits)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], h.Nonce)
	off += 4
	copy(buf[off:], h.MasternodeListRoot[:])
	return buf
}

// Deserialize parses a header from exactly HeaderSize bytes.
func Deserialize(b []byte) (*Header, error) {
	if len(b) != HeaderSize {
		return nil, fmt.Errorf("invalid header length %d, want %d", len(b), HeaderSize)
	}
	h := &Header{}
	off := 0
	h.Version = int32(binary.LittleEndian.Uint32(b[off:]))
	off += 4
	off += copy(h.PrevBlock[:], b[off:off+common.HashSize])
	off += copy(h.MerkleRoot[:], b[off:off+common.HashSize])
	h.Time = binary.LittleEndian.Uint32(b[off:])
	off += 4
	h.Bits = binary.LittleEndian.Uint32(b[off:])
	off += 4
	h.Nonce = binary.LittleEndian.Uint32(b[off:])
	off += 4
	copy(h.MasternodeListRoot[:], b[off:off+common.HashSize])
	return h, nil
}

// FromHex parses a hex-encoded serialized header.
func FromHex(s string) (*Header, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode header hex: %w", err)
	}
	return Deserialize(raw)
}

// Hex returns the hex-encoded wire form.
func (h *Header) Hex() string {
	return hex.EncodeToString(h.Serialize())
}

// BlockHash is the double SHA-256 of the serialized header.
func (h *Header) BlockHash() common.Hash {
	return common.DoubleSHA256(h.Serialize())
}

func (h *Header) Timestamp() time.Time {
	return time.Unix(int64(h.Time), 0)
}

// Block is a header with the ids of the transactions it commits to.
type Block struct {
	Header   Header
	TxHashes []common.Hash
}

// TxMerkleRoot computes the transaction Merkle root over txids in block order.
func TxMerkleRoot(txids []common.Hash) common.Hash {
	return merkle.ComputeRoot(txids)
}

// VerifyMerkleRoot checks the header's transaction commitment.
func (b *Block) VerifyMerkleRoot() error {
	if len(b.TxHashes) == 0 {
		return fmt.Errorf("block %s has no transactions", b.Header.BlockHash())
	}
	got := TxMerkleRoot(b.TxHashes)
	if got != b.Header.MerkleRoot {
		return fmt.Errorf("block %s merkle root mismatch: header %s, computed %s",
			b.Header.BlockHash(), b.Header.MerkleRoot, got)
	}
	return nil
}
