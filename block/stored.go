package block

import (
	"encoding/binary"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/mezonai/mnlight/common"
)

const storedHeaderSize = HeaderSize + 32 + 4

// StoredHeader is a header together with its height and the cumulative work of the
// chain ending at it.
type StoredHeader struct {
	Header    Header
	ChainWork *uint256.Int
	Height    uint32
}

// NewGenesisStored wraps a genesis header at height 0.
func NewGenesisStored(h *Header) *StoredHeader {
	return &StoredHeader{
		Header:    *h,
		ChainWork: CalcWork(h.Bits),
		Height:    0,
	}
}

// Build returns the stored form of a header whose parent is s.
func (s *StoredHeader) Build(h *Header) *StoredHeader {
	work := new(uint256.Int).Add(s.ChainWork, CalcWork(h.Bits))
	return &StoredHeader{
		Header:    *h,
		ChainWork: work,
		Height:    s.Height + 1,
	}
}

func (s *StoredHeader) Hash() common.Hash {
	return s.Header.BlockHash()
}

// MoreWorkThan reports whether s carries strictly more cumulative work than other.
func (s *StoredHeader) MoreWorkThan(other *StoredHeader) bool {
	return s.ChainWork.Gt(other.ChainWork)
}

// Serialize writes header | chain work (32 bytes, big-endian) | height (uint32, big-endian).
func (s *StoredHeader) Serialize() []byte {
	buf := make([]byte, 0, storedHeaderSize)
	buf = append(buf, s.Header.Serialize()...)
	work := s.ChainWork.Bytes32()
	buf = append(buf, work[:]...)
	buf = binary.BigEndian.AppendUint32(buf, s.Height)
	return buf
}

// DeserializeStored parses the output of Serialize.
func DeserializeStored(b []byte) (*StoredHeader, error) {
	if len(b) != storedHeaderSize {
		return nil, fmt.Errorf("invalid stored header length %d, want %d", len(b), storedHeaderSize)
	}
	h, err := Deserialize(b[:HeaderSize])
	if err != nil {
		return nil, err
	}
	return &StoredHeader{
		Header:    *h,
		ChainWork: new(uint256.Int).SetBytes32(b[HeaderSize : HeaderSize+32]),
		Height:    binary.BigEndian.Uint32(b[HeaderSize+32:]),
	}, nil
}
