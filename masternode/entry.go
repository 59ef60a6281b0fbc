package masternode

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/mezonai/mnlight/blskey"
	"github.com/mezonai/mnlight/common"
)

// EntrySize is the length of the canonical entry encoding.
const EntrySize = common.HashSize + common.HashSize + 16 + 2 + blskey.PublicKeySize + common.KeyIDSize + 1

// Entry is one registered masternode. Entries are values; lists copy them in.
type Entry struct {
	RegistrationTxID  common.Hash      `json:"proRegTxHash"`
	ConfirmationHash  common.Hash      `json:"confirmedHash"`
	ServiceAddress    netip.AddrPort   `json:"service"`
	OperatorPublicKey blskey.PublicKey `json:"pubKeyOperator"`
	VotingKeyID       common.KeyID     `json:"keyIDVoting"`
	IsValid           bool             `json:"isValid"`
}

// Serialize returns the canonical encoding hashed into the list commitment:
// txid | confirmed hash | 16-byte IPv6 (IPv4-mapped) address | big-endian port |
// operator key | voting key id | valid flag.
func (e *Entry) Serialize() []byte {
	buf := make([]byte, 0, EntrySize)
	buf = append(buf, e.RegistrationTxID[:]...)
	buf = append(buf, e.ConfirmationHash[:]...)
	ip := e.ServiceAddress.Addr().As16()
	buf = append(buf, ip[:]...)
	buf = binary.BigEndian.AppendUint16(buf, e.ServiceAddress.Port())
	buf = append(buf, e.OperatorPublicKey[:]...)
	buf = append(buf, e.VotingKeyID[:]...)
	if e.IsValid {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	return buf
}

// Hash is the double SHA-256 of the canonical encoding.
func (e *Entry) Hash() common.Hash {
	return common.DoubleSHA256(e.Serialize())
}

// DeserializeEntry parses the canonical encoding.
func DeserializeEntry(b []byte) (*Entry, error) {
	if len(b) != EntrySize {
		return nil, fmt.Errorf("invalid entry length %d, want %d", len(b), EntrySize)
	}
	e := &Entry{}
	off := 0
	off += copy(e.RegistrationTxID[:], b[off:off+common.HashSize])
	off += copy(e.ConfirmationHash[:], b[off:off+common.HashSize])
	var ip [16]byte
	off += copy(ip[:], b[off:off+16])
	port := binary.BigEndian.Uint16(b[off:])
	off += 2
	e.ServiceAddress = netip.AddrPortFrom(netip.AddrFrom16(ip).Unmap(), port)

	pk, err := blskey.PublicKeyFromBytes(b[off : off+blskey.PublicKeySize])
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", e.RegistrationTxID, err)
	}
	e.OperatorPublicKey = pk
	off += blskey.PublicKeySize
	off += copy(e.VotingKeyID[:], b[off:off+common.KeyIDSize])

	switch b[off] {
	case 0:
	case 1:
		e.IsValid = true
	default:
		return nil, fmt.Errorf("entry %s: invalid valid flag %d", e.RegistrationTxID, b[off])
	}
	return e, nil
}

// NewVotingKeyID derives the voting key id from a secp256k1 public key.
func NewVotingKeyID(pub *secp256k1.PublicKey) common.KeyID {
	return common.Hash160(pub.SerializeCompressed())
}

// VotingAddress renders the voting key id as a base58check address.
func (e *Entry) VotingAddress(addressVersion byte) string {
	return common.EncodeCheck(addressVersion, e.VotingKeyID[:])
}

func (e *Entry) String() string {
	return fmt.Sprintf("masternode %s service=%s valid=%t", e.RegistrationTxID, e.ServiceAddress, e.IsValid)
}
