package events

import (
	"time"

	"github.com/mezonai/mnlight/block"
	"github.com/mezonai/mnlight/common"
)

// EventType is an enum-like string type for chain events
type EventType string

const (
	EventBlockConnected        EventType = "BlockConnected"
	EventBlockDisconnected     EventType = "BlockDisconnected"
	EventReorganization        EventType = "Reorganization"
	EventHeightReached         EventType = "HeightReached"
	EventCommitmentMismatch    EventType = "CommitmentMismatch"
	EventMasternodeListUpdated EventType = "MasternodeListUpdated"
	EventListenerFailed        EventType = "ListenerFailed"
	EventOrphanEvicted         EventType = "OrphanEvicted"
)

// ChainEvent represents anything observable that happens to the header chain or the
// masternode list
type ChainEvent interface {
	Type() EventType
	Timestamp() time.Time
	Height() uint32
	BlockHash() common.Hash
}

type baseEvent struct {
	height    uint32
	blockHash common.Hash
	timestamp time.Time
}

func newBase(height uint32, hash common.Hash) baseEvent {
	return baseEvent{height: height, blockHash: hash, timestamp: time.Now()}
}

func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

func (e baseEvent) Height() uint32 {
	return e.height
}

func (e baseEvent) BlockHash() common.Hash {
	return e.blockHash
}

// BlockConnected is published when a header joins the best chain
type BlockConnected struct {
	baseEvent
	header *block.StoredHeader
}

func NewBlockConnected(h *block.StoredHeader) *BlockConnected {
	return &BlockConnected{baseEvent: newBase(h.Height, h.Hash()), header: h}
}

func (e *BlockConnected) Type() EventType {
	return EventBlockConnected
}

func (e *BlockConnected) Header() *block.StoredHeader {
	return e.header
}

// BlockDisconnected is published when a header leaves the best chain during a reorg
type BlockDisconnected struct {
	baseEvent
	header *block.StoredHeader
}

func NewBlockDisconnected(h *block.StoredHeader) *BlockDisconnected {
	return &BlockDisconnected{baseEvent: newBase(h.Height, h.Hash()), header: h}
}

func (e *BlockDisconnected) Type() EventType {
	return EventBlockDisconnected
}

func (e *BlockDisconnected) Header() *block.StoredHeader {
	return e.header
}

// Reorganization is published once a reorg has been fully replayed. Height and
// BlockHash refer to the new tip.
type Reorganization struct {
	baseEvent
	oldTip   common.Hash
	ancestor uint32
	depth    int
}

func NewReorganization(oldTip, newTip *block.StoredHeader, ancestorHeight uint32, depth int) *Reorganization {
	return &Reorganization{
		baseEvent: newBase(newTip.Height, newTip.Hash()),
		oldTip:    oldTip.Hash(),
		ancestor:  ancestorHeight,
		depth:     depth,
	}
}

func (e *Reorganization) Type() EventType {
	return EventReorganization
}

func (e *Reorganization) OldTip() common.Hash {
	return e.oldTip
}

func (e *Reorganization) AncestorHeight() uint32 {
	return e.ancestor
}

// Depth is the number of blocks disconnected.
func (e *Reorganization) Depth() int {
	return e.depth
}

// HeightReached is published when a registered height future resolves
type HeightReached struct {
	baseEvent
	target uint32
}

func NewHeightReached(target uint32, h *block.StoredHeader) *HeightReached {
	return &HeightReached{baseEvent: newBase(h.Height, h.Hash()), target: target}
}

func (e *HeightReached) Type() EventType {
	return EventHeightReached
}

func (e *HeightReached) Target() uint32 {
	return e.target
}

// CommitmentMismatch is published when a rebuilt masternode list does not match the
// root committed in its block
type CommitmentMismatch struct {
	baseEvent
	expected common.Hash
	actual   common.Hash
}

func NewCommitmentMismatch(height uint32, blockHash, expected, actual common.Hash) *CommitmentMismatch {
	return &CommitmentMismatch{baseEvent: newBase(height, blockHash), expected: expected, actual: actual}
}

func (e *CommitmentMismatch) Type() EventType {
	return EventCommitmentMismatch
}

func (e *CommitmentMismatch) Expected() common.Hash {
	return e.expected
}

func (e *CommitmentMismatch) Actual() common.Hash {
	return e.actual
}

// MasternodeListUpdated is published after the current list changes
type MasternodeListUpdated struct {
	baseEvent
	root       common.Hash
	size       int
	validCount int
}

func NewMasternodeListUpdated(height uint32, blockHash, root common.Hash, size, validCount int) *MasternodeListUpdated {
	return &MasternodeListUpdated{
		baseEvent:  newBase(height, blockHash),
		root:       root,
		size:       size,
		validCount: validCount,
	}
}

func (e *MasternodeListUpdated) Type() EventType {
	return EventMasternodeListUpdated
}

func (e *MasternodeListUpdated) MerkleRoot() common.Hash {
	return e.root
}

func (e *MasternodeListUpdated) Size() int {
	return e.size
}

func (e *MasternodeListUpdated) ValidCount() int {
	return e.validCount
}

// ListenerFailed is published when a connect or disconnect listener returns an error
type ListenerFailed struct {
	baseEvent
	errorMessage string
}

func NewListenerFailed(h *block.StoredHeader, err error) *ListenerFailed {
	return &ListenerFailed{baseEvent: newBase(h.Height, h.Hash()), errorMessage: err.Error()}
}

func (e *ListenerFailed) Type() EventType {
	return EventListenerFailed
}

func (e *ListenerFailed) ErrorMessage() string {
	return e.errorMessage
}

// OrphanEvicted is published when a held orphan is dropped to make room in the pool.
// Its height is unknown and reported as 0.
type OrphanEvicted struct {
	baseEvent
	parent common.Hash
}

func NewOrphanEvicted(hash, parent common.Hash) *OrphanEvicted {
	return &OrphanEvicted{baseEvent: newBase(0, hash), parent: parent}
}

func (e *OrphanEvicted) Type() EventType {
	return EventOrphanEvicted
}

func (e *OrphanEvicted) Parent() common.Hash {
	return e.parent
}
