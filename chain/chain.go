package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mezonai/mnlight/block"
	"github.com/mezonai/mnlight/common"
	"github.com/mezonai/mnlight/config"
	mnerrors "github.com/mezonai/mnlight/errors"
	"github.com/mezonai/mnlight/events"
	"github.com/mezonai/mnlight/logx"
	"github.com/mezonai/mnlight/monitoring"
	"github.com/mezonai/mnlight/store"
	"github.com/mezonai/mnlight/stringutil"
)

type State int32

const (
	StateInitializing State = iota
	StateSynced
	StateReorganizing
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateSynced:
		return "synced"
	case StateReorganizing:
		return "reorganizing"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// AcceptStatus describes what Accept did with a header.
type AcceptStatus int

const (
	Connected AcceptStatus = iota
	Reorganized
	SideChain
	Duplicate
	OrphanHeld
)

func (s AcceptStatus) String() string {
	switch s {
	case Connected:
		return "connected"
	case Reorganized:
		return "reorganized"
	case SideChain:
		return "side_chain"
	case Duplicate:
		return "duplicate"
	case OrphanHeld:
		return "orphan_held"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

type AcceptResult struct {
	Status AcceptStatus
	Hash   common.Hash
	// Stored is nil for duplicates and held orphans.
	Stored *block.StoredHeader
}

// Listener is notified synchronously for every block joining or leaving the best chain.
// During a reorg all disconnects (tip first) precede all connects (ascending).
type Listener interface {
	BlockConnected(ctx context.Context, stored *block.StoredHeader) error
	BlockDisconnected(ctx context.Context, stored *block.StoredHeader) error
}

// ChainState accepts headers, tracks the most-work chain and notifies listeners.
// Accept calls are serialized; readers use the atomic head.
type ChainState struct {
	params *config.NetworkParams
	cfg    config.ChainConfig
	blocks store.BlockStore
	bus    *events.EventBus
	now    func() time.Time

	mu        sync.Mutex
	listeners []Listener
	orphans   *orphanPool

	head  atomic.Pointer[block.StoredHeader]
	state atomic.Int32

	futuresMu sync.Mutex
	futures   map[uint32][]*HeightFuture
}

// NewChainState restores the head recorded in blocks, if any. bus may be nil.
func NewChainState(params *config.NetworkParams, blocks store.BlockStore, cfg config.ChainConfig, bus *events.EventBus) (*ChainState, error) {
	if params == nil || blocks == nil {
		return nil, fmt.Errorf("params and block store are required")
	}
	c := &ChainState{
		params:  params,
		cfg:     cfg,
		blocks:  blocks,
		bus:     bus,
		now:     time.Now,
		orphans: newOrphanPool(cfg.MaxOrphans),
		futures: make(map[uint32][]*HeightFuture),
	}

	head, err := blocks.GetChainHead()
	if err != nil {
		return nil, fmt.Errorf("failed to load chain head: %w", err)
	}
	if head != nil {
		c.head.Store(head)
		c.state.Store(int32(StateSynced))
		monitoring.SetBestHeight(head.Height)
		logx.Info("CHAIN", fmt.Sprintf("restored chain head %s at height %d", head.Hash(), head.Height))
	}
	return c, nil
}

// SetClock replaces the time source used for the future-timestamp check.
func (c *ChainState) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// AddListener registers l for connect and disconnect notifications.
func (c *ChainState) AddListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

func (c *ChainState) Params() *config.NetworkParams {
	return c.params
}

func (c *ChainState) State() State {
	return State(c.state.Load())
}

// BestHead returns the head of the most-work chain, or nil before genesis.
func (c *ChainState) BestHead() *block.StoredHeader {
	return c.head.Load()
}

func (c *ChainState) BestHeight() uint32 {
	if h := c.head.Load(); h != nil {
		return h.Height
	}
	return 0
}

// HeaderByHash returns a stored header from any branch, or nil.
func (c *ChainState) HeaderByHash(hash common.Hash) (*block.StoredHeader, error) {
	return c.blocks.Get(hash)
}

// HeaderAtHeight walks the best chain back from the head. It returns nil when
// height is above the head.
func (c *ChainState) HeaderAtHeight(height uint32) (*block.StoredHeader, error) {
	head := c.head.Load()
	if head == nil || height > head.Height {
		return nil, nil
	}
	return c.ancestor(head, height)
}

// ancestor returns the header at height on the branch ending at from.
func (c *ChainState) ancestor(from *block.StoredHeader, height uint32) (*block.StoredHeader, error) {
	cur := from
	for cur.Height > height {
		parent, err := c.blocks.Get(cur.Header.PrevBlock)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, fmt.Errorf("missing parent %s of header at height %d", cur.Header.PrevBlock, cur.Height)
		}
		cur = parent
	}
	return cur, nil
}

// Accept validates header and adds it to the chain. A non-nil error together with a
// valid result means the header was accepted but one or more listeners failed.
func (c *ChainState) Accept(ctx context.Context, header *block.Header) (AcceptResult, error) {
	if header == nil {
		return AcceptResult{}, newVerificationError(mnerrors.ErrCodeMalformed, common.ZeroHash, mnerrors.ErrMsgMalformedHeader)
	}
	if err := ctx.Err(); err != nil {
		return AcceptResult{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	res, listenerErr, err := c.acceptLocked(ctx, header)
	if err != nil {
		monitoring.RecordRejectedHeader(rejectReason(err))
		logx.Warn("CHAIN", fmt.Sprintf("rejected header %s: %v", stringutil.ShortHash(header.BlockHash()), err))
		return res, err
	}
	monitoring.RecordAcceptedHeader(res.Status.String())

	if res.Status == Connected || res.Status == Reorganized || res.Status == SideChain {
		listenerErr = errors.Join(listenerErr, c.processOrphans(ctx, res.Hash))
	}
	return res, listenerErr
}

func (c *ChainState) acceptLocked(ctx context.Context, header *block.Header) (res AcceptResult, listenerErr, err error) {
	hash := header.BlockHash()
	head := c.head.Load()

	if head == nil {
		if !header.PrevBlock.IsZero() || hash != c.params.GenesisHash() {
			return AcceptResult{}, nil, newVerificationError(mnerrors.ErrCodeBadGenesis, hash,
				"%s: got %s, want %s", mnerrors.ErrMsgNotGenesis, hash, c.params.GenesisHash())
		}
		return c.connectGenesis(ctx, header)
	}

	existing, err := c.blocks.Get(hash)
	if err != nil {
		return AcceptResult{}, nil, err
	}
	if existing != nil || c.orphans.has(hash) {
		return AcceptResult{Status: Duplicate, Hash: hash}, nil, nil
	}
	if header.PrevBlock.IsZero() {
		return AcceptResult{}, nil, newVerificationError(mnerrors.ErrCodeBadGenesis, hash,
			"second genesis header %s", hash)
	}

	if err := c.checkHeaderSanity(header, hash); err != nil {
		return AcceptResult{}, nil, err
	}

	parent, err := c.blocks.Get(header.PrevBlock)
	if err != nil {
		return AcceptResult{}, nil, err
	}
	if parent == nil {
		if c.cfg.OrphanPolicy == config.OrphanReject || c.cfg.MaxOrphans <= 0 {
			return AcceptResult{}, nil, newOrphanError(hash, header.PrevBlock)
		}
		for _, dropped := range c.orphans.add(hash, header) {
			droppedHash := dropped.BlockHash()
			monitoring.IncreaseOrphansEvicted()
			logx.Warn("CHAIN", fmt.Sprintf("orphan pool full, evicted %s waiting on %s",
				stringutil.ShortHash(droppedHash), stringutil.ShortHash(dropped.PrevBlock)))
			c.publish(events.NewOrphanEvicted(droppedHash, dropped.PrevBlock))
		}
		logx.Debug("CHAIN", "holding orphan", hash, "parent", header.PrevBlock)
		return AcceptResult{Status: OrphanHeld, Hash: hash}, nil, nil
	}
	return c.connectHeader(ctx, parent, header, hash)
}

func (c *ChainState) connectGenesis(ctx context.Context, header *block.Header) (res AcceptResult, listenerErr, err error) {
	stored := block.NewGenesisStored(header)
	if err := c.blocks.SetChainHead(stored); err != nil {
		return AcceptResult{}, nil, fmt.Errorf("failed to store genesis: %w", err)
	}
	c.head.Store(stored)
	c.state.Store(int32(StateSynced))
	monitoring.SetBestHeight(0)
	logx.Info("CHAIN", "accepted genesis", stored.Hash())

	listenerErr = c.notifyConnected(ctx, stored)
	c.resolveFutures(stored)
	return AcceptResult{Status: Connected, Hash: stored.Hash(), Stored: stored}, listenerErr, nil
}

// connectHeader runs the contextual checks against parent and then extends the best
// chain, records a side branch, or reorganizes onto it.
func (c *ChainState) connectHeader(ctx context.Context, parent *block.StoredHeader, header *block.Header, hash common.Hash) (res AcceptResult, listenerErr, err error) {
	if err := c.checkDifficulty(parent, header, hash); err != nil {
		return AcceptResult{}, nil, err
	}

	stored := parent.Build(header)
	if want, ok := c.params.CheckpointAt(stored.Height); ok && want != hash {
		return AcceptResult{}, nil, newCheckpointViolationError(stored.Height, want, hash)
	}

	head := c.head.Load()
	extendsHead := parent.Hash() == head.Hash()
	if !extendsHead {
		// a branch forking below the last checkpoint passed by the best chain
		if cp, ok := c.params.LastCheckpointAtOrBelow(head.Height); ok && parent.Height < cp {
			want, _ := c.params.CheckpointAt(cp)
			return AcceptResult{}, nil, newCheckpointViolationError(cp, want, hash)
		}
	}

	if extendsHead {
		if err := c.blocks.SetChainHead(stored); err != nil {
			return AcceptResult{}, nil, fmt.Errorf("failed to store header %s: %w", hash, err)
		}
		c.head.Store(stored)
		monitoring.SetBestHeight(stored.Height)
		logx.Debug("CHAIN", "connected", hash, "height", stored.Height)

		listenerErr = c.notifyConnected(ctx, stored)
		c.resolveFutures(stored)
		return AcceptResult{Status: Connected, Hash: hash, Stored: stored}, listenerErr, nil
	}

	if err := c.blocks.Put(stored); err != nil {
		return AcceptResult{}, nil, fmt.Errorf("failed to store header %s: %w", hash, err)
	}
	if !stored.MoreWorkThan(head) {
		logx.Debug("CHAIN", "side chain header", hash, "height", stored.Height)
		return AcceptResult{Status: SideChain, Hash: hash, Stored: stored}, nil, nil
	}

	listenerErr, err = c.reorganize(ctx, head, stored)
	if err != nil {
		return AcceptResult{}, nil, err
	}
	return AcceptResult{Status: Reorganized, Hash: hash, Stored: stored}, listenerErr, nil
}

// reorganize moves the best chain from oldTip to newTip. The new head is persisted
// first; old blocks are then disconnected tip first, new blocks connected ascending,
// and the head is swapped once at the end, after which futures resolve.
func (c *ChainState) reorganize(ctx context.Context, oldTip, newTip *block.StoredHeader) (listenerErr, err error) {
	oldBranch, newBranch, fork, err := c.findFork(oldTip, newTip)
	if err != nil {
		return nil, fmt.Errorf("failed to locate fork point: %w", err)
	}

	// nothing is replayed until the store has the new head
	if err := c.blocks.SetChainHead(newTip); err != nil {
		return nil, fmt.Errorf("failed to record new chain head: %w", err)
	}

	logx.Info("CHAIN", fmt.Sprintf("reorganizing: fork at %d, disconnect %d, connect %d, new tip %s",
		fork.Height, len(oldBranch), len(newBranch), newTip.Hash()))
	c.state.Store(int32(StateReorganizing))

	var listenerErrs []error
	for _, h := range oldBranch {
		listenerErrs = append(listenerErrs, c.notifyDisconnected(ctx, h))
	}
	for _, h := range newBranch {
		listenerErrs = append(listenerErrs, c.notifyConnected(ctx, h))
	}

	c.head.Store(newTip)
	c.state.Store(int32(StateSynced))
	c.resolveFutures(newTip)

	monitoring.SetBestHeight(newTip.Height)
	monitoring.RecordReorg(len(oldBranch))
	c.publish(events.NewReorganization(oldTip, newTip, fork.Height, len(oldBranch)))
	return errors.Join(listenerErrs...), nil
}

// findFork returns the old branch tip first, the new branch ascending, and their
// common ancestor.
func (c *ChainState) findFork(oldTip, newTip *block.StoredHeader) ([]*block.StoredHeader, []*block.StoredHeader, *block.StoredHeader, error) {
	var oldBranch, newBranch []*block.StoredHeader
	a, b := oldTip, newTip

	step := func(h *block.StoredHeader) (*block.StoredHeader, error) {
		parent, err := c.blocks.Get(h.Header.PrevBlock)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, fmt.Errorf("missing parent %s at height %d", h.Header.PrevBlock, h.Height)
		}
		return parent, nil
	}

	var err error
	for a.Height > b.Height {
		oldBranch = append(oldBranch, a)
		if a, err = step(a); err != nil {
			return nil, nil, nil, err
		}
	}
	for b.Height > a.Height {
		newBranch = append(newBranch, b)
		if b, err = step(b); err != nil {
			return nil, nil, nil, err
		}
	}
	for a.Hash() != b.Hash() {
		oldBranch = append(oldBranch, a)
		newBranch = append(newBranch, b)
		if a, err = step(a); err != nil {
			return nil, nil, nil, err
		}
		if b, err = step(b); err != nil {
			return nil, nil, nil, err
		}
	}

	for i, j := 0, len(newBranch)-1; i < j; i, j = i+1, j-1 {
		newBranch[i], newBranch[j] = newBranch[j], newBranch[i]
	}
	return oldBranch, newBranch, a, nil
}

// processOrphans connects held headers whose ancestry became known through hash.
func (c *ChainState) processOrphans(ctx context.Context, hash common.Hash) error {
	var listenerErrs []error
	queue := []common.Hash{hash}
	for len(queue) > 0 {
		parentHash := queue[0]
		queue = queue[1:]

		for _, orphan := range c.orphans.takeChildren(parentHash) {
			parent, err := c.blocks.Get(parentHash)
			if err != nil || parent == nil {
				logx.Error("CHAIN", "orphan parent vanished", parentHash, err)
				continue
			}
			orphanHash := orphan.BlockHash()
			res, listenerErr, err := c.connectHeader(ctx, parent, orphan, orphanHash)
			if err != nil {
				monitoring.RecordRejectedHeader(rejectReason(err))
				logx.Warn("CHAIN", fmt.Sprintf("dropped orphan %s: %v", stringutil.ShortHash(orphanHash), err))
				continue
			}
			monitoring.RecordAcceptedHeader(res.Status.String())
			logx.Debug("CHAIN", "connected orphan", orphanHash, "status", res.Status)
			listenerErrs = append(listenerErrs, listenerErr)
			queue = append(queue, orphanHash)
		}
	}
	return errors.Join(listenerErrs...)
}

func (c *ChainState) notifyConnected(ctx context.Context, stored *block.StoredHeader) error {
	var errs []error
	for _, l := range c.listeners {
		if err := l.BlockConnected(ctx, stored); err != nil {
			errs = append(errs, c.listenerFailed(stored, "connect", err))
		}
	}
	c.publish(events.NewBlockConnected(stored))
	return errors.Join(errs...)
}

func (c *ChainState) notifyDisconnected(ctx context.Context, stored *block.StoredHeader) error {
	var errs []error
	for _, l := range c.listeners {
		if err := l.BlockDisconnected(ctx, stored); err != nil {
			errs = append(errs, c.listenerFailed(stored, "disconnect", err))
		}
	}
	c.publish(events.NewBlockDisconnected(stored))
	return errors.Join(errs...)
}

func (c *ChainState) listenerFailed(stored *block.StoredHeader, action string, err error) error {
	monitoring.IncreaseListenerErrors()
	logx.Error("CHAIN", fmt.Sprintf("listener %s failed at height %d (%s): %v", action, stored.Height, stored.Hash(), err))
	c.publish(events.NewListenerFailed(stored, err))
	return fmt.Errorf("listener %s at height %d: %w", action, stored.Height, err)
}

// AwaitHeight returns a future resolving when the best chain first reaches height.
// If it already has, the future is resolved with the best-chain header at height.
func (c *ChainState) AwaitHeight(height uint32) *HeightFuture {
	f := newHeightFuture(height)

	c.futuresMu.Lock()
	defer c.futuresMu.Unlock()

	if head := c.head.Load(); head != nil && head.Height >= height {
		h, err := c.ancestor(head, height)
		if err != nil || h == nil {
			logx.Warn("CHAIN", fmt.Sprintf("header at height %d unavailable, resolving with head: %v", height, err))
			h = head
		}
		f.resolve(h)
		return f
	}
	c.futures[height] = append(c.futures[height], f)
	return f
}

// resolveFutures fires every pending future whose target is at or below reached.
func (c *ChainState) resolveFutures(reached *block.StoredHeader) {
	c.futuresMu.Lock()
	defer c.futuresMu.Unlock()

	for target, pending := range c.futures {
		if target > reached.Height {
			continue
		}
		h := reached
		if target < reached.Height {
			var err error
			if h, err = c.ancestor(reached, target); err != nil {
				logx.Warn("CHAIN", fmt.Sprintf("header at height %d unavailable for future: %v", target, err))
				h = reached
			}
		}
		for _, f := range pending {
			f.resolve(h)
		}
		delete(c.futures, target)
		c.publish(events.NewHeightReached(target, h))
	}
}

// PendingFutures returns the number of unresolved height futures.
func (c *ChainState) PendingFutures() int {
	c.futuresMu.Lock()
	defer c.futuresMu.Unlock()
	n := 0
	for _, pending := range c.futures {
		n += len(pending)
	}
	return n
}

// OrphanCount returns the number of held orphan headers.
func (c *ChainState) OrphanCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orphans.size()
}

func (c *ChainState) publish(ev events.ChainEvent) {
	if c.bus != nil {
		c.bus.Publish(ev)
	}
}
