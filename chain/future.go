package chain

import (
	"context"
	"sync"

	"github.com/mezonai/mnlight/block"
)

// HeightFuture resolves once, with the header that first brought the best chain to
// its target height.
type HeightFuture struct {
	target uint32
	done   chan struct{}
	once   sync.Once
	header *block.StoredHeader
}

func newHeightFuture(target uint32) *HeightFuture {
	return &HeightFuture{target: target, done: make(chan struct{})}
}

func (f *HeightFuture) resolve(h *block.StoredHeader) {
	f.once.Do(func() {
		f.header = h
		close(f.done)
	})
}

func (f *HeightFuture) Target() uint32 {
	return f.target
}

// Done is closed when the future resolves.
func (f *HeightFuture) Done() <-chan struct{} {
	return f.done
}

// Header returns the resolving header, or nil before resolution.
func (f *HeightFuture) Header() *block.StoredHeader {
	select {
	case <-f.done:
		return f.header
	default:
		return nil
	}
}

// Wait blocks until the future resolves or ctx is done.
func (f *HeightFuture) Wait(ctx context.Context) (*block.StoredHeader, error) {
	select {
	case <-f.done:
		return f.header, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
