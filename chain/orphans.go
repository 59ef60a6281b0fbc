package chain

import (
	"github.com/mezonai/mnlight/block"
	"github.com/mezonai/mnlight/common"
	"github.com/mezonai/mnlight/monitoring"
)

// orphanPool holds headers whose parent is not yet known. When full the oldest
// header is evicted. Not safe for concurrent use; guarded by the chain mutex.
type orphanPool struct {
	max      int
	byHash   map[common.Hash]*block.Header
	byParent map[common.Hash][]common.Hash
	order    []common.Hash
}

func newOrphanPool(max int) *orphanPool {
	return &orphanPool{
		max:      max,
		byHash:   make(map[common.Hash]*block.Header),
		byParent: make(map[common.Hash][]common.Hash),
	}
}

func (p *orphanPool) has(hash common.Hash) bool {
	_, ok := p.byHash[hash]
	return ok
}

func (p *orphanPool) size() int {
	return len(p.byHash)
}

// add holds h and returns the headers evicted to make room, oldest first.
func (p *orphanPool) add(hash common.Hash, h *block.Header) []*block.Header {
	if p.max <= 0 || p.has(hash) {
		return nil
	}
	var evicted []*block.Header
	for len(p.byHash) >= p.max && len(p.order) > 0 {
		oldest := p.order[0]
		evicted = append(evicted, p.byHash[oldest])
		p.remove(oldest)
	}
	p.byHash[hash] = h
	p.byParent[h.PrevBlock] = append(p.byParent[h.PrevBlock], hash)
	p.order = append(p.order, hash)
	monitoring.SetOrphanPoolSize(len(p.byHash))
	return evicted
}

func (p *orphanPool) remove(hash common.Hash) {
	h, ok := p.byHash[hash]
	if !ok {
		return
	}
	delete(p.byHash, hash)

	siblings := p.byParent[h.PrevBlock]
	for i, s := range siblings {
		if s == hash {
			siblings = append(siblings[:i], siblings[i+1:]...)
			break
		}
	}
	if len(siblings) == 0 {
		delete(p.byParent, h.PrevBlock)
	} else {
		p.byParent[h.PrevBlock] = siblings
	}

	for i, o := range p.order {
		if o == hash {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	monitoring.SetOrphanPoolSize(len(p.byHash))
}

// takeChildren removes and returns the orphans waiting on parent, oldest first.
func (p *orphanPool) takeChildren(parent common.Hash) []*block.Header {
	hashes := p.byParent[parent]
	if len(hashes) == 0 {
		return nil
	}
	hashes = append([]common.Hash(nil), hashes...)
	out := make([]*block.Header, 0, len(hashes))
	for _, hash := range hashes {
		out = append(out, p.byHash[hash])
		p.remove(hash)
	}
	return out
}
