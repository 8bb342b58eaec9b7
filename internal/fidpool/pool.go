// Package fidpool allocates the small dense integers a 9P client uses
// to name resources (fids).
//
// A Pool hands out identifiers in a contiguous sequence starting at
// zero and recycles freed ones, lowest first. Get and Put both take the
// pool's mutex. As in droyo-styx's internal pool package, the pool does
// not shrink its high-water mark until every identifier above a freed
// one has also been freed. Unlike that package, a Pool
// here is bounded at construction: once its ceiling is reached and no
// freed identifier is available, Get returns ErrExhausted rather than
// growing without limit, resolving the open question the client engine
// would otherwise face of what to do with an unbounded number of
// in-flight fids on a connection with a fixed negotiated msize.
package fidpool

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
)

// ErrExhausted is returned by Get when the pool has no free identifiers
// remaining below its ceiling.
var ErrExhausted = errors.New("fidpool: no free identifiers")

// A Pool hands out unique uint32 identifiers in the range [0, ceiling).
// The zero value is not usable; construct one with New.
type Pool struct {
	ceiling uint32
	next    uint32

	mu      sync.Mutex
	clunked []uint32
}

// New returns a Pool that will hand out identifiers in [0, ceiling).
// A ceiling of 0 means unbounded (limited only by uint32's range).
func New(ceiling uint32) *Pool {
	if ceiling == 0 {
		ceiling = 1<<32 - 1
	}
	return &Pool{ceiling: ceiling}
}

// Get returns the lowest previously-freed identifier if there is one,
// otherwise a fresh identifier, or ErrExhausted if the pool's ceiling
// has been reached and no previously-freed identifier is available.
func (p *Pool) Get() (uint32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.clunked) > 0 {
		id := p.clunked[0]
		p.clunked = p.clunked[1:]
		return id, nil
	}
	if id := atomic.LoadUint32(&p.next); id < p.ceiling {
		atomic.StoreUint32(&p.next, id+1)
		return id, nil
	}
	return 0, ErrExhausted
}

// Put returns id to the pool, making it available for a later Get. Put
// must be called at most once for any identifier returned by Get, and
// only after the caller is finished using it.
func (p *Pool) Put(id uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if atomic.CompareAndSwapUint32(&p.next, id+1, id) {
		// id was the most recently issued identifier; the high-water
		// mark can retreat, possibly past identifiers already parked
		// in clunked.
		for len(p.clunked) > 0 {
			last := p.clunked[len(p.clunked)-1]
			if !atomic.CompareAndSwapUint32(&p.next, last+1, last) {
				break
			}
			p.clunked = p.clunked[:len(p.clunked)-1]
		}
		return
	}
	p.clunked = append(p.clunked, id)
	sort.Sort(uint32Slice(p.clunked))
}

// Len reports the number of identifiers currently issued and not yet
// returned to the pool.
func (p *Pool) Len() int {
	p.mu.Lock()
	n := int(atomic.LoadUint32(&p.next)) - len(p.clunked)
	p.mu.Unlock()
	return n
}

type uint32Slice []uint32

func (s uint32Slice) Len() int           { return len(s) }
func (s uint32Slice) Less(i, j int) bool { return s[i] < s[j] }
func (s uint32Slice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
