// Package txtable implements the client-side transaction table: the
// fixed-size slot array that correlates an outstanding request with the
// reply the read loop eventually delivers for it.
//
// This mirrors the shape of AsyncClient::TransactionPool in the
// original implementation (a preallocated vector of transaction slots,
// searched for a free one on send and indexed by tag on receive) but
// takes the tag==slot-index shortcut droyo-styx's conn.go takes for its
// response channel table: since a Table owns tag assignment, it can
// make the tag an index into its own slot array instead of storing
// transactions in an unordered set and scanning for a matching tag on
// every reply.
package txtable

import (
	"errors"
	"sync"

	"github.com/ninelib/ninep/wire"
)

// ErrExhausted is returned by Alloc when every slot is awaiting a reply.
var ErrExhausted = errors.New("txtable: no free tags")

// A Table is a fixed-size array of transaction slots, indexed by tag.
// It is safe for concurrent use. The zero value is not usable; use New.
type Table struct {
	mu    sync.Mutex
	slots []slot
	free  []uint16
}

type slot struct {
	inUse bool
	done  chan wire.Msg
}

// New returns a Table with size slots, supporting tags in [0, size). size
// must not exceed wire.NoTag, since that value is reserved.
func New(size int) *Table {
	t := &Table{
		slots: make([]slot, size),
		free:  make([]uint16, size),
	}
	for i := range t.slots {
		t.slots[i].done = make(chan wire.Msg, 1)
		t.free[size-1-i] = uint16(i)
	}
	return t
}

// Alloc reserves a free tag and returns it along with the channel that
// will receive exactly one reply for it. The caller must eventually call
// Release with the same tag, whether or not a reply arrived.
func (t *Table) Alloc() (tag uint16, done <-chan wire.Msg, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.free) == 0 {
		return 0, nil, ErrExhausted
	}
	tag = t.free[len(t.free)-1]
	t.free = t.free[:len(t.free)-1]
	t.slots[tag].inUse = true
	return tag, t.slots[tag].done, nil
}

// Deliver routes msg to the slot named by its tag, if that slot is
// currently awaiting a reply. A message whose tag names a slot that is
// not in use — because it was never allocated, or because Release
// already ran (as happens for a reply that loses a race with its own
// Tflush, or arrives after the caller gave up waiting) — is silently
// dropped, matching the reference client's treatment of stale replies:
// nothing in the client protocol needs to observe a reply nobody is
// waiting for.
func (t *Table) Deliver(msg wire.Msg) {
	tag := msg.Tag()
	t.mu.Lock()
	if int(tag) >= len(t.slots) || !t.slots[tag].inUse {
		t.mu.Unlock()
		return
	}
	done := t.slots[tag].done
	t.mu.Unlock()

	select {
	case done <- msg:
	default:
		// a reply was already delivered for this tag (shouldn't
		// happen under the sequential-tag discipline, but never block
		// the read loop over it)
	}
}

// Release returns tag to the free pool. It must be called exactly once
// per successful Alloc, after the caller is done waiting on the done
// channel.
func (t *Table) Release(tag uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.slots[tag].inUse {
		return
	}
	t.slots[tag].inUse = false

	// drain any reply that arrived after the caller stopped waiting
	select {
	case <-t.slots[tag].done:
	default:
	}
	t.free = append(t.free, tag)
}

// Len reports the number of tags currently allocated.
func (t *Table) Len() int {
	t.mu.Lock()
	n := len(t.slots) - len(t.free)
	t.mu.Unlock()
	return n
}
