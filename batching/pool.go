package batching

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrInvariantViolation is returned when the Pool is used in a way the Builder never
	// does, e.g. pushing back into a non-empty buffer.
	ErrInvariantViolation = errors.New("pool invariant violation")
	// ErrCapacityExceeded is returned when more samples are pushed back than the pool
	// can hold while still leaving room to refill.
	ErrCapacityExceeded = errors.New("pool capacity exceeded")
)

// Item is an element of the Pool buffer: either a Sample or the end-of-stream marker.
type Item struct {
	Sample Sample
	End    bool
}

var endOfStream = Item{End: true}

// Pool is a bounded look-ahead buffer over a Stream.
//
// The buffer holds at most Cap() samples, plus one trailing end-of-stream item once
// the stream is exhausted and the buffer was not refilled to capacity.
type Pool struct {
	src       Stream
	capacity  int
	sortByLen bool
	exhausted bool

	buf  []Item
	head int
}

// NewPool creates an empty pool over src. Nothing is pulled from src until the first
// PushBack.
func NewPool(src Stream, capacity int, sortByLen bool) *Pool {
	return &Pool{
		src:       src,
		capacity:  capacity,
		sortByLen: sortByLen,
		buf:       make([]Item, 0, capacity+1),
	}
}

// Cap returns the sample capacity of the pool.
func (p *Pool) Cap() int { return p.capacity }

// Len returns the number of items currently buffered, the end marker included.
func (p *Pool) Len() int { return len(p.buf) - p.head }

// Exhausted reports whether the underlying stream has run dry.
func (p *Pool) Exhausted() bool { return p.exhausted }

// fill tops the buffer up from the stream, sorts it if requested and appends the end
// marker once the stream is exhausted and there is room for it.
func (p *Pool) fill() {
	for len(p.buf) < p.capacity && !p.exhausted {
		sample, ok := p.src.Next()
		if !ok {
			p.exhausted = true
			break
		}
		p.buf = append(p.buf, Item{Sample: sample})
	}

	if p.sortByLen {
		slices.SortStableFunc(p.buf, func(a, b Item) int {
			return cmp.Compare(a.Sample.Len(), b.Sample.Len())
		})
	}

	if p.exhausted && len(p.buf) < p.capacity {
		p.buf = append(p.buf, endOfStream)
	}
}

// PushBack re-inserts samples at the front of an empty pool and refills it.
func (p *Pool) PushBack(samples []Sample) error {
	if p.Len() != 0 {
		return fmt.Errorf("%w: push back into a pool holding %d items", ErrInvariantViolation, p.Len())
	}
	if len(samples) >= p.capacity {
		return fmt.Errorf("%w: pushing back %d samples into a pool of capacity %d",
			ErrCapacityExceeded, len(samples), p.capacity)
	}

	p.buf = p.buf[:0]
	p.head = 0
	for _, s := range samples {
		p.buf = append(p.buf, Item{Sample: s})
	}
	p.fill()
	return nil
}

// Peek returns the front item without removing it. ok is false when the buffer is
// empty.
func (p *Pool) Peek() (item Item, ok bool) {
	if p.head >= len(p.buf) {
		return Item{}, false
	}
	return p.buf[p.head], true
}

// Take removes and returns the front item. ok is false when the buffer is empty.
func (p *Pool) Take() (item Item, ok bool) {
	if p.head >= len(p.buf) {
		return Item{}, false
	}
	item = p.buf[p.head]
	p.buf[p.head] = Item{}
	p.head++
	return item, true
}
