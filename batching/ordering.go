package batching

import (
	"cmp"
	"fmt"
	"math/rand"
	"slices"
	"strings"
)

// Ordering selects how samples are ordered before they reach the Pool.
type Ordering int

const (
	// OrderGlobal sorts the whole corpus by length once and keeps that order.
	OrderGlobal Ordering = iota
	// OrderPool streams samples unsorted and lets the Pool sort each window.
	OrderPool
	// OrderNone streams samples as they are (reshuffled per epoch if enabled).
	OrderNone
)

func (o Ordering) String() string {
	switch o {
	case OrderGlobal:
		return "global"
	case OrderPool:
		return "pool"
	case OrderNone:
		return "none"
	default:
		return fmt.Sprintf("Ordering(%d)", int(o))
	}
}

// ParseOrdering parses "global", "pool" or "none".
func ParseOrdering(s string) (Ordering, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "global":
		return OrderGlobal, nil
	case "pool":
		return OrderPool, nil
	case "none":
		return OrderNone, nil
	}
	return 0, fmt.Errorf("unknown sort type %q (want global, pool or none)", s)
}

// Corpus is the random-access sample store an Order traverses.
type Corpus interface {
	// Len returns the number of samples.
	Len() int
	// SampleLen returns the sorting length of sample i.
	SampleLen(i int) int
	// Sample materializes sample i.
	Sample(i int) Sample
}

// Order owns the sample index permutation of a corpus and applies the ordering policy
// to it at the start of every traversal.
type Order struct {
	corpus  Corpus
	mode    Ordering
	shuffle bool
	rng     *rand.Rand

	idxs   []int
	sorted bool
}

// NewOrder creates an Order over c starting from the identity permutation. rng may be
// nil when shuffle is false.
func NewOrder(c Corpus, mode Ordering, shuffle bool, rng *rand.Rand) *Order {
	idxs := make([]int, c.Len())
	for i := range idxs {
		idxs[i] = i
	}
	return &Order{corpus: c, mode: mode, shuffle: shuffle, rng: rng, idxs: idxs}
}

// Mode returns the ordering policy.
func (o *Order) Mode() Ordering { return o.mode }

// SortsPool reports whether pools fed by this order should sort their windows.
func (o *Order) SortsPool() bool { return o.mode == OrderPool }

// Traverse updates the permutation for a new pass and returns a stream over it.
func (o *Order) Traverse() Stream {
	switch {
	case o.mode == OrderGlobal:
		if !o.sorted {
			slices.SortStableFunc(o.idxs, func(a, b int) int {
				return cmp.Compare(o.corpus.SampleLen(a), o.corpus.SampleLen(b))
			})
			o.sorted = true
		}
	case o.shuffle:
		o.rng.Shuffle(len(o.idxs), func(i, j int) {
			o.idxs[i], o.idxs[j] = o.idxs[j], o.idxs[i]
		})
	}
	return &indexStream{corpus: o.corpus, idxs: slices.Clone(o.idxs)}
}

// Indices returns a copy of the current permutation.
func (o *Order) Indices() []int { return slices.Clone(o.idxs) }

type indexStream struct {
	corpus Corpus
	idxs   []int
	pos    int
}

func (s *indexStream) Next() (Sample, bool) {
	if s.pos >= len(s.idxs) {
		return Sample{}, false
	}
	sample := s.corpus.Sample(s.idxs[s.pos])
	s.pos++
	return sample, true
}
