package batching

import (
	"errors"
	"fmt"
)

// ErrSampleExceedsBudget is returned when a sample cannot fit even into an empty
// token-budget batch.
var ErrSampleExceedsBudget = errors.New("sample exceeds token budget")

// Sizing selects how the size of a batch is measured.
type Sizing int

const (
	// SizeBySamples caps the number of samples in a batch.
	SizeBySamples Sizing = iota
	// SizeByTokens caps max_len * count, the padded token count of a batch.
	SizeByTokens
)

func (s Sizing) String() string {
	switch s {
	case SizeBySamples:
		return "samples"
	case SizeByTokens:
		return "tokens"
	default:
		return fmt.Sprintf("Sizing(%d)", int(s))
	}
}

// Batch is an ordered group of samples. MaxLen is the length of its longest sample.
type Batch struct {
	Samples []Sample
	MaxLen  int
}

// Len returns the number of samples in the batch.
func (b Batch) Len() int { return len(b.Samples) }

// PaddedTokens returns the token count of the batch once every sample is padded to
// MaxLen.
func (b Batch) PaddedTokens() int { return len(b.Samples) * b.MaxLen }

// Tokens returns the number of real (unpadded) tokens, measured per sample as Len.
func (b Batch) Tokens() int {
	n := 0
	for _, s := range b.Samples {
		n += s.Len()
	}
	return n
}

// Indices returns the corpus indices of the samples, in batch order.
func (b Batch) Indices() []int {
	idx := make([]int, len(b.Samples))
	for i, s := range b.Samples {
		idx[i] = s.Index
	}
	return idx
}

// Builder assembles batches out of a Pool.
type Builder struct {
	pool   *Pool
	size   int
	sizing Sizing
}

// NewBuilder returns a Builder drawing from pool. size is a sample count or a token
// budget depending on sizing.
func NewBuilder(pool *Pool, size int, sizing Sizing) *Builder {
	return &Builder{pool: pool, size: size, sizing: sizing}
}

// Next assembles the next batch. final is true when the end of the stream was reached
// while assembling; the returned batch is then the possibly partial last one, and Next
// must not be called again.
func (b *Builder) Next() (batch Batch, final bool, err error) {
	var samples []Sample
	maxLen := 0

	for {
		item, ok := b.pool.Peek()
		if !ok {
			// The window ran dry mid-batch. The unfinished batch goes back into the
			// pool so that a sorting pool can place it among the fresh samples.
			if err := b.pool.PushBack(samples); err != nil {
				return Batch{}, false, err
			}
			samples = nil
			maxLen = 0
			continue
		}

		if item.End {
			return Batch{Samples: samples, MaxLen: maxLen}, true, nil
		}

		candidate := max(maxLen, item.Sample.Len())
		if !b.fits(len(samples), candidate) {
			if len(samples) == 0 {
				return Batch{}, false, fmt.Errorf("%w: sample %d has length %d, budget is %d",
					ErrSampleExceedsBudget, item.Sample.Index, item.Sample.Len(), b.size)
			}
			return Batch{Samples: samples, MaxLen: maxLen}, false, nil
		}

		b.pool.Take()
		samples = append(samples, item.Sample)
		maxLen = candidate
	}
}

// fits reports whether one more sample can join a batch of count samples whose max
// length would become maxLen.
func (b *Builder) fits(count, maxLen int) bool {
	if b.sizing == SizeByTokens {
		return maxLen*(count+1) < b.size
	}
	return count < b.size
}

// effectiveSize is the size of batch as measured by the sizing policy.
func (b *Builder) effectiveSize(batch Batch) int {
	if b.sizing == SizeByTokens {
		return batch.PaddedTokens()
	}
	return batch.Len()
}

// KeepFinal decides whether the last, possibly partial, batch of an epoch is emitted.
// With clip unset any non-empty batch is kept; a batch that is exactly full is always
// kept.
func (b *Builder) KeepFinal(batch Batch, clip bool) bool {
	if !clip && batch.Len() > 0 {
		return true
	}
	return batch.Len() > 0 && b.effectiveSize(batch) == b.size
}
