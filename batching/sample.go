// Package batching turns a stream of tokenized samples into mini-batches.
//
// Samples flow through three stages:
//
//   - Pool: a bounded look-ahead buffer that pulls samples lazily from a Stream,
//     optionally sorting each refill window by length.
//   - Builder: drains the Pool into batches under a sample-count or a token-budget
//     sizing policy.
//   - Scheduler: runs the Builder over one epoch, optionally shuffling the order of
//     the batches and caching them across epochs when the partitioning is stable.
//
// Everything is single-consumer and pull-based. Each epoch owns its own Pool, so
// independent epochs (or independent Schedulers) never share mutable state.
package batching

// Sample is one training example. In source-only mode TargetIn and TargetOut are nil.
// Otherwise TargetIn is the target sequence without its last token and TargetOut is
// the target sequence without its first token.
type Sample struct {
	// Index is the position of the sample in the corpus it came from.
	Index int

	Source    []int32
	TargetIn  []int32
	TargetOut []int32
}

// Len returns the length of the longest sequence in the sample.
func (s Sample) Len() int {
	return max(len(s.Source), len(s.TargetIn), len(s.TargetOut))
}

// HasTarget reports whether the sample carries target sequences.
func (s Sample) HasTarget() bool {
	return s.TargetIn != nil
}

// Stream is a finite lazy sequence of samples. Next returns false once the stream is
// exhausted, and keeps returning false afterwards.
type Stream interface {
	Next() (Sample, bool)
}

// sliceStream streams a fixed slice of samples.
type sliceStream struct {
	samples []Sample
	pos     int
}

// SliceStream returns a Stream over samples, in order.
func SliceStream(samples []Sample) Stream {
	return &sliceStream{samples: samples}
}

func (s *sliceStream) Next() (Sample, bool) {
	if s.pos >= len(s.samples) {
		return Sample{}, false
	}
	sample := s.samples[s.pos]
	s.pos++
	return sample, true
}
