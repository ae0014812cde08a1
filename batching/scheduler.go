package batching

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"slices"

	"github.com/rs/zerolog"
)

// ErrInvalidOptions is returned by NewScheduler for unusable sizes.
var ErrInvalidOptions = errors.New("invalid batching options")

// Options configures a Scheduler.
type Options struct {
	// BatchSize is a sample count (SizeBySamples) or a token budget (SizeByTokens).
	BatchSize int
	// PoolSize is the look-ahead window in samples. With SizeBySamples it must exceed
	// BatchSize. With SizeByTokens it only has to be positive, and a window too small
	// for a batch surfaces as ErrCapacityExceeded while building.
	PoolSize int
	Sizing   Sizing
	// ClipLastBatch drops the last batch of an epoch unless it is exactly full.
	ClipLastBatch bool
	// ShuffleBatches shuffles the order of batches within an epoch.
	ShuffleBatches bool

	// Logger is optional; nil disables logging.
	Logger *zerolog.Logger
}

// Scheduler produces the batches of successive epochs.
type Scheduler struct {
	order *Order
	opts  Options
	rng   *rand.Rand
	log   zerolog.Logger

	// cache holds the batches of the last epoch when the ordering makes the
	// partitioning identical from one epoch to the next. cached is set once it is
	// built, since an epoch may legitimately have no batches.
	cache  []Batch
	cached bool
}

// NewScheduler validates opts and returns a Scheduler over order. rng drives batch
// shuffling; it may be shared with order since both are used from one goroutine.
func NewScheduler(order *Order, opts Options, rng *rand.Rand) (*Scheduler, error) {
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size must be > 0, got %d", ErrInvalidOptions, opts.BatchSize)
	}
	if opts.PoolSize <= 0 {
		return nil, fmt.Errorf("%w: pool size must be > 0, got %d", ErrInvalidOptions, opts.PoolSize)
	}
	if opts.Sizing == SizeBySamples && opts.PoolSize <= opts.BatchSize {
		return nil, fmt.Errorf("%w: pool size %d must be greater than batch size %d",
			ErrInvalidOptions, opts.PoolSize, opts.BatchSize)
	}
	if opts.ShuffleBatches && rng == nil {
		return nil, fmt.Errorf("%w: batch shuffling needs a random source", ErrInvalidOptions)
	}

	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "scheduler").Logger()
	}
	return &Scheduler{order: order, opts: opts, rng: rng, log: log}, nil
}

// Cacheable reports whether batch lists may be reused across epochs. Pool-sorted
// partitioning depends on which samples share a window, so it is rebuilt every epoch.
func (s *Scheduler) Cacheable() bool {
	return s.order.Mode() != OrderPool
}

// Epoch starts a new epoch. The returned iterator must be drained (or abandoned)
// before the next call to Epoch.
func (s *Scheduler) Epoch() *Epoch {
	return &Epoch{s: s}
}

func (s *Scheduler) newBuilder() *Builder {
	pool := NewPool(s.order.Traverse(), s.opts.PoolSize, s.order.SortsPool())
	return NewBuilder(pool, s.opts.BatchSize, s.opts.Sizing)
}

// drain runs a full pass and returns every emitted batch in production order.
func (s *Scheduler) drain() ([]Batch, error) {
	builder := s.newBuilder()
	var batches []Batch
	for {
		batch, final, err := builder.Next()
		if err != nil {
			return nil, err
		}
		if !final {
			batches = append(batches, batch)
			continue
		}
		if builder.KeepFinal(batch, s.opts.ClipLastBatch) {
			batches = append(batches, batch)
		} else {
			s.log.Debug().Int("samples", batch.Len()).Msg("dropping last batch")
		}
		return batches, nil
	}
}

// shuffled returns this epoch's batch list in shuffled order, reusing the cache when
// allowed.
func (s *Scheduler) shuffled() ([]Batch, error) {
	if !s.cached || !s.Cacheable() {
		batches, err := s.drain()
		if err != nil {
			return nil, err
		}
		if s.Cacheable() {
			s.cache = batches
			s.cached = true
			batches = slices.Clone(batches)
			s.log.Debug().Int("batches", len(batches)).Msg("batch cache built")
		}
		s.shuffle(batches)
		return batches, nil
	}

	s.log.Debug().Int("batches", len(s.cache)).Msg("reusing batch cache")
	batches := slices.Clone(s.cache)
	s.shuffle(batches)
	return batches, nil
}

func (s *Scheduler) shuffle(batches []Batch) {
	s.rng.Shuffle(len(batches), func(i, j int) {
		batches[i], batches[j] = batches[j], batches[i]
	})
}

// Epoch iterates the batches of one epoch.
type Epoch struct {
	s *Scheduler

	// streaming mode
	builder *Builder

	// shuffled mode
	batches []Batch
	loaded  bool
	pos     int

	done bool
}

// Next returns the next batch, or io.EOF once the epoch is over. Any other error ends
// the epoch as well.
func (e *Epoch) Next() (Batch, error) {
	if e.done {
		return Batch{}, io.EOF
	}
	if e.s.opts.ShuffleBatches {
		return e.nextShuffled()
	}
	return e.nextStreamed()
}

func (e *Epoch) nextStreamed() (Batch, error) {
	if e.builder == nil {
		e.builder = e.s.newBuilder()
	}
	batch, final, err := e.builder.Next()
	if err != nil {
		e.done = true
		return Batch{}, err
	}
	if !final {
		return batch, nil
	}

	e.done = true
	if e.builder.KeepFinal(batch, e.s.opts.ClipLastBatch) {
		return batch, nil
	}
	e.s.log.Debug().Int("samples", batch.Len()).Msg("dropping last batch")
	return Batch{}, io.EOF
}

func (e *Epoch) nextShuffled() (Batch, error) {
	if !e.loaded {
		batches, err := e.s.shuffled()
		if err != nil {
			e.done = true
			return Batch{}, err
		}
		e.batches = batches
		e.loaded = true
	}
	if e.pos >= len(e.batches) {
		e.done = true
		return Batch{}, io.EOF
	}
	batch := e.batches[e.pos]
	e.pos++
	return batch, nil
}

// Collect drains the rest of the epoch into a slice.
func (e *Epoch) Collect() ([]Batch, error) {
	var out []Batch
	for {
		batch, err := e.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, batch)
	}
}
