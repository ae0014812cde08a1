package datasets

import (
	"errors"
	"fmt"
	"io"
	"math/rand"

	"github.com/Noofbiz/seqbatch/batching"
	"github.com/Noofbiz/seqbatch/config"
	"github.com/Noofbiz/seqbatch/corpus"
	"github.com/Noofbiz/seqbatch/vocab"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrConfiguration is returned when the options, vocabularies and model settings
// disagree.
var ErrConfiguration = errors.New("dataset configuration error")

// TranslationDataset batches a parallel (or source-only) corpus epoch after epoch.
// It is not safe for concurrent use; build one dataset per consumer.
type TranslationDataset struct {
	opts Options
	id   string
	log  zerolog.Logger

	src *vocab.Vocab
	trg *vocab.Vocab

	corpus    *corpus.Corpus
	order     *batching.Order
	scheduler *batching.Scheduler

	srcPad int32
	trgPad int32

	// current is the epoch Yield reads from.
	current *batching.Epoch
}

var _ Dataset = (*TranslationDataset)(nil)

// NewTranslationDataset loads the vocabularies and the corpus described by opts.
func NewTranslationDataset(opts Options) (*TranslationDataset, error) {
	if opts.SrcVocabPath == "" {
		return nil, fmt.Errorf("%w: a source vocabulary path is required", ErrConfiguration)
	}
	if opts.Pattern == "" {
		return nil, fmt.Errorf("%w: a corpus pattern is required", ErrConfiguration)
	}
	if opts.StartMark == "" || opts.EndMark == "" || opts.UnkMark == "" {
		return nil, fmt.Errorf("%w: boundary and unknown markers must be set", ErrConfiguration)
	}

	id := uuid.NewString()
	log := loggerOrNop(opts.Logger).With().Str("dataset", id).Logger()

	d := &TranslationDataset{opts: opts, id: id, log: log}
	if err := d.loadVocabs(); err != nil {
		return nil, err
	}
	if err := d.checkModel(); err != nil {
		return nil, err
	}

	tokenBudget := 0
	sizing := batching.SizeBySamples
	if opts.UseTokenBatch {
		tokenBudget = opts.BatchSize
		sizing = batching.SizeByTokens
	}

	c, err := corpus.Load(corpus.Options{
		Pattern:       opts.Pattern,
		ArchiveMember: opts.ArchiveMember,
		Delimiter:     opts.Delimiter,
		MinLength:     opts.MinLength,
		MaxLength:     opts.MaxLength,
		TokenBudget:   tokenBudget,
		StartMark:     opts.StartMark,
		EndMark:       opts.EndMark,
		Normalize:     opts.Normalize,
		Workers:       opts.Workers,
		Logger:        &log,
	}, d.src, d.trg)
	if err != nil {
		return nil, err
	}
	d.corpus = c

	// Ordering and batch shuffling share one seeded source so an epoch sequence is
	// reproducible from the seed alone.
	rng := rand.New(rand.NewSource(opts.Seed))
	d.order = batching.NewOrder(c, opts.Ordering, opts.Shuffle, rng)
	d.scheduler, err = batching.NewScheduler(d.order, batching.Options{
		BatchSize:      opts.BatchSize,
		PoolSize:       opts.PoolSize,
		Sizing:         sizing,
		ClipLastBatch:  opts.ClipLastBatch,
		ShuffleBatches: opts.ShuffleBatch,
		Logger:         &log,
	}, rng)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("samples", c.Len()).
		Bool("source_only", c.SourceOnly()).
		Stringer("ordering", opts.Ordering).
		Stringer("sizing", sizing).
		Int("batch_size", opts.BatchSize).
		Int("pool_size", opts.PoolSize).
		Int64("seed", opts.Seed).
		Msg("dataset ready")
	return d, nil
}

func (d *TranslationDataset) loadVocabs() error {
	markers := []string{d.opts.StartMark, d.opts.EndMark}

	src, err := vocab.Load(d.opts.SrcVocabPath, d.opts.UnkMark)
	if err != nil {
		return err
	}
	if err := src.RequireMarkers(markers...); err != nil {
		return fmt.Errorf("source vocabulary: %w", err)
	}
	d.src = src
	d.srcPad = src.Lookup(d.opts.EndMark)

	if d.opts.TrgVocabPath == "" {
		return nil
	}
	trg, err := vocab.Load(d.opts.TrgVocabPath, d.opts.UnkMark)
	if err != nil {
		return err
	}
	if err := trg.RequireMarkers(markers...); err != nil {
		return fmt.Errorf("target vocabulary: %w", err)
	}
	d.trg = trg
	d.trgPad = trg.Lookup(d.opts.EndMark)
	return nil
}

// checkModel verifies the vocabularies and length bounds against the model settings.
func (d *TranslationDataset) checkModel() error {
	m := d.opts.Model
	if m == nil {
		return nil
	}
	if m.SrcVocabSize > 0 && m.SrcVocabSize != d.src.Len() {
		return fmt.Errorf("%w: model source vocabulary size %d, loaded %d",
			ErrConfiguration, m.SrcVocabSize, d.src.Len())
	}
	if d.trg != nil && m.TrgVocabSize > 0 && m.TrgVocabSize != d.trg.Len() {
		return fmt.Errorf("%w: model target vocabulary size %d, loaded %d",
			ErrConfiguration, m.TrgVocabSize, d.trg.Len())
	}
	// Encoded sequences carry both markers.
	if m.MaxLength > 0 && d.opts.MaxLength > 0 && d.opts.MaxLength+2 > m.MaxLength {
		return fmt.Errorf("%w: sequences of %d words do not fit model max length %d",
			ErrConfiguration, d.opts.MaxLength, m.MaxLength)
	}

	for _, v := range []*vocab.Vocab{d.src, d.trg} {
		if v == nil {
			continue
		}
		reserved := []struct {
			mark string
			idx  int
		}{
			{d.opts.StartMark, m.BosIdx},
			{d.opts.EndMark, m.EosIdx},
			{d.opts.UnkMark, m.UnkIdx},
		}
		for _, r := range reserved {
			if id, _ := v.ID(r.mark); int(id) != r.idx {
				return fmt.Errorf("%w: %s has id %d, model expects %d", ErrConfiguration, r.mark, id, r.idx)
			}
		}
	}
	return nil
}

// ID returns the run id tagging the dataset's log entries.
func (d *TranslationDataset) ID() string { return d.id }

// Len returns the number of samples.
func (d *TranslationDataset) Len() int { return d.corpus.Len() }

// Stats returns the corpus load statistics.
func (d *TranslationDataset) Stats() corpus.Stats { return d.corpus.Stats }

// Corpus returns the loaded corpus.
func (d *TranslationDataset) Corpus() *corpus.Corpus { return d.corpus }

// SourceVocab and TargetVocab return the loaded vocabularies. TargetVocab is nil for
// source-only datasets.
func (d *TranslationDataset) SourceVocab() *vocab.Vocab { return d.src }
func (d *TranslationDataset) TargetVocab() *vocab.Vocab { return d.trg }

// Epoch starts a new epoch. Epochs must be consumed one at a time.
func (d *TranslationDataset) Epoch() *batching.Epoch {
	return d.scheduler.Epoch()
}

// Name returns the name of the dataset
func (d *TranslationDataset) Name() string {
	return "TranslationDataset"
}

// Reset makes the next Yield start a new epoch.
func (d *TranslationDataset) Reset() {
	d.current = nil
}

// NextPadded returns the next padded batch of the current epoch, starting one if
// needed. It returns io.EOF at the end of the epoch until Reset is called.
func (d *TranslationDataset) NextPadded() (*PaddedBatch, error) {
	if d.current == nil {
		d.current = d.Epoch()
	}
	batch, err := d.current.Next()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			d.log.Error().Err(err).Msg("epoch aborted")
		}
		return nil, err
	}
	return MakePaddedBatch(batch, d.srcPad, d.trgPad)
}

// Yield returns the next batch as gomlx tensors, see ToGomlxTensors. It returns io.EOF
// at the end of the epoch.
func (d *TranslationDataset) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	pb, err := d.NextPadded()
	if err != nil {
		return nil, nil, nil, err
	}
	inputs, labels, err = pb.ToGomlxTensors()
	if err != nil {
		return nil, nil, nil, err
	}
	return nil, inputs, labels, nil
}

// configOrderings lists the sort types accepted in configuration files.
var configOrderings = []batching.Ordering{batching.OrderGlobal, batching.OrderPool, batching.OrderNone}

// NewFromConfig builds a dataset from a loaded configuration.
func NewFromConfig(cfg *config.Config, log *zerolog.Logger) (*TranslationDataset, error) {
	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: data.sortType must be one of %v: %w", ErrConfiguration, configOrderings, err)
	}
	opts.Logger = log
	return NewTranslationDataset(opts)
}
