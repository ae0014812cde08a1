package datasets

import (
	"github.com/Noofbiz/seqbatch/batching"
	"github.com/Noofbiz/seqbatch/config"
	"github.com/Noofbiz/seqbatch/vocab"

	"github.com/rs/zerolog"
)

// Options configures a TranslationDataset.
type Options struct {
	SrcVocabPath string
	// TrgVocabPath is empty for source-only corpora.
	TrgVocabPath string
	// Pattern selects the corpus files, see corpus.Options.
	Pattern       string
	ArchiveMember string

	// BatchSize counts samples, or tokens when UseTokenBatch is set.
	BatchSize     int
	PoolSize      int
	Ordering      batching.Ordering
	ClipLastBatch bool
	UseTokenBatch bool
	Shuffle       bool
	ShuffleBatch  bool
	Seed          int64

	MinLength int
	MaxLength int
	Delimiter string
	StartMark string
	EndMark   string
	UnkMark   string
	Normalize bool
	Workers   int

	// Model, when set, is checked against the loaded vocabularies.
	Model *config.ModelConfig

	Logger *zerolog.Logger
}

// DefaultOptions returns the defaults of the config package, without any paths.
func DefaultOptions() Options {
	return Options{
		BatchSize:     56,
		PoolSize:      10000,
		Ordering:      batching.OrderPool,
		ClipLastBatch: true,
		Shuffle:       true,
		MaxLength:     100,
		Delimiter:     "\t",
		StartMark:     vocab.StartMark,
		EndMark:       vocab.EndMark,
		UnkMark:       vocab.UnkMark,
	}
}

// OptionsFromConfig maps the data and model sections of cfg to Options.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	ordering, err := batching.ParseOrdering(cfg.Data.SortType)
	if err != nil {
		return Options{}, err
	}
	model := cfg.Model
	d := cfg.Data
	return Options{
		SrcVocabPath:  d.SrcVocabPath,
		TrgVocabPath:  d.TrgVocabPath,
		Pattern:       d.TrainPattern,
		ArchiveMember: d.ArchiveMember,
		BatchSize:     d.BatchSize,
		PoolSize:      d.PoolSize,
		Ordering:      ordering,
		ClipLastBatch: d.ClipLastBatch,
		UseTokenBatch: d.UseTokenBatch,
		Shuffle:       d.Shuffle,
		ShuffleBatch:  d.ShuffleBatch,
		Seed:          d.Seed,
		MinLength:     d.MinLength,
		MaxLength:     d.MaxLength,
		Delimiter:     d.Delimiter,
		StartMark:     d.StartMark,
		EndMark:       d.EndMark,
		UnkMark:       d.UnkMark,
		Normalize:     d.Normalize,
		Workers:       d.Workers,
		Model:         &model,
	}, nil
}
