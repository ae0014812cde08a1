// Package corpus loads parallel (or source-only) tokenized corpora into id sequences.
//
// A corpus is one or more text files matched by a path pattern, or a single member of
// a tar archive. Each line holds a source sequence and, in parallel mode, a target
// sequence separated by a delimiter. Sequences are whitespace-tokenized, wrapped in
// boundary markers and mapped through a vocabulary. Lines with the wrong number of
// fields or with out-of-range lengths are skipped and accounted for in Stats.
package corpus

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/Noofbiz/seqbatch/batching"
	"github.com/Noofbiz/seqbatch/vocab"

	"github.com/RoaringBitmap/roaring"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
	"github.com/yargevad/filepathx"
)

var (
	// ErrConfiguration reports options that cannot describe a corpus, e.g. a tar
	// archive without a member name.
	ErrConfiguration = errors.New("corpus configuration error")
	// ErrNoCorpusFiles is returned when the pattern matches nothing.
	ErrNoCorpusFiles = errors.New("no corpus files found")
	// ErrInvalidFile is returned when a matched path is not a regular file.
	ErrInvalidFile = errors.New("invalid corpus file")
	// ErrSampleCountMismatch is returned when source and target counts disagree.
	ErrSampleCountMismatch = errors.New("inconsistent sample count between source and target sequences")

	// ErrMalformedRecord and ErrSequenceLength classify skipped lines. They are only
	// ever reported through logs and Stats.
	ErrMalformedRecord = errors.New("malformed record")
	ErrSequenceLength  = errors.New("sequence length rejected")
)

// Options controls how corpus files are found and parsed.
type Options struct {
	// Pattern selects the corpus files. "**" matches any number of directories.
	Pattern string
	// ArchiveMember names the file to read when Pattern matches a single tar archive.
	ArchiveMember string

	// Delimiter separates the source and target fields. Defaults to a tab.
	Delimiter string
	// MinLength and MaxLength bound the number of words of every sequence.
	// MaxLength <= 0 means no upper bound.
	MinLength int
	MaxLength int
	// TokenBudget, when > 0, rejects samples too long to fit a token-budget batch of
	// that size on their own.
	TokenBudget int

	StartMark string
	EndMark   string

	// Normalize applies Unicode NFC normalization to fields before lookup.
	Normalize bool

	// Workers bounds how many files are parsed concurrently. Defaults to GOMAXPROCS.
	Workers int

	Logger *zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.Delimiter == "" {
		o.Delimiter = "\t"
	}
	if o.StartMark == "" {
		o.StartMark = vocab.StartMark
	}
	if o.EndMark == "" {
		o.EndMark = vocab.EndMark
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o
}

// Stats summarizes a load.
type Stats struct {
	Files     int
	Lines     int
	Accepted  int
	Malformed int
	Rejected  int

	// Skipped holds the ordinals of skipped lines, counted from 0 across all files in
	// pattern order.
	Skipped *roaring.Bitmap
}

// Corpus holds the encoded sequences. Target is nil for source-only corpora.
type Corpus struct {
	Source [][]int32
	Target [][]int32
	Stats  Stats
}

var _ batching.Corpus = (*Corpus)(nil)

// Load finds and parses the corpus described by opts. trg may be nil for a
// source-only corpus.
func Load(opts Options, src, trg *vocab.Vocab) (*Corpus, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: a source vocabulary is required", ErrConfiguration)
	}
	opts = opts.withDefaults()
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "corpus").Logger()
	}

	paths, err := filepathx.Glob(opts.Pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to glob pattern %s: %w", opts.Pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: pattern %s", ErrNoCorpusFiles, opts.Pattern)
	}
	log.Debug().Strs("files", paths).Msg("corpus files matched")

	p := &parser{opts: opts, src: src, trg: trg, log: log}

	var results []fileResult
	if len(paths) == 1 {
		isTar, err := isTarArchive(paths[0])
		if err != nil {
			return nil, err
		}
		if isTar {
			if opts.ArchiveMember == "" {
				return nil, fmt.Errorf("%w: %s is a tar archive, an archive member must be set",
					ErrConfiguration, paths[0])
			}
			res, err := p.parseArchiveMember(paths[0], opts.ArchiveMember)
			if err != nil {
				return nil, err
			}
			results = []fileResult{res}
		}
	}
	if results == nil {
		results, err = p.parseFiles(paths)
		if err != nil {
			return nil, err
		}
	}

	c := merge(results, trg != nil)
	if c.Target != nil && len(c.Target) != len(c.Source) {
		return nil, fmt.Errorf("%w: %d source, %d target", ErrSampleCountMismatch, len(c.Source), len(c.Target))
	}

	log.Info().
		Int("files", c.Stats.Files).
		Int("lines", c.Stats.Lines).
		Int("accepted", c.Stats.Accepted).
		Int("malformed", c.Stats.Malformed).
		Int("rejected", c.Stats.Rejected).
		Msg("corpus loaded")
	return c, nil
}

// parseFiles parses every path concurrently and returns the results in path order.
func (p *parser) parseFiles(paths []string) ([]fileResult, error) {
	results := make([]fileResult, len(paths))
	workers := pool.New().WithErrors().WithFirstError().WithMaxGoroutines(p.opts.Workers)
	for i, path := range paths {
		workers.Go(func() error {
			res, err := p.parseFile(path)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := workers.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// merge concatenates per-file results, shifting skipped line numbers to global
// ordinals.
func merge(results []fileResult, parallel bool) *Corpus {
	c := &Corpus{Stats: Stats{Files: len(results), Skipped: roaring.New()}}
	if parallel {
		c.Target = [][]int32{}
	}
	offset := 0
	for _, res := range results {
		c.Source = append(c.Source, res.source...)
		if parallel {
			c.Target = append(c.Target, res.target...)
		}
		for _, line := range res.skipped {
			c.Stats.Skipped.Add(uint32(offset + line))
		}
		c.Stats.Lines += res.lines
		c.Stats.Malformed += res.malformed
		c.Stats.Rejected += res.rejected
		offset += res.lines
	}
	c.Stats.Accepted = len(c.Source)
	return c
}

// Len returns the number of samples.
func (c *Corpus) Len() int { return len(c.Source) }

// SourceOnly reports whether the corpus has no target side.
func (c *Corpus) SourceOnly() bool { return c.Target == nil }

// SampleLen returns the length of sample i as Sample(i).Len would report it, without
// materializing the sample. The target side is shifted by one for teacher forcing.
func (c *Corpus) SampleLen(i int) int {
	n := len(c.Source[i])
	if c.Target != nil {
		n = max(n, len(c.Target[i])-1)
	}
	return n
}

// Sample returns sample i. The target is split into its input (without the last
// token) and output (without the first token) views.
func (c *Corpus) Sample(i int) batching.Sample {
	s := batching.Sample{Index: i, Source: c.Source[i]}
	if c.Target != nil {
		trg := c.Target[i]
		n := len(trg)
		s.TargetIn = trg[: n-1 : n-1]
		s.TargetOut = trg[1:n:n]
	}
	return s
}
