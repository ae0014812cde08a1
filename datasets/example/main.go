package main

// Example command that loads a small parallel corpus, iterates one epoch and
// converts the first batch into gomlx tensors.
//
// Usage:
//   go run ./datasets/example -src vocab.src -trg vocab.trg -corpus 'data/**/*.txt'
//
// Without flags the example writes a toy corpus into a temp dir and uses it.

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/Noofbiz/seqbatch/batching"
	"github.com/Noofbiz/seqbatch/datasets"

	"github.com/rs/zerolog"
)

func main() {
	src := flag.String("src", "", "source vocabulary file")
	trg := flag.String("trg", "", "target vocabulary file (empty for a source-only corpus)")
	pattern := flag.String("corpus", "", "corpus file pattern")
	batchSize := flag.Int("batch-size", 4, "batch size in samples")
	flag.Parse()

	if *src == "" || *pattern == "" {
		dir, err := os.MkdirTemp("", "seqbatch-example-*")
		if err != nil {
			log.Fatalf("failed to create temp dir: %v", err)
		}
		defer os.RemoveAll(dir)
		*src, *trg, *pattern, err = writeToyCorpus(dir)
		if err != nil {
			log.Fatalf("failed to write toy corpus: %v", err)
		}
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	opts := datasets.DefaultOptions()
	opts.SrcVocabPath = *src
	opts.TrgVocabPath = *trg
	opts.Pattern = *pattern
	opts.BatchSize = *batchSize
	opts.PoolSize = 4 * *batchSize
	opts.Ordering = batching.OrderPool
	opts.ClipLastBatch = false
	opts.Seed = 1
	opts.Logger = &logger

	ds, err := datasets.NewTranslationDataset(opts)
	if err != nil {
		log.Fatalf("failed to load dataset: %v", err)
	}
	fmt.Printf("Total samples available: %d\n", ds.Len())

	stats, err := datasets.MeasureEpoch(ds.Epoch())
	if err != nil {
		log.Fatalf("failed to build epoch: %v", err)
	}
	fmt.Printf("One epoch: %d batches, %d samples, padding efficiency %.2f\n",
		stats.Batches, stats.Samples, stats.Efficiency())

	pb, err := ds.NextPadded()
	if err != nil {
		log.Fatalf("failed to build batch: %v", err)
	}
	inputs, labels, err := pb.ToGomlxTensors()
	if err != nil {
		log.Fatalf("failed to convert batch to gomlx tensors: %v", err)
	}
	fmt.Printf("First batch: %d samples, source length %d, target length %d\n", pb.BatchSize, pb.SrcLen, pb.TrgLen)
	fmt.Printf("  %d input tensors, %d label tensors\n", len(inputs), len(labels))
	fmt.Printf("  src_word row 0: %v\n", pb.SrcWord[:pb.SrcLen])
}

func writeToyCorpus(dir string) (src, trg, pattern string, err error) {
	files := map[string][]string{
		"vocab.src": {"<s>", "<e>", "<unk>", "the", "cat", "sat", "on", "mat", "dog"},
		"vocab.trg": {"<s>", "<e>", "<unk>", "le", "chat", "chien", "sur", "tapis"},
		"train.txt": {
			"the cat sat\tle chat",
			"the dog\tle chien",
			"the cat sat on the mat\tle chat sur le tapis",
			"the dog sat on the mat\tle chien sur le tapis",
			"cat\tchat",
			"dog\tchien",
			"the mat\tle tapis",
			"the cat on the mat\tle chat sur le tapis",
		},
	}
	for name, lines := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
			return "", "", "", err
		}
	}
	return filepath.Join(dir, "vocab.src"), filepath.Join(dir, "vocab.trg"), filepath.Join(dir, "train.txt"), nil
}
