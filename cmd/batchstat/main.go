// Command batchstat builds the batches of a configured corpus for a number of epochs
// and reports how much padding they carry.
//
// Usage:
//
//	batchstat -config seqbatch.yaml -epochs 3 -out plots
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Noofbiz/seqbatch/config"
	"github.com/Noofbiz/seqbatch/datasets"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config (default: search ., .. and ~/.config/seqbatch)")
	epochs := flag.Int("epochs", 0, "number of epochs to build (0 = train.epochs from the config)")
	outDir := flag.String("out", "plots", "output directory for generated plots (empty disables plotting)")
	quiet := flag.Bool("quiet", false, "disable the progress bar")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log, err := config.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, log, *epochs, *outDir, *quiet); err != nil {
		log.Fatal().Err(err).Msg("batchstat failed")
	}
}

func run(cfg *config.Config, log zerolog.Logger, epochs int, outDir string, quiet bool) error {
	if epochs <= 0 {
		epochs = cfg.Train.Epochs
	}

	ds, err := datasets.NewFromConfig(cfg, &log)
	if err != nil {
		return err
	}
	stats := ds.Stats()
	log.Info().
		Int("files", stats.Files).
		Int("lines", stats.Lines).
		Int("samples", ds.Len()).
		Uint64("skipped", stats.Skipped.GetCardinality()).
		Msg("corpus summary")

	var all []datasets.EpochStats
	for i := range epochs {
		s, err := measure(ds, i, quiet)
		if err != nil {
			return fmt.Errorf("epoch %d: %w", i, err)
		}
		all = append(all, s)
		log.Info().
			Int("epoch", i).
			Int("batches", s.Batches).
			Int("samples", s.Samples).
			Int("tokens", s.Tokens).
			Int("padded_tokens", s.PaddedTokens).
			Float64("efficiency", s.Efficiency()).
			Float64("mean_batch_size", s.MeanBatchSize).
			Float64("std_batch_size", s.StdBatchSize).
			Msg("epoch built")
	}

	if outDir == "" || len(all) == 0 {
		return nil
	}
	if err := plotEfficiency(outDir, all); err != nil {
		return fmt.Errorf("failed to plot: %w", err)
	}
	log.Info().Str("dir", outDir).Msg("plots written")
	return nil
}

// measure builds one epoch, advancing a progress bar per batch.
func measure(ds *datasets.TranslationDataset, epoch int, quiet bool) (datasets.EpochStats, error) {
	var bar *progressbar.ProgressBar
	if !quiet {
		bar = progressbar.Default(-1, fmt.Sprintf("epoch %d", epoch))
		defer bar.Finish()
	}

	var rec datasets.StatsRecorder
	e := ds.Epoch()
	for {
		b, err := e.Next()
		if errors.Is(err, io.EOF) {
			return rec.Stats(), nil
		}
		if err != nil {
			return rec.Stats(), err
		}
		rec.Add(b)
		if bar != nil {
			bar.Add(1)
		}
	}
}
