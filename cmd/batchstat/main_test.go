package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Noofbiz/seqbatch/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, lines ...string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
		return path
	}

	var corpus []string
	for i := range 30 {
		corpus = append(corpus, strings.TrimSpace(strings.Repeat("a ", 1+i%5))+"\t"+strings.TrimSpace(strings.Repeat("x ", 1+i%3)))
	}

	cfg := &config.Config{
		Data: config.DataConfig{
			SrcVocabPath:  write("vocab.src", "<s>", "<e>", "<unk>", "a"),
			TrgVocabPath:  write("vocab.trg", "<s>", "<e>", "<unk>", "x"),
			TrainPattern:  write("train.txt", corpus...),
			BatchSize:     4,
			PoolSize:      10,
			SortType:      "pool",
			ClipLastBatch: true,
			Shuffle:       true,
			ShuffleBatch:  true,
			MaxLength:     100,
			Delimiter:     "\t",
			StartMark:     "<s>",
			EndMark:       "<e>",
			UnkMark:       "<unk>",
			Seed:          5,
		},
		Train: config.TrainConfig{Epochs: 2},
		Model: config.ModelConfig{MaxLength: 150, BosIdx: 0, EosIdx: 1, UnkIdx: 2},
	}

	out := filepath.Join(dir, "plots")
	require.NoError(t, run(cfg, zerolog.Nop(), 0, out, true))

	assert.FileExists(t, filepath.Join(out, "efficiency_hist.png"))
	assert.FileExists(t, filepath.Join(out, "efficiency_epochs.png"))
}

func TestRun_BadConfig(t *testing.T) {
	cfg := &config.Config{Data: config.DataConfig{SortType: "pool"}}
	assert.Error(t, run(cfg, zerolog.Nop(), 1, "", true))
}
