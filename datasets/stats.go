package datasets

import (
	"errors"
	"io"

	"github.com/Noofbiz/seqbatch/batching"

	"gonum.org/v1/gonum/stat"
)

// EpochStats describes the batches of one epoch.
type EpochStats struct {
	Batches      int
	Samples      int
	Tokens       int
	PaddedTokens int

	MeanBatchSize float64
	StdBatchSize  float64
	// Efficiency is Tokens / PaddedTokens per batch.
	MeanEfficiency float64
	StdEfficiency  float64

	BatchSizes   []float64
	Efficiencies []float64
}

// Efficiency returns the share of real tokens over all padded tokens of the epoch.
func (s EpochStats) Efficiency() float64 {
	if s.PaddedTokens == 0 {
		return 0
	}
	return float64(s.Tokens) / float64(s.PaddedTokens)
}

// StatsRecorder accumulates EpochStats one batch at a time.
type StatsRecorder struct {
	stats EpochStats
}

func (r *StatsRecorder) Add(b batching.Batch) {
	r.stats.Batches++
	r.stats.Samples += b.Len()
	r.stats.Tokens += b.Tokens()
	r.stats.PaddedTokens += b.PaddedTokens()

	eff := 0.0
	if p := b.PaddedTokens(); p > 0 {
		eff = float64(b.Tokens()) / float64(p)
	}
	r.stats.BatchSizes = append(r.stats.BatchSizes, float64(b.Len()))
	r.stats.Efficiencies = append(r.stats.Efficiencies, eff)
}

// Stats returns the statistics of everything added so far.
func (r *StatsRecorder) Stats() EpochStats {
	s := r.stats
	if s.Batches > 0 {
		s.MeanBatchSize, s.StdBatchSize = stat.MeanStdDev(s.BatchSizes, nil)
		s.MeanEfficiency, s.StdEfficiency = stat.MeanStdDev(s.Efficiencies, nil)
	}
	// The sample standard deviation of a single value is NaN.
	if s.Batches == 1 {
		s.StdBatchSize, s.StdEfficiency = 0, 0
	}
	return s
}

// MeasureEpoch drains e and returns its statistics.
func MeasureEpoch(e *batching.Epoch) (EpochStats, error) {
	var r StatsRecorder
	for {
		b, err := e.Next()
		if errors.Is(err, io.EOF) {
			return r.Stats(), nil
		}
		if err != nil {
			return r.Stats(), err
		}
		r.Add(b)
	}
}
