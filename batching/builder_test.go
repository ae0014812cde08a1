package batching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildAll runs a builder until the final batch and returns the non-final batches and
// the final one.
func buildAll(t *testing.T, b *Builder) (full []Batch, last Batch) {
	t.Helper()
	for i := 0; i < 1000; i++ {
		batch, final, err := b.Next()
		require.NoError(t, err)
		if final {
			return full, batch
		}
		full = append(full, batch)
	}
	t.Fatal("builder never reached the end of the stream")
	return nil, Batch{}
}

func TestBuilder_SampleCount(t *testing.T) {
	samples := samplesOfLen(3, 3, 3, 3, 3, 3, 3, 3, 3, 3)
	b := NewBuilder(NewPool(SliceStream(samples), 5, false), 4, SizeBySamples)

	full, last := buildAll(t, b)
	require.Len(t, full, 2)
	assert.Equal(t, []int{0, 1, 2, 3}, full[0].Indices())
	assert.Equal(t, []int{4, 5, 6, 7}, full[1].Indices())
	assert.Equal(t, []int{8, 9}, last.Indices())
	assert.Equal(t, 3, last.MaxLen)

	assert.False(t, b.KeepFinal(last, true))
	assert.True(t, b.KeepFinal(last, false))
}

func TestBuilder_TokenBudget(t *testing.T) {
	samples := samplesOfLen(5, 5, 5, 5, 5)
	b := NewBuilder(NewPool(SliceStream(samples), 10, false), 20, SizeByTokens)

	full, last := buildAll(t, b)
	require.Len(t, full, 1)
	assert.Equal(t, 3, full[0].Len())
	assert.Equal(t, 15, full[0].PaddedTokens())

	assert.Equal(t, 2, last.Len())
	assert.False(t, b.KeepFinal(last, true))
	assert.True(t, b.KeepFinal(last, false))
}

func TestBuilder_TokenBudgetTracksLongestSample(t *testing.T) {
	// 2*1 < 12, then 6*2 = 12 is not < 12 so the long one starts the next batch,
	// and the same bound keeps the short third sample out of it.
	samples := samplesOfLen(2, 6, 1)
	b := NewBuilder(NewPool(SliceStream(samples), 10, false), 12, SizeByTokens)

	full, last := buildAll(t, b)
	require.Len(t, full, 2)
	assert.Equal(t, []int{0}, full[0].Indices())
	assert.Equal(t, 2, full[0].MaxLen)
	assert.Equal(t, []int{1}, full[1].Indices())
	assert.Equal(t, 6, full[1].MaxLen)
	assert.Equal(t, []int{2}, last.Indices())
}

func TestBuilder_SampleExceedsBudget(t *testing.T) {
	b := NewBuilder(NewPool(SliceStream(samplesOfLen(5)), 10, false), 4, SizeByTokens)

	_, _, err := b.Next()
	assert.ErrorIs(t, err, ErrSampleExceedsBudget)
}

func TestBuilder_ExactlyFullLastBatchIsKept(t *testing.T) {
	samples := samplesOfLen(1, 1, 1, 1)
	b := NewBuilder(NewPool(SliceStream(samples), 10, false), 4, SizeBySamples)

	full, last := buildAll(t, b)
	assert.Empty(t, full)
	assert.Equal(t, 4, last.Len())
	assert.True(t, b.KeepFinal(last, true))
}

func TestBuilder_EmptyStream(t *testing.T) {
	b := NewBuilder(NewPool(SliceStream(nil), 3, false), 2, SizeBySamples)

	full, last := buildAll(t, b)
	assert.Empty(t, full)
	assert.Zero(t, last.Len())
	assert.False(t, b.KeepFinal(last, false))
	assert.False(t, b.KeepFinal(last, true))
}

// TestBuilder_PushBackKeepsEverySample checks that carrying an unfinished batch
// across a pool refill neither duplicates nor loses samples, with and without window
// sorting, for both sizing policies.
func TestBuilder_PushBackKeepsEverySample(t *testing.T) {
	lengths := []int{7, 2, 9, 4, 4, 1, 8, 3, 6, 5, 2, 2, 9, 1, 7, 3, 5, 6, 8, 4, 1, 3}
	cases := []struct {
		name   string
		size   int
		sizing Sizing
	}{
		{"samples", 3, SizeBySamples},
		{"tokens", 20, SizeByTokens},
	}
	for _, tc := range cases {
		for _, sortByLen := range []bool{false, true} {
			for capacity := tc.size + 1; capacity < tc.size+8; capacity++ {
				if tc.sizing == SizeByTokens && capacity > 25 {
					break
				}
				pool := NewPool(SliceStream(samplesOfLen(lengths...)), capacity, sortByLen)
				b := NewBuilder(pool, tc.size, tc.sizing)
				full, last := buildAll(t, b)

				counts := make(map[int]int)
				for _, batch := range append(full, last) {
					if tc.sizing == SizeByTokens {
						assert.Less(t, batch.PaddedTokens(), tc.size)
					} else {
						assert.LessOrEqual(t, batch.Len(), tc.size)
					}
					for _, idx := range batch.Indices() {
						counts[idx]++
					}
				}
				assert.Len(t, counts, len(lengths), "%s sort=%v cap=%d", tc.name, sortByLen, capacity)
				for idx, n := range counts {
					assert.Equal(t, 1, n, "sample %d seen %d times", idx, n)
				}
			}
		}
	}
}

func TestBuilder_SortedPoolGroupsSimilarLengths(t *testing.T) {
	samples := samplesOfLen(9, 1, 9, 1, 9, 1, 9, 1)
	b := NewBuilder(NewPool(SliceStream(samples), 9, true), 4, SizeBySamples)

	full, last := buildAll(t, b)
	require.Len(t, full, 1)
	assert.Equal(t, 1, full[0].MaxLen)
	assert.Equal(t, 9, last.MaxLen)
	assert.Equal(t, 4, last.Len())
}
