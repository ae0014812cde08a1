package batching

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func streamIndices(s Stream) []int {
	var out []int
	for {
		sample, ok := s.Next()
		if !ok {
			return out
		}
		out = append(out, sample.Index)
	}
}

func TestParseOrdering(t *testing.T) {
	for _, mode := range []Ordering{OrderGlobal, OrderPool, OrderNone} {
		got, err := ParseOrdering(mode.String())
		require.NoError(t, err)
		assert.Equal(t, mode, got)
	}

	got, err := ParseOrdering(" POOL ")
	require.NoError(t, err)
	assert.Equal(t, OrderPool, got)

	_, err = ParseOrdering("bucket")
	assert.Error(t, err)
}

func TestOrder_GlobalSortsOnceAndStably(t *testing.T) {
	c := lenCorpus{3, 1, 2, 1, 3}
	o := NewOrder(c, OrderGlobal, true, rand.New(rand.NewSource(1)))

	assert.Equal(t, []int{1, 3, 2, 0, 4}, streamIndices(o.Traverse()))
	assert.Equal(t, []int{1, 3, 2, 0, 4}, streamIndices(o.Traverse()), "global order is reused verbatim")
	assert.False(t, o.SortsPool())
}

func TestOrder_NoneShufflesEveryEpoch(t *testing.T) {
	c := make(lenCorpus, 50)
	o := NewOrder(c, OrderNone, true, rand.New(rand.NewSource(1)))

	first := streamIndices(o.Traverse())
	second := streamIndices(o.Traverse())
	assert.NotEqual(t, first, second)

	sorted := slices.Clone(first)
	slices.Sort(sorted)
	for i, idx := range sorted {
		assert.Equal(t, i, idx)
	}
}

func TestOrder_NoShuffleKeepsCorpusOrder(t *testing.T) {
	c := lenCorpus{4, 2, 9}
	o := NewOrder(c, OrderNone, false, nil)

	assert.Equal(t, []int{0, 1, 2}, streamIndices(o.Traverse()))
	assert.Equal(t, []int{0, 1, 2}, o.Indices())
}

func TestOrder_PoolDefersSortingToThePool(t *testing.T) {
	c := lenCorpus{4, 2, 9}
	o := NewOrder(c, OrderPool, false, nil)

	assert.True(t, o.SortsPool())
	assert.Equal(t, []int{0, 1, 2}, streamIndices(o.Traverse()))
}

func TestOrder_SameSeedSameShuffle(t *testing.T) {
	c := make(lenCorpus, 30)
	a := NewOrder(c, OrderPool, true, rand.New(rand.NewSource(42)))
	b := NewOrder(c, OrderPool, true, rand.New(rand.NewSource(42)))

	assert.Equal(t, streamIndices(a.Traverse()), streamIndices(b.Traverse()))
}

func TestSample_Len(t *testing.T) {
	s := Sample{Source: make([]int32, 3), TargetIn: make([]int32, 5), TargetOut: make([]int32, 5)}
	assert.Equal(t, 5, s.Len())
	assert.True(t, s.HasTarget())

	src := Sample{Source: make([]int32, 4)}
	assert.Equal(t, 4, src.Len())
	assert.False(t, src.HasTarget())
}
