package datasets

import (
	"testing"

	"github.com/Noofbiz/seqbatch/batching"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pairedBatch() batching.Batch {
	return batching.Batch{
		Samples: []batching.Sample{
			{Index: 7, Source: []int32{0, 3, 1}, TargetIn: []int32{0, 5}, TargetOut: []int32{5, 1}},
			{Index: 2, Source: []int32{0, 3, 4, 1}, TargetIn: []int32{0, 5, 6}, TargetOut: []int32{5, 6, 1}},
		},
		MaxLen: 4,
	}
}

func TestMakePaddedBatch(t *testing.T) {
	pb, err := MakePaddedBatch(pairedBatch(), 1, 1)
	require.NoError(t, err)

	assert.Equal(t, 2, pb.BatchSize)
	assert.Equal(t, 4, pb.SrcLen)
	assert.Equal(t, 3, pb.TrgLen)
	assert.Equal(t, []int{7, 2}, pb.Indices)
	assert.True(t, pb.HasTarget())

	assert.Equal(t, []int32{0, 3, 1, 1, 0, 3, 4, 1}, pb.SrcWord)
	assert.Equal(t, []int32{1, 2, 3, 0, 1, 2, 3, 4}, pb.SrcPos)
	assert.Equal(t, []int32{0, 5, 1, 0, 5, 6}, pb.TrgWord)
	assert.Equal(t, []int32{1, 2, 0, 1, 2, 3}, pb.TrgPos)
	assert.Equal(t, []int32{5, 1, 1, 5, 6, 1}, pb.LblWord)
	assert.Equal(t, []float32{1, 1, 0, 1, 1, 1}, pb.LblWeight)
	assert.Equal(t, 5, pb.TargetTokens())
}

func TestMakePaddedBatch_SourceOnly(t *testing.T) {
	b := batching.Batch{Samples: []batching.Sample{
		{Source: []int32{0, 1}},
		{Source: []int32{0, 4, 1}},
	}}
	pb, err := MakePaddedBatch(b, 9, 9)
	require.NoError(t, err)

	assert.False(t, pb.HasTarget())
	assert.Equal(t, []int32{0, 1, 9, 0, 4, 1}, pb.SrcWord)
	assert.Nil(t, pb.LblWeight)

	inputs, labels, err := pb.ToGomlxTensors()
	require.NoError(t, err)
	assert.Len(t, inputs, 2)
	assert.Empty(t, labels)
}

func TestMakePaddedBatch_Errors(t *testing.T) {
	b := pairedBatch()
	b.Samples = append(b.Samples, batching.Sample{Source: []int32{0, 1}})
	_, err := MakePaddedBatch(b, 1, 1)
	assert.Error(t, err)

	pb, err := MakePaddedBatch(batching.Batch{}, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, pb.BatchSize)
}

func TestPaddedBatch_ToGomlxTensors(t *testing.T) {
	pb, err := MakePaddedBatch(pairedBatch(), 1, 1)
	require.NoError(t, err)

	inputs, labels, err := pb.ToGomlxTensors()
	require.NoError(t, err)
	require.Len(t, inputs, 4)
	require.Len(t, labels, 2)

	assert.Equal(t, []int{2, 4}, inputs[0].Shape().Dimensions)
	assert.Equal(t, []int{2, 3}, inputs[2].Shape().Dimensions)
	assert.Equal(t, []int{2, 3}, labels[1].Shape().Dimensions)
}
