package datasets

import (
	"fmt"

	"github.com/Noofbiz/seqbatch/batching"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// PaddedBatch stores a batch in flat row-major buffers, every sequence padded to the
// longest one of its side. Target fields are nil for source-only batches.
type PaddedBatch struct {
	BatchSize int
	SrcLen    int
	TrgLen    int

	SrcWord []int32
	SrcPos  []int32
	TrgWord []int32
	TrgPos  []int32
	// LblWord is the target shifted by one; LblWeight is 1 on real tokens, 0 on padding.
	LblWord   []int32
	LblWeight []float32

	// Indices are the corpus indices of the rows.
	Indices []int
}

// MakePaddedBatch pads b. Word ids are padded with srcPad and trgPad, positions
// are 1-based with 0 marking padding.
func MakePaddedBatch(b batching.Batch, srcPad, trgPad int32) (*PaddedBatch, error) {
	if b.Len() == 0 {
		return &PaddedBatch{}, nil
	}

	withTarget := b.Samples[0].HasTarget()
	pb := &PaddedBatch{BatchSize: b.Len(), Indices: b.Indices()}
	for i, s := range b.Samples {
		if s.HasTarget() != withTarget {
			return nil, fmt.Errorf("sample %d: batch mixes source-only and paired samples", i)
		}
		if len(s.TargetIn) != len(s.TargetOut) {
			return nil, fmt.Errorf("sample %d: target input and output lengths differ: %d != %d",
				i, len(s.TargetIn), len(s.TargetOut))
		}
		pb.SrcLen = max(pb.SrcLen, len(s.Source))
		pb.TrgLen = max(pb.TrgLen, len(s.TargetIn))
	}

	pb.SrcWord = make([]int32, pb.BatchSize*pb.SrcLen)
	pb.SrcPos = make([]int32, pb.BatchSize*pb.SrcLen)
	if withTarget {
		pb.TrgWord = make([]int32, pb.BatchSize*pb.TrgLen)
		pb.TrgPos = make([]int32, pb.BatchSize*pb.TrgLen)
		pb.LblWord = make([]int32, pb.BatchSize*pb.TrgLen)
		pb.LblWeight = make([]float32, pb.BatchSize*pb.TrgLen)
	}

	for i, s := range b.Samples {
		src := pb.SrcWord[i*pb.SrcLen : (i+1)*pb.SrcLen]
		padInto(src, s.Source, srcPad)
		positionsInto(pb.SrcPos[i*pb.SrcLen:(i+1)*pb.SrcLen], len(s.Source))
		if !withTarget {
			continue
		}

		lo, hi := i*pb.TrgLen, (i+1)*pb.TrgLen
		padInto(pb.TrgWord[lo:hi], s.TargetIn, trgPad)
		positionsInto(pb.TrgPos[lo:hi], len(s.TargetIn))
		padInto(pb.LblWord[lo:hi], s.TargetOut, trgPad)
		for j := range len(s.TargetOut) {
			pb.LblWeight[lo+j] = 1
		}
	}
	return pb, nil
}

// HasTarget reports whether the batch carries target sequences.
func (b *PaddedBatch) HasTarget() bool { return b.TrgWord != nil }

// TargetTokens returns the number of real label tokens.
func (b *PaddedBatch) TargetTokens() int {
	n := 0
	for _, w := range b.LblWeight {
		if w > 0 {
			n++
		}
	}
	return n
}

// ToGomlxTensors converts the batch into [BatchSize, length] tensors: inputs are
// src_word, src_pos and, with a target, trg_word and trg_pos; labels are lbl_word and
// lbl_weight.
func (b *PaddedBatch) ToGomlxTensors() (inputs, labels []*tensors.Tensor, err error) {
	if b.BatchSize == 0 {
		empty := make([][]int32, 0)
		return []*tensors.Tensor{tensors.FromAnyValue(empty), tensors.FromAnyValue(empty)}, nil, nil
	}

	inputs = []*tensors.Tensor{
		tensors.FromAnyValue(rows(b.SrcWord, b.BatchSize, b.SrcLen)),
		tensors.FromAnyValue(rows(b.SrcPos, b.BatchSize, b.SrcLen)),
	}
	if !b.HasTarget() {
		return inputs, nil, nil
	}
	inputs = append(inputs,
		tensors.FromAnyValue(rows(b.TrgWord, b.BatchSize, b.TrgLen)),
		tensors.FromAnyValue(rows(b.TrgPos, b.BatchSize, b.TrgLen)),
	)
	labels = []*tensors.Tensor{
		tensors.FromAnyValue(rows(b.LblWord, b.BatchSize, b.TrgLen)),
		tensors.FromAnyValue(rows(b.LblWeight, b.BatchSize, b.TrgLen)),
	}
	return inputs, labels, nil
}

// rows reshapes a flat buffer into n rows of width w, sharing its storage.
func rows[T int32 | float32](flat []T, n, w int) [][]T {
	out := make([][]T, n)
	for i := range n {
		out[i] = flat[i*w : (i+1)*w]
	}
	return out
}
