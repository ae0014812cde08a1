package datasets

import (
	"github.com/Noofbiz/seqbatch/batching"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// This package turns a tokenized parallel corpus into the batches a sequence model
// trains on.
//
// TranslationDataset wires the pieces together:
//   - vocab: source (and optional target) vocabularies, one token per line
//   - corpus: files matched by a pattern, or one member of a tar archive, parsed into
//     id sequences wrapped in <s> and <e>
//   - batching: an ordering policy (global, pool or none), a bounded look-ahead pool
//     and a batch builder sized by sample count or by token budget, driven one epoch
//     at a time by a scheduler
//
// Each epoch is a lazy sequence of batches pulled by the caller. Yield converts them
// into padded gomlx tensors:
//
//	inputs: src_word, src_pos, trg_word, trg_pos   (int32, [batch, length])
//	labels: lbl_word, lbl_weight                   (int32 / float32, [batch, length])
//
// Source-only corpora yield only src_word and src_pos and no labels.

// Dataset is what a training loop needs from a batched corpus.
type Dataset interface {
	// Len returns the number of samples.
	Len() int
	// Epoch starts a new epoch.
	Epoch() *batching.Epoch

	// To implement gomlx's train.Dataset interface
	Name() string
	Reset()
	Yield() (any, []*tensors.Tensor, []*tensors.Tensor, error)
}
