// Package vocab loads token vocabularies: one token per line, the id of a token being
// its zero-based line number.
package vocab

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Reserved markers.
const (
	StartMark = "<s>"
	EndMark   = "<e>"
	UnkMark   = "<unk>"
)

var (
	// ErrEmptyVocab is returned when a vocabulary has no lines.
	ErrEmptyVocab = errors.New("vocabulary is empty")
	// ErrNoUnknownToken is returned when the unknown marker is not listed.
	ErrNoUnknownToken = errors.New("vocabulary has no unknown token")
	// ErrMissingMarker is returned by RequireMarkers when a start or end marker is absent.
	ErrMissingMarker = errors.New("vocabulary is missing a boundary marker")
)

// Vocab maps tokens to integer ids.
type Vocab struct {
	ids    map[string]int32
	tokens []string
	unk    int32
}

// Load reads a vocabulary file. unkMark names the token unknown words map to.
func Load(path, unkMark string) (*Vocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vocabulary %s: %w", path, err)
	}
	defer f.Close()

	v, err := Read(f, unkMark)
	if err != nil {
		return nil, fmt.Errorf("vocabulary %s: %w", path, err)
	}
	return v, nil
}

// Read parses a vocabulary from r. Every line counts toward the ids, so a blank line
// becomes the empty token and Len includes it. A token listed twice keeps its last id.
func Read(r io.Reader, unkMark string) (*Vocab, error) {
	v := &Vocab{ids: make(map[string]int32)}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		token := strings.TrimSpace(scanner.Text())
		v.ids[token] = int32(len(v.tokens))
		v.tokens = append(v.tokens, token)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(v.tokens) == 0 {
		return nil, ErrEmptyVocab
	}
	unk, ok := v.ids[unkMark]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoUnknownToken, unkMark)
	}
	v.unk = unk
	return v, nil
}

// Len returns the number of tokens.
func (v *Vocab) Len() int { return len(v.tokens) }

// UnkID returns the id unknown tokens map to.
func (v *Vocab) UnkID() int32 { return v.unk }

// ID returns the id of token, and whether it is in the vocabulary.
func (v *Vocab) ID(token string) (int32, bool) {
	id, ok := v.ids[token]
	return id, ok
}

// Lookup returns the id of token, or UnkID when it is unknown.
func (v *Vocab) Lookup(token string) int32 {
	if id, ok := v.ids[token]; ok {
		return id
	}
	return v.unk
}

// Token returns the token with the given id.
func (v *Vocab) Token(id int32) (string, bool) {
	if id < 0 || int(id) >= len(v.tokens) {
		return "", false
	}
	return v.tokens[id], true
}

// Encode maps words to ids, wrapping them in the start and end markers. Markers missing
// from the vocabulary map to UnkID like any other word.
func (v *Vocab) Encode(words []string, start, end string) []int32 {
	ids := make([]int32, 0, len(words)+2)
	ids = append(ids, v.Lookup(start))
	for _, w := range words {
		ids = append(ids, v.Lookup(w))
	}
	return append(ids, v.Lookup(end))
}

// RequireMarkers returns ErrMissingMarker unless every marker is in the vocabulary.
func (v *Vocab) RequireMarkers(markers ...string) error {
	for _, m := range markers {
		if _, ok := v.ids[m]; !ok {
			return fmt.Errorf("%w: %q", ErrMissingMarker, m)
		}
	}
	return nil
}
