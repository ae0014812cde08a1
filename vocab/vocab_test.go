package vocab

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	v, err := Read(strings.NewReader("<s>\n<e>\n<unk>\n hello \nworld\n"), UnkMark)
	require.NoError(t, err)

	assert.Equal(t, 5, v.Len())
	assert.Equal(t, int32(2), v.UnkID())
	assert.Equal(t, int32(3), v.Lookup("hello"))
	assert.Equal(t, int32(2), v.Lookup("missing"))

	_, ok := v.ID("missing")
	assert.False(t, ok)
	tok, ok := v.Token(4)
	require.True(t, ok)
	assert.Equal(t, "world", tok)
	_, ok = v.Token(5)
	assert.False(t, ok)

	assert.Equal(t, []int32{0, 3, 2, 4, 1}, v.Encode([]string{"hello", "there", "world"}, StartMark, EndMark))
	assert.NoError(t, v.RequireMarkers(StartMark, EndMark))
}

func TestRead_DuplicateKeepsLastID(t *testing.T) {
	v, err := Read(strings.NewReader("<unk>\na\na\n"), UnkMark)
	require.NoError(t, err)
	assert.Equal(t, int32(2), v.Lookup("a"))
}

func TestRead_BlankLineIsAToken(t *testing.T) {
	v, err := Read(strings.NewReader("<s>\n\n<unk>\nhello\n"), UnkMark)
	require.NoError(t, err)

	assert.Equal(t, 4, v.Len())
	assert.Equal(t, int32(3), v.Lookup("hello"))
	id, ok := v.ID("")
	require.True(t, ok)
	assert.Equal(t, int32(1), id)
}

func TestRead_Errors(t *testing.T) {
	_, err := Read(strings.NewReader(""), UnkMark)
	assert.ErrorIs(t, err, ErrEmptyVocab)

	_, err = Read(strings.NewReader("a\nb\n"), UnkMark)
	assert.ErrorIs(t, err, ErrNoUnknownToken)

	v, err := Read(strings.NewReader("<unk>\n<s>\n"), UnkMark)
	require.NoError(t, err)
	assert.ErrorIs(t, v.RequireMarkers(StartMark, EndMark), ErrMissingMarker)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.txt")
	require.NoError(t, os.WriteFile(path, []byte("<s>\n<e>\n<unk>\n"), 0o644))

	v, err := Load(path, UnkMark)
	require.NoError(t, err)
	assert.Equal(t, 3, v.Len())

	_, err = Load(filepath.Join(t.TempDir(), "nope.txt"), UnkMark)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
