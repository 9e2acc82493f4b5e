package passid

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		id, err := New()
		require.NoError(t, err)
		require.Len(t, id, Len)
		require.True(t, Valid(id), id)

		_, dup := seen[id]
		require.False(t, dup, "duplicate identifier %s", id)
		seen[id] = struct{}{}
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestNew_SourceError(t *testing.T) {
	orig := Source
	t.Cleanup(func() { Source = orig })

	Source = failingReader{}
	_, err := New()
	assert.ErrorContains(t, err, "entropy exhausted")
}

func TestNew_Deterministic(t *testing.T) {
	orig := Source
	t.Cleanup(func() { Source = orig })

	Source = bytes.NewReader(bytes.Repeat([]byte{0xab}, ByteLen))
	id, err := New()
	require.NoError(t, err)
	assert.Equal(t, "abababababababababababababababab", id)
}

func TestValid(t *testing.T) {
	assert.False(t, Valid(""))
	assert.False(t, Valid("ABABABABABABABABABABABABABABABAB"))
	assert.False(t, Valid("abab"))
	assert.True(t, Valid("0123456789abcdef0123456789abcdef"))
}
