package seal

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/attendance/internal/models"
)

func testKey(fill byte) []byte {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = fill
	}
	return key
}

func sampleEmbedding() models.Embedding {
	var e models.Embedding
	for i := range e {
		e[i] = float64(i)/100 - 0.5
	}
	return e
}

func TestNewAEADSealer_KeyLength(t *testing.T) {
	_, err := NewAEADSealer(make([]byte, 16))
	assert.Error(t, err)

	_, err = NewAEADSealer(testKey(1))
	assert.NoError(t, err)
}

func TestSealUnseal_RoundTrip(t *testing.T) {
	s, err := NewAEADSealer(testKey(7))
	require.NoError(t, err)

	sealed, err := s.Seal([]byte("hello template"))
	require.NoError(t, err)

	plain, err := s.Unseal(sealed)
	require.NoError(t, err)
	assert.Equal(t, "hello template", string(plain))
}

func TestSeal_NonceIsRandom(t *testing.T) {
	s, err := NewAEADSealer(testKey(7))
	require.NoError(t, err)

	a, err := s.Seal([]byte("same"))
	require.NoError(t, err)
	b, err := s.Seal([]byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestUnseal_Failures(t *testing.T) {
	s, err := NewAEADSealer(testKey(7))
	require.NoError(t, err)
	other, err := NewAEADSealer(testKey(8))
	require.NoError(t, err)

	sealed, err := s.Seal([]byte("payload"))
	require.NoError(t, err)

	blob, err := base64.URLEncoding.DecodeString(sealed)
	require.NoError(t, err)
	tampered := append([]byte(nil), blob...)
	tampered[len(tampered)-1] ^= 0xff
	badVersion := append([]byte(nil), blob...)
	badVersion[0] = 0x09

	tests := []struct {
		name   string
		sealer *AEADSealer
		input  string
	}{
		{"not base64", s, "%%%"},
		{"truncated", s, base64.URLEncoding.EncodeToString(blob[:10])},
		{"tampered", s, base64.URLEncoding.EncodeToString(tampered)},
		{"bad version", s, base64.URLEncoding.EncodeToString(badVersion)},
		{"wrong key", other, sealed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.sealer.Unseal(tt.input)
			assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
		})
	}
}

func TestEmbeddingCodec(t *testing.T) {
	e := sampleEmbedding()
	raw := EncodeEmbedding(e)
	assert.Len(t, raw, models.EmbeddingDim*8)

	got, err := DecodeEmbedding(raw)
	require.NoError(t, err)
	assert.Equal(t, e, got)

	_, err = DecodeEmbedding(raw[:100])
	assert.ErrorIs(t, err, models.ErrInvalidEmbedding)
}

func TestTemplates_SealOpen(t *testing.T) {
	s, err := NewAEADSealer(testKey(3))
	require.NoError(t, err)
	tpl := NewTemplates(s)

	e := sampleEmbedding()
	sealed, err := tpl.Seal(e)
	require.NoError(t, err)

	got, err := tpl.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, e, got)

	// A valid seal of the wrong payload length is a corrupt template.
	short, err := s.Seal([]byte{1, 2, 3})
	require.NoError(t, err)
	_, err = tpl.Open(short)
	assert.ErrorIs(t, err, models.ErrInvalidEmbedding)

	_, err = tpl.Open("garbage")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestKeyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secret.key")

	key, created, err := LoadOrCreateKeyFile(path)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Len(t, key, KeySize)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, created, err := LoadOrCreateKeyFile(path)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, key, again)

	assert.Error(t, WriteKeyFile(path, testKey(1), false))
	require.NoError(t, WriteKeyFile(path, testKey(1), true))

	got, err := ReadKeyFile(path)
	require.NoError(t, err)
	assert.Equal(t, testKey(1), got)
}

func TestParseKey(t *testing.T) {
	key := testKey(9)

	got, err := ParseKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, got)

	got, err = ParseKey(base64.RawURLEncoding.EncodeToString(key) + "\n")
	require.NoError(t, err)
	assert.Equal(t, key, got)

	_, err = ParseKey(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.Error(t, err)

	_, err = ParseKey("!!!")
	assert.Error(t, err)
}
