package app

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/attendance/internal/config"
	"github.com/your-org/attendance/internal/models"
	"github.com/your-org/attendance/internal/seal"
	"github.com/your-org/attendance/internal/storage"
)

func TestOpenStore(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Driver: "memory"}}
	s, err := OpenStore(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &storage.MemoryStore{}, s)

	cfg.Store.Driver = "sqlite"
	_, err = OpenStore(context.Background(), cfg)
	assert.Error(t, err)
}

func TestLoadSealKey(t *testing.T) {
	key, err := seal.GenerateKey()
	require.NoError(t, err)

	got, err := LoadSealKey(config.SealConfig{Key: base64.StdEncoding.EncodeToString(key), KeyFile: "/nonexistent/key"})
	require.NoError(t, err)
	assert.Equal(t, key, got)

	path := filepath.Join(t.TempDir(), "secret.key")
	first, err := LoadSealKey(config.SealConfig{KeyFile: path})
	require.NoError(t, err)
	second, err := LoadSealKey(config.SealConfig{KeyFile: path})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = LoadSealKey(config.SealConfig{Key: "short"})
	assert.Error(t, err)
}

func TestOpenTemplates(t *testing.T) {
	templates, err := OpenTemplates(config.SealConfig{KeyFile: filepath.Join(t.TempDir(), "secret.key")})
	require.NoError(t, err)

	var e models.Embedding
	e[0] = 0.25
	sealed, err := templates.Seal(e)
	require.NoError(t, err)
	opened, err := templates.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, e, opened)
}
