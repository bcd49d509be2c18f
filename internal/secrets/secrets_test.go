package secrets

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphexplorer/internal/config"
)

func TestSetGetDelete(t *testing.T) {
	s := New(keyring.NewArrayKeyring(nil))

	_, err := s.Get(KeyNeo4jPassword)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(KeyNeo4jPassword, "hunter2"))
	v, err := s.Get(KeyNeo4jPassword)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", v)

	require.NoError(t, s.Delete(KeyNeo4jPassword))
	require.NoError(t, s.Delete(KeyNeo4jPassword))
	_, err = s.Get(KeyNeo4jPassword)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApply(t *testing.T) {
	s := New(keyring.NewArrayKeyring([]keyring.Item{
		{Key: KeyNeo4jPassword, Data: []byte("from-ring")},
		{Key: KeyPostgresDSN, Data: []byte("postgres://ring")},
	}))

	cfg := config.DefaultConfig()
	cfg.PostgresDSN = "postgres://explicit"
	require.NoError(t, s.Apply(&cfg))

	assert.Equal(t, "from-ring", cfg.Neo4jPassword)
	assert.Equal(t, "postgres://explicit", cfg.PostgresDSN)
}

func TestApplyWithEmptyStore(t *testing.T) {
	s := New(keyring.NewArrayKeyring(nil))
	cfg := config.DefaultConfig()
	require.NoError(t, s.Apply(&cfg))
	assert.Empty(t, cfg.Neo4jPassword)
}
