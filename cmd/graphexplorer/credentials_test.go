package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphexplorer/internal/secrets"
)

func runWithSecrets(t *testing.T, s *secrets.Store, stdin string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmdWith(func() (*secrets.Store, error) { return s, nil })
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func TestCredentialsSetFromStdin(t *testing.T) {
	s := secrets.New(keyring.NewArrayKeyring(nil))

	out, err := runWithSecrets(t, s, "s3cret\n", "credentials", "set", "neo4j-password")
	require.NoError(t, err)
	assert.Contains(t, out, "Stored neo4j-password")

	v, err := s.Get(secrets.KeyNeo4jPassword)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", v)

	_, err = runWithSecrets(t, s, "", "credentials", "delete", "neo4j-password")
	require.NoError(t, err)
	_, err = s.Get(secrets.KeyNeo4jPassword)
	assert.ErrorIs(t, err, secrets.ErrNotFound)
}

func TestCredentialsSetFlagAndErrors(t *testing.T) {
	s := secrets.New(keyring.NewArrayKeyring(nil))

	_, err := runWithSecrets(t, s, "", "credentials", "set", "postgres-dsn", "--value", "postgres://x")
	require.NoError(t, err)
	v, _ := s.Get(secrets.KeyPostgresDSN)
	assert.Equal(t, "postgres://x", v)

	_, err = runWithSecrets(t, s, "", "credentials", "set", "api-token", "--value", "x")
	assert.ErrorContains(t, err, "unknown credential")

	_, err = runWithSecrets(t, s, "\n", "credentials", "set", "neo4j-password")
	assert.ErrorContains(t, err, "must not be empty")
}

func TestCredentialsStoreUnavailable(t *testing.T) {
	var stdout bytes.Buffer
	cmd := newRootCmdWith(func() (*secrets.Store, error) { return nil, errors.New("no keyring") })
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"credentials", "delete", "neo4j-password"})
	err := cmd.Execute()
	assert.ErrorContains(t, err, "no keyring")
}
