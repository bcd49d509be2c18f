// Package secrets keeps database credentials in the OS credential store so
// they need not sit in config files or the environment.
package secrets

import (
	"errors"
	"fmt"
	"sync"

	"github.com/99designs/keyring"

	"graphexplorer/internal/config"
)

// ServiceName namespaces every item in the credential store.
const ServiceName = "graphexplorer"

// Keys of the stored secrets.
const (
	KeyNeo4jPassword = "neo4j_password"
	KeyPostgresDSN   = "postgres_dsn"
)

// ErrNotFound is returned by Get for a key that was never set.
var ErrNotFound = errors.New("secret not found")

// Store reads and writes secrets. It is safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	ring keyring.Keyring
}

// Open opens the platform credential store. The encrypted-file backend is
// excluded because it would prompt for a passphrase.
func Open() (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: ServiceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.WinCredBackend,
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.KeyCtlBackend,
			keyring.PassBackend,
		},
		KeychainTrustApplication: true,
		WinCredPrefix:            ServiceName,
		PassPrefix:               ServiceName,
		KeyCtlScope:              "user",
	})
	if err != nil {
		return nil, fmt.Errorf("secure storage unavailable: %w", err)
	}
	return New(ring), nil
}

// New wraps an already opened keyring.
func New(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ring.Set(keyring.Item{Key: key, Data: []byte(value), Label: ServiceName + " " + key})
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, err := s.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return string(it.Data), nil
}

// Delete removes key. Removing a missing key is not an error.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ring.Remove(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return err
	}
	return nil
}

// Apply fills the database credentials cfg leaves empty from the store.
// Values already set by the config file or the environment win.
func (s *Store) Apply(cfg *config.Config) error {
	fill := func(dst *string, key string) error {
		if *dst != "" {
			return nil
		}
		v, err := s.Get(key)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
	if err := fill(&cfg.Neo4jPassword, KeyNeo4jPassword); err != nil {
		return err
	}
	return fill(&cfg.PostgresDSN, KeyPostgresDSN)
}
