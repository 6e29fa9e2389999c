package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"
)

// KeyringService is the service name used for stored credentials.
const KeyringService = "slicecontour"

// Tokens are the credentials the server issued at login.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// TokenStore persists Tokens between runs.
type TokenStore interface {
	Load() (Tokens, error)
	Save(Tokens) error
	Clear() error
}

// KeyringStore keeps tokens in the system keyring, one entry per server.
// - macOS: Keychain
// - Windows: Credential Manager
// - Linux: Secret Service
type KeyringStore struct {
	account string
}

// NewKeyringStore returns a store keyed by account, usually the API base URL.
func NewKeyringStore(account string) *KeyringStore {
	return &KeyringStore{account: account}
}

// Load returns the stored tokens, or zero Tokens when nothing is stored.
func (s *KeyringStore) Load() (Tokens, error) {
	raw, err := keyring.Get(KeyringService, s.account)
	if errors.Is(err, keyring.ErrNotFound) {
		return Tokens{}, nil
	}
	if err != nil {
		return Tokens{}, fmt.Errorf("read credentials: %w", err)
	}
	var t Tokens
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return Tokens{}, fmt.Errorf("parse credentials: %w", err)
	}
	return t, nil
}

// Save replaces the stored tokens.
func (s *KeyringStore) Save(t Tokens) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := keyring.Set(KeyringService, s.account, string(raw)); err != nil {
		return fmt.Errorf("store credentials: %w", err)
	}
	return nil
}

// Clear removes the stored tokens. Clearing an empty store is not an error.
func (s *KeyringStore) Clear() error {
	err := keyring.Delete(KeyringService, s.account)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}

// MemoryStore keeps tokens for the lifetime of the process.
type MemoryStore struct {
	mu sync.Mutex
	t  Tokens
}

func (s *MemoryStore) Load() (Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t, nil
}

func (s *MemoryStore) Save(t Tokens) error {
	s.mu.Lock()
	s.t = t
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear() error {
	return s.Save(Tokens{})
}
