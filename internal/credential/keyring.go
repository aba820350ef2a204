package credential

import (
	"errors"
	"fmt"
	"sync"

	"github.com/99designs/keyring"
)

const serviceName = "ecomission"

// Keyring item keys of the session tokens.
const (
	accessKey  = "access"
	refreshKey = "refresh"
)

// TokenStore holds the access and refresh tokens of the signed-in user.
// Missing tokens read as the empty string.
type TokenStore interface {
	Access() (string, error)
	Refresh() (string, error)
	SetTokens(access, refresh string) error
	SetAccess(access string) error
	Clear() error
}

// Open returns the system keyring configured for this application.
func Open(fileDir string) (keyring.Keyring, error) {
	if fileDir == "" {
		fileDir = "~/.config/ecomission/credentials"
	}
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt("ecomission-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Keyring implements TokenStore on top of a keyring backend.
type Keyring struct {
	mu   sync.Mutex
	ring keyring.Keyring
}

// NewKeyring wraps ring. Tests pass keyring.NewArrayKeyring(nil).
func NewKeyring(ring keyring.Keyring) *Keyring {
	return &Keyring{ring: ring}
}

func (k *Keyring) get(key string) (string, error) {
	item, err := k.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

func (k *Keyring) set(key, value string) error {
	err := k.ring.Set(keyring.Item{
		Key:  key,
		Data: []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

func (k *Keyring) remove(key string) error {
	err := k.ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}

// Access returns the stored access token.
func (k *Keyring) Access() (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.get(accessKey)
}

// Refresh returns the stored refresh token.
func (k *Keyring) Refresh() (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.get(refreshKey)
}

// SetTokens stores both tokens. An empty refresh token keeps the previous one.
func (k *Keyring) SetTokens(access, refresh string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.set(accessKey, access); err != nil {
		return err
	}
	if refresh == "" {
		return nil
	}
	return k.set(refreshKey, refresh)
}

// SetAccess replaces only the access token.
func (k *Keyring) SetAccess(access string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.set(accessKey, access)
}

// Clear removes both tokens.
func (k *Keyring) Clear() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return errors.Join(k.remove(accessKey), k.remove(refreshKey))
}
