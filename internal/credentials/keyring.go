package credentials

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService  = "linkedin-scraper"
	secretPrefix    = "linkedin_"
	lastIdentityKey = "last_identity"
)

var (
	ErrNotFound          = errors.New("credentials not found")
	ErrInvalidCredential = errors.New("identity and secret are required")
)

// Store keeps console-mode credentials in the OS keychain.
type Store struct {
	service string
}

func NewStore() *Store {
	return &Store{service: keyringService}
}

// Save stores the secret for identity and remembers identity as the most
// recently used one.
func (s *Store) Save(identity, secret string) error {
	if identity == "" || secret == "" {
		return ErrInvalidCredential
	}
	if err := keyring.Set(s.service, secretPrefix+identity, secret); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	if err := keyring.Set(s.service, lastIdentityKey, identity); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

func (s *Store) Lookup(identity string) (string, error) {
	if identity == "" {
		return "", ErrInvalidCredential
	}
	secret, err := keyring.Get(s.service, secretPrefix+identity)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to retrieve from keyring: %w", err)
	}
	return secret, nil
}

// LastIdentity returns the identity most recently saved.
func (s *Store) LastIdentity() (string, error) {
	identity, err := keyring.Get(s.service, lastIdentityKey)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to retrieve from keyring: %w", err)
	}
	return identity, nil
}

func (s *Store) Delete(identity string) error {
	err := keyring.Delete(s.service, secretPrefix+identity)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	last, err := keyring.Get(s.service, lastIdentityKey)
	if err == nil && last == identity {
		_ = keyring.Delete(s.service, lastIdentityKey)
	}
	return nil
}
