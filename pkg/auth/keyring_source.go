package auth

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	// DefaultKeyringService is the keychain service the consumer pair lives under
	DefaultKeyringService = "bookbyline"
	keyringConsumerKey    = "consumer"
)

// KeyringSource reads the consumer pair from the system keychain
type KeyringSource struct {
	service string
}

// NewKeyringSource creates a source for the given keychain service.
// An empty service falls back to DefaultKeyringService.
func NewKeyringSource(service string) *KeyringSource {
	if service == "" {
		service = DefaultKeyringService
	}
	return &KeyringSource{service: service}
}

func (k *KeyringSource) Name() string {
	return "keyring"
}

// Consumer retrieves the pair saved by Save
func (k *KeyringSource) Consumer() (Consumer, error) {
	data, err := keyring.Get(k.service, keyringConsumerKey)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return Consumer{}, ErrCredentialsNotFound
		}
		return Consumer{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	var consumer Consumer
	if err := json.Unmarshal([]byte(data), &consumer); err != nil {
		return Consumer{}, fmt.Errorf("failed to unmarshal consumer: %w", err)
	}
	if !consumer.Valid() {
		return Consumer{}, ErrInvalidCredentials
	}
	return consumer, nil
}

// Save stores the pair in the keychain, replacing any previous one
func (k *KeyringSource) Save(consumer Consumer) error {
	if !consumer.Valid() {
		return ErrInvalidCredentials
	}

	data, err := json.Marshal(consumer)
	if err != nil {
		return fmt.Errorf("failed to marshal consumer: %w", err)
	}

	if err := keyring.Set(k.service, keyringConsumerKey, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

// Delete removes the pair from the keychain
func (k *KeyringSource) Delete() error {
	err := keyring.Delete(k.service, keyringConsumerKey)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrCredentialsNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}
