package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"bookbyline/pkg/models"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 16
	keySize    = 32
	iterations = 100000

	// SealedPrefix marks values written by PassphraseSealer
	SealedPrefix = "enc:v1:"
)

// Sealer transforms secrets on their way into and out of the progress store
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(stored string) (string, error)
}

// PlainSealer stores secrets unchanged
type PlainSealer struct{}

func (PlainSealer) Seal(plaintext string) (string, error) { return plaintext, nil }
func (PlainSealer) Open(stored string) (string, error)    { return stored, nil }

// PassphraseSealer encrypts each value with AES-GCM under a key derived from
// a passphrase. Every value carries its own salt and nonce.
type PassphraseSealer struct {
	passphrase string
	iterations int
}

// NewPassphraseSealer creates a sealer for the given passphrase
func NewPassphraseSealer(passphrase string) (*PassphraseSealer, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("%w: empty passphrase", ErrInvalidCredentials)
	}
	return &PassphraseSealer{passphrase: passphrase, iterations: iterations}, nil
}

// NewSealer returns a PassphraseSealer when passphrase is set, else a PlainSealer
func NewSealer(passphrase string) (Sealer, error) {
	if passphrase == "" {
		return PlainSealer{}, nil
	}
	return NewPassphraseSealer(passphrase)
}

// Seal encrypts plaintext. Empty values stay empty.
func (p *PassphraseSealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := p.cipher(salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)

	blob := make([]byte, 0, len(salt)+len(nonce)+len(sealed))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, sealed...)

	return SealedPrefix + base64.StdEncoding.EncodeToString(blob), nil
}

// Open decrypts a sealed value. Values without SealedPrefix are returned
// as-is so rows written before sealing was enabled stay readable.
func (p *PassphraseSealer) Open(stored string) (string, error) {
	if !strings.HasPrefix(stored, SealedPrefix) {
		return stored, nil
	}

	blob, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, SealedPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode sealed value: %w", err)
	}
	if len(blob) < saltSize {
		return "", fmt.Errorf("%w: sealed value too short", ErrInvalidCredentials)
	}

	gcm, err := p.cipher(blob[:saltSize])
	if err != nil {
		return "", err
	}

	rest := blob[saltSize:]
	if len(rest) < gcm.NonceSize() {
		return "", fmt.Errorf("%w: sealed value too short", ErrInvalidCredentials)
	}
	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt (wrong passphrase?): %w", err)
	}
	return string(plaintext), nil
}

func (p *PassphraseSealer) cipher(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(p.passphrase), salt, p.iterations, keySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// SealCredentials seals every field of the bundle
func SealCredentials(s Sealer, c models.Credentials) (models.Credentials, error) {
	return mapCredentials(c, s.Seal)
}

// OpenCredentials reverses SealCredentials
func OpenCredentials(s Sealer, c models.Credentials) (models.Credentials, error) {
	return mapCredentials(c, s.Open)
}

func mapCredentials(c models.Credentials, fn func(string) (string, error)) (models.Credentials, error) {
	var out models.Credentials
	fields := []struct {
		name string
		in   string
		out  *string
	}{
		{"consumer key", c.ConsumerKey, &out.ConsumerKey},
		{"consumer secret", c.ConsumerSecret, &out.ConsumerSecret},
		{"access key", c.AccessKey, &out.AccessKey},
		{"access secret", c.AccessSecret, &out.AccessSecret},
	}
	for _, f := range fields {
		v, err := fn(f.in)
		if err != nil {
			return models.Credentials{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.out = v
	}
	return out, nil
}
