package auth

import (
	"context"
	"errors"
	"fmt"

	"bookbyline/pkg/models"
)

// Consumer is the application key pair registered with the feed provider
type Consumer struct {
	Key    string `json:"consumer_key"`
	Secret string `json:"consumer_secret"`
}

// Valid reports whether both halves of the pair are present
func (c Consumer) Valid() bool {
	return c.Key != "" && c.Secret != ""
}

// ConsumerSource supplies the application key pair
type ConsumerSource interface {
	// Consumer returns the key pair or ErrCredentialsNotFound
	Consumer() (Consumer, error)

	// Name identifies the source in log output
	Name() string
}

// Issuer obtains a complete credential bundle for a newly tracked document.
// It is called at most once per fingerprint.
type Issuer interface {
	Issue(ctx context.Context) (models.Credentials, error)
}

// IssuerFunc adapts a function to the Issuer interface
type IssuerFunc func(ctx context.Context) (models.Credentials, error)

// Issue calls f(ctx)
func (f IssuerFunc) Issue(ctx context.Context) (models.Credentials, error) {
	return f(ctx)
}

// ChainSource tries each source in order and returns the first pair found
type ChainSource []ConsumerSource

// NewChainSource builds a source that falls back through sources in order
func NewChainSource(sources ...ConsumerSource) ChainSource {
	return ChainSource(sources)
}

func (c ChainSource) Consumer() (Consumer, error) {
	var errs []error
	for _, source := range c {
		consumer, err := source.Consumer()
		if err == nil && consumer.Valid() {
			return consumer, nil
		}
		if err != nil && !errors.Is(err, ErrCredentialsNotFound) {
			errs = append(errs, fmt.Errorf("%s: %w", source.Name(), err))
		}
	}
	if len(errs) > 0 {
		return Consumer{}, fmt.Errorf("%w: %w", ErrCredentialsNotFound, errors.Join(errs...))
	}
	return Consumer{}, ErrCredentialsNotFound
}

func (c ChainSource) Name() string {
	return "chain"
}

// StaticIssuer hands out a fixed access token for the consumer found in Source.
// It serves headless runs where the token was issued out of band.
type StaticIssuer struct {
	Source       ConsumerSource
	AccessKey    string
	AccessSecret string
}

func (s *StaticIssuer) Issue(ctx context.Context) (models.Credentials, error) {
	if s.AccessKey == "" || s.AccessSecret == "" {
		return models.Credentials{}, fmt.Errorf("%w: access token not configured", ErrCredentialsNotFound)
	}
	consumer, err := s.Source.Consumer()
	if err != nil {
		return models.Credentials{}, err
	}
	return models.Credentials{
		ConsumerKey:    consumer.Key,
		ConsumerSecret: consumer.Secret,
		AccessKey:      s.AccessKey,
		AccessSecret:   s.AccessSecret,
	}, nil
}

// FallbackIssuer returns the bundle of the first issuer that succeeds.
// Only ErrCredentialsNotFound moves on to the next issuer.
type FallbackIssuer []Issuer

func (f FallbackIssuer) Issue(ctx context.Context) (models.Credentials, error) {
	for _, issuer := range f {
		creds, err := issuer.Issue(ctx)
		if err == nil {
			return creds, nil
		}
		if !errors.Is(err, ErrCredentialsNotFound) {
			return models.Credentials{}, err
		}
	}
	return models.Credentials{}, ErrCredentialsNotFound
}

// MaskCredentials returns a copy with every secret masked for display
func MaskCredentials(c models.Credentials) models.Credentials {
	return models.Credentials{
		ConsumerKey:    Mask(c.ConsumerKey),
		ConsumerSecret: Mask(c.ConsumerSecret),
		AccessKey:      Mask(c.AccessKey),
		AccessSecret:   Mask(c.AccessSecret),
	}
}

// Mask masks all but the first 4 and last 4 characters of a string
func Mask(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
