package auth

import (
	"os"
)

// Environment variables consulted for keys
const (
	EnvConsumerKey    = "BOOKBYLINE_CONSUMER_KEY"
	EnvConsumerSecret = "BOOKBYLINE_CONSUMER_SECRET"
	EnvAccessKey      = "BOOKBYLINE_ACCESS_KEY"
	EnvAccessSecret   = "BOOKBYLINE_ACCESS_SECRET"
)

// EnvironmentSource reads the consumer pair from environment variables
type EnvironmentSource struct{}

// NewEnvironmentSource creates a new environment-based consumer source
func NewEnvironmentSource() *EnvironmentSource {
	return &EnvironmentSource{}
}

func (e *EnvironmentSource) Name() string {
	return "environment"
}

func (e *EnvironmentSource) Consumer() (Consumer, error) {
	consumer := Consumer{
		Key:    os.Getenv(EnvConsumerKey),
		Secret: os.Getenv(EnvConsumerSecret),
	}
	if !consumer.Valid() {
		return Consumer{}, ErrCredentialsNotFound
	}
	return consumer, nil
}

// NewEnvironmentIssuer returns a StaticIssuer for the access token found in
// the environment. Issue reports ErrCredentialsNotFound when it is absent.
func NewEnvironmentIssuer(source ConsumerSource) *StaticIssuer {
	return &StaticIssuer{
		Source:       source,
		AccessKey:    os.Getenv(EnvAccessKey),
		AccessSecret: os.Getenv(EnvAccessSecret),
	}
}
