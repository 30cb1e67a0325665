package auth

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"bookbyline/pkg/logger"
	"bookbyline/pkg/models"

	"github.com/dghubble/oauth1"
	"github.com/dghubble/oauth1/twitter"
)

// PINIssuer runs the out-of-band OAuth 1.0a flow: the user opens the
// authorization URL, approves the application and types back the PIN.
type PINIssuer struct {
	Source   ConsumerSource
	Endpoint oauth1.Endpoint
	In       io.Reader
	Out      io.Writer
	Log      logger.Logger
}

// NewPINIssuer creates an issuer talking to the Twitter endpoints on the terminal
func NewPINIssuer(source ConsumerSource, log logger.Logger) *PINIssuer {
	if log == nil {
		log = logger.GetLogger()
	}
	return &PINIssuer{
		Source:   source,
		Endpoint: twitter.AuthorizeEndpoint,
		In:       os.Stdin,
		Out:      os.Stderr,
		Log:      log,
	}
}

// Issue obtains a fresh access token for the configured consumer
func (p *PINIssuer) Issue(ctx context.Context) (models.Credentials, error) {
	consumer, err := p.Source.Consumer()
	if err != nil {
		return models.Credentials{}, fmt.Errorf("no consumer key available from %s: %w", p.Source.Name(), err)
	}

	config := &oauth1.Config{
		ConsumerKey:    consumer.Key,
		ConsumerSecret: consumer.Secret,
		CallbackURL:    "oob",
		Endpoint:       p.Endpoint,
	}

	requestToken, requestSecret, err := config.RequestToken()
	if err != nil {
		return models.Credentials{}, fmt.Errorf("failed to get request token: %w", err)
	}

	authURL, err := config.AuthorizationURL(requestToken)
	if err != nil {
		return models.Credentials{}, fmt.Errorf("failed to build authorization URL: %w", err)
	}
	p.Log.WithField("source", p.Source.Name()).Debug("request token obtained")

	if err := ctx.Err(); err != nil {
		return models.Credentials{}, err
	}

	ShowPINGuide(p.Out, authURL.String())
	pin, err := ReadLine(p.In, p.Out, "PIN: ")
	if err != nil {
		return models.Credentials{}, fmt.Errorf("failed to read PIN: %w", err)
	}
	pin = strings.TrimSpace(pin)
	if pin == "" {
		return models.Credentials{}, fmt.Errorf("%w: empty PIN", ErrInvalidCredentials)
	}

	accessToken, accessSecret, err := config.AccessToken(requestToken, requestSecret, pin)
	if err != nil {
		return models.Credentials{}, fmt.Errorf("failed to exchange PIN for access token: %w", err)
	}
	p.Log.Info("access token issued")

	return models.Credentials{
		ConsumerKey:    consumer.Key,
		ConsumerSecret: consumer.Secret,
		AccessKey:      accessToken,
		AccessSecret:   accessSecret,
	}, nil
}
