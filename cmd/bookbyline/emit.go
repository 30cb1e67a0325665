package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bookbyline/pkg/auth"
	"bookbyline/pkg/config"
	"bookbyline/pkg/emitter"
	"bookbyline/pkg/formatter"
	"bookbyline/pkg/logger"
	"bookbyline/pkg/progress"
	"bookbyline/pkg/twitter"
	"bookbyline/pkg/ui"
)

func runEmit(cmd *cobra.Command, args []string) error {
	path, err := sourcePath(args)
	if err != nil {
		return err
	}
	if err := appConfig.ValidateBook(); err != nil {
		return err
	}

	log := logger.GetLogger()

	store, err := openStore(appConfig, log)
	if err != nil {
		return err
	}
	defer store.Close()

	var poster emitter.Poster
	if appConfig.Book.Live {
		poster = twitter.NewClient(appConfig.Twitter, log)
	}

	e, err := emitter.New(store, newIssuer(appConfig, log), poster, emitter.Options{
		Patterns: formatter.NewPatterns(appConfig.Book.Headers...),
		Live:     appConfig.Book.Live,
		Out:      cmd.OutOrStdout(),
		Logger:   log,
	})
	if err != nil {
		return err
	}

	outcome, err := e.Emit(cmd.Context(), path)
	if err != nil {
		return err
	}

	if outcome.Live {
		ui.PrintSuccess(fmt.Sprintf("Posted line %d (id %s)", outcome.Cursor.DisplayLine, outcome.PostID))
	}
	return nil
}

// openStore opens the configured progress store, sealing secrets when a
// passphrase is configured
func openStore(cfg *config.Config, log logger.Logger) (progress.Store, error) {
	sealer, err := auth.NewSealer(cfg.Credentials.Passphrase)
	if err != nil {
		return nil, err
	}
	return progress.Open(cfg.Store, sealer, log)
}

// consumerSource looks for application keys in the environment, then the keychain
func consumerSource(cfg *config.Config) auth.ChainSource {
	return auth.NewChainSource(
		auth.NewEnvironmentSource(),
		auth.NewKeyringSource(cfg.Credentials.KeyringService),
	)
}

// newIssuer prefers access tokens from the environment and falls back to
// interactive PIN authorization
func newIssuer(cfg *config.Config, log logger.Logger) auth.Issuer {
	source := consumerSource(cfg)
	return auth.FallbackIssuer{
		auth.NewEnvironmentIssuer(source),
		auth.NewPINIssuer(source, log),
	}
}
