package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"bookbyline/pkg/auth"
	"bookbyline/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage application keys",
	Long: `Manage the application (consumer) keys used to authorize documents.

Keys are looked up in this order:
  - BOOKBYLINE_CONSUMER_KEY and BOOKBYLINE_CONSUMER_SECRET
  - System keychain

Access tokens are issued per document the first time it is posted and are
kept in the progress store.`,
}

// consumerCmd stores application keys in the keychain
var consumerCmd = &cobra.Command{
	Use:   "consumer",
	Short: "Store application keys in the system keychain",
	Example: `  # Interactive
  bookbyline auth consumer

  # From a pipe
  printf '%s\n%s\n' "$KEY" "$SECRET" | bookbyline auth consumer`,
	Args: cobra.NoArgs,
	RunE: runConsumer,
}

// authShowCmd reports where application keys come from
var authShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show which application keys are in use",
	Args:  cobra.NoArgs,
	RunE:  runAuthShow,
}

// forgetCmd removes stored application keys
var forgetCmd = &cobra.Command{
	Use:   "forget",
	Short: "Remove application keys from the system keychain",
	Args:  cobra.NoArgs,
	RunE:  runForget,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(consumerCmd)
	authCmd.AddCommand(authShowCmd)
	authCmd.AddCommand(forgetCmd)
}

func runConsumer(cmd *cobra.Command, args []string) error {
	ui.PrintLogo()
	auth.ShowConsumerGuide(ui.Output)

	consumer, err := promptConsumer(os.Stdin, ui.Output)
	if err != nil {
		return err
	}

	keyring := auth.NewKeyringSource(appConfig.Credentials.KeyringService)
	if err := keyring.Save(consumer); err != nil {
		return err
	}

	ui.PrintSuccess("Application keys saved to the system keychain")
	ui.PrintInfo("Consumer key", auth.Mask(consumer.Key))
	return nil
}

// promptConsumer reads the key and secret. Echo is disabled for the secret
// when stdin is a terminal.
func promptConsumer(stdin *os.File, out io.Writer) (auth.Consumer, error) {
	reader := bufio.NewReader(stdin)

	key, err := auth.ReadLine(reader, out, "API Key: ")
	if err != nil {
		return auth.Consumer{}, fmt.Errorf("failed to read key: %w", err)
	}

	var secretIn io.Reader = reader
	if term.IsTerminal(int(stdin.Fd())) {
		secretIn = stdin
	}
	secret, err := auth.ReadSecret(secretIn, out, "API Key Secret: ")
	if err != nil {
		return auth.Consumer{}, fmt.Errorf("failed to read secret: %w", err)
	}

	consumer := auth.Consumer{Key: strings.TrimSpace(key), Secret: strings.TrimSpace(secret)}
	if !consumer.Valid() {
		return auth.Consumer{}, fmt.Errorf("both key and secret are required: %w", auth.ErrInvalidCredentials)
	}
	return consumer, nil
}

func runAuthShow(cmd *cobra.Command, args []string) error {
	sources := []auth.ConsumerSource{
		auth.NewEnvironmentSource(),
		auth.NewKeyringSource(appConfig.Credentials.KeyringService),
	}

	found := false
	for _, source := range sources {
		consumer, err := source.Consumer()
		switch {
		case err == nil:
			ui.PrintInfo(source.Name(), auth.Mask(consumer.Key))
			if !found {
				ui.PrintHighlight("  in use")
			}
			found = true
		case errors.Is(err, auth.ErrCredentialsNotFound):
			ui.PrintInfo(source.Name(), "not set")
		default:
			ui.PrintWarning(source.Name(), err)
		}
	}

	if !found {
		ui.PrintWarning("No application keys found. Run 'bookbyline auth consumer' first.")
	}
	return nil
}

func runForget(cmd *cobra.Command, args []string) error {
	keyring := auth.NewKeyringSource(appConfig.Credentials.KeyringService)
	if err := keyring.Delete(); err != nil {
		if errors.Is(err, auth.ErrCredentialsNotFound) {
			ui.PrintWarning("No application keys stored in the system keychain")
			return nil
		}
		return err
	}
	ui.PrintSuccess("Application keys removed from the system keychain")
	return nil
}
