package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"bookbyline/pkg/config"
	errs "bookbyline/pkg/errors"
	"bookbyline/pkg/logger"
	"bookbyline/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	bookFile   string
	headers    []string
	storePath  string
	backend    string
	logLevel   string
	logFile    string
	noColor    bool

	// Emit flags
	live      bool
	strictEnd bool

	// appConfig is loaded before any command runs
	appConfig *config.Config
)

// rootCmd emits the next line of a document when called without a subcommand
var rootCmd = &cobra.Command{
	Use:   "bookbyline [file]",
	Short: "Publish a text document one line per run",
	Long: `Bookbyline publishes a plain-text document one line at a time.

Every run emits exactly one unit: the next line of the document, prefixed
with the current section header and a line number. Progress is remembered
per document, keyed by a digest of its content, so a schedule such as cron
can walk through a book line by line.

By default the line is printed to stdout. With --live it is posted to the
account authorized for the document.`,
	Example: `  # Print the next line
  bookbyline --file paradise.txt --header BOOK

  # Post it
  bookbyline -f paradise.txt -H "BOOK,CANTO" --live`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	RunE: runEmit,
}

// Execute runs the root command and returns the process exit status
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return exitCode(rootCmd.ExecuteContext(ctx))
}

// exitCode reports err and maps it to an exit status. Running out of lines
// is a normal outcome unless --strict-end is set.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if errs.IsEndOfDocument(err) {
		ui.PrintWarning("Nothing left to post", err)
		if strictEnd {
			return errs.ExitCode(err)
		}
		return 0
	}
	ui.PrintError("bookbyline failed", err)
	return errs.ExitCode(err)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.bookbyline.yaml or $HOME/.config/bookbyline/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&bookFile, "file", "f", "", "source document")
	rootCmd.PersistentFlags().StringArrayVarP(&headers, "header", "H", nil, "header prefix, case-sensitive; repeat the flag to keep a value verbatim, or give a comma-separated list whose entries are trimmed")
	rootCmd.PersistentFlags().StringVar(&storePath, "db", "", "progress store path (default tweet_books.sl3)")
	rootCmd.PersistentFlags().StringVar(&backend, "store", "", "progress store backend (sqlite, json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.Flags().BoolVarP(&live, "live", "l", false, "post instead of printing to stdout")
	rootCmd.Flags().BoolVar(&strictEnd, "strict-end", false, "exit with status 3 when the document is finished")

	// Version template
	rootCmd.SetVersionTemplate(`Bookbyline {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig merges the config file, environment and explicitly set flags,
// then initializes logging
func loadConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(configFile, collectFlags(cmd))
	if err != nil {
		return err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	ui.SetNoColor(cfg.Logging.NoColor)

	appConfig = cfg
	logger.WithFields(map[string]interface{}{
		"version": version,
		"command": cmd.Name(),
	}).Debug("configuration loaded")
	return nil
}

// collectFlags returns the flags set on the command line keyed by name
func collectFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if changed("header") {
		flags["header"] = headers
	}
	if changed("live") {
		flags["live"] = live
	}
	if changed("db") {
		flags["db"] = storePath
	}
	if changed("store") {
		flags["store"] = backend
	}
	if changed("log-level") {
		flags["log-level"] = logLevel
	}
	if changed("log-file") {
		flags["log-file"] = logFile
	}
	if changed("no-color") {
		flags["no-color"] = noColor
	}
	return flags
}

// sourcePath picks the document from the positional argument or --file
func sourcePath(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if bookFile == "" {
		return "", fmt.Errorf("a source document is required (--file)")
	}
	return bookFile, nil
}
