package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"bookbyline/pkg/auth"
	"bookbyline/pkg/emitter"
	"bookbyline/pkg/formatter"
	"bookbyline/pkg/logger"
	"bookbyline/pkg/models"
	"bookbyline/pkg/ui"
)

// statusCmd shows progress without emitting anything
var statusCmd = &cobra.Command{
	Use:   "status [file]",
	Short: "Show reading progress",
	Long: `Show the stored progress of one document, or of every tracked document
when no file is given. Nothing is posted and no credentials are requested.

With a file, header patterns are required and the line the next run would
emit is shown too. Stored secrets are masked.`,
	Example: `  # Every tracked document
  bookbyline status

  # One document, with a preview of the next line
  bookbyline status -f paradise.txt -H BOOK`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	log := logger.GetLogger()

	store, err := openStore(appConfig, log)
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()

	if len(args) == 0 && bookFile == "" {
		records, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(records) == 0 {
			ui.PrintWarning("No documents tracked in " + appConfig.Store.Path)
			return nil
		}
		for _, rec := range records {
			fmt.Fprintln(out, ui.RenderPanel(rec.Fingerprint, recordRows(rec)))
		}
		return nil
	}

	path, err := sourcePath(args)
	if err != nil {
		return err
	}

	if err := appConfig.ValidateBook(); err != nil {
		return err
	}

	e, err := emitter.New(store, nil, nil, emitter.Options{
		Patterns: formatter.NewPatterns(appConfig.Book.Headers...),
		Logger:   log,
	})
	if err != nil {
		return err
	}

	status, err := e.Preview(cmd.Context(), path)
	if err != nil {
		return err
	}

	renderStatus(out, status)
	return nil
}

func renderStatus(w io.Writer, status *emitter.Status) {
	rows := []ui.Row{
		{Label: "Digest", Value: status.Fingerprint},
		{Label: "Lines", Value: strconv.Itoa(status.Lines)},
	}

	if status.Tracked {
		rows = append(rows, recordRows(status.Record)...)
	} else {
		rows = append(rows, ui.Row{Label: "Tracked", Value: "no"})
	}

	rows = append(rows, ui.Row{
		Label: "Progress",
		Value: fmt.Sprintf("%s %d/%d", ui.RenderProgress(status.Cursor.LastLineIndex, status.Lines, 30), status.Cursor.LastLineIndex, status.Lines),
	})

	if status.Finished {
		rows = append(rows, ui.Row{Label: "Next", Value: "(finished)"})
	} else {
		rows = append(rows, ui.Row{Label: "Next", Value: status.Next})
	}

	fmt.Fprintln(w, ui.RenderPanel(status.Path, rows))
}

func recordRows(rec *models.Record) []ui.Row {
	masked := auth.MaskCredentials(rec.Credentials)
	return []ui.Row{
		{Label: "Position", Value: strconv.Itoa(rec.Cursor.LastLineIndex)},
		{Label: "Line", Value: strconv.Itoa(rec.Cursor.DisplayLine)},
		{Label: "Header", Value: strings.TrimSpace(rec.Cursor.Prefix)},
		{Label: "Consumer", Value: masked.ConsumerKey},
		{Label: "Access", Value: masked.AccessKey},
		{Label: "Updated", Value: formatTime(rec.UpdatedAt)},
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format(time.RFC3339)
}
