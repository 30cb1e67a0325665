package emitter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"bookbyline/pkg/auth"
	"bookbyline/pkg/book"
	errs "bookbyline/pkg/errors"
	"bookbyline/pkg/formatter"
	"bookbyline/pkg/logger"
	"bookbyline/pkg/models"
	"bookbyline/pkg/progress"
)

// Poster publishes one formatted unit and returns the id of the created post
type Poster interface {
	Post(ctx context.Context, text string, creds models.Credentials) (string, error)
}

// Options configures an Emitter
type Options struct {
	Patterns formatter.Patterns
	// Live posts through the Poster; otherwise text is written to Out
	Live bool
	// Out receives dry-run output. Defaults to os.Stdout.
	Out    io.Writer
	Logger logger.Logger
}

// Outcome describes a completed emission
type Outcome struct {
	Fingerprint string
	Path        string
	Text        string
	Previous    models.Cursor
	Cursor      models.Cursor
	Header      bool
	Live        bool
	PostID      string
}

// Emitter publishes documents one unit per call
type Emitter struct {
	store     progress.Store
	issuer    auth.Issuer
	poster    Poster
	formatter *formatter.Formatter
	live      bool
	out       io.Writer
	logger    logger.Logger
}

// New creates an Emitter. A poster is required only in live mode.
func New(store progress.Store, issuer auth.Issuer, poster Poster, opts Options) (*Emitter, error) {
	if store == nil {
		return nil, errors.New("progress store is required")
	}
	if len(opts.Patterns) == 0 {
		return nil, errors.New("at least one header pattern is required")
	}
	if opts.Live && poster == nil {
		return nil, errors.New("live mode requires a poster")
	}

	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	return &Emitter{
		store:     store,
		issuer:    issuer,
		poster:    poster,
		formatter: formatter.New(opts.Patterns, log),
		live:      opts.Live,
		out:       out,
		logger:    log,
	}, nil
}

// Emit publishes the next unit of the document at path and advances its cursor.
// Running off the end of the document returns an error matching
// errors.ErrEndOfDocument and changes nothing.
func (e *Emitter) Emit(ctx context.Context, path string) (*Outcome, error) {
	b, err := book.LoadFile(path)
	if err != nil {
		e.logger.WithError(err).WithField("path", path).Error("failed to load document")
		return nil, err
	}

	log := e.logger.WithFields(map[string]interface{}{
		"digest": b.Fingerprint,
		"path":   path,
		"lines":  b.Lines.Len(),
	})
	log.Debug("document loaded")

	rec, err := e.store.ResolveOrCreate(ctx, b.Fingerprint, e.issuer)
	if err != nil {
		log.WithError(err).Error("failed to resolve progress")
		return nil, err
	}
	log.DebugWithFields("progress resolved", map[string]interface{}{
		"position":     rec.Cursor.LastLineIndex,
		"display_line": rec.Cursor.DisplayLine,
	})

	result, err := e.formatter.Format(b.Lines, rec.Cursor)
	if err != nil {
		if errs.IsEndOfDocument(err) {
			log.Info("end of document reached")
		}
		return nil, err
	}

	outcome := &Outcome{
		Fingerprint: b.Fingerprint,
		Path:        path,
		Text:        result.Text,
		Previous:    rec.Cursor,
		Cursor:      result.Cursor,
		Header:      result.Header,
		Live:        e.live,
	}

	if err := e.deliver(ctx, outcome, rec.Credentials); err != nil {
		logger.LogEmission(log, b.Fingerprint, e.live, rec.Cursor.LastLineIndex, result.Cursor.LastLineIndex, err)
		return nil, err
	}

	if err := e.store.Commit(ctx, b.Fingerprint, result.Cursor); err != nil {
		logger.LogEmission(log, b.Fingerprint, e.live, rec.Cursor.LastLineIndex, result.Cursor.LastLineIndex, err)
		return nil, err
	}

	logger.LogEmission(log, b.Fingerprint, e.live, rec.Cursor.LastLineIndex, result.Cursor.LastLineIndex, nil)
	return outcome, nil
}

// deliver posts or prints the outcome text
func (e *Emitter) deliver(ctx context.Context, outcome *Outcome, creds models.Credentials) error {
	if err := ctx.Err(); err != nil {
		return errs.Wrap(errs.KindPostingFailed, "cancelled before delivery", err)
	}

	if !e.live {
		if _, err := fmt.Fprintln(e.out, outcome.Text); err != nil {
			return errs.Wrap(errs.KindPostingFailed, "write dry-run output", err)
		}
		return nil
	}

	id, err := e.poster.Post(ctx, outcome.Text, creds)
	if err != nil {
		if kind, ok := errs.KindOf(err); ok && kind == errs.KindPostingFailed {
			return err
		}
		return errs.Wrap(errs.KindPostingFailed, "post", err)
	}
	outcome.PostID = id
	return nil
}

// Preview reports what the next Emit would produce without issuing
// credentials, posting or committing. Untracked documents preview from the
// start with Tracked false.
func (e *Emitter) Preview(ctx context.Context, path string) (*Status, error) {
	b, err := book.LoadFile(path)
	if err != nil {
		return nil, err
	}

	status := &Status{Fingerprint: b.Fingerprint, Path: path, Lines: b.Lines.Len()}

	rec, err := e.store.Lookup(ctx, b.Fingerprint)
	switch {
	case err == nil:
		status.Tracked = true
		status.Record = rec
		status.Cursor = rec.Cursor
	case errors.Is(err, progress.ErrNotTracked):
	default:
		return nil, err
	}

	result, err := e.formatter.Format(b.Lines, status.Cursor)
	switch {
	case err == nil:
		status.Next = result.Text
	case errs.IsEndOfDocument(err):
		status.Finished = true
	default:
		return nil, err
	}
	return status, nil
}

// Status is the position of one document as seen by Preview
type Status struct {
	Fingerprint string
	Path        string
	Lines       int
	Tracked     bool
	Finished    bool
	Cursor      models.Cursor
	Record      *models.Record
	Next        string
}
