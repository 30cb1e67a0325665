package formatter

import (
	"strconv"
	"strings"

	"bookbyline/pkg/book"
	errs "bookbyline/pkg/errors"
	"bookbyline/pkg/logger"
	"bookbyline/pkg/models"
)

// Patterns is an ordered set of literal header prefixes
type Patterns []string

// NewPatterns builds a pattern set, skipping empty entries since they would match every line
func NewPatterns(patterns ...string) Patterns {
	var p Patterns
	for _, pattern := range patterns {
		if pattern != "" {
			p = append(p, pattern)
		}
	}
	return p
}

// Match returns the first pattern that line starts with
func (p Patterns) Match(line string) (string, bool) {
	for _, pattern := range p {
		if strings.HasPrefix(line, pattern) {
			return pattern, true
		}
	}
	return "", false
}

// Result is one formatted emission and the cursor to commit after it is published
type Result struct {
	Text   string
	Cursor models.Cursor
	Header bool
}

// Format produces the next emission for lines at cursor.
// cursor is never modified; the advanced position is returned in Result.
// When no complete unit remains, the error matches errors.ErrEndOfDocument.
func Format(lines book.Lines, cursor models.Cursor, patterns Patterns) (Result, error) {
	current, ok := lines.At(cursor.LastLineIndex)
	if !ok {
		return Result{}, errs.Wrapf(errs.KindEndOfDocument, nil, "no line at index %d of %d", cursor.LastLineIndex, lines.Len())
	}

	if _, isHeader := patterns.Match(current); isHeader {
		next, ok := lines.At(cursor.LastLineIndex + 1)
		if !ok {
			return Result{}, errs.Wrapf(errs.KindEndOfDocument, nil, "header at index %d has no following line", cursor.LastLineIndex)
		}

		advanced := models.Cursor{
			LastLineIndex: cursor.LastLineIndex + 2,
			DisplayLine:   1,
			Prefix:        current,
		}
		return Result{
			Text:   strings.TrimSpace(current) + "\n" + lineLabel(advanced.DisplayLine) + strings.TrimSpace(next),
			Cursor: advanced,
			Header: true,
		}, nil
	}

	advanced := models.Cursor{
		LastLineIndex: cursor.LastLineIndex + 1,
		DisplayLine:   cursor.DisplayLine + 1,
		Prefix:        cursor.Prefix,
	}
	return Result{
		Text:   cursor.Prefix + lineLabel(advanced.DisplayLine) + strings.TrimSpace(current),
		Cursor: advanced,
	}, nil
}

func lineLabel(n int) string {
	return "l. " + strconv.Itoa(n) + ": "
}

// Formatter applies a fixed pattern set and logs each decision
type Formatter struct {
	patterns Patterns
	logger   logger.Logger
}

// New creates a Formatter for the given header patterns
func New(patterns Patterns, log logger.Logger) *Formatter {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Formatter{patterns: patterns, logger: log}
}

// Patterns returns the header patterns in use
func (f *Formatter) Patterns() Patterns {
	return f.patterns
}

// Format runs Format with the formatter's patterns
func (f *Formatter) Format(lines book.Lines, cursor models.Cursor) (Result, error) {
	result, err := Format(lines, cursor, f.patterns)
	if err != nil {
		f.logger.WithError(err).DebugWithFields("nothing to format", map[string]interface{}{
			"position": cursor.LastLineIndex,
			"lines":    lines.Len(),
		})
		return Result{}, err
	}

	f.logger.DebugWithFields("formatted line", map[string]interface{}{
		"header":       result.Header,
		"position":     cursor.LastLineIndex,
		"next":         result.Cursor.LastLineIndex,
		"display_line": result.Cursor.DisplayLine,
	})
	return result, nil
}
