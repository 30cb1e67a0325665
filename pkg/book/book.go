package book

import (
	"bufio"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"os"
	"strings"

	errs "bookbyline/pkg/errors"
)

// Lines is the ordered, immutable sequence of non-blank lines of a document
type Lines []string

// Book is a loaded source document and its content fingerprint
type Book struct {
	Path        string
	Lines       Lines
	Fingerprint string
}

// Len returns the number of lines
func (l Lines) Len() int {
	return len(l)
}

// At returns the line at index i and whether it exists
func (l Lines) At(i int) (string, bool) {
	if i < 0 || i >= len(l) {
		return "", false
	}
	return l[i], true
}

// Load reads r and returns its non-blank lines in order.
// Each line is kept byte for byte, terminator included, so fingerprints
// match those of existing progress stores.
func Load(r io.Reader) (Lines, error) {
	reader := bufio.NewReader(r)
	var lines Lines

	for {
		line, err := reader.ReadString('\n')
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.Wrap(errs.KindSourceUnreadable, "read lines", err)
		}
	}

	return lines, nil
}

// LoadFile opens path and loads it as a Book
func LoadFile(path string) (*Book, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrapf(errs.KindSourceUnreadable, err, "open %s", path)
	}
	defer file.Close()

	lines, err := Load(file)
	if err != nil {
		return nil, err
	}

	return &Book{
		Path:        path,
		Lines:       lines,
		Fingerprint: Fingerprint(lines),
	}, nil
}

// Fingerprint returns the hex SHA-1 digest of the lines joined without a separator
func Fingerprint(lines Lines) string {
	h := sha1.New()
	for _, line := range lines {
		io.WriteString(h, line)
	}
	return hex.EncodeToString(h.Sum(nil))
}
