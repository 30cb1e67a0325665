package models

import (
	"fmt"
	"time"
)

// Cursor is the persisted reading position for one document
type Cursor struct {
	// LastLineIndex is the offset of the next line not yet processed
	LastLineIndex int `json:"position"`
	// DisplayLine is the number shown to readers, relative to the last header
	DisplayLine int `json:"display_line"`
	// Prefix is the most recent header line, stored verbatim
	Prefix string `json:"header"`
}

// Credentials holds the OAuth 1.0a keys used to post for one document
type Credentials struct {
	ConsumerKey    string `json:"con_key"`
	ConsumerSecret string `json:"con_secret"`
	AccessKey      string `json:"acc_key"`
	AccessSecret   string `json:"acc_secret"`
}

// Complete reports whether every field is set
func (c Credentials) Complete() bool {
	return c.ConsumerKey != "" && c.ConsumerSecret != "" && c.AccessKey != "" && c.AccessSecret != ""
}

// Record is one row of the progress store
type Record struct {
	ID          int64       `json:"id"`
	Fingerprint string      `json:"digest"`
	Cursor      Cursor      `json:"cursor"`
	Credentials Credentials `json:"credentials"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Validate checks a record read back from storage
func (r *Record) Validate() error {
	if !IsFingerprint(r.Fingerprint) {
		return fmt.Errorf("invalid fingerprint %q", r.Fingerprint)
	}
	if r.Cursor.LastLineIndex < 0 {
		return fmt.Errorf("negative line index %d", r.Cursor.LastLineIndex)
	}
	if r.Cursor.DisplayLine < 0 {
		return fmt.Errorf("negative display line %d", r.Cursor.DisplayLine)
	}
	return nil
}

// IsFingerprint reports whether s is a 40 character lowercase hex digest
func IsFingerprint(s string) bool {
	if len(s) != 40 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}
