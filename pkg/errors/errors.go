package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a failure that terminates a run
type Kind string

const (
	KindSourceUnreadable      Kind = "source_unreadable"
	KindCredentialSetupFailed Kind = "credential_setup_failed"
	KindStoreWriteFailed      Kind = "store_write_failed"
	KindStoreReadFailed       Kind = "store_read_failed"
	KindEndOfDocument         Kind = "end_of_document"
	KindPostingFailed         Kind = "posting_failed"
)

// Sentinel errors, one per Kind. An *OpError matches its sentinel with errors.Is.
var (
	ErrSourceUnreadable      = stderrors.New("source unreadable")
	ErrCredentialSetupFailed = stderrors.New("credential setup failed")
	ErrStoreWriteFailed      = stderrors.New("store write failed")
	ErrStoreReadFailed       = stderrors.New("store read failed")
	ErrEndOfDocument         = stderrors.New("end of document")
	ErrPostingFailed         = stderrors.New("posting failed")
)

var sentinels = map[Kind]error{
	KindSourceUnreadable:      ErrSourceUnreadable,
	KindCredentialSetupFailed: ErrCredentialSetupFailed,
	KindStoreWriteFailed:      ErrStoreWriteFailed,
	KindStoreReadFailed:       ErrStoreReadFailed,
	KindEndOfDocument:         ErrEndOfDocument,
	KindPostingFailed:         ErrPostingFailed,
}

// OpError is a classified failure with an optional underlying cause
type OpError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *OpError) Error() string {
	msg := sentinels[e.Kind].Error()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *OpError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind
func (e *OpError) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// Wrap classifies err under kind. A nil cause is allowed.
func Wrap(kind Kind, msg string, err error) error {
	return &OpError{Kind: kind, Message: msg, Err: err}
}

// Wrapf is Wrap with a formatted message
func Wrapf(kind Kind, err error, format string, args ...interface{}) error {
	return &OpError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first classified error in err's chain
func KindOf(err error) (Kind, bool) {
	var opErr *OpError
	if stderrors.As(err, &opErr) {
		return opErr.Kind, true
	}
	for kind, sentinel := range sentinels {
		if stderrors.Is(err, sentinel) {
			return kind, true
		}
	}
	return "", false
}

// IsEndOfDocument reports whether err signals that nothing is left to emit
func IsEndOfDocument(err error) bool {
	return stderrors.Is(err, ErrEndOfDocument)
}

// ExitCode maps an error to a process exit status
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	kind, ok := KindOf(err)
	if !ok {
		return 1
	}
	switch kind {
	case KindEndOfDocument:
		return 3
	case KindSourceUnreadable:
		return 4
	case KindCredentialSetupFailed:
		return 5
	case KindStoreReadFailed, KindStoreWriteFailed:
		return 6
	case KindPostingFailed:
		return 7
	default:
		return 1
	}
}

// ErrorType represents different types of transport errors
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeRejected    ErrorType = "rejected"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents an API error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// TypeForStatus classifies an HTTP status code
func TypeForStatus(statusCode int) ErrorType {
	switch {
	case statusCode == 0:
		return ErrorTypeNetwork
	case statusCode == 429:
		return ErrorTypeRateLimit
	case statusCode == 401 || statusCode == 403:
		return ErrorTypeAuth
	case statusCode == 404:
		return ErrorTypeNotFound
	case statusCode >= 500:
		return ErrorTypeServerError
	case statusCode >= 400:
		return ErrorTypeRejected
	default:
		return ErrorTypeUnknown
	}
}

// Is, As and New re-export the standard helpers so callers need one import
var (
	Is  = stderrors.Is
	As  = stderrors.As
	New = stderrors.New
)
