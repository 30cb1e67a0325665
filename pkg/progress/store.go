// Package progress persists reading positions and credentials per document.
//
// A document is identified only by its content fingerprint. Each tracked
// document owns one record holding its cursor and the credential bundle
// issued the first time it was seen. Records are created by ResolveOrCreate
// and advanced by Commit; nothing else mutates them.
package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookbyline/pkg/auth"
	"bookbyline/pkg/config"
	errs "bookbyline/pkg/errors"
	"bookbyline/pkg/logger"
	"bookbyline/pkg/models"
)

// ErrNotTracked is returned by Lookup for a fingerprint with no record
var ErrNotTracked = errors.New("document not tracked")

// Store is the durable fingerprint -> record mapping
type Store interface {
	// ResolveOrCreate returns the record for fingerprint. The first time a
	// fingerprint is seen, issuer is asked for credentials and a zero
	// cursor is stored with them. Issuance failure creates nothing.
	ResolveOrCreate(ctx context.Context, fingerprint string, issuer auth.Issuer) (*models.Record, error)

	// Commit replaces the cursor of an existing record
	Commit(ctx context.Context, fingerprint string, cursor models.Cursor) error

	// Lookup returns the record for fingerprint or ErrNotTracked
	Lookup(ctx context.Context, fingerprint string) (*models.Record, error)

	// List returns every record in creation order
	List(ctx context.Context) ([]*models.Record, error)

	Close() error
}

// Open creates the store selected by cfg.Backend
func Open(cfg config.StoreConfig, sealer auth.Sealer, log logger.Logger) (Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite, "":
		return OpenSQLite(cfg.Path, sealer, log)
	case config.BackendJSON:
		return OpenFile(cfg.Path, sealer, log)
	default:
		return nil, errs.Wrap(errs.KindStoreReadFailed, fmt.Sprintf("unknown store backend %q", cfg.Backend), nil)
	}
}

// issue runs the issuer and seals the result for storage
func issue(ctx context.Context, issuer auth.Issuer, sealer auth.Sealer) (models.Credentials, error) {
	if issuer == nil {
		return models.Credentials{}, errs.Wrap(errs.KindCredentialSetupFailed, "no credential issuer configured", nil)
	}

	creds, err := issuer.Issue(ctx)
	if err != nil {
		return models.Credentials{}, errs.Wrap(errs.KindCredentialSetupFailed, "issue credentials", err)
	}
	if !creds.Complete() {
		return models.Credentials{}, errs.Wrap(errs.KindCredentialSetupFailed, "issuer returned an incomplete bundle", auth.ErrInvalidCredentials)
	}

	sealed, err := auth.SealCredentials(sealer, creds)
	if err != nil {
		return models.Credentials{}, errs.Wrap(errs.KindStoreWriteFailed, "seal credentials", err)
	}
	return sealed, nil
}

// unseal opens stored credentials in place and validates the record
func unseal(rec *models.Record, sealer auth.Sealer) error {
	creds, err := auth.OpenCredentials(sealer, rec.Credentials)
	if err != nil {
		return errs.Wrapf(errs.KindStoreReadFailed, err, "open credentials for %s", rec.Fingerprint)
	}
	rec.Credentials = creds

	if err := rec.Validate(); err != nil {
		return errs.Wrap(errs.KindStoreReadFailed, "corrupt record", err)
	}
	return nil
}

func validFingerprint(fingerprint string) error {
	if !models.IsFingerprint(fingerprint) {
		return fmt.Errorf("invalid fingerprint %q", fingerprint)
	}
	return nil
}

func unixTime(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func defaultSealer(sealer auth.Sealer) auth.Sealer {
	if sealer == nil {
		return auth.PlainSealer{}
	}
	return sealer
}

func defaultLogger(log logger.Logger) logger.Logger {
	if log == nil {
		return logger.GetLogger()
	}
	return log
}
