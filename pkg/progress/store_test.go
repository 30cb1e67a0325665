package progress

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"bookbyline/pkg/auth"
	"bookbyline/pkg/config"
	errs "bookbyline/pkg/errors"
	"bookbyline/pkg/logger"
	"bookbyline/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	digestA = "03de6c570bfe24bfc328ccd7ca46b76eadaf4334"
	digestB = "da39a3ee5e6b4b0d3255bfef95601890afd80709"
)

type backend struct {
	name string
	open func(t *testing.T, sealer auth.Sealer) Store
}

func backends() []backend {
	return []backend{
		{"sqlite", func(t *testing.T, sealer auth.Sealer) Store {
			s, err := OpenSQLite(MemoryPath, sealer, logger.NewNopLogger())
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		}},
		{"json", func(t *testing.T, sealer auth.Sealer) Store {
			s, err := OpenFile(filepath.Join(t.TempDir(), "progress.json"), sealer, logger.NewNopLogger())
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		}},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, store Store)) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			fn(t, b.open(t, nil))
		})
	}
}

func TestResolveOrCreateNewDocument(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		issuer := auth.NewMockIssuer()

		rec, err := store.ResolveOrCreate(ctx, digestA, issuer)
		require.NoError(t, err)

		assert.Equal(t, digestA, rec.Fingerprint)
		assert.Equal(t, models.Cursor{}, rec.Cursor)
		assert.Equal(t, issuer.Credentials, rec.Credentials)
		assert.NotZero(t, rec.ID)
		assert.False(t, rec.CreatedAt.IsZero())
		assert.Equal(t, 1, issuer.Calls())
	})
}

func TestResolveOrCreateExistingDocument(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		issuer := auth.NewMockIssuer()

		first, err := store.ResolveOrCreate(ctx, digestA, issuer)
		require.NoError(t, err)

		cursor := models.Cursor{LastLineIndex: 3, DisplayLine: 1, Prefix: "BOOK I"}
		require.NoError(t, store.Commit(ctx, digestA, cursor))

		second, err := store.ResolveOrCreate(ctx, digestA, issuer)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, cursor, second.Cursor)
		assert.Equal(t, 1, issuer.Calls(), "issuer must not run for a known document")
	})
}

func TestResolveOrCreateIssuerFailure(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		issuer := &auth.MockIssuer{IssueError: fmt.Errorf("user declined")}

		_, err := store.ResolveOrCreate(ctx, digestA, issuer)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errs.ErrCredentialSetupFailed))
		assert.Contains(t, err.Error(), "user declined")

		_, err = store.Lookup(ctx, digestA)
		assert.ErrorIs(t, err, ErrNotTracked, "failed issuance must leave no row")

		records, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestResolveOrCreateIncompleteBundle(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store Store) {
		issuer := &auth.MockIssuer{Credentials: models.Credentials{ConsumerKey: "only"}}

		_, err := store.ResolveOrCreate(context.Background(), digestA, issuer)
		assert.ErrorIs(t, err, errs.ErrCredentialSetupFailed)

		_, err = store.ResolveOrCreate(context.Background(), digestA, nil)
		assert.ErrorIs(t, err, errs.ErrCredentialSetupFailed)
	})
}

func TestResolveOrCreateRejectsBadFingerprint(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store Store) {
		issuer := auth.NewMockIssuer()
		_, err := store.ResolveOrCreate(context.Background(), "not-a-digest", issuer)
		assert.Error(t, err)
		assert.Zero(t, issuer.Calls())
	})
}

func TestCommitUnknownFingerprint(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store Store) {
		err := store.Commit(context.Background(), digestB, models.Cursor{LastLineIndex: 1, DisplayLine: 1})
		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrStoreWriteFailed)
		assert.ErrorIs(t, err, ErrNotTracked)
	})
}

func TestIndependentDocuments(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		issuer := auth.NewMockIssuer()

		_, err := store.ResolveOrCreate(ctx, digestA, issuer)
		require.NoError(t, err)
		_, err = store.ResolveOrCreate(ctx, digestB, issuer)
		require.NoError(t, err)

		require.NoError(t, store.Commit(ctx, digestA, models.Cursor{LastLineIndex: 5, DisplayLine: 2, Prefix: "CANTO I"}))

		b, err := store.Lookup(ctx, digestB)
		require.NoError(t, err)
		assert.Equal(t, models.Cursor{}, b.Cursor, "committing one document must not touch another")

		records, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, digestA, records[0].Fingerprint)
		assert.Equal(t, digestB, records[1].Fingerprint)
		assert.Equal(t, 5, records[0].Cursor.LastLineIndex)
	})
}

func TestSealedCredentialsRoundTrip(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			sealer, err := auth.NewPassphraseSealer("store-passphrase")
			require.NoError(t, err)

			store := b.open(t, sealer)
			issuer := auth.NewMockIssuer()

			rec, err := store.ResolveOrCreate(context.Background(), digestA, issuer)
			require.NoError(t, err)
			assert.Equal(t, issuer.Credentials, rec.Credentials, "read-after-write returns opened credentials")
		})
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(config.StoreConfig{Backend: config.BackendSQLite, Path: filepath.Join(dir, "tweet_books.sl3")}, nil, logger.NewNopLogger())
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	s, err = Open(config.StoreConfig{Backend: config.BackendJSON, Path: filepath.Join(dir, "progress.json")}, nil, logger.NewNopLogger())
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(config.StoreConfig{Backend: "postgres", Path: "x"}, nil, logger.NewNopLogger())
	assert.ErrorIs(t, err, errs.ErrStoreReadFailed)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	cursor := models.Cursor{LastLineIndex: 7, DisplayLine: 4, Prefix: "BOOK II "}

	for _, cfg := range []config.StoreConfig{
		{Backend: config.BackendSQLite, Path: filepath.Join(dir, "tweet_books.sl3")},
		{Backend: config.BackendJSON, Path: filepath.Join(dir, "progress.json")},
	} {
		t.Run(cfg.Backend, func(t *testing.T) {
			s, err := Open(cfg, nil, logger.NewNopLogger())
			require.NoError(t, err)
			_, err = s.ResolveOrCreate(ctx, digestA, auth.NewMockIssuer())
			require.NoError(t, err)
			require.NoError(t, s.Commit(ctx, digestA, cursor))
			require.NoError(t, s.Close())

			s, err = Open(cfg, nil, logger.NewNopLogger())
			require.NoError(t, err)
			defer s.Close()

			rec, err := s.Lookup(ctx, digestA)
			require.NoError(t, err)
			assert.Equal(t, cursor, rec.Cursor, "prefix is stored verbatim including trailing space")
		})
	}
}
