package progress

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bookbyline/pkg/auth"
	errs "bookbyline/pkg/errors"
	"bookbyline/pkg/logger"
	"bookbyline/pkg/models"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - position table as created by earlier releases
// 1 - created_at/updated_at columns and UNIQUE index on digest
const currentSchemaVersion = 1

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

const selectColumns = `id, position, displayline, header, digest,
	conkey, consecret, acckey, accsecret, created_at, updated_at`

// SQLiteStore keeps records in the position table of a SQLite database
type SQLiteStore struct {
	db     *sql.DB
	sealer auth.Sealer
	logger logger.Logger
	now    func() time.Time
}

// OpenSQLite creates or opens the database at path and brings its schema
// up to date. It is safe to call on an existing database.
func OpenSQLite(path string, sealer auth.Sealer, log logger.Logger) (*SQLiteStore, error) {
	log = defaultLogger(log)

	if path != MemoryPath {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, errs.Wrap(errs.KindStoreReadFailed, "create database directory", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errs.Wrap(errs.KindStoreReadFailed, "open database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.KindStoreReadFailed, "connect to database", err)
	}

	// SQLite has a single writer; one connection also keeps :memory: alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.KindStoreReadFailed, "apply pragmas", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.KindStoreWriteFailed, "apply schema", err)
	}

	log.WithField("path", path).Debug("progress database opened")

	return &SQLiteStore{
		db:     db,
		sealer: defaultSealer(sealer),
		logger: log,
		now:    time.Now,
	}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) ResolveOrCreate(ctx context.Context, fingerprint string, issuer auth.Issuer) (*models.Record, error) {
	if err := validFingerprint(fingerprint); err != nil {
		return nil, errs.Wrap(errs.KindStoreReadFailed, "resolve", err)
	}

	rec, err := s.Lookup(ctx, fingerprint)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrNotTracked) {
		return nil, err
	}

	s.logger.WithField("digest", fingerprint).Info("new document found, issuing credentials")

	creds, err := issue(ctx, issuer, s.sealer)
	if err != nil {
		return nil, err
	}

	if err := s.insert(ctx, fingerprint, creds); err != nil {
		return nil, err
	}

	rec, err = s.Lookup(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, ErrNotTracked) {
			return nil, errs.Wrapf(errs.KindStoreReadFailed, err, "re-read %s after insert", fingerprint)
		}
		return nil, err
	}
	return rec, nil
}

func (s *SQLiteStore) insert(ctx context.Context, fingerprint string, creds models.Credentials) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.KindStoreWriteFailed, "begin insert", err)
	}
	defer tx.Rollback()

	now := s.now().Unix()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO position
			(position, displayline, header, digest, conkey, consecret, acckey, accsecret, created_at, updated_at)
		VALUES (0, 0, '', ?, ?, ?, ?, ?, ?, ?)`,
		fingerprint, creds.ConsumerKey, creds.ConsumerSecret, creds.AccessKey, creds.AccessSecret, now, now,
	)
	if err != nil {
		return errs.Wrapf(errs.KindStoreWriteFailed, err, "insert %s", fingerprint)
	}

	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.KindStoreWriteFailed, "commit insert", err)
	}
	return nil
}

func (s *SQLiteStore) Commit(ctx context.Context, fingerprint string, cursor models.Cursor) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.KindStoreWriteFailed, "begin update", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE position SET position = ?, displayline = ?, header = ?, updated_at = ?
		WHERE digest = ?`,
		cursor.LastLineIndex, cursor.DisplayLine, cursor.Prefix, s.now().Unix(), fingerprint,
	)
	if err != nil {
		return errs.Wrapf(errs.KindStoreWriteFailed, err, "update %s", fingerprint)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errs.Wrap(errs.KindStoreWriteFailed, "update result", err)
	}
	if n == 0 {
		return errs.Wrapf(errs.KindStoreWriteFailed, ErrNotTracked, "update %s", fingerprint)
	}

	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.KindStoreWriteFailed, "commit update", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"digest":       fingerprint,
		"position":     cursor.LastLineIndex,
		"display_line": cursor.DisplayLine,
	}).Debug("cursor committed")
	return nil
}

func (s *SQLiteStore) Lookup(ctx context.Context, fingerprint string) (*models.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM position WHERE digest = ?`, fingerprint)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotTracked
		}
		return nil, errs.Wrapf(errs.KindStoreReadFailed, err, "select %s", fingerprint)
	}

	if err := unseal(rec, s.sealer); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]*models.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM position ORDER BY id`)
	if err != nil {
		return nil, errs.Wrap(errs.KindStoreReadFailed, "list", err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errs.Wrap(errs.KindStoreReadFailed, "scan", err)
		}
		if err := unseal(rec, s.sealer); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.KindStoreReadFailed, "list", err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one row. Rows written by earlier releases may hold NULLs.
func scanRecord(row scanner) (*models.Record, error) {
	var (
		rec                models.Record
		position, display  sql.NullInt64
		header             sql.NullString
		ck, cs, ak, as     sql.NullString
		createdAt, updated sql.NullInt64
	)

	err := row.Scan(&rec.ID, &position, &display, &header, &rec.Fingerprint,
		&ck, &cs, &ak, &as, &createdAt, &updated)
	if err != nil {
		return nil, err
	}

	rec.Cursor = models.Cursor{
		LastLineIndex: int(position.Int64),
		DisplayLine:   int(display.Int64),
		Prefix:        header.String,
	}
	rec.Credentials = models.Credentials{
		ConsumerKey:    ck.String,
		ConsumerSecret: cs.String,
		AccessKey:      ak.String,
		AccessSecret:   as.String,
	}
	rec.CreatedAt = unixTime(createdAt.Int64)
	rec.UpdatedAt = unixTime(updated.Int64)
	return &rec, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates the table if it doesn't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// migrateToV1 adds timestamps and enforces one row per digest.
func migrateToV1(db *sql.DB) error {
	columns, err := tableColumns(db, "position")
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}

	for _, col := range []string{"created_at", "updated_at"} {
		if columns[col] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE position ADD COLUMN %s INTEGER NOT NULL DEFAULT 0", col)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}

	_, err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_position_digest ON position(digest)`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

func tableColumns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			dflt       sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &primaryKey); err != nil {
			return nil, err
		}
		columns[name] = true
	}
	return columns, rows.Err()
}
