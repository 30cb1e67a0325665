package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"bookbyline/pkg/auth"
	errs "bookbyline/pkg/errors"
	"bookbyline/pkg/logger"
	"bookbyline/pkg/models"
)

const fileFormatVersion = 1

// fileData is the on-disk layout of a FileStore
type fileData struct {
	Version int                       `json:"version"`
	NextID  int64                     `json:"next_id"`
	Records map[string]*models.Record `json:"records"`
}

// FileStore keeps every record in a single JSON document.
// The file is re-read on every operation and replaced atomically on write.
type FileStore struct {
	path   string
	sealer auth.Sealer
	logger logger.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// OpenFile opens the JSON store at path, creating an empty one if needed
func OpenFile(path string, sealer auth.Sealer, log logger.Logger) (*FileStore, error) {
	log = defaultLogger(log)

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errs.Wrap(errs.KindStoreReadFailed, "create store directory", err)
		}
	}

	f := &FileStore{
		path:   path,
		sealer: defaultSealer(sealer),
		logger: log,
		now:    time.Now,
	}

	data, err := f.load()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		if err := f.save(data); err != nil {
			return nil, err
		}
	}

	log.WithField("path", path).Debug("progress file opened")
	return f, nil
}

func (f *FileStore) Close() error {
	return nil
}

func (f *FileStore) ResolveOrCreate(ctx context.Context, fingerprint string, issuer auth.Issuer) (*models.Record, error) {
	if err := validFingerprint(fingerprint); err != nil {
		return nil, errs.Wrap(errs.KindStoreReadFailed, "resolve", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return nil, err
	}
	if rec, ok := data.Records[fingerprint]; ok {
		return f.opened(rec)
	}

	f.logger.WithField("digest", fingerprint).Info("new document found, issuing credentials")

	creds, err := issue(ctx, issuer, f.sealer)
	if err != nil {
		return nil, err
	}

	now := f.now().UTC().Truncate(time.Second)
	data.NextID++
	data.Records[fingerprint] = &models.Record{
		ID:          data.NextID,
		Fingerprint: fingerprint,
		Credentials: creds,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := f.save(data); err != nil {
		return nil, err
	}

	reread, err := f.load()
	if err != nil {
		return nil, err
	}
	rec, ok := reread.Records[fingerprint]
	if !ok {
		return nil, errs.Wrapf(errs.KindStoreReadFailed, ErrNotTracked, "re-read %s after insert", fingerprint)
	}
	return f.opened(rec)
}

func (f *FileStore) Commit(ctx context.Context, fingerprint string, cursor models.Cursor) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return errs.Wrap(errs.KindStoreWriteFailed, "load before update", err)
	}

	rec, ok := data.Records[fingerprint]
	if !ok {
		return errs.Wrapf(errs.KindStoreWriteFailed, ErrNotTracked, "update %s", fingerprint)
	}
	rec.Cursor = cursor
	rec.UpdatedAt = f.now().UTC().Truncate(time.Second)

	if err := f.save(data); err != nil {
		return err
	}

	f.logger.WithFields(map[string]interface{}{
		"digest":       fingerprint,
		"position":     cursor.LastLineIndex,
		"display_line": cursor.DisplayLine,
	}).Debug("cursor committed")
	return nil
}

func (f *FileStore) Lookup(ctx context.Context, fingerprint string) (*models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return nil, err
	}
	rec, ok := data.Records[fingerprint]
	if !ok {
		return nil, ErrNotTracked
	}
	return f.opened(rec)
}

func (f *FileStore) List(ctx context.Context) ([]*models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return nil, err
	}

	records := make([]*models.Record, 0, len(data.Records))
	for _, rec := range data.Records {
		opened, err := f.opened(rec)
		if err != nil {
			return nil, err
		}
		records = append(records, opened)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

// opened returns a copy of rec with its credentials unsealed
func (f *FileStore) opened(rec *models.Record) (*models.Record, error) {
	cp := *rec
	if err := unseal(&cp, f.sealer); err != nil {
		return nil, err
	}
	return &cp, nil
}

// load reads the store file. A missing file is an empty store.
func (f *FileStore) load() (*fileData, error) {
	empty := &fileData{Version: fileFormatVersion, Records: make(map[string]*models.Record)}

	file, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return empty, nil
		}
		return nil, errs.Wrap(errs.KindStoreReadFailed, "open store file", err)
	}
	defer file.Close()

	var data fileData
	if err := json.NewDecoder(file).Decode(&data); err != nil {
		return nil, errs.Wrap(errs.KindStoreReadFailed, "decode store file", err)
	}
	if data.Version > fileFormatVersion {
		return nil, errs.Wrap(errs.KindStoreReadFailed,
			fmt.Sprintf("store file version %d is newer than supported version %d", data.Version, fileFormatVersion), nil)
	}
	if data.Records == nil {
		data.Records = make(map[string]*models.Record)
	}
	for key, rec := range data.Records {
		if rec == nil || rec.Fingerprint != key {
			return nil, errs.Wrap(errs.KindStoreReadFailed, "corrupt store file", errors.New("record key does not match its digest"))
		}
	}
	return &data, nil
}

// save writes the store to disk atomically
func (f *FileStore) save(data *fileData) error {
	data.Version = fileFormatVersion

	tempPath := f.path + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return errs.Wrap(errs.KindStoreWriteFailed, "create temporary store file", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return errs.Wrap(errs.KindStoreWriteFailed, "encode store file", err)
	}

	// Ensure data is written to disk
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return errs.Wrap(errs.KindStoreWriteFailed, "sync store file", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return errs.Wrap(errs.KindStoreWriteFailed, "close store file", err)
	}

	if err := os.Rename(tempPath, f.path); err != nil {
		os.Remove(tempPath)
		return errs.Wrap(errs.KindStoreWriteFailed, "replace store file", err)
	}
	return nil
}
