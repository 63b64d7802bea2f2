// Package tracker exposes the save/load/export/import/backup contract the
// UI and other collaborators consume. It composes the codec, integrity
// layer, validator, storage adapter, and backup manager.
package tracker

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fintrack-dev/fintrack/internal/backup"
	"github.com/fintrack-dev/fintrack/internal/codec"
	"github.com/fintrack-dev/fintrack/internal/config"
	"github.com/fintrack-dev/fintrack/internal/integrity"
	"github.com/fintrack-dev/fintrack/internal/model"
	"github.com/fintrack-dev/fintrack/internal/snapkey"
	"github.com/fintrack-dev/fintrack/internal/storage"
	"github.com/fintrack-dev/fintrack/internal/validate"
)

// Service is the persistence core. One active writer per owner is assumed;
// concurrent sessions for the same owner resolve last-write-wins at the
// storage adapter.
type Service struct {
	store     storage.Adapter
	validator *validate.Validator
	manager   *backup.Manager
	log       zerolog.Logger
	exportDir string
	now       func() time.Time
}

// Options tunes a Service beyond what the config file carries.
type Options struct {
	// ExportDir receives export and backup files. Empty disables the
	// file-side effects; the operations still succeed.
	ExportDir string
	// Recorder receives backup audit entries. Nil disables auditing.
	Recorder backup.Recorder
	// Now overrides the clock. Test hook.
	Now func() time.Time
}

// NewService builds a Service from configuration. Validation bounds and
// the category set come from cfg, never from globals.
func NewService(store storage.Adapter, cfg *config.Config, log zerolog.Logger, opts Options) (*Service, error) {
	bounds, err := cfg.Bounds()
	if err != nil {
		return nil, err
	}

	s := &Service{
		store:     store,
		validator: validate.New(bounds, cfg.CategorySet()),
		log:       log,
		exportDir: opts.ExportDir,
		now:       opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.manager = backup.NewManager(store, s.validator, s, log, backup.Options{
		MaxLocalSnapshots: cfg.Backup.MaxLocalSnapshots,
		Recorder:          opts.Recorder,
		Now:               s.now,
	})
	return s, nil
}

// Validator returns the record validator so collaborators check input the
// same way the persistence paths do.
func (s *Service) Validator() *validate.Validator {
	return s.validator
}

// Save validates and persists the full dataset for owner. The dataset is
// replaced wholesale; records failing validation reject the save.
func (s *Service) Save(owner string, records []model.Record) error {
	var msgs []string
	for _, rec := range records {
		for _, e := range s.validator.Record(rec) {
			msgs = append(msgs, e.Error())
		}
	}
	if len(msgs) > 0 {
		return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
	}
	return s.SaveRecords(owner, records)
}

// SaveRecords persists already-validated records: encoded text under the
// dataset key, derived metadata under the meta key. Implements
// backup.Datastore.
func (s *Service) SaveRecords(owner string, records []model.Record) error {
	now := s.now()
	meta, err := backup.DeriveMetadata(owner, records, now)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := codec.Encode(&buf, owner, records, now); err != nil {
		return fmt.Errorf("encoding dataset: %w", err)
	}
	if err := s.store.Set(storage.DatasetKey(owner), buf.Bytes()); err != nil {
		return err
	}

	rawMeta, err := metaJSON(meta)
	if err != nil {
		return err
	}
	return s.store.Set(storage.MetaKey(owner), rawMeta)
}

// Load returns the owner's dataset, or nil when none exists. A checksum
// mismatch against stored metadata is logged and never blocks: the
// observed corruption is benign, so optimistic recovery wins. Rows that
// fail to parse are skipped with a warning.
func (s *Service) Load(owner string) ([]model.Record, error) {
	raw, err := s.store.Get(storage.DatasetKey(owner))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if meta, err := s.loadMeta(owner); err == nil && meta != nil {
		if !integrity.Verify(raw, meta.Checksum) {
			s.log.Warn().Str("owner", owner).Str("expected", meta.Checksum).
				Str("actual", integrity.Checksum(raw)).
				Msg("dataset checksum mismatch, possible corruption")
		}
	}

	records, ferrs, err := s.decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding dataset: %w", err)
	}
	for _, fe := range ferrs {
		s.log.Warn().Str("owner", owner).Msg("skipping bad row: " + fe.Error())
	}
	return records, nil
}

// LoadRecords implements backup.Datastore.
func (s *Service) LoadRecords(owner string) ([]model.Record, error) {
	return s.Load(owner)
}

func (s *Service) decode(raw []byte) ([]model.Record, []validate.FieldError, error) {
	return codec.Decode(bytes.NewReader(raw), s.validator)
}

func (s *Service) loadMeta(owner string) (*model.Metadata, error) {
	raw, err := s.store.Get(storage.MetaKey(owner))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return metaFromJSON(raw)
}

// ExportToFile writes the owner's dataset as export text into the export
// directory and returns the filename. An empty dataset, or a Service with
// no export directory, exports nothing and returns "".
func (s *Service) ExportToFile(owner string) (string, error) {
	records, err := s.Load(owner)
	if err != nil {
		return "", err
	}
	if len(records) == 0 || s.exportDir == "" {
		return "", nil
	}

	now := s.now()
	name := fmt.Sprintf("fintrack-export-%s-%s-%s.csv",
		owner, snapkey.Format(now), uuid.NewString()[:8])
	path := filepath.Join(s.exportDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	if err := codec.Encode(f, owner, records, now); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}
	return path, nil
}

// ImportFromFile parses export text from r, validates and de-duplicates
// its rows against the existing dataset, and commits the merged dataset.
// Partial failure never aborts: the result itemizes every skipped row.
// Only an unrecognizable input shape is a hard error.
func (s *Service) ImportFromFile(owner string, r io.Reader) (validate.ImportResult, error) {
	candidates, ferrs, err := codec.Decode(r, s.validator)
	if err != nil {
		return validate.ImportResult{Success: false, Errors: []string{err.Error()}}, err
	}

	existing, err := s.Load(owner)
	if err != nil {
		return validate.ImportResult{}, err
	}

	unique, res := s.validator.Filter(candidates, existing)

	// Fold rows rejected during decoding into the summary.
	res.SkippedCount += skippedLines(ferrs)
	for _, fe := range ferrs {
		res.Errors = append(res.Errors, fe.Error())
	}

	if len(unique) == 0 {
		res.Success = false
		return res, nil
	}

	merged := append(existing, unique...)
	if err := s.SaveRecords(owner, merged); err != nil {
		return validate.ImportResult{Success: false, Errors: []string{err.Error()}}, err
	}

	s.log.Info().Str("owner", owner).Int("imported", res.ImportedCount).
		Int("skipped", res.SkippedCount).Msg("import committed")
	return res, nil
}

// skippedLines counts distinct rejected rows: one row can carry several
// field errors but is skipped once.
func skippedLines(ferrs []validate.FieldError) int {
	lines := make(map[int]struct{})
	for _, fe := range ferrs {
		lines[fe.Line] = struct{}{}
	}
	return len(lines)
}

// CreateBackup snapshots records and writes the snapshot document to the
// export directory. Returns the written filename, or the storage key when
// no export directory is configured.
func (s *Service) CreateBackup(owner string, records []model.Record) (string, error) {
	snap, key, err := s.manager.CreateSnapshot(owner, records)
	if err != nil {
		return "", err
	}
	if s.exportDir == "" {
		return key, nil
	}

	raw, err := snapshotJSON(snap)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("fintrack-backup-%s-%s.json", owner, snapkey.Format(snap.Metadata.CreatedAt))
	path := filepath.Join(s.exportDir, name)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("writing backup file: %w", err)
	}
	return path, nil
}

// RestoreFromBackup restores from a snapshot file path or a local snapshot
// storage key/stamp.
func (s *Service) RestoreFromBackup(owner, ref string) (backup.RestoreResult, error) {
	raw, err := s.resolveSnapshot(owner, ref)
	if err != nil {
		return backup.RestoreResult{Success: false, Errors: []string{err.Error()}}, err
	}
	return s.manager.Restore(owner, raw)
}

func (s *Service) resolveSnapshot(owner, ref string) ([]byte, error) {
	if _, err := os.Stat(ref); err == nil {
		raw, err := os.ReadFile(ref)
		if err != nil {
			return nil, fmt.Errorf("reading snapshot file: %w", err)
		}
		return raw, nil
	}

	// Not a file: try a full storage key, then a bare stamp.
	if raw, err := s.store.Get(ref); err == nil {
		return raw, nil
	}
	raw, err := s.store.Get(storage.BackupKey(owner, ref))
	if err != nil {
		return nil, fmt.Errorf("snapshot %q not found", ref)
	}
	return raw, nil
}

// ListLocalBackups returns metadata for the owner's local snapshots,
// newest first.
func (s *Service) ListLocalBackups(owner string) ([]model.Metadata, error) {
	return s.manager.ListLocalBackups(owner)
}

// SetSchedule persists the automatic backup schedule.
func (s *Service) SetSchedule(owner string, sched model.Schedule) (model.Schedule, error) {
	return s.manager.SetSchedule(owner, sched)
}

// GetSchedule returns the schedule, or nil when none is set.
func (s *Service) GetSchedule(owner string) (*model.Schedule, error) {
	return s.manager.GetSchedule(owner)
}

// CleanupOldBackups prunes snapshots older than retentionDays, plus any
// that no longer parse.
func (s *Service) CleanupOldBackups(owner string, retentionDays int) (int, error) {
	return s.manager.CleanupOldBackups(owner, retentionDays)
}

// NewScheduler returns an armed-on-Start scheduler for owner.
func (s *Service) NewScheduler(owner string) *backup.Scheduler {
	return backup.NewScheduler(s.manager, owner)
}

// DeleteAllData removes every key under the owner's namespace: dataset,
// metadata, schedule, and all snapshots.
func (s *Service) DeleteAllData(owner string) (bool, error) {
	keys, err := s.store.ListKeys(storage.OwnerPrefix(owner))
	if err != nil {
		return false, err
	}
	for _, key := range keys {
		if err := s.store.Delete(key); err != nil {
			return false, err
		}
	}
	s.log.Info().Str("owner", owner).Int("keys", len(keys)).Msg("all data deleted")
	return true, nil
}
