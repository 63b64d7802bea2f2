// Package backup orchestrates snapshot creation, local retention, restore
// validation, and the automatic backup schedule. It sits on top of the
// storage adapter, codec, integrity, and validate packages.
package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/fintrack-dev/fintrack/internal/codec"
	"github.com/fintrack-dev/fintrack/internal/integrity"
	"github.com/fintrack-dev/fintrack/internal/model"
	"github.com/fintrack-dev/fintrack/internal/oplog"
	"github.com/fintrack-dev/fintrack/internal/snapkey"
	"github.com/fintrack-dev/fintrack/internal/storage"
	"github.com/fintrack-dev/fintrack/internal/validate"
)

// ErrEmptyDataset rejects snapshot creation over zero records.
var ErrEmptyDataset = errors.New("backup: refusing to snapshot an empty dataset")

// DefaultMaxLocalSnapshots caps retained local snapshots per owner.
const DefaultMaxLocalSnapshots = 5

// Datastore is the dataset persistence the manager commits restores
// through and the scheduler reads from. The tracker service implements it.
type Datastore interface {
	LoadRecords(owner string) ([]model.Record, error)
	SaveRecords(owner string, records []model.Record) error
}

// Recorder receives audit entries for backup operations. *oplog.Log
// satisfies it; a nil Recorder disables auditing.
type Recorder interface {
	Record(e oplog.Entry) error
}

// Manager implements snapshot, restore, retention, and schedule workflows.
type Manager struct {
	store     storage.Adapter
	validator *validate.Validator
	data      Datastore
	log       zerolog.Logger
	rec       Recorder
	maxLocal  int
	now       func() time.Time
}

// Options tunes a Manager. Zero values select the defaults.
type Options struct {
	MaxLocalSnapshots int
	Recorder          Recorder
	Now               func() time.Time
}

// NewManager wires a Manager over a storage adapter. data may be nil when
// neither restore commits nor the scheduler are used.
func NewManager(store storage.Adapter, v *validate.Validator, data Datastore, log zerolog.Logger, opts Options) *Manager {
	m := &Manager{
		store:     store,
		validator: v,
		data:      data,
		log:       log,
		rec:       opts.Recorder,
		maxLocal:  opts.MaxLocalSnapshots,
		now:       opts.Now,
	}
	if m.maxLocal <= 0 {
		m.maxLocal = DefaultMaxLocalSnapshots
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// DeriveMetadata computes the full metadata block for a record set,
// including the checksum over the encoded payload. Metadata is always
// recomputed, never hand-edited.
func DeriveMetadata(owner string, records []model.Record, createdAt time.Time) (model.Metadata, error) {
	var buf bytes.Buffer
	if err := codec.Encode(&buf, owner, records, createdAt); err != nil {
		return model.Metadata{}, fmt.Errorf("encoding records: %w", err)
	}

	meta := model.Metadata{
		FormatVersion: model.FormatVersion,
		Owner:         owner,
		CreatedAt:     createdAt.UTC(),
		RecordCount:   len(records),
		TotalAmount:   decimal.Zero,
		Checksum:      integrity.Checksum(buf.Bytes()),
	}

	seen := make(map[string]struct{})
	for i, rec := range records {
		meta.TotalAmount = meta.TotalAmount.Add(rec.Amount)
		if i == 0 || rec.Date.Before(meta.DateRange.Earliest) {
			meta.DateRange.Earliest = rec.Date
		}
		if i == 0 || rec.Date.After(meta.DateRange.Latest) {
			meta.DateRange.Latest = rec.Date
		}
		if _, ok := seen[rec.Category]; !ok {
			seen[rec.Category] = struct{}{}
			meta.Categories = append(meta.Categories, rec.Category)
		}
	}
	sort.Strings(meta.Categories)
	return meta, nil
}

// CreateSnapshot derives metadata for records, persists an immutable
// snapshot under a timestamped key, and prunes local snapshots beyond the
// retention cap. Returns the snapshot and its storage key.
func (m *Manager) CreateSnapshot(owner string, records []model.Record) (*model.Snapshot, string, error) {
	if len(records) == 0 {
		return nil, "", ErrEmptyDataset
	}

	createdAt := m.now()
	meta, err := DeriveMetadata(owner, records, createdAt)
	if err != nil {
		return nil, "", err
	}

	snap := &model.Snapshot{
		Metadata: &meta,
		Records:  records,
		Format:   model.FormatTag,
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, "", fmt.Errorf("marshaling snapshot: %w", err)
	}

	key := storage.BackupKey(owner, snapkey.Format(createdAt))
	if err := m.store.Set(key, raw); err != nil {
		return nil, "", err
	}

	if err := m.pruneExcess(owner); err != nil {
		m.log.Warn().Err(err).Str("owner", owner).Msg("pruning old snapshots failed")
	}

	m.log.Info().Str("owner", owner).Str("key", key).
		Int("records", len(records)).Msg("snapshot created")
	m.audit(owner, "backup", fmt.Sprintf("%d records", len(records)), key)

	return snap, key, nil
}

// pruneExcess keeps only the newest maxLocal snapshots. Keys sort
// chronologically, so the oldest are the front of the list.
func (m *Manager) pruneExcess(owner string) error {
	keys, err := m.store.ListKeys(storage.BackupPrefix(owner))
	if err != nil {
		return err
	}
	for i := 0; i < len(keys)-m.maxLocal; i++ {
		if err := m.store.Delete(keys[i]); err != nil {
			return err
		}
	}
	return nil
}

// DecodeSnapshot parses and shape-checks a snapshot document. The format
// tag is verified before any other field is trusted.
func DecodeSnapshot(raw []byte) (*model.Snapshot, error) {
	var probe struct {
		Format string `json:"format"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, &codec.FormatError{Reason: "not a valid snapshot document"}
	}
	if probe.Format != model.FormatTag {
		return nil, &codec.FormatError{Reason: fmt.Sprintf("format tag %q, want %q", probe.Format, model.FormatTag)}
	}

	var snap model.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, &codec.FormatError{Reason: "malformed snapshot body"}
	}
	if snap.Metadata == nil {
		return nil, &codec.FormatError{Reason: "missing metadata section"}
	}
	if snap.Records == nil {
		return nil, &codec.FormatError{Reason: "missing records section"}
	}
	return &snap, nil
}

// RestoreResult summarizes a restore: how many records were committed, how
// many were skipped, and why.
type RestoreResult struct {
	Success       bool
	RestoredCount int
	SkippedCount  int
	Errors        []string
	Metadata      *model.Metadata
}

// Restore validates a snapshot document and commits the valid subset of
// its records as the owner's dataset. A checksum mismatch is logged and
// never blocks; zero valid records rejects the restore and leaves the
// existing dataset untouched.
func (m *Manager) Restore(owner string, raw []byte) (RestoreResult, error) {
	snap, err := DecodeSnapshot(raw)
	if err != nil {
		return RestoreResult{Success: false, Errors: []string{err.Error()}}, err
	}

	m.verifyChecksum(owner, snap)

	valid, res := m.validator.Filter(snap.Records, nil)
	result := RestoreResult{
		Success:       res.Success,
		RestoredCount: res.ImportedCount,
		SkippedCount:  res.SkippedCount,
		Errors:        res.Errors,
		Metadata:      snap.Metadata,
	}
	if len(valid) == 0 {
		m.log.Warn().Str("owner", owner).Msg("restore rejected: no valid records")
		return result, nil
	}

	if err := m.data.SaveRecords(owner, valid); err != nil {
		return RestoreResult{Success: false, Errors: []string{err.Error()}}, fmt.Errorf("committing restored dataset: %w", err)
	}

	m.log.Info().Str("owner", owner).Int("restored", result.RestoredCount).
		Int("skipped", result.SkippedCount).Msg("restore committed")
	m.audit(owner, "restore", fmt.Sprintf("%d restored, %d skipped", result.RestoredCount, result.SkippedCount), "")

	return result, nil
}

// verifyChecksum recomputes the payload checksum and warns on mismatch.
// Loading proceeds either way: the observed failure mode is benign partial
// writes and manual edits, so recovery wins over hard failure.
func (m *Manager) verifyChecksum(owner string, snap *model.Snapshot) {
	var buf bytes.Buffer
	if err := codec.Encode(&buf, snap.Metadata.Owner, snap.Records, snap.Metadata.CreatedAt); err != nil {
		return
	}
	if !integrity.Verify(buf.Bytes(), snap.Metadata.Checksum) {
		m.log.Warn().Str("owner", owner).Str("expected", snap.Metadata.Checksum).
			Str("actual", integrity.Checksum(buf.Bytes())).
			Msg("snapshot checksum mismatch, possible corruption")
	}
}

// ListLocalBackups returns metadata for the owner's local snapshots,
// newest first. Corrupt snapshots are skipped.
func (m *Manager) ListLocalBackups(owner string) ([]model.Metadata, error) {
	keys, err := m.store.ListKeys(storage.BackupPrefix(owner))
	if err != nil {
		return nil, err
	}

	var metas []model.Metadata
	for i := len(keys) - 1; i >= 0; i-- {
		raw, err := m.store.Get(keys[i])
		if err != nil {
			continue
		}
		snap, err := DecodeSnapshot(raw)
		if err != nil {
			continue
		}
		metas = append(metas, *snap.Metadata)
	}
	return metas, nil
}

// CleanupOldBackups removes local snapshots older than retentionDays.
// Snapshots that fail to parse are treated as corrupt and pruned
// unconditionally. Returns the number removed.
func (m *Manager) CleanupOldBackups(owner string, retentionDays int) (int, error) {
	keys, err := m.store.ListKeys(storage.BackupPrefix(owner))
	if err != nil {
		return 0, err
	}

	cutoff := m.now().Add(-time.Duration(retentionDays) * 24 * time.Hour)
	removed := 0
	for _, key := range keys {
		raw, err := m.store.Get(key)
		if err != nil {
			continue
		}

		prune := false
		snap, err := DecodeSnapshot(raw)
		if err != nil {
			prune = true
			m.log.Warn().Str("owner", owner).Str("key", key).Msg("pruning corrupt snapshot")
		} else if snap.Metadata.CreatedAt.Before(cutoff) {
			prune = true
		}

		if prune {
			if err := m.store.Delete(key); err != nil {
				return removed, err
			}
			removed++
		}
	}

	if removed > 0 {
		m.audit(owner, "cleanup", fmt.Sprintf("%d snapshots removed", removed), "")
	}
	return removed, nil
}

func (m *Manager) audit(owner, action, details, key string) {
	if m.rec == nil {
		return
	}
	err := m.rec.Record(oplog.Entry{
		Timestamp:   m.now(),
		Owner:       owner,
		Action:      action,
		Details:     details,
		SnapshotKey: key,
	})
	if err != nil {
		m.log.Warn().Err(err).Msg("recording operation failed")
	}
}
