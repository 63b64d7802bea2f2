package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack-dev/fintrack/internal/codec"
	"github.com/fintrack-dev/fintrack/internal/logger"
	"github.com/fintrack-dev/fintrack/internal/model"
	"github.com/fintrack-dev/fintrack/internal/storage"
	"github.com/fintrack-dev/fintrack/internal/storage/memstore"
	"github.com/fintrack-dev/fintrack/internal/validate"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

// fakeDatastore implements Datastore in memory.
type fakeDatastore struct {
	records map[string][]model.Record
	saves   int
}

func newFakeDatastore() *fakeDatastore {
	return &fakeDatastore{records: make(map[string][]model.Record)}
}

func (f *fakeDatastore) LoadRecords(owner string) ([]model.Record, error) {
	return f.records[owner], nil
}

func (f *fakeDatastore) SaveRecords(owner string, records []model.Record) error {
	f.records[owner] = records
	f.saves++
	return nil
}

// testClock is a controllable clock for retention and schedule tests.
type testClock struct {
	at time.Time
}

func (c *testClock) now() time.Time { return c.at }

func (c *testClock) advance(d time.Duration) { c.at = c.at.Add(d) }

func testRecords(n int) []model.Record {
	records := make([]model.Record, n)
	for i := range records {
		records[i] = model.Record{
			ID:          fmt.Sprintf("r-%d", i+1),
			Amount:      dec("10").Add(decimal.NewFromInt(int64(i))),
			Category:    "Food",
			Description: fmt.Sprintf("Entry number %d", i+1),
			Date:        date(2025, 1, 1+i%27),
		}
	}
	return records
}

func newTestManager(t *testing.T) (*Manager, *memstore.Store, *fakeDatastore, *testClock, *bytes.Buffer) {
	t.Helper()
	store := memstore.New()
	data := newFakeDatastore()
	clock := &testClock{at: date(2025, 6, 15)}
	var logBuf bytes.Buffer

	v := validate.New(validate.DefaultBounds(), nil).WithNow(clock.now)
	m := NewManager(store, v, data, logger.NewWithWriter(&logBuf), Options{Now: clock.now})
	return m, store, data, clock, &logBuf
}

func TestCreateSnapshot_RejectsEmpty(t *testing.T) {
	m, _, _, _, _ := newTestManager(t)
	_, _, err := m.CreateSnapshot("alice", nil)
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestCreateSnapshot_DerivesMetadata(t *testing.T) {
	m, store, _, _, _ := newTestManager(t)

	records := []model.Record{
		{ID: "1", Amount: dec("500"), Category: "Food", Description: "Weekly shop", Date: date(2024, 1, 5)},
		{ID: "2", Amount: dec("40"), Category: "Transport", Description: "Train ticket", Date: date(2024, 3, 1)},
		{ID: "3", Amount: dec("60"), Category: "Food", Description: "Takeaway order", Date: date(2024, 2, 10)},
	}

	snap, key, err := m.CreateSnapshot("alice", records)
	require.NoError(t, err)
	assert.Equal(t, model.FormatTag, snap.Format)

	meta := snap.Metadata
	require.NotNil(t, meta)
	assert.Equal(t, "alice", meta.Owner)
	assert.Equal(t, 3, meta.RecordCount)
	assert.True(t, meta.TotalAmount.Equal(dec("600")))
	assert.True(t, meta.DateRange.Earliest.Equal(date(2024, 1, 5)))
	assert.True(t, meta.DateRange.Latest.Equal(date(2024, 3, 1)))
	assert.Equal(t, []string{"Food", "Transport"}, meta.Categories)
	assert.NotEmpty(t, meta.Checksum)

	// The persisted document parses back into an identical snapshot.
	raw, err := store.Get(key)
	require.NoError(t, err)
	got, err := DecodeSnapshot(raw)
	require.NoError(t, err)
	require.Len(t, got.Records, 3)
	for i := range records {
		assert.True(t, records[i].Equal(got.Records[i]), "record %d", i)
	}
}

func TestCreateSnapshot_RetentionCap(t *testing.T) {
	m, store, _, clock, _ := newTestManager(t)
	records := testRecords(2)

	for i := 0; i < 7; i++ {
		_, _, err := m.CreateSnapshot("alice", records)
		require.NoError(t, err)
		clock.advance(time.Hour)
	}

	keys, err := store.ListKeys(storage.BackupPrefix("alice"))
	require.NoError(t, err)
	assert.Len(t, keys, DefaultMaxLocalSnapshots, "oldest snapshots pruned after insert")
}

func TestDecodeSnapshot_FormatTag(t *testing.T) {
	_, err := DecodeSnapshot([]byte(`{"metadata":{},"records":[],"format":"something-else"}`))
	var fe *codec.FormatError
	require.True(t, errors.As(err, &fe))

	_, err = DecodeSnapshot([]byte(`not json at all`))
	require.True(t, errors.As(err, &fe))
}

func TestDecodeSnapshot_MissingSections(t *testing.T) {
	var fe *codec.FormatError

	_, err := DecodeSnapshot([]byte(`{"records":[],"format":"` + model.FormatTag + `"}`))
	require.True(t, errors.As(err, &fe), "missing metadata")

	_, err = DecodeSnapshot([]byte(`{"metadata":{},"format":"` + model.FormatTag + `"}`))
	require.True(t, errors.As(err, &fe), "missing records")
}

func TestRestore_TenRecords(t *testing.T) {
	m, _, data, _, _ := newTestManager(t)
	records := testRecords(10)

	snap, _, err := m.CreateSnapshot("alice", records)
	require.NoError(t, err)
	raw, err := json.Marshal(snap)
	require.NoError(t, err)

	res, err := m.Restore("alice", raw)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 10, res.RestoredCount)
	assert.Equal(t, 0, res.SkippedCount)

	got := data.records["alice"]
	require.Len(t, got, 10)
	for i := range records {
		assert.True(t, records[i].Equal(got[i]), "record %d", i)
	}
}

func TestRestore_PartialValid(t *testing.T) {
	m, _, data, _, _ := newTestManager(t)

	snap := &model.Snapshot{
		Metadata: &model.Metadata{Owner: "alice", CreatedAt: date(2025, 1, 1)},
		Records: []model.Record{
			{ID: "ok", Amount: dec("10"), Category: "Food", Description: "Fine record", Date: date(2025, 1, 1)},
			{ID: "bad", Amount: dec("-10"), Category: "Food", Description: "Negative amount", Date: date(2025, 1, 1)},
		},
		Format: model.FormatTag,
	}
	raw, err := json.Marshal(snap)
	require.NoError(t, err)

	res, err := m.Restore("alice", raw)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.RestoredCount)
	assert.Equal(t, 1, res.SkippedCount)
	assert.NotEmpty(t, res.Errors)
	assert.Len(t, data.records["alice"], 1)
}

func TestRestore_ZeroValidLeavesDatasetUntouched(t *testing.T) {
	m, _, data, _, _ := newTestManager(t)
	data.records["alice"] = testRecords(3)

	snap := &model.Snapshot{
		Metadata: &model.Metadata{Owner: "alice", CreatedAt: date(2025, 1, 1)},
		Records: []model.Record{
			{ID: "", Amount: dec("-10"), Category: "Food", Description: "", Date: date(2025, 1, 1)},
		},
		Format: model.FormatTag,
	}
	raw, err := json.Marshal(snap)
	require.NoError(t, err)

	res, err := m.Restore("alice", raw)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 0, res.RestoredCount)
	assert.Len(t, data.records["alice"], 3, "existing dataset unchanged")
	assert.Zero(t, data.saves)
}

func TestRestore_ChecksumMismatchWarnsButProceeds(t *testing.T) {
	m, _, data, _, logBuf := newTestManager(t)

	snap, _, err := m.CreateSnapshot("alice", testRecords(2))
	require.NoError(t, err)
	snap.Metadata.Checksum = "deadbeef" // simulate a manual edit

	raw, err := json.Marshal(snap)
	require.NoError(t, err)

	res, err := m.Restore("alice", raw)
	require.NoError(t, err)
	assert.True(t, res.Success, "mismatch is a hint, not a failure")
	assert.Len(t, data.records["alice"], 2)
	assert.Contains(t, logBuf.String(), "checksum mismatch")
}

func TestListLocalBackups_NewestFirstSkipsCorrupt(t *testing.T) {
	m, store, _, clock, _ := newTestManager(t)

	_, _, err := m.CreateSnapshot("alice", testRecords(1))
	require.NoError(t, err)
	clock.advance(time.Hour)
	_, _, err = m.CreateSnapshot("alice", testRecords(2))
	require.NoError(t, err)

	require.NoError(t, store.Set(storage.BackupKey("alice", "00000000T000000.000"), []byte("garbage")))

	metas, err := m.ListLocalBackups("alice")
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, 2, metas[0].RecordCount, "newest first")
	assert.Equal(t, 1, metas[1].RecordCount)
}

func TestCleanupOldBackups_RetentionBoundaries(t *testing.T) {
	m, store, _, clock, _ := newTestManager(t)

	for i := 0; i < 3; i++ {
		_, _, err := m.CreateSnapshot("alice", testRecords(i+1))
		require.NoError(t, err)
		clock.advance(time.Hour)
	}

	// A huge window removes nothing.
	removed, err := m.CleanupOldBackups("alice", 9999)
	require.NoError(t, err)
	assert.Zero(t, removed)

	// Zero days removes everything.
	removed, err = m.CleanupOldBackups("alice", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	keys, err := store.ListKeys(storage.BackupPrefix("alice"))
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestCleanupOldBackups_PrunesCorruptUnconditionally(t *testing.T) {
	m, store, _, _, _ := newTestManager(t)

	_, _, err := m.CreateSnapshot("alice", testRecords(1))
	require.NoError(t, err)
	require.NoError(t, store.Set(storage.BackupKey("alice", "garbagekey"), []byte("{broken")))

	removed, err := m.CleanupOldBackups("alice", 9999)
	require.NoError(t, err)
	assert.Equal(t, 1, removed, "corrupt snapshot pruned despite wide retention")

	keys, err := store.ListKeys(storage.BackupPrefix("alice"))
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestCreateSnapshot_TimestampCollisionAvoided(t *testing.T) {
	m, store, _, clock, _ := newTestManager(t)

	_, k1, err := m.CreateSnapshot("alice", testRecords(1))
	require.NoError(t, err)
	clock.advance(time.Millisecond)
	_, k2, err := m.CreateSnapshot("alice", testRecords(1))
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)

	keys, err := store.ListKeys(storage.BackupPrefix("alice"))
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}
