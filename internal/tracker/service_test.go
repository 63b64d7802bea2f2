package tracker

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack-dev/fintrack/internal/codec"
	"github.com/fintrack-dev/fintrack/internal/config"
	"github.com/fintrack-dev/fintrack/internal/logger"
	"github.com/fintrack-dev/fintrack/internal/model"
	"github.com/fintrack-dev/fintrack/internal/storage"
	"github.com/fintrack-dev/fintrack/internal/storage/memstore"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

var testNow = date(2025, 6, 15)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Categories = []string{"Food & Groceries", "Transport", "Housing & Rent", "Salary"}
	return cfg
}

func newTestService(t *testing.T) (*Service, *memstore.Store, *bytes.Buffer) {
	t.Helper()
	store := memstore.New()
	var logBuf bytes.Buffer
	svc, err := NewService(store, testConfig(), logger.NewWithWriter(&logBuf), Options{
		ExportDir: t.TempDir(),
		Now:       func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return svc, store, &logBuf
}

func threeRecords() []model.Record {
	return []model.Record{
		{ID: "1", Amount: dec("500"), Category: "Food & Groceries", Description: "Weekly shop", Date: date(2024, 1, 1)},
		{ID: "2", Amount: dec("42.50"), Category: "Transport", Description: "Train ticket", Date: date(2024, 2, 10)},
		{ID: "3", Amount: dec("1200"), Category: "Housing & Rent", Description: "Monthly rent", Date: date(2024, 3, 1)},
	}
}

func TestSaveAndLoad(t *testing.T) {
	svc, _, _ := newTestService(t)
	records := threeRecords()

	require.NoError(t, svc.Save("alice", records))

	got, err := svc.Load("alice")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range records {
		assert.True(t, records[i].Equal(got[i]), "record %d", i)
	}
}

func TestSaveAndLoad_HashPrefixedID(t *testing.T) {
	svc, _, _ := newTestService(t)
	records := []model.Record{
		{ID: "#1001", Amount: dec("10"), Category: "Transport", Description: "Bus fare", Date: date(2024, 1, 1)},
	}

	require.NoError(t, svc.Save("alice", records))

	got, err := svc.Load("alice")
	require.NoError(t, err)
	require.Len(t, got, 1, "leading-hash id must survive the save/load round trip")
	assert.Equal(t, "#1001", got[0].ID)
}

func TestLoad_NoDataset(t *testing.T) {
	svc, _, _ := newTestService(t)

	got, err := svc.Load("nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSave_RejectsInvalidRecord(t *testing.T) {
	svc, _, _ := newTestService(t)

	records := threeRecords()
	records[1].Amount = dec("-5")

	err := svc.Save("alice", records)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount")

	got, err := svc.Load("alice")
	require.NoError(t, err)
	assert.Nil(t, got, "nothing persisted")
}

func TestSave_FutureDateRejectedSameAsImport(t *testing.T) {
	svc, _, _ := newTestService(t)

	rec := threeRecords()[0]
	rec.Date = testNow.AddDate(0, 0, 1)
	err := svc.Save("alice", []model.Record{rec})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "future")

	// The import path skips the same record via the same validator.
	var buf bytes.Buffer
	require.NoError(t, codec.Encode(&buf, "alice", []model.Record{rec}, testNow))
	res, err := svc.ImportFromFile("alice", &buf)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 1, res.SkippedCount)
}

func TestLoad_ChecksumMismatchWarnsButLoads(t *testing.T) {
	svc, store, logBuf := newTestService(t)
	require.NoError(t, svc.Save("alice", threeRecords()))

	// Simulate a manual edit: append a comment so the checksum drifts but
	// the rows stay parseable.
	raw, err := store.Get(storage.DatasetKey("alice"))
	require.NoError(t, err)
	raw = append(raw, []byte("# edited by hand\n")...)
	require.NoError(t, store.Set(storage.DatasetKey("alice"), raw))

	got, err := svc.Load("alice")
	require.NoError(t, err)
	assert.Len(t, got, 3, "mismatch never blocks loading")
	assert.Contains(t, logBuf.String(), "checksum mismatch")
}

func TestExportThenImport_RoundTrip(t *testing.T) {
	svc, _, _ := newTestService(t)
	records := threeRecords()
	require.NoError(t, svc.Save("alice", records))

	path, err := svc.ExportToFile("alice")
	require.NoError(t, err)
	require.NotEmpty(t, path)
	assert.True(t, strings.HasSuffix(path, ".csv"))

	// Import into a fresh owner: all three come across.
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	res, err := svc.ImportFromFile("bob", f)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.ImportedCount)
	assert.Equal(t, 0, res.SkippedCount)

	got, err := svc.Load("bob")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range records {
		assert.True(t, records[i].Equal(got[i]), "record %d", i)
	}
}

func TestExportToFile_EmptyDataset(t *testing.T) {
	svc, _, _ := newTestService(t)

	path, err := svc.ExportToFile("alice")
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestExportToFile_NoExportDir(t *testing.T) {
	store := memstore.New()
	svc, err := NewService(store, testConfig(), logger.Nop(), Options{
		Now: func() time.Time { return testNow },
	})
	require.NoError(t, err)
	require.NoError(t, svc.Save("alice", threeRecords()))

	path, err := svc.ExportToFile("alice")
	require.NoError(t, err)
	assert.Empty(t, path, "no export dir, no file written")
}

func TestImport_SkipsInvalidAndDuplicates(t *testing.T) {
	svc, _, _ := newTestService(t)
	require.NoError(t, svc.Save("alice", threeRecords()))

	text := codec.Header + "\n" +
		"1,500,Food & Groceries,Weekly shop,2024-01-01\n" + // duplicate of existing
		"9,-5,Transport,Negative amount,2024-01-02\n" + // invalid
		"10,20,Transport,Bus fare home,2024-01-04\n" // new

	res, err := svc.ImportFromFile("alice", strings.NewReader(text))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.ImportedCount)
	assert.Equal(t, 2, res.SkippedCount)
	assert.GreaterOrEqual(t, len(res.Errors), 2)

	got, err := svc.Load("alice")
	require.NoError(t, err)
	assert.Len(t, got, 4, "existing three plus one imported")
}

func TestImport_UnrecognizedFormat(t *testing.T) {
	svc, _, _ := newTestService(t)

	res, err := svc.ImportFromFile("alice", strings.NewReader("totally,not,the,right,shape\n1,2,3,4,5\n"))
	require.Error(t, err)
	var fe *codec.FormatError
	assert.True(t, errors.As(err, &fe))
	assert.False(t, res.Success)

	got, err := svc.Load("alice")
	require.NoError(t, err)
	assert.Nil(t, got, "dataset unchanged")
}

func TestCreateBackupAndRestore_FileRoundTrip(t *testing.T) {
	svc, _, _ := newTestService(t)

	records := make([]model.Record, 10)
	for i := range records {
		records[i] = model.Record{
			ID:          fmt.Sprintf("r-%d", i+1),
			Amount:      dec("10").Add(decimal.NewFromInt(int64(i))),
			Category:    "Transport",
			Description: fmt.Sprintf("Trip number %d", i+1),
			Date:        date(2025, 1, 1+i),
		}
	}
	require.NoError(t, svc.Save("alice", records))

	name, err := svc.CreateBackup("alice", records)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".json"))

	// Restore the file into an empty dataset.
	_, err = svc.DeleteAllData("alice")
	require.NoError(t, err)

	res, err := svc.RestoreFromBackup("alice", name)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 10, res.RestoredCount)

	got, err := svc.Load("alice")
	require.NoError(t, err)
	require.Len(t, got, 10)
	for i := range records {
		assert.True(t, records[i].Equal(got[i]), "record %d", i)
	}
}

func TestRestoreFromBackup_LocalSnapshotByStamp(t *testing.T) {
	svc, store, _ := newTestService(t)
	records := threeRecords()
	require.NoError(t, svc.Save("alice", records))

	_, err := svc.CreateBackup("alice", records)
	require.NoError(t, err)

	keys, err := store.ListKeys(storage.BackupPrefix("alice"))
	require.NoError(t, err)
	require.Len(t, keys, 1)
	stamp := strings.TrimPrefix(keys[0], storage.BackupPrefix("alice"))

	res, err := svc.RestoreFromBackup("alice", stamp)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.RestoredCount)
}

func TestRestoreFromBackup_PlainExportRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	require.NoError(t, svc.Save("alice", threeRecords()))

	// A plain CSV export is not a snapshot document.
	path, err := svc.ExportToFile("alice")
	require.NoError(t, err)

	res, err := svc.RestoreFromBackup("alice", path)
	require.Error(t, err)
	var fe *codec.FormatError
	assert.True(t, errors.As(err, &fe))
	assert.False(t, res.Success)

	got, err := svc.Load("alice")
	require.NoError(t, err)
	assert.Len(t, got, 3, "dataset unchanged")
}

func TestRestoreFromBackup_UnknownRef(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.RestoreFromBackup("alice", "no-such-snapshot")
	assert.Error(t, err)
}

func TestListLocalBackups(t *testing.T) {
	svc, _, _ := newTestService(t)
	records := threeRecords()
	require.NoError(t, svc.Save("alice", records))

	_, err := svc.CreateBackup("alice", records)
	require.NoError(t, err)

	metas, err := svc.ListLocalBackups("alice")
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, 3, metas[0].RecordCount)
	assert.Equal(t, "alice", metas[0].Owner)
}

func TestDeleteAllData_NoCrossOwnerLeakage(t *testing.T) {
	svc, store, _ := newTestService(t)
	require.NoError(t, svc.Save("alice", threeRecords()))
	require.NoError(t, svc.Save("bob", threeRecords()))
	_, err := svc.CreateBackup("alice", threeRecords())
	require.NoError(t, err)
	_, err = svc.SetSchedule("alice", model.Schedule{Enabled: true, Frequency: model.FrequencyDaily})
	require.NoError(t, err)

	ok, err := svc.DeleteAllData("alice")
	require.NoError(t, err)
	assert.True(t, ok)

	keys, err := store.ListKeys(storage.OwnerPrefix("alice"))
	require.NoError(t, err)
	assert.Empty(t, keys)

	got, err := svc.Load("bob")
	require.NoError(t, err)
	assert.Len(t, got, 3, "other owners untouched")
}

func TestStorageFailureKeepsPriorData(t *testing.T) {
	svc, store, _ := newTestService(t)
	require.NoError(t, svc.Save("alice", threeRecords()))

	store.FailNextSet(errors.New("quota exceeded"))
	err := svc.Save("alice", threeRecords()[:2])

	var serr *storage.Error
	require.True(t, errors.As(err, &serr))

	got, err := svc.Load("alice")
	require.NoError(t, err)
	assert.Len(t, got, 3, "prior dataset retained after failed write")
}

func TestExportFile_Headers(t *testing.T) {
	svc, _, _ := newTestService(t)
	require.NoError(t, svc.Save("alice", threeRecords()))

	path, err := svc.ExportToFile("alice")
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(raw)
	assert.Contains(t, text, "# Format-Version: "+model.FormatVersion)
	assert.Contains(t, text, "# Owner: alice")
	assert.Contains(t, text, "# Record-Count: 3")
	assert.Contains(t, text, codec.Header)
	assert.Equal(t, filepath.Ext(path), ".csv")
}
