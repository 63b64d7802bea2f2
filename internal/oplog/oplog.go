// Package oplog keeps a CSV audit trail of backup, restore, and cleanup
// operations so a user can see what touched their data and when.
package oplog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Entry is one row in the operations log.
type Entry struct {
	Timestamp   time.Time
	Owner       string
	Action      string // "backup", "restore", "cleanup", "import", ...
	Details     string
	SnapshotKey string
}

// Header is the CSV header for operations.csv.
const Header = "timestamp,owner,action,details,snapshot_key"

const (
	numFields      = 5
	logDir         = "logs"
	logFile        = "logs/operations.csv"
	colTimestamp   = 0
	colOwner       = 1
	colAction      = 2
	colDetails     = 3
	colSnapshotKey = 4
)

// Log appends entries under a base directory.
type Log struct {
	baseDir string
}

// New creates a Log rooted at baseDir.
func New(baseDir string) *Log {
	return &Log{baseDir: baseDir}
}

// Record appends one entry, creating the file and header if needed.
func (l *Log) Record(e Entry) error {
	return Append(l.baseDir, []Entry{e})
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colOwner] = e.Owner
	row[colAction] = e.Action
	row[colDetails] = e.Details
	row[colSnapshotKey] = e.SnapshotKey
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	return Entry{
		Timestamp:   ts,
		Owner:       record[colOwner],
		Action:      record[colAction],
		Details:     record[colDetails],
		SnapshotKey: record[colSnapshotKey],
	}, nil
}

// Append writes entries to <baseDir>/logs/operations.csv, creating the file
// and header if needed.
func Append(baseDir string, entries []Entry) error {
	dir := filepath.Join(baseDir, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(baseDir, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening operations log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	return cw.Error()
}

// Read returns all entries from <baseDir>/logs/operations.csv, or nil if
// the file does not exist yet.
func Read(baseDir string) ([]Entry, error) {
	path := filepath.Join(baseDir, logFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening operations log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading operations log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
