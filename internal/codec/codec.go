// Package codec encodes a record collection to the delimited text export
// format and decodes it back. The format is a human-readable comment header
// (format version, owner, export time, record count) followed by one column
// header line and one CSV row per record. RFC 4180 quoting makes the
// escaping rule symmetric between encode and decode.
package codec

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fintrack-dev/fintrack/internal/model"
	"github.com/fintrack-dev/fintrack/internal/validate"
)

// Header is the column header line every export carries.
const Header = "id,amount,category,description,date"

const (
	numFields  = 5
	dateFormat = "2006-01-02"
	colID      = 0
	colAmount  = 1
	colCat     = 2
	colDesc    = 3
	colDate    = 4
)

// FormatError means the input is not recognizable as the export format.
// Fatal for the single operation that hit it, nothing else.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "unrecognized format: " + e.Reason
}

// Encode writes records as export text: comment header, column header, one
// row per record.
func Encode(w io.Writer, owner string, records []model.Record, exportedAt time.Time) error {
	fmt.Fprintf(w, "# Format-Version: %s\n", model.FormatVersion)
	fmt.Fprintf(w, "# Owner: %s\n", owner)
	fmt.Fprintf(w, "# Exported-At: %s\n", exportedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "# Record-Count: %d\n", len(records))

	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, rec := range records {
		if err := writeRow(w, cw, MarshalRecord(rec)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}
	return cw.Error()
}

// writeRow hands most rows to the csv writer. A row whose first field starts
// with '#' is quoted by hand: csv.Writer leaves such a field bare, and Decode
// would then drop the whole line as a comment.
func writeRow(w io.Writer, cw *csv.Writer, row []string) error {
	if !strings.HasPrefix(row[colID], "#") {
		return cw.Write(row)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	quoted := make([]string, len(row))
	for i, f := range row {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	_, err := fmt.Fprintln(w, strings.Join(quoted, ","))
	return err
}

// Decode parses export text back into records. Comment lines are skipped;
// the first remaining line must match the column header signature or the
// whole input is rejected with a *FormatError. After that, a row that fails
// to parse or validate is skipped, its error collected, and parsing
// continues — partial corruption never loses the healthy rows.
func Decode(r io.Reader, v *validate.Validator) ([]model.Record, []validate.FieldError, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, &FormatError{Reason: "empty input"}
	}
	if err != nil {
		return nil, nil, &FormatError{Reason: err.Error()}
	}
	if !headerMatches(header) {
		return nil, nil, &FormatError{Reason: fmt.Sprintf("missing column header %q", Header)}
	}

	var (
		records []model.Record
		ferrs   []validate.FieldError
	)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			ferrs = append(ferrs, lineError(err))
			continue
		}
		line, _ := cr.FieldPos(0)

		rec, err := UnmarshalRecord(row)
		if err != nil {
			ferrs = append(ferrs, validate.FieldError{Line: line, Field: "row", Message: err.Error()})
			continue
		}

		if errs := v.Record(rec); len(errs) > 0 {
			for i := range errs {
				errs[i].Line = line
			}
			ferrs = append(ferrs, errs...)
			continue
		}
		records = append(records, rec)
	}
	return records, ferrs, nil
}

func headerMatches(row []string) bool {
	if len(row) != numFields {
		return false
	}
	for i, want := range strings.Split(Header, ",") {
		if strings.TrimSpace(strings.ToLower(row[i])) != want {
			return false
		}
	}
	return true
}

func lineError(err error) validate.FieldError {
	var pe *csv.ParseError
	line := 0
	if errors.As(err, &pe) {
		line = pe.Line
		err = pe.Err
	}
	return validate.FieldError{Line: line, Field: "row", Message: err.Error()}
}

// MarshalRecord converts a Record to a CSV row ([]string).
func MarshalRecord(rec model.Record) []string {
	row := make([]string, numFields)
	row[colID] = rec.ID
	row[colAmount] = rec.Amount.String()
	row[colCat] = rec.Category
	row[colDesc] = rec.Description
	row[colDate] = rec.Date.Format(dateFormat)
	return row
}

// UnmarshalRecord converts a CSV row to a candidate Record. Field-level
// business rules are the validator's job; this only handles shape.
func UnmarshalRecord(row []string) (model.Record, error) {
	if len(row) != numFields {
		return model.Record{}, fmt.Errorf("expected %d fields, got %d", numFields, len(row))
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(row[colAmount]))
	if err != nil {
		return model.Record{}, fmt.Errorf("parsing amount %q: %w", row[colAmount], err)
	}

	date, err := time.ParseInLocation(dateFormat, strings.TrimSpace(row[colDate]), time.UTC)
	if err != nil {
		return model.Record{}, fmt.Errorf("parsing date %q: %w", row[colDate], err)
	}

	return model.Record{
		ID:          row[colID],
		Amount:      amount,
		Category:    row[colCat],
		Description: row[colDesc],
		Date:        date,
	}, nil
}
