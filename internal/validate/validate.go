// Package validate enforces per-field record invariants and duplicate
// detection for imports and restores. Validators never fail the whole
// operation for a bad row: violations are collected into FieldError slices
// and bubbled up as aggregated results.
package validate

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fintrack-dev/fintrack/internal/model"
)

// FieldError describes a single field-level violation on one record.
type FieldError struct {
	Line     int // 1-based input line, 0 when not line-oriented
	Field    string
	RecordID string
	Message  string
}

func (e FieldError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Field, e.Message)
	}
	if e.RecordID != "" {
		return fmt.Sprintf("record %s: %s: %s", e.RecordID, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Bounds holds the injected validation limits. Built from config, never
// read from ambient globals.
type Bounds struct {
	MaxAmount      decimal.Decimal
	MinDescription int
	MaxDescription int
}

// DefaultBounds matches the shipped configuration defaults.
func DefaultBounds() Bounds {
	return Bounds{
		MaxAmount:      decimal.NewFromInt(1_000_000),
		MinDescription: 2,
		MaxDescription: 200,
	}
}

// CategoryChecker tests whether a category name is in the allowed set.
type CategoryChecker interface {
	Allowed(name string) bool
}

// Validator applies field rules with injected bounds and category set.
type Validator struct {
	bounds     Bounds
	categories CategoryChecker
	now        func() time.Time
}

// New creates a Validator. A nil categories checker accepts any category.
func New(bounds Bounds, categories CategoryChecker) *Validator {
	return &Validator{bounds: bounds, categories: categories, now: time.Now}
}

// WithNow overrides the clock. Test hook.
func (v *Validator) WithNow(now func() time.Time) *Validator {
	v.now = now
	return v
}

// Record checks every field rule and returns all violations. An empty
// result means the record is acceptable for persistence.
func (v *Validator) Record(rec model.Record) []FieldError {
	var errs []FieldError

	fail := func(field, msg string) {
		errs = append(errs, FieldError{Field: field, RecordID: rec.ID, Message: msg})
	}

	if rec.ID == "" {
		fail("id", "must not be empty")
	}

	if !rec.Amount.IsPositive() {
		fail("amount", fmt.Sprintf("must be greater than zero, got %s", rec.Amount))
	} else if rec.Amount.GreaterThan(v.bounds.MaxAmount) {
		fail("amount", fmt.Sprintf("exceeds maximum %s", v.bounds.MaxAmount))
	}

	if v.categories != nil && !v.categories.Allowed(rec.Category) {
		fail("category", fmt.Sprintf("unknown category %q", rec.Category))
	}

	if n := len(rec.Description); n < v.bounds.MinDescription || n > v.bounds.MaxDescription {
		fail("description", fmt.Sprintf("length %d outside [%d,%d]",
			n, v.bounds.MinDescription, v.bounds.MaxDescription))
	}

	if rec.Date.IsZero() {
		fail("date", "missing or unparseable")
	} else if today := endOfDay(v.now()); rec.Date.After(today) {
		fail("date", fmt.Sprintf("date %s is in the future", rec.Date.Format("2006-01-02")))
	}

	return errs
}

// endOfDay returns the last instant of t's calendar day in UTC, so a record
// dated "today" passes regardless of the time of day it is checked.
func endOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
}
