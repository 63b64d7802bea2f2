package validate

import (
	"fmt"

	"github.com/fintrack-dev/fintrack/internal/model"
)

// ImportResult aggregates the outcome of an import or restore. The
// operation never raises for partial failure: Success is false only when
// zero records were valid or the input was not recognizable at all.
type ImportResult struct {
	Success       bool
	ImportedCount int
	SkippedCount  int
	Errors        []string
}

// dupKey is the content identity used for duplicate detection alongside ID.
type dupKey struct {
	amount      string
	category    string
	description string
	date        string
}

func keyOf(rec model.Record) dupKey {
	return dupKey{
		amount:      rec.Amount.String(),
		category:    rec.Category,
		description: rec.Description,
		date:        rec.Date.Format("2006-01-02"),
	}
}

// Filter validates candidates and drops duplicates, both among themselves
// and against existing records. A candidate is a duplicate when its ID
// matches, or when amount, category, description and date all match
// exactly. Duplicates and invalid records are reported, never committed.
func (v *Validator) Filter(candidates, existing []model.Record) ([]model.Record, ImportResult) {
	seenID := make(map[string]struct{}, len(existing))
	seenKey := make(map[dupKey]struct{}, len(existing))
	for _, rec := range existing {
		seenID[rec.ID] = struct{}{}
		seenKey[keyOf(rec)] = struct{}{}
	}

	var accepted []model.Record
	res := ImportResult{}

	for _, rec := range candidates {
		if errs := v.Record(rec); len(errs) > 0 {
			res.SkippedCount++
			for _, e := range errs {
				res.Errors = append(res.Errors, e.Error())
			}
			continue
		}

		_, dupByID := seenID[rec.ID]
		_, dupByContent := seenKey[keyOf(rec)]
		if dupByID || dupByContent {
			res.SkippedCount++
			res.Errors = append(res.Errors, fmt.Sprintf("record %s: duplicate entry skipped", rec.ID))
			continue
		}

		seenID[rec.ID] = struct{}{}
		seenKey[keyOf(rec)] = struct{}{}
		accepted = append(accepted, rec)
	}

	res.ImportedCount = len(accepted)
	res.Success = len(accepted) > 0
	return accepted, res
}
