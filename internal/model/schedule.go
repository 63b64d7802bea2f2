package model

import "time"

// Frequency is the cadence of automatic backups.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Valid reports whether f is one of the known cadences.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// Schedule is the per-owner automatic backup configuration. It is mutated
// only through the backup manager, never written directly.
type Schedule struct {
	Enabled       bool       `json:"enabled"`
	Frequency     Frequency  `json:"frequency"`
	LastBackup    *time.Time `json:"lastBackup,omitempty"`
	NextBackup    *time.Time `json:"nextBackup,omitempty"`
	RetentionDays int        `json:"retentionDays"`
}
