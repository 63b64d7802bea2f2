package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fintrack-dev/fintrack/internal/model"
	"github.com/fintrack-dev/fintrack/internal/storage"
)

// ErrInvalidFrequency rejects schedules with an unknown cadence.
var ErrInvalidFrequency = errors.New("backup: invalid schedule frequency")

// NextRun returns the next backup instant: one day, seven days, or one
// calendar month after now, per the frequency.
func NextRun(now time.Time, f model.Frequency) time.Time {
	switch f {
	case model.FrequencyWeekly:
		return now.AddDate(0, 0, 7)
	case model.FrequencyMonthly:
		return now.AddDate(0, 1, 0)
	default:
		return now.AddDate(0, 0, 1)
	}
}

// SetSchedule persists the owner's schedule. When enabled, NextBackup is
// computed from "now" and the frequency; the persisted value is what
// survives process restarts.
func (m *Manager) SetSchedule(owner string, s model.Schedule) (model.Schedule, error) {
	if s.Enabled && !s.Frequency.Valid() {
		return model.Schedule{}, fmt.Errorf("%w: %q", ErrInvalidFrequency, s.Frequency)
	}

	if s.Enabled {
		next := NextRun(m.now(), s.Frequency)
		s.NextBackup = &next
	} else {
		s.NextBackup = nil
	}

	raw, err := json.Marshal(s)
	if err != nil {
		return model.Schedule{}, fmt.Errorf("marshaling schedule: %w", err)
	}
	if err := m.store.Set(storage.ScheduleKey(owner), raw); err != nil {
		return model.Schedule{}, err
	}
	return s, nil
}

// GetSchedule returns the owner's schedule, or nil when none is set.
func (m *Manager) GetSchedule(owner string) (*model.Schedule, error) {
	raw, err := m.store.Get(storage.ScheduleKey(owner))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var s model.Schedule
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parsing schedule: %w", err)
	}
	return &s, nil
}

// RunPending performs one scheduled backup if it is due. It re-reads the
// persisted schedule first, so a disable between arming and firing is a
// no-op. An empty dataset is skipped without moving the schedule forward.
// Returns true when a snapshot was taken.
func (m *Manager) RunPending(owner string) (bool, error) {
	sched, err := m.GetSchedule(owner)
	if err != nil {
		return false, err
	}
	if sched == nil || !sched.Enabled {
		return false, nil
	}

	now := m.now()
	if sched.NextBackup != nil && now.Before(*sched.NextBackup) {
		return false, nil
	}

	records, err := m.data.LoadRecords(owner)
	if err != nil {
		return false, err
	}
	if len(records) == 0 {
		m.log.Debug().Str("owner", owner).Msg("scheduled backup skipped: empty dataset")
		return false, nil
	}

	if _, _, err := m.CreateSnapshot(owner, records); err != nil {
		return false, err
	}

	last := now
	next := NextRun(now, sched.Frequency)
	sched.LastBackup = &last
	sched.NextBackup = &next

	raw, err := json.Marshal(sched)
	if err != nil {
		return true, fmt.Errorf("marshaling schedule: %w", err)
	}
	if err := m.store.Set(storage.ScheduleKey(owner), raw); err != nil {
		return true, err
	}
	return true, nil
}
