package backup

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// maxArm caps how far ahead the timer is armed. Long-lived sessions
// re-check at least daily instead of trusting one unbounded timer, and a
// schedule edited elsewhere is picked up within a day.
const maxArm = 24 * time.Hour

// Scheduler arms a deferred callback for one owner's automatic backups.
// The callback re-reads the persisted schedule before acting, so state
// changes between arming and firing are honored.
type Scheduler struct {
	m     *Manager
	owner string
	log   zerolog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewScheduler creates a Scheduler for owner on top of m.
func NewScheduler(m *Manager, owner string) *Scheduler {
	return &Scheduler{m: m, owner: owner, log: m.log}
}

// Start runs any backup that came due while the process was down, then
// arms the timer. A missing or disabled schedule is a no-op.
func (s *Scheduler) Start() error {
	if _, err := s.m.RunPending(s.owner); err != nil {
		return err
	}
	return s.arm()
}

// Stop cancels the pending timer. A fire already in flight still re-reads
// the schedule and acts on what it finds.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// arm schedules the next fire. The delay is the time until NextBackup,
// clamped to [0, maxArm].
func (s *Scheduler) arm() error {
	sched, err := s.m.GetSchedule(s.owner)
	if err != nil {
		return err
	}
	if sched == nil || !sched.Enabled {
		return nil
	}

	d := maxArm
	if sched.NextBackup != nil {
		if until := time.Until(*sched.NextBackup); until < d {
			d = until
		}
	}
	if d < 0 {
		d = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(d, s.fire)
	return nil
}

func (s *Scheduler) fire() {
	ran, err := s.m.RunPending(s.owner)
	if err != nil {
		s.log.Warn().Err(err).Str("owner", s.owner).Msg("scheduled backup failed")
	}
	if ran {
		s.log.Info().Str("owner", s.owner).Msg("scheduled backup completed")
	}
	if err := s.arm(); err != nil {
		s.log.Warn().Err(err).Str("owner", s.owner).Msg("re-arming backup timer failed")
	}
}
