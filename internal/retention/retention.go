// Package retention prunes generated workbooks from the output directory.
package retention

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron"
)

// DefaultSchedule runs the sweep once a day at midnight.
const DefaultSchedule = "@daily"

// Sweeper deletes .xlsx files older than maxAge from dir on a cron schedule.
type Sweeper struct {
	dir    string
	maxAge time.Duration
	cron   *cron.Cron
	now    func() time.Time
}

// New returns a sweeper keeping files for days days. It returns nil when
// days is not positive, meaning generated files are kept forever.
func New(dir string, days int) *Sweeper {
	if days <= 0 {
		return nil
	}
	return &Sweeper{
		dir:    dir,
		maxAge: time.Duration(days) * 24 * time.Hour,
		cron:   cron.New(),
		now:    time.Now,
	}
}

// Start runs one sweep immediately and schedules the rest.
func (s *Sweeper) Start(schedule string) error {
	if s == nil {
		return nil
	}
	if schedule == "" {
		schedule = DefaultSchedule
	}
	err := s.cron.AddFunc(schedule, s.run)
	if err != nil {
		return fmt.Errorf("schedule retention sweep: %w", err)
	}
	s.run()
	s.cron.Start()
	log.Infof("Retention: pruning %v older than %v (%v)", s.dir, s.maxAge, schedule)
	return nil
}

// Stop halts the scheduler. Safe on a nil sweeper.
func (s *Sweeper) Stop() {
	if s == nil {
		return
	}
	s.cron.Stop()
}

func (s *Sweeper) run() {
	n, err := s.Sweep()
	if err != nil {
		log.Errorf("Retention sweep: %v", err)
		return
	}
	if n > 0 {
		log.Infof("Retention sweep removed %d file(s)", n)
	}
}

// Sweep removes expired workbooks and reports how many were deleted. A
// missing directory is not an error.
func (s *Sweeper) Sweep() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-s.maxAge)
	var removed int
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".xlsx") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			log.Debugf("Retention: stat %v: %v", e.Name(), err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			log.Warnf("Retention: remove %v: %v", e.Name(), err)
			continue
		}
		removed++
	}
	return removed, nil
}
