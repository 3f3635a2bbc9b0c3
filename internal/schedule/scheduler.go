// Package schedule evaluates the event predicate set once per wall-clock
// minute and feeds due occurrences into the relay queue consumed by the
// dispatcher.
//
// The loop sleeps to the next minute boundary of the game's timezone rather
// than running a fixed-period ticker, so it stays phase-locked to civil
// minutes even under drift. Per-day state (shard eruption, travelling
// spirit) is recomputed at local midnight and once at startup.
package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/duskwing/skylight/internal/event"
	"github.com/duskwing/skylight/internal/shard"
	"github.com/duskwing/skylight/internal/spirit"
)

// SpiritSource supplies the latest travelling-spirit visit.
type SpiritSource interface {
	Latest(ctx context.Context) (*spirit.Visit, error)
}

// Scheduler is the minute-tick producer. Create with New and run with Run.
type Scheduler struct {
	calc       *shard.Calculator
	spirits    SpiritSource
	queue      chan<- event.Occurrence
	loc        *time.Location
	logger     *slog.Logger
	predicates []Predicate

	// Per-day state, owned by the run loop.
	eruption *shard.Eruption
	visit    *spirit.Visit
}

// New creates a scheduler producing into queue.
func New(calc *shard.Calculator, spirits SpiritSource, queue chan<- event.Occurrence, loc *time.Location, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		calc:       calc,
		spirits:    spirits,
		queue:      queue,
		loc:        loc,
		logger:     logger,
		predicates: Predicates(),
	}
}

// Run blocks until ctx is cancelled. Intended to be called with `go`.
func (s *Scheduler) Run(ctx context.Context) {
	s.refreshDaily(ctx, time.Now().In(s.loc))
	s.logger.Info("Tick scheduler started",
		"timezone", s.loc.String(), "predicates", len(s.predicates))

	for {
		if !sleepToNextMinute(ctx) {
			s.logger.Info("Tick scheduler stopped")
			return
		}
		s.tick(ctx, time.Now().In(s.loc))
	}
}

// sleepToNextMinute waits for the upcoming minute boundary. Returns false if
// ctx is cancelled first.
func sleepToNextMinute(ctx context.Context) bool {
	now := time.Now()
	wake := now.Truncate(time.Minute).Add(time.Minute)
	timer := time.NewTimer(wake.Sub(now))
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// tick runs one evaluation. Any panic escaping the evaluation is logged and
// the loop resumes on the next minute.
func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Tick evaluation panicked", "panic", r)
		}
	}()

	now = now.Truncate(time.Minute)
	if now.Hour() == 0 && now.Minute() == 0 {
		s.refreshDaily(ctx, now)
	}

	m := MomentAt(now)
	m.Shard = s.eruption
	m.Spirit = s.visit

	for _, o := range Evaluate(m, s.predicates, s.logger) {
		s.enqueue(ctx, o)
	}
}

// Evaluate runs every predicate against one frozen moment. A panic inside a
// single predicate is logged and does not affect its siblings, so the result
// for the remaining kinds is still produced.
func Evaluate(m Moment, predicates []Predicate, logger *slog.Logger) []event.Occurrence {
	var due []event.Occurrence
	for _, p := range predicates {
		due = append(due, evalOne(m, p, logger)...)
	}
	return due
}

func evalOne(m Moment, p Predicate, logger *slog.Logger) (occs []event.Occurrence) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Predicate panicked", "predicate", p.Name, "panic", r)
			occs = nil
		}
	}()
	return p.Eval(m)
}

// enqueue hands one occurrence to the dispatcher. A full queue blocks the
// producer (backpressure) and is logged so sustained overload is visible;
// occurrences are never dropped.
func (s *Scheduler) enqueue(ctx context.Context, o event.Occurrence) {
	s.logger.Info("Occurrence queuing", "kind", o.Kind.String(), "lead", o.Lead)

	select {
	case s.queue <- o:
		return
	default:
	}

	s.logger.Warn("Relay queue full, applying backpressure",
		"kind", o.Kind.String(), "capacity", cap(s.queue))

	select {
	case s.queue <- o:
	case <-ctx.Done():
	}
}

// refreshDaily recomputes the shard eruption and re-reads the travelling
// spirit. A failed spirit read keeps the previous value; the next midnight
// (or restart) retries.
func (s *Scheduler) refreshDaily(ctx context.Context, now time.Time) {
	s.eruption = s.calc.ForDate(now)
	if s.eruption == nil {
		s.logger.Info("No shard eruption today", "date", now.Format("2006-01-02"))
	} else {
		s.logger.Info("Shard eruption computed",
			"date", now.Format("2006-01-02"),
			"realm", s.eruption.Realm,
			"map", string(s.eruption.Map),
			"strong", s.eruption.Strong)
	}

	visit, err := s.spirits.Latest(ctx)
	if err != nil {
		s.logger.Error("Failed to read travelling spirit", "error", err)
		return
	}
	s.visit = visit
	s.logger.Info("Travelling spirit loaded",
		"entity", visit.Entity, "start", visit.Start)
}
