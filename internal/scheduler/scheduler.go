// Package scheduler runs simulation cycles on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shem-project/shem/internal/logging"
	"github.com/shem-project/shem/internal/simulation"
)

// Scheduler errors.
var (
	ErrSchedulerAlreadyRunning = errors.New("scheduler already running")
	ErrSchedulerNotRunning     = errors.New("scheduler not running")
	ErrSchedulerPaused         = errors.New("scheduler is paused")
)

// Config contains scheduler configuration.
type Config struct {
	// Interval is how often a cycle is simulated.
	// Default: 1 minute.
	Interval time.Duration

	// CycleTimeout is the maximum time allowed for a single cycle.
	// Default: 30 seconds.
	CycleTimeout time.Duration
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Interval:     time.Minute,
		CycleTimeout: 30 * time.Second,
	}
}

// Simulator runs one cycle.
type Simulator interface {
	Simulate(ctx context.Context, opts simulation.CycleOptions) (*simulation.Result, error)
}

// RunEvent records one scheduled cycle.
type RunEvent struct {
	// Period is the simulated period key, empty when the cycle failed.
	Period string

	// Readings is the number of readings produced.
	Readings int

	// Success indicates the cycle completed.
	Success bool

	// Error contains error details if the cycle failed.
	Error string

	// Timestamp is when the cycle started.
	Timestamp time.Time

	// Duration is how long the cycle took.
	Duration time.Duration
}

// Stats contains scheduler statistics.
type Stats struct {
	Running        bool
	Paused         bool
	StartedAt      *time.Time
	TotalRuns      int64
	SuccessfulRuns int64
	FailedRuns     int64

	// EmptyRuns counts completed cycles that produced no readings.
	EmptyRuns int64

	LastRunAt  *time.Time
	LastPeriod string
}

// Scheduler triggers simulation cycles periodically.
type Scheduler struct {
	config    Config
	simulator Simulator
	logger    zerolog.Logger

	// Runtime state
	mu         sync.RWMutex
	running    bool
	paused     bool
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	runSem     chan struct{}
	triggerNow chan struct{}

	// Stats
	stats   Stats
	statsMu sync.RWMutex
	runCh   chan RunEvent
}

// New creates a new Scheduler.
func New(config Config, simulator Simulator) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	if config.CycleTimeout <= 0 {
		config.CycleTimeout = DefaultConfig().CycleTimeout
	}

	return &Scheduler{
		config:     config,
		simulator:  simulator,
		logger:     logging.Component("scheduler"),
		runSem:     make(chan struct{}, 1),
		triggerNow: make(chan struct{}, 1),
		runCh:      make(chan RunEvent, 100),
	}
}

// Start begins the scheduler's background loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrSchedulerAlreadyRunning
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.paused = false

	now := time.Now().UTC()
	s.statsMu.Lock()
	s.stats.Running = true
	s.stats.Paused = false
	s.stats.StartedAt = &now
	s.statsMu.Unlock()

	s.logger.Info().
		Dur("interval", s.config.Interval).
		Msg("scheduler starting")

	s.wg.Add(1)
	go s.runLoop()

	return nil
}

// Stop halts the scheduler and waits for an in-flight cycle to complete.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}

	s.logger.Info().Msg("scheduler stopping")

	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()

	s.statsMu.Lock()
	s.stats.Running = false
	s.statsMu.Unlock()

	s.logger.Info().Msg("scheduler stopped")
	return nil
}

// TriggerNow requests a cycle without waiting for the next tick.
func (s *Scheduler) TriggerNow() error {
	s.mu.RLock()
	running := s.running
	paused := s.paused
	s.mu.RUnlock()

	if !running {
		return ErrSchedulerNotRunning
	}
	if paused {
		return ErrSchedulerPaused
	}

	select {
	case s.triggerNow <- struct{}{}:
		s.logger.Debug().Msg("immediate cycle triggered")
	default:
		// A trigger is already pending.
	}
	return nil
}

// Pause temporarily suspends the scheduler without stopping it.
func (s *Scheduler) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrSchedulerNotRunning
	}
	if s.paused {
		return nil
	}

	s.paused = true
	s.statsMu.Lock()
	s.stats.Paused = true
	s.statsMu.Unlock()

	s.logger.Info().Msg("scheduler paused")
	return nil
}

// Resume resumes a paused scheduler.
func (s *Scheduler) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrSchedulerNotRunning
	}
	if !s.paused {
		return nil
	}

	s.paused = false
	s.statsMu.Lock()
	s.stats.Paused = false
	s.statsMu.Unlock()

	s.logger.Info().Msg("scheduler resumed")
	return nil
}

// Stats returns current scheduler statistics.
func (s *Scheduler) Stats() Stats {
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()
	return s.stats
}

// Runs returns the channel of run events.
// Events are dropped when nobody reads them.
func (s *Scheduler) Runs() <-chan RunEvent {
	return s.runCh
}

func (s *Scheduler) runLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.triggerNow:
			if !s.isPaused() {
				s.tryRun()
			}
		case <-ticker.C:
			if !s.isPaused() {
				s.tryRun()
			}
		}
	}
}

func (s *Scheduler) isPaused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused
}

// tryRun starts a cycle unless one is already in flight. Cycles never
// overlap so consecutive periods stay ordered.
func (s *Scheduler) tryRun() {
	select {
	case s.runSem <- struct{}{}:
	default:
		s.logger.Debug().Msg("cycle still running, skipping tick")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() { <-s.runSem }()

		s.runCycle()
	}()
}

func (s *Scheduler) runCycle() {
	ctx, cancel := context.WithTimeout(s.ctx, s.config.CycleTimeout)
	defer cancel()

	start := time.Now()
	event := RunEvent{Timestamp: start}

	result, err := s.simulator.Simulate(ctx, simulation.CycleOptions{})
	event.Duration = time.Since(start)
	if err != nil {
		event.Error = err.Error()
		s.logger.Error().Err(err).Msg("scheduled cycle failed")
	} else {
		event.Success = true
		event.Period = result.Period
		event.Readings = len(result.Readings)
		s.logger.Debug().
			Str("period", result.Period).
			Int("readings", event.Readings).
			Dur("duration", event.Duration).
			Msg("scheduled cycle completed")
	}

	s.recordRun(event)
}

func (s *Scheduler) recordRun(event RunEvent) {
	s.statsMu.Lock()
	s.stats.TotalRuns++
	if event.Success {
		s.stats.SuccessfulRuns++
		s.stats.LastPeriod = event.Period
		if event.Readings == 0 {
			s.stats.EmptyRuns++
		}
	} else {
		s.stats.FailedRuns++
	}
	at := event.Timestamp
	s.stats.LastRunAt = &at
	s.statsMu.Unlock()

	select {
	case s.runCh <- event:
	default:
		// Channel full, drop event
	}
}
