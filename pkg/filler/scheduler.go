package filler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Default timer delays. The filler delay is measured from the
// acknowledgment firing point, so the filler lands at AckDelay +
// FillerDelay after turn start.
const (
	DefaultAckDelay    = 3 * time.Second
	DefaultFillerDelay = 4 * time.Second

	ackRecentMax    = 3
	fillerRecentMax = 4
)

// Config holds scheduler tuning. Zero values fall back to defaults.
type Config struct {
	AckDelay    time.Duration
	FillerDelay time.Duration
	Logger      *slog.Logger
}

// Scheduler owns the per-call phrase rotations and runs the two
// delayed timers for each turn. One Scheduler serves a whole Session;
// Start is called once per non-simple turn.
type Scheduler struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	acks    *Rotation
	fillers *Rotation
}

// NewScheduler creates a Scheduler with the standard phrase sets.
func NewScheduler(cfg Config) *Scheduler {
	if cfg.AckDelay == 0 {
		cfg.AckDelay = DefaultAckDelay
	}
	if cfg.FillerDelay == 0 {
		cfg.FillerDelay = DefaultFillerDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Scheduler{
		cfg:     cfg,
		logger:  cfg.Logger.With("component", "filler"),
		acks:    NewRotation(AcknowledgmentPhrases, ackRecentMax),
		fillers: NewRotation(FillerPhrases, fillerRecentMax),
	}
}

// Turn is one armed acknowledgment/filler pair. Exactly one of
// NoteFirstChunk or Stop must eventually be called; both are safe to
// call repeatedly and in either order.
type Turn struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	gotChunk bool
	ackFired bool
}

// Start arms both timers. speak is invoked from a timer goroutine with
// the chosen phrase; it must be safe to call concurrently with the
// caller's own work.
func (s *Scheduler) Start(ctx context.Context, speak func(text string)) *Turn {
	ctx, cancel := context.WithCancel(ctx)
	t := &Turn{cancel: cancel}

	t.wg.Add(2)
	go s.runAck(ctx, t, speak)
	go s.runFiller(ctx, t, speak)
	return t
}

func (s *Scheduler) runAck(ctx context.Context, t *Turn, speak func(string)) {
	defer t.wg.Done()

	timer := time.NewTimer(s.cfg.AckDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	t.mu.Lock()
	fire := !t.gotChunk && !t.ackFired
	if fire {
		t.ackFired = true
	}
	t.mu.Unlock()
	if !fire {
		return
	}

	phrase := s.nextAck()
	s.logger.Info("acknowledgment fired", "phrase", phrase)
	speak(phrase)
}

func (s *Scheduler) runFiller(ctx context.Context, t *Turn, speak func(string)) {
	defer t.wg.Done()

	timer := time.NewTimer(s.cfg.AckDelay + s.cfg.FillerDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	t.mu.Lock()
	fire := !t.gotChunk
	t.mu.Unlock()
	if !fire {
		return
	}

	phrase := s.nextFiller()
	s.logger.Info("filler fired", "phrase", phrase)
	speak(phrase)
}

func (s *Scheduler) nextAck() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acks.Next()
}

func (s *Scheduler) nextFiller() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fillers.Next()
}

// NoteFirstChunk suppresses any timer that has not fired yet. Timers
// that already passed their guard still complete their single speak.
func (t *Turn) NoteFirstChunk() {
	t.mu.Lock()
	t.gotChunk = true
	t.mu.Unlock()
}

// Stop cancels both timers and waits for them to exit, guaranteeing
// no phrase is spoken after Stop returns.
func (t *Turn) Stop() {
	t.mu.Lock()
	t.gotChunk = true
	t.mu.Unlock()
	t.cancel()
	t.wg.Wait()
}
