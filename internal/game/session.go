package game

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/playmatatu/minigolf/internal/sim"
	"github.com/rs/zerolog/log"
)

var ErrSessionClosed = errors.New("session closed")

// Observer receives every published frame and event, from the session
// goroutine. Implementations must not block.
type Observer interface {
	Frame(sessionID string, snap *Snapshot)
	Event(sessionID string, e Event)
}

// Recorder persists strokes and summaries. Calls are made off the session
// goroutine.
type Recorder interface {
	RecordStroke(ctx context.Context, sessionID string, e Event) error
	SaveSummary(ctx context.Context, sessionID string, snap *Snapshot) error
	PublishEvent(ctx context.Context, sessionID string, e Event) error
}

// SessionOptions configure the clock of a session.
type SessionOptions struct {
	FixedDT   float64
	TimeScale float64
	FrameRate int
}

func DefaultSessionOptions() SessionOptions {
	return SessionOptions{FixedDT: 0.05, TimeScale: 1, FrameRate: 60}
}

// Session runs one game on its own goroutine. Hits and time-scale changes are
// queued to that goroutine; readers only ever see the published snapshot.
type Session struct {
	ID        string
	CreatedAt time.Time

	game     *Game
	clock    *sim.Clock
	interval time.Duration
	observer Observer
	recorder Recorder

	cmds      chan func()
	done      chan struct{}
	snapshot  atomic.Pointer[Snapshot]
	lastInput atomic.Int64
}

func NewSession(id string, g *Game, opts SessionOptions, obs Observer, rec Recorder) (*Session, error) {
	clock, err := sim.NewClock(opts.FixedDT, opts.TimeScale)
	if err != nil {
		return nil, err
	}
	rate := opts.FrameRate
	if rate <= 0 {
		rate = 60
	}

	s := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		game:      g,
		clock:     clock,
		interval:  time.Second / time.Duration(rate),
		observer:  obs,
		recorder:  rec,
		cmds:      make(chan func()),
		done:      make(chan struct{}),
	}
	s.touch()
	s.publish()
	return s, nil
}

// Run drives frames until ctx is cancelled. It must be called exactly once.
func (s *Session) Run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Info().Str("session", s.ID).Msg("[SESSION] started")
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			s.saveSummary(s.Snapshot())
			log.Info().Str("session", s.ID).Uint64("steps", s.clock.StepsTaken).Msg("[SESSION] stopped")
			return
		case fn := <-s.cmds:
			fn()
		case now := <-ticker.C:
			elapsed := now.Sub(last).Seconds()
			last = now
			if _, err := s.Frame(elapsed); err != nil {
				log.Error().Err(err).Str("session", s.ID).Msg("[SESSION] frame failed")
			}
		}
	}
}

// Frame advances the game by elapsed real seconds and publishes the result.
// Only the Run goroutine may call it once Run has started.
func (s *Session) Frame(elapsed float64) (sim.Frame, error) {
	f, err := s.clock.Step(elapsed, s.game)
	snap := s.publish()

	events := s.game.DrainEvents()
	if s.observer != nil {
		s.observer.Frame(s.ID, snap)
		for _, e := range events {
			s.observer.Event(s.ID, e)
		}
	}
	if len(events) > 0 {
		go s.record(events, snap)
	}

	return f, err
}

func (s *Session) publish() *Snapshot {
	snap := s.game.Snapshot()
	snap.T = s.clock.T
	snap.StepsTaken = s.clock.StepsTaken
	snap.TimeScale = s.clock.TimeScale
	s.snapshot.Store(&snap)
	return &snap
}

// Snapshot is the state as of the last completed frame.
func (s *Session) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// Hit queues a hit on the session goroutine and waits for the outcome.
func (s *Session) Hit(ctx context.Context, aim, power float64) error {
	errc := make(chan error, 1)
	if err := s.do(ctx, func() { errc <- s.game.Hit(aim, power) }); err != nil {
		return err
	}
	s.touch()
	return <-errc
}

// SetTimeScale changes playback speed. Negative values rewind.
func (s *Session) SetTimeScale(ctx context.Context, scale float64) error {
	errc := make(chan error, 1)
	if err := s.do(ctx, func() {
		err := s.clock.SetTimeScale(scale)
		if err == nil {
			s.publish()
		}
		errc <- err
	}); err != nil {
		return err
	}
	s.touch()
	return <-errc
}

func (s *Session) do(ctx context.Context, fn func()) error {
	select {
	case s.cmds <- fn:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when Run returns.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) touch() { s.lastInput.Store(time.Now().UnixNano()) }

// LastInput is when the session last received a hit or time-scale change.
func (s *Session) LastInput() time.Time { return time.Unix(0, s.lastInput.Load()) }

func (s *Session) record(events []Event, snap *Snapshot) {
	if s.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	summary := false
	for _, e := range events {
		if e.Type == EventHit {
			if err := s.recorder.RecordStroke(ctx, s.ID, e); err != nil {
				log.Warn().Err(err).Str("session", s.ID).Msg("[SESSION] record stroke failed")
			}
		}
		if e.Type == EventStopped || e.Type == EventLevelChanged {
			summary = true
		}
		if err := s.recorder.PublishEvent(ctx, s.ID, e); err != nil {
			log.Warn().Err(err).Str("session", s.ID).Msg("[SESSION] publish event failed")
		}
	}
	if summary {
		s.saveSummary(snap)
	}
}

func (s *Session) saveSummary(snap *Snapshot) {
	if s.recorder == nil || snap == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.recorder.SaveSummary(ctx, s.ID, snap); err != nil {
		log.Warn().Err(err).Str("session", s.ID).Msg("[SESSION] save summary failed")
	}
}
