package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/harrylevesque/forgaile/internal/background"
	"github.com/harrylevesque/forgaile/internal/models"
	"github.com/harrylevesque/forgaile/internal/sequencer"
)

// Session is one visitor's run through the sequence. All sequencer access happens on its loop.
type Session struct {
	id     string
	scope  string
	script *sequencer.Script
	loop   *sequencer.Loop
	ctrl   *sequencer.Controller
	bg     *webBackground
	log    *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	latest   models.Snapshot
	subs     map[*Subscription]struct{}
	lastSeen time.Time
	closed   bool
}

func (s *Session) ID() string    { return s.id }
func (s *Session) Scope() string { return s.scope }

// Snapshot returns the most recent state.
func (s *Session) Snapshot() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Dispatch applies ev on the session's loop and returns once it has run.
func (s *Session) Dispatch(ctx context.Context, ev sequencer.Event) error {
	s.touch()
	err := s.loop.Call(ctx, func() { s.ctrl.Dispatch(ev) })
	if errors.Is(err, sequencer.ErrLoopStopped) {
		return ErrNotFound
	}
	return err
}

// Subscribe registers a stream listener. The current snapshot is delivered immediately.
// The returned function unsubscribes.
func (s *Session) Subscribe() (*Subscription, func()) {
	sub := &Subscription{
		states: make(chan models.Snapshot, 1),
		cues:   make(chan string, 16),
		done:   make(chan struct{}),
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(sub.done)
		return sub, func() {}
	}
	s.subs[sub] = struct{}{}
	s.lastSeen = s.now()
	sub.states <- s.latest
	s.mu.Unlock()

	var once sync.Once
	return sub, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subs[sub]; ok {
				delete(s.subs, sub)
				close(sub.done)
			}
			s.lastSeen = s.now()
		})
	}
}

func (s *Session) snapshot(st sequencer.State) models.Snapshot {
	return models.NewSnapshot(s.id, st, s.script, s.bg.Active())
}

// publishState runs on the loop.
func (s *Session) publishState(st sequencer.State) {
	snap := s.snapshot(st)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = snap
	for sub := range s.subs {
		sub.offerState(snap)
	}
}

// publishCue runs on the loop.
func (s *Session) publishCue(kind sequencer.CueKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		select {
		case sub.cues <- kind.String():
		default:
		}
	}
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = s.now()
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.subs) > 0 {
		return 0
	}
	return now.Sub(s.lastSeen)
}

// shutdown unmounts the controller, stops the loop and ends every subscription.
func (s *Session) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.loop.Call(ctx, s.ctrl.Close); err != nil && !errors.Is(err, sequencer.ErrLoopStopped) {
		s.log.Warn("unmount controller", zap.Error(err))
	}
	s.loop.Stop()
	s.ctrl.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for sub := range s.subs {
		close(sub.done)
		delete(s.subs, sub)
	}
}

// Subscription receives snapshots (latest wins) and cues (dropped when the reader lags).
type Subscription struct {
	states chan models.Snapshot
	cues   chan string
	done   chan struct{}
}

func (sub *Subscription) States() <-chan models.Snapshot { return sub.states }
func (sub *Subscription) Cues() <-chan string            { return sub.cues }

// Done is closed when the session is unmounted or the subscriber leaves.
func (sub *Subscription) Done() <-chan struct{} { return sub.done }

// offerState replaces an unread snapshot with snap. Callers hold the session lock.
func (sub *Subscription) offerState(snap models.Snapshot) {
	select {
	case <-sub.states:
	default:
	}
	sub.states <- snap
}

// webBackground is the browser's cloud sky. The page draws it; the session only tracks whether
// it is mounted so snapshots can tell the page.
type webBackground struct {
	active atomic.Bool
}

func (b *webBackground) Start(background.Config) error {
	b.active.Store(true)
	return nil
}

func (b *webBackground) Dispose() { b.active.Store(false) }

func (b *webBackground) Active() bool { return b.active.Load() }
