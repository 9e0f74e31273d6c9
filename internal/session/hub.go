// Package session runs one sequencer per visitor and fans its state out to stream subscribers.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harrylevesque/forgaile/internal/background"
	"github.com/harrylevesque/forgaile/internal/files"
	"github.com/harrylevesque/forgaile/internal/sequencer"
)

const (
	// DefaultTTL is how long a session may sit without requests or subscribers.
	DefaultTTL = 30 * time.Minute
	// DefaultReapInterval is how often Run looks for idle sessions.
	DefaultReapInterval = time.Minute
)

var (
	ErrNotFound = errors.New("session: not found")
	ErrClosed   = errors.New("session: hub closed")
)

// Options configures a Hub.
type Options struct {
	Script       *sequencer.Script
	Notifier     sequencer.Notifier
	Acks         sequencer.AckStore
	Background   background.Config
	TTL          time.Duration
	ReapInterval time.Duration
	Logger       *zap.Logger
	// Now is the clock used for idle tracking.
	Now func() time.Time
}

// Hub owns every live session.
type Hub struct {
	opts Options
	log  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// NewHub validates opts and returns an empty hub.
func NewHub(opts Options) (*Hub, error) {
	if opts.Script == nil {
		return nil, errors.New("session: script is required")
	}
	if err := opts.Script.Validate(); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.ReapInterval <= 0 {
		opts.ReapInterval = DefaultReapInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		opts:     opts,
		log:      log.Named("session"),
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}, nil
}

// Create mounts a new session at the gate. scope identifies the visitor; it scopes the
// acknowledgement flag so a reload by the same visitor sees an earlier response.
func (h *Hub) Create(ctx context.Context, scope string) (*Session, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	// Added under the lock so Close cannot start waiting before this loop is counted.
	h.wg.Add(1)
	h.mu.Unlock()

	id := uuid.NewString()
	s := &Session{
		id:       id,
		scope:    scope,
		script:   h.opts.Script,
		loop:     sequencer.NewLoop(64),
		bg:       &webBackground{},
		subs:     make(map[*Subscription]struct{}),
		now:      h.opts.Now,
		lastSeen: h.opts.Now(),
		log:      h.log.With(zap.String("session", id)),
	}

	go func() {
		defer h.wg.Done()
		_ = s.loop.Run(h.ctx)
	}()

	var newErr error
	err := s.loop.Call(ctx, func() {
		s.ctrl, newErr = sequencer.New(ctx, sequencer.Options{
			Script:           h.opts.Script,
			Scheduler:        s.loop,
			Notifier:         h.opts.Notifier,
			Acks:             h.opts.Acks,
			AckKey:           files.Key(scope),
			Background:       s.bg,
			BackgroundConfig: h.opts.Background,
			Logger:           s.log,
			OnChange:         s.publishState,
			OnCue:            s.publishCue,
		})
		if newErr == nil {
			s.latest = s.snapshot(s.ctrl.State())
		}
	})
	if err == nil {
		err = newErr
	}
	if err != nil {
		s.loop.Stop()
		return nil, fmt.Errorf("create session: %w", err)
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		s.shutdown()
		return nil, ErrClosed
	}
	h.sessions[s.id] = s
	n := len(h.sessions)
	h.mu.Unlock()

	s.log.Info("session created", zap.Int("sessions", n))
	return s, nil
}

// Get returns a live session.
func (h *Hub) Get(id string) (*Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Len counts live sessions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Remove unmounts a session: its timers are cancelled and its subscribers are closed.
func (h *Hub) Remove(id string) error {
	h.mu.Lock()
	s, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.shutdown()
	s.log.Info("session removed")
	return nil
}

// Reap removes sessions idle for longer than the TTL and returns how many were removed.
func (h *Hub) Reap() int {
	now := h.opts.Now()
	var idle []*Session
	h.mu.Lock()
	for id, s := range h.sessions {
		if s.idleSince(now) > h.opts.TTL {
			idle = append(idle, s)
			delete(h.sessions, id)
		}
	}
	h.mu.Unlock()
	for _, s := range idle {
		s.shutdown()
		s.log.Info("session expired")
	}
	return len(idle)
}

// Run reaps idle sessions until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.opts.ReapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := h.Reap(); n > 0 {
				h.log.Debug("reaped idle sessions", zap.Int("count", n))
			}
		}
	}
}

// Close unmounts every session and waits for their loops to exit.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	all := make([]*Session, 0, len(h.sessions))
	for id, s := range h.sessions {
		all = append(all, s)
		delete(h.sessions, id)
	}
	h.mu.Unlock()

	for _, s := range all {
		s.shutdown()
	}
	h.cancel()
	h.wg.Wait()
	h.log.Info("hub closed", zap.Int("sessions", len(all)))
}
