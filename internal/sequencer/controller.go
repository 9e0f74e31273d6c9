package sequencer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/harrylevesque/forgaile/internal/background"
	"github.com/harrylevesque/forgaile/internal/files"
)

// AckFlag is the fixed name of the persisted acknowledgement flag.
const AckFlag = files.FlagName

// ErrNoNotifier is reported when Respond fires without a notifier configured.
var ErrNoNotifier = errors.New("sequencer: no notifier configured")

// Notifier delivers the one-shot notification.
type Notifier interface {
	Notify(ctx context.Context) error
}

// AckStore persists the acknowledgement flag.
type AckStore interface {
	Acknowledged(ctx context.Context, key string) (bool, error)
	SetAcknowledged(ctx context.Context, key string) error
}

// Options wires a Controller to its collaborators. Only Script and Scheduler are required.
type Options struct {
	Script    *Script
	Scheduler Scheduler
	Notifier  Notifier
	Acks      AckStore
	// AckKey scopes the flag; it defaults to AckFlag.
	AckKey           string
	Background       background.Effect
	BackgroundConfig background.Config
	Logger           *zap.Logger
	// OnChange receives every new state, on the scheduler's context.
	OnChange func(State)
	// OnCue receives cues, on the scheduler's context.
	OnCue         func(CueKind)
	NotifyTimeout time.Duration
}

// Controller drives State through the phases. Apart from Wait, its methods must be called on the
// Scheduler's execution context.
type Controller struct {
	script   *Script
	sched    Scheduler
	notifier Notifier
	acks     AckStore
	ackKey   string
	bg       background.Effect
	log      *zap.Logger
	onChange func(State)
	onCue    func(CueKind)
	timeout  time.Duration

	state   State
	timers  map[uint64]map[uint64]Timer
	timerID uint64
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New reads the acknowledgement flag once, mounts the background and returns a controller at the
// gate. A failing flag read is logged and treated as not acknowledged.
func New(ctx context.Context, opts Options) (*Controller, error) {
	if opts.Script == nil {
		return nil, errors.New("sequencer: script is required")
	}
	if opts.Scheduler == nil {
		return nil, errors.New("sequencer: scheduler is required")
	}
	if err := opts.Script.Validate(); err != nil {
		return nil, fmt.Errorf("sequencer: %w", err)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	key := opts.AckKey
	if key == "" {
		key = AckFlag
	}
	timeout := opts.NotifyTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	bg := opts.Background
	if bg == nil {
		bg = background.Nop{}
	}

	acknowledged := false
	if opts.Acks != nil {
		v, err := opts.Acks.Acknowledged(ctx, key)
		if err != nil {
			log.Warn("read acknowledgement flag", zap.String("key", key), zap.Error(err))
		}
		acknowledged = v
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := &Controller{
		script:   opts.Script,
		sched:    opts.Scheduler,
		notifier: opts.Notifier,
		acks:     opts.Acks,
		ackKey:   key,
		bg:       bg,
		log:      log,
		onChange: opts.OnChange,
		onCue:    opts.OnCue,
		timeout:  timeout,
		state:    NewState(acknowledged),
		timers:   make(map[uint64]map[uint64]Timer),
		ctx:      runCtx,
		cancel:   cancel,
	}
	if err := bg.Start(opts.BackgroundConfig); err != nil {
		log.Warn("start background", zap.Error(err))
	}
	return c, nil
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Closed reports whether the controller has been unmounted.
func (c *Controller) Closed() bool { return c.closed }

// Dispatch applies ev and runs the resulting effects. It is a no-op after Close.
func (c *Controller) Dispatch(ev Event) {
	if c.closed {
		return
	}
	prev := c.state
	next, effects := Transition(prev, c.script, ev)
	c.state = next
	if prev.Phase != next.Phase {
		c.log.Debug("phase change",
			zap.Stringer("from", prev.Phase),
			zap.Stringer("to", next.Phase),
			zap.Uint64("epoch", next.Epoch))
	}
	if next.Attempts > prev.Attempts {
		c.log.Info("entry rejected", zap.Int("attempts", next.Attempts))
	}
	for _, eff := range effects {
		c.run(eff)
	}
	if next != prev && c.onChange != nil {
		c.onChange(next)
	}
}

func (c *Controller) run(eff Effect) {
	switch e := eff.(type) {
	case Schedule:
		epoch, st := e.Epoch, e.Step
		c.timerID++
		id := c.timerID
		t := c.sched.After(st.At, func() {
			c.forget(epoch, id)
			c.Dispatch(Tick{Epoch: epoch, Step: st})
		})
		if c.timers[epoch] == nil {
			c.timers[epoch] = make(map[uint64]Timer)
		}
		c.timers[epoch][id] = t
	case CancelEpoch:
		for _, t := range c.timers[e.Epoch] {
			t.Stop()
		}
		delete(c.timers, e.Epoch)
	case Persist:
		if c.acks == nil {
			c.log.Warn("acknowledgement not persisted: no store")
			return
		}
		if err := c.acks.SetAcknowledged(c.ctx, c.ackKey); err != nil {
			c.log.Error("persist acknowledgement", zap.String("key", c.ackKey), zap.Error(err))
		}
	case Notify:
		c.notify()
	case Cue:
		if c.onCue != nil {
			c.onCue(e.Kind)
		}
	}
}

// forget drops a fired timer so long phases do not accumulate them.
func (c *Controller) forget(epoch, id uint64) {
	delete(c.timers[epoch], id)
	if len(c.timers[epoch]) == 0 {
		delete(c.timers, epoch)
	}
}

// notify runs the external call off the scheduler and posts the result back onto it.
func (c *Controller) notify() {
	n := c.notifier
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := ErrNoNotifier
		if n != nil {
			ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
			err = n.Notify(ctx)
			cancel()
		}
		if err != nil {
			c.log.Error("notification failed", zap.Error(err))
		} else {
			c.log.Info("notification delivered")
		}
		c.sched.Post(func() { c.Dispatch(NotifyResult{Err: err}) })
	}()
}

// Close unmounts the controller: every pending timer is stopped, an in-flight notification is
// cancelled and the background is disposed. Later events and timer callbacks are ignored.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	for epoch, timers := range c.timers {
		for _, t := range timers {
			t.Stop()
		}
		delete(c.timers, epoch)
	}
	c.bg.Dispose()
}

// Wait blocks until background notification goroutines have returned. Call it off the
// scheduler's context after Close.
func (c *Controller) Wait() {
	c.wg.Wait()
}
