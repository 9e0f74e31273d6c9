// Package term plays the sequence in a terminal.
package term

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/harrylevesque/forgaile/internal/background"
	"github.com/harrylevesque/forgaile/internal/models"
	"github.com/harrylevesque/forgaile/internal/sequencer"
)

// CuePlayer plays a cue's sound.
type CuePlayer interface {
	Play(kind sequencer.CueKind)
}

// Options configures an App. Screen must already be initialised.
type Options struct {
	Screen     tcell.Screen
	Script     *sequencer.Script
	Notifier   sequencer.Notifier
	Acks       sequencer.AckStore
	AckKey     string
	Player     CuePlayer
	Background background.Config
	Logger     *zap.Logger
	// Frame is the redraw interval.
	Frame time.Duration
}

// App runs one sequence on a terminal screen until the visitor leaves.
type App struct {
	opts   Options
	screen tcell.Screen
	loop   *sequencer.Loop
	ctrl   *sequencer.Controller
	sky    *Clouds
	log    *zap.Logger

	mu   sync.Mutex
	snap models.Snapshot

	pasting bool
	paste   strings.Builder
}

func NewApp(opts Options) (*App, error) {
	if opts.Screen == nil {
		return nil, errors.New("term: screen is required")
	}
	if opts.Script == nil {
		return nil, errors.New("term: script is required")
	}
	if opts.Frame <= 0 {
		opts.Frame = DefaultFrame
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &App{
		opts:   opts,
		screen: opts.Screen,
		loop:   sequencer.NewLoop(64),
		sky:    NewClouds(opts.Frame),
		log:    log.Named("term"),
	}, nil
}

// Snapshot returns the state last drawn.
func (a *App) Snapshot() models.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snap
}

// Run mounts the sequence and handles input until Esc, Ctrl+C or ctx is done. Unmounting on
// return cancels every pending timer.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = a.loop.Run(ctx)
	}()

	var newErr error
	err := a.loop.Call(ctx, func() {
		a.ctrl, newErr = sequencer.New(ctx, sequencer.Options{
			Script:           a.opts.Script,
			Scheduler:        a.loop,
			Notifier:         a.opts.Notifier,
			Acks:             a.opts.Acks,
			AckKey:           a.opts.AckKey,
			Background:       a.sky,
			BackgroundConfig: a.opts.Background,
			Logger:           a.log,
			OnChange:         a.setState,
			OnCue:            a.cue,
		})
		if newErr == nil {
			a.setState(a.ctrl.State())
		}
	})
	if err == nil {
		err = newErr
	}
	if err != nil {
		a.loop.Stop()
		<-loopDone
		return err
	}
	defer func() {
		unmount, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := a.loop.Call(unmount, a.ctrl.Close); err != nil {
			a.log.Warn("unmount", zap.Error(err))
		}
		a.loop.Stop()
		a.ctrl.Wait()
		<-loopDone
	}()

	a.screen.EnablePaste()
	defer a.screen.DisablePaste()

	events := make(chan tcell.Event)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(a.opts.Frame)
	defer ticker.Stop()
	a.draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if a.handle(ctx, ev) == ActionQuit {
				return nil
			}
		case <-ticker.C:
			a.draw()
		}
	}
}

func (a *App) handle(ctx context.Context, ev tcell.Event) Action {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		a.screen.Sync()
	case *tcell.EventPaste:
		if ev.Start() {
			a.pasting = true
			a.paste.Reset()
			return ActionNone
		}
		a.pasting = false
		a.dispatch(ctx, sequencer.Paste{Text: a.paste.String()})
	case *tcell.EventKey:
		if a.pasting {
			if ev.Key() == tcell.KeyRune {
				a.paste.WriteRune(ev.Rune())
			}
			return ActionNone
		}
		seqEv, act := MapKey(ev, a.Snapshot())
		if act == ActionQuit {
			return act
		}
		if seqEv != nil {
			a.dispatch(ctx, seqEv)
		}
	}
	return ActionNone
}

func (a *App) dispatch(ctx context.Context, ev sequencer.Event) {
	if err := a.loop.Call(ctx, func() { a.ctrl.Dispatch(ev) }); err != nil {
		a.log.Debug("dispatch dropped", zap.Error(err))
		return
	}
	a.draw()
}

func (a *App) draw() { Draw(a.screen, a.Snapshot(), a.sky) }

// setState and cue run on the loop.
func (a *App) setState(st sequencer.State) {
	snap := models.NewSnapshot("", st, a.opts.Script, a.sky.Active())
	a.mu.Lock()
	a.snap = snap
	a.mu.Unlock()
}

func (a *App) cue(kind sequencer.CueKind) {
	if a.opts.Player == nil || a.ctrl == nil || !a.ctrl.State().Sound {
		return
	}
	a.opts.Player.Play(kind)
}
