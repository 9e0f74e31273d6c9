package sound

import (
	"sync"
	"time"

	"github.com/gopxl/beep/speaker"
	"go.uber.org/zap"

	"github.com/harrylevesque/forgaile/internal/sequencer"
)

// Player plays cues on the default audio device. Without a device it stays silent.
type Player struct {
	mu      sync.Mutex
	enabled bool
	log     *zap.Logger
}

// NewPlayer opens the speaker. A missing or busy audio device is logged, not returned.
func NewPlayer(log *zap.Logger) *Player {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Player{log: log}
	if err := speaker.Init(SampleRate, SampleRate.N(time.Second/20)); err != nil {
		log.Warn("audio unavailable, cues are silent", zap.Error(err))
		return p
	}
	p.enabled = true
	return p
}

// Silent returns a player that never touches the audio device.
func Silent() *Player { return &Player{log: zap.NewNop()} }

func (p *Player) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// Play starts kind's sound and returns without waiting for it to finish.
func (p *Player) Play(kind sequencer.CueKind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return
	}
	if s := For(kind); s != nil {
		speaker.Play(s)
	}
}

// Close releases the audio device.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.enabled {
		speaker.Close()
		p.enabled = false
	}
}
