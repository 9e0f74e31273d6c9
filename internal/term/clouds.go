package term

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/harrylevesque/forgaile/internal/background"
)

// DefaultFrame is how often the sky drifts.
const DefaultFrame = 50 * time.Millisecond

// Clouds is a drifting value-noise sky drawn behind the terminal view.
type Clouds struct {
	frame time.Duration

	mu      sync.Mutex
	offset  float64
	palette palette
	stop    chan struct{}
	done    chan struct{}
}

type palette struct {
	sky, cloud, shadow, sun, sunlight colorful.Color
}

func newPalette(cfg background.Config) palette {
	return palette{
		sky:      toColorful(cfg.SkyColor),
		cloud:    toColorful(cfg.CloudColor),
		shadow:   toColorful(cfg.CloudShadowColor),
		sun:      toColorful(cfg.SunColor),
		sunlight: toColorful(cfg.SunlightColor),
	}
}

func toColorful(c background.Color) colorful.Color {
	r, g, b := c.RGB()
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
}

func toTcell(c colorful.Color) tcell.Color {
	r, g, b := c.Clamped().RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}

// NewClouds returns a stopped sky advancing once per frame. Zero uses DefaultFrame.
func NewClouds(frame time.Duration) *Clouds {
	if frame <= 0 {
		frame = DefaultFrame
	}
	return &Clouds{frame: frame}
}

// Start begins drifting with cfg's colors and speed.
func (c *Clouds) Start(cfg background.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return errors.New("clouds already started")
	}
	c.palette = newPalette(cfg)
	c.stop, c.done = make(chan struct{}), make(chan struct{})
	go c.drift(c.stop, c.done, cfg.Speed*0.6*c.frame.Seconds())
	return nil
}

func (c *Clouds) drift(stop, done chan struct{}, step float64) {
	defer close(done)
	ticker := time.NewTicker(c.frame)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			c.offset += step
			c.mu.Unlock()
		}
	}
}

// Dispose stops the drift and waits for it to exit.
func (c *Clouds) Dispose() {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (c *Clouds) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop != nil
}

func (c *Clouds) Offset() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset
}

// Draw paints every cell of s with the sky.
func (c *Clouds) Draw(s tcell.Screen) {
	c.mu.Lock()
	offset, p := c.offset, c.palette
	c.mu.Unlock()

	w, h := s.Size()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			col := p.at(x, y, w, h, offset)
			s.SetContent(x, y, ' ', nil, tcell.StyleDefault.Background(toTcell(col)))
		}
	}
}

// at blends the sky, a sun glow in the upper right and clouds of varying density.
func (p palette) at(x, y, w, h int, offset float64) colorful.Color {
	u := float64(x)/8 + offset
	v := float64(y) / 4

	dx := float64(x)/float64(max(w, 1)) - 0.8
	dy := float64(y)/float64(max(h, 1)) - 0.1
	glow := math.Max(0, 1-math.Hypot(dx, dy)*2)
	base := p.sky.BlendLab(p.sunlight, glow*0.5)
	if glow > 0.9 {
		base = base.BlendLab(p.sun, (glow-0.9)*8)
	}

	density := smoothstep(0.45, 0.8, fbm(u, v))
	cloud := p.shadow.BlendLab(p.cloud, fbm(u+17.3, v+3.1))
	return base.BlendLab(cloud, density)
}

func smoothstep(lo, hi, x float64) float64 {
	t := math.Min(math.Max((x-lo)/(hi-lo), 0), 1)
	return t * t * (3 - 2*t)
}

func fbm(x, y float64) float64 {
	var sum, norm float64
	amp, freq := 0.5, 1.0
	for range 4 {
		sum += amp * valueNoise(x*freq, y*freq)
		norm += amp
		amp *= 0.5
		freq *= 2
	}
	return sum / norm
}

func valueNoise(x, y float64) float64 {
	x0, y0 := math.Floor(x), math.Floor(y)
	fx, fy := x-x0, y-y0
	ix, iy := int(x0), int(y0)
	sx, sy := fx*fx*(3-2*fx), fy*fy*(3-2*fy)

	a, b := lattice(ix, iy), lattice(ix+1, iy)
	c, d := lattice(ix, iy+1), lattice(ix+1, iy+1)
	top := a + (b-a)*sx
	bottom := c + (d-c)*sx
	return top + (bottom-top)*sy
}

func lattice(x, y int) float64 {
	h := uint32(x)*374761393 + uint32(y)*668265263
	h = (h ^ (h >> 13)) * 1274126177
	h ^= h >> 16
	return float64(h&0xffff) / 0xffff
}
