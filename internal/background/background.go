// Package background describes the animated cloud sky drawn behind the sequence.
// The renderer is opaque: callers hand it a Config and must Dispose it on unmount.
package background

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Effect is a background renderer.
type Effect interface {
	Start(cfg Config) error
	Dispose()
}

// Color is a 0xRRGGBB value rendered as "#rrggbb" in JSON.
type Color uint32

func (c Color) RGB() (r, g, b uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}

func (c Color) Hex() string { return fmt.Sprintf("#%06x", uint32(c)&0xffffff) }

func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Hex())
}

func (c *Color) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ParseColor accepts "#rrggbb", "rrggbb" or "0xrrggbb".
func ParseColor(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "#"), "0x")
	if len(s) != 6 {
		return 0, fmt.Errorf("color %q: want 6 hex digits", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("color %q: %w", s, err)
	}
	return Color(v), nil
}

// Config holds the fixed parameters of the cloud sky.
type Config struct {
	SkyColor         Color   `json:"skyColor"`
	CloudColor       Color   `json:"cloudColor"`
	CloudShadowColor Color   `json:"cloudShadowColor"`
	SunColor         Color   `json:"sunColor"`
	SunlightColor    Color   `json:"sunlightColor"`
	Speed            float64 `json:"speed"`
	MouseControls    bool    `json:"mouseControls"`
	TouchControls    bool    `json:"touchControls"`
	GyroControls     bool    `json:"gyroControls"`
}

// DefaultConfig is the soft lilac sky used by the page.
func DefaultConfig() Config {
	return Config{
		SkyColor:         0xe8ddef,
		CloudColor:       0xf0ecf0,
		CloudShadowColor: 0xa0a0bf,
		SunColor:         0xeea8c0,
		SunlightColor:    0xddb0c8,
		Speed:            0.3,
	}
}

// Nop is an Effect that draws nothing.
type Nop struct{}

func (Nop) Start(Config) error { return nil }
func (Nop) Dispose()           {}
