package sequencer

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

//go:embed default_script.yaml
var defaultScriptYAML []byte

// BufferSize is the number of character slots at the gate.
const BufferSize = 5

// Duration is a time.Duration that reads "250ms"-style strings from YAML.
type Duration time.Duration

// D returns the standard library duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Script is the fixed content and timing of one run through the phases.
type Script struct {
	// Secret is compared case-insensitively against the buffer. Empty disables the check.
	Secret   string   `yaml:"secret"`
	Message  string   `yaml:"message"`
	Words    []string `yaml:"words"`
	Showcase Showcase `yaml:"showcase"`
	Timing   Timing   `yaml:"timing"`
}

// Showcase configures the optional highlight sweep over the slots. Zero positions skips it.
type Showcase struct {
	Positions int      `yaml:"positions"`
	Cycles    int      `yaml:"cycles"`
	Interval  Duration `yaml:"interval"`
}

// Timing holds every delay the sequencer schedules. Offsets named *_start, fade_borders and
// collapse are measured from entering the success phase.
type Timing struct {
	Bounce       Duration `yaml:"bounce"`
	Shake        Duration `yaml:"shake"`
	Submit       Duration `yaml:"submit"`
	Flash        Duration `yaml:"flash"`
	FadeBorders  Duration `yaml:"fade_borders"`
	Collapse     Duration `yaml:"collapse"`
	TypeStart    Duration `yaml:"type_start"`
	TypeInterval Duration `yaml:"type_interval"`
	TypeHold     Duration `yaml:"type_hold"`
	Wipe         Duration `yaml:"wipe"`
	WordMax      Duration `yaml:"word_max"`
	WordRange    Duration `yaml:"word_range"`
	Final        Duration `yaml:"final"`
}

// DefaultScript returns a fresh copy of the embedded script.
func DefaultScript() *Script {
	var s Script
	if err := yaml.Unmarshal(defaultScriptYAML, &s); err != nil {
		panic(fmt.Sprintf("embedded script: %v", err))
	}
	return &s
}

// ParseScript decodes YAML over the defaults, so a file only needs the keys it changes.
func ParseScript(data []byte) (*Script, error) {
	s := DefaultScript()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadScript reads a script file. An empty path yields the default script.
func LoadScript(path string) (*Script, error) {
	if path == "" {
		return DefaultScript(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return ParseScript(data)
}

// Validate rejects scripts the sequencer cannot play.
func (s *Script) Validate() error {
	if s.Secret != "" && utf8.RuneCountInString(s.Secret) != BufferSize {
		return fmt.Errorf("secret must be %d characters, got %d", BufferSize, utf8.RuneCountInString(s.Secret))
	}
	if s.Message == "" {
		return errors.New("message is required")
	}
	if s.Showcase.Positions < 0 || s.Showcase.Positions > BufferSize {
		return fmt.Errorf("showcase positions must be within 0..%d", BufferSize)
	}
	if s.Showcase.Positions > 0 && (s.Showcase.Cycles <= 0 || s.Showcase.Interval <= 0) {
		return errors.New("showcase needs positive cycles and interval")
	}
	t := s.Timing
	for name, d := range map[string]Duration{
		"bounce": t.Bounce, "shake": t.Shake, "submit": t.Submit, "flash": t.Flash,
		"fade_borders": t.FadeBorders, "collapse": t.Collapse, "type_start": t.TypeStart,
		"type_interval": t.TypeInterval, "type_hold": t.TypeHold, "wipe": t.Wipe,
		"word_max": t.WordMax, "word_range": t.WordRange, "final": t.Final,
	} {
		if d < 0 {
			return fmt.Errorf("timing.%s must not be negative", name)
		}
	}
	if t.WordRange > t.WordMax {
		return errors.New("timing.word_range must not exceed timing.word_max")
	}
	return nil
}

// ShowcaseEnabled reports whether the wipe is followed by the highlight sweep.
func (s *Script) ShowcaseEnabled() bool { return s.Showcase.Positions > 0 }
