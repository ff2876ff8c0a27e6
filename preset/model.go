package preset

import (
	"errors"
	"fmt"
	"strings"
)

// Inherit is the per-item override meaning "use the global default".
const Inherit = "inherit"

// DefaultID is the canonical default preset. It is always present.
const DefaultID = "default"

// Preset is a named, reusable optimizer configuration.
type Preset struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Icon        string  `json:"icon,omitempty"`
	Config      *Config `json:"config"`
	IsDefault   bool    `json:"isDefault"`
	Pinned      bool    `json:"pinned,omitempty"`
	CreatedAt   int64   `json:"createdAt"` // epoch ms
	UpdatedAt   int64   `json:"updatedAt"` // epoch ms
}

// Rule is a single named optimizer pass.
type Rule struct {
	Name    string         `json:"name"`
	Enabled bool           `json:"enabled"`
	Params  map[string]any `json:"params,omitempty"`
}

// Config enumerates every optimizer option a preset can carry.
type Config struct {
	Rules              []Rule `json:"rules"`
	Multipass          bool   `json:"multipass"`
	FloatPrecision     int    `json:"floatPrecision,omitempty"`
	TransformPrecision int    `json:"transformPrecision,omitempty"`
}

const (
	defaultFloatPrecision     = 3
	defaultTransformPrecision = 5
)

// WithDefaults returns a copy of c with unset options filled in.
func (c Config) WithDefaults() Config {
	out := c.clone()
	if out.FloatPrecision <= 0 {
		out.FloatPrecision = defaultFloatPrecision
	}
	if out.TransformPrecision <= 0 {
		out.TransformPrecision = defaultTransformPrecision
	}
	return out
}

// EnabledRules counts the enabled rules.
func (c Config) EnabledRules() int {
	n := 0
	for _, r := range c.Rules {
		if r.Enabled {
			n++
		}
	}
	return n
}

// Enabled reports whether the named rule is present and enabled.
func (c Config) Enabled(name string) bool {
	for _, r := range c.Rules {
		if r.Name == name {
			return r.Enabled
		}
	}
	return false
}

func (c Config) clone() Config {
	out := c
	out.Rules = make([]Rule, len(c.Rules))
	for i, r := range c.Rules {
		out.Rules[i] = r
		if r.Params != nil {
			p := make(map[string]any, len(r.Params))
			for k, v := range r.Params {
				p[k] = v
			}
			out.Rules[i].Params = p
		}
	}
	return out
}

// ForOptimizer derives the configuration handed to the optimizer. Multipass
// is always on regardless of the stored value.
func ForOptimizer(p Preset) Config {
	var cfg Config
	if p.Config != nil {
		cfg = p.Config.WithDefaults()
	} else {
		cfg = Config{}.WithDefaults()
	}
	cfg.Multipass = true
	return cfg
}

// Clone returns a deep copy of p.
func (p Preset) Clone() Preset {
	if p.Config != nil {
		c := p.Config.clone()
		p.Config = &c
	}
	return p
}

// IsModified reports whether the preset was edited after creation.
func (p Preset) IsModified() bool { return p.CreatedAt != p.UpdatedAt }

var (
	ErrNotFound             = errors.New("preset not found")
	ErrDefaultPresetMissing = errors.New("default preset not found")
)

// ProtectedPresetError is returned when a mutation would delete or corrupt a
// built-in preset.
type ProtectedPresetError struct {
	ID string
	Op string
}

func (e *ProtectedPresetError) Error() string {
	return fmt.Sprintf("cannot %s default preset %q", e.Op, e.ID)
}

// ValidationError lists every violated preset invariant.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid preset: " + strings.Join(e.Problems, "; ")
}
