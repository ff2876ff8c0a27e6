package preset

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	maxNameLen        = 50
	maxDescriptionLen = 200
)

// Validate returns a human-readable message for every invariant candidate
// violates against existing. An empty result means the candidate is valid.
// The candidate's own id is ignored in the duplicate-name check.
func Validate(candidate Preset, existing []Preset) []string {
	var problems []string

	name := strings.TrimSpace(candidate.Name)
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		problems = append(problems, "Preset name is required")
	case n > maxNameLen:
		problems = append(problems, fmt.Sprintf("Preset name must be %d characters or less", maxNameLen))
	}

	if candidate.Name != "" {
		for _, p := range existing {
			if p.ID != candidate.ID && p.Name == candidate.Name {
				problems = append(problems, fmt.Sprintf("A preset named %q already exists", candidate.Name))
				break
			}
		}
	}

	if utf8.RuneCountInString(candidate.Description) > maxDescriptionLen {
		problems = append(problems, fmt.Sprintf("Preset description must be %d characters or less", maxDescriptionLen))
	}

	switch {
	case candidate.Config == nil:
		problems = append(problems, "Optimizer configuration is required")
	case candidate.Config.EnabledRules() == 0:
		problems = append(problems, "At least one rule must be enabled")
	}
	return problems
}

// Find returns the preset with id.
func Find(list []Preset, id string) (Preset, bool) {
	for _, p := range list {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}

// Upsert returns a new list with p replacing the entry of the same id, or
// appended when no entry matches.
func Upsert(list []Preset, p Preset) []Preset {
	out := make([]Preset, 0, len(list)+1)
	replaced := false
	for _, q := range list {
		if q.ID == p.ID {
			out = append(out, p)
			replaced = true
			continue
		}
		out = append(out, q)
	}
	if !replaced {
		out = append(out, p)
	}
	return out
}

// RemoveID returns a new list without the entry for id.
func RemoveID(list []Preset, id string) []Preset {
	out := make([]Preset, 0, len(list))
	for _, p := range list {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

// Sort orders presets for display: built-ins first in table order, then
// pinned custom presets, then newest custom presets first.
func Sort(list []Preset) []Preset {
	out := make([]Preset, len(list))
	copy(out, list)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsDefault != b.IsDefault {
			return a.IsDefault
		}
		if a.IsDefault {
			return false
		}
		if a.Pinned != b.Pinned {
			return a.Pinned
		}
		return a.CreatedAt > b.CreatedAt
	})
	return out
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// NewID derives a fresh opaque id from a display name.
func NewID(name string) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		slug = "preset"
	}
	return slug + "-" + uuid.NewString()[:8]
}

// Duplicate returns an unsaved copy of p as a custom preset.
func Duplicate(p Preset, now time.Time) Preset {
	cp := p.Clone()
	cp.ID = NewID(p.Name + " Copy")
	cp.Name = p.Name + " (Copy)"
	cp.IsDefault = false
	cp.Pinned = false
	cp.CreatedAt = now.UnixMilli()
	cp.UpdatedAt = cp.CreatedAt
	return cp
}

// EffectiveID resolves the inherit sentinel against the global default.
func EffectiveID(override, globalID string) string {
	if override == Inherit || override == "" {
		return globalID
	}
	return override
}

// Resolve returns the preset an item with override actually uses. A missing
// target falls back to the canonical default; a missing canonical default is
// ErrDefaultPresetMissing.
func Resolve(list []Preset, override, globalID string) (Preset, error) {
	id := EffectiveID(override, globalID)
	if p, ok := Find(list, id); ok {
		return p, nil
	}
	if p, ok := Find(list, DefaultID); ok {
		return p, nil
	}
	return Preset{}, fmt.Errorf("resolve %q: %w", id, ErrDefaultPresetMissing)
}
