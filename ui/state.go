package ui

import (
	"github.com/CrazyForks/tiny-svg/item"
	"github.com/CrazyForks/tiny-svg/preset"
)

// State is a snapshot of everything the UI shows.
type State struct {
	Presets      []preset.Preset `json:"presets"`
	GlobalPreset string          `json:"globalPreset"`
	Items        []item.Item     `json:"items"`
	Compressing  bool            `json:"compressing"`
	Progress     float64         `json:"progress"`
	LastError    string          `json:"lastError,omitempty"`
	// Batches counts completed compression batches.
	Batches int `json:"batches"`
}

// SortedPresets returns the presets in display order.
func (s State) SortedPresets() []preset.Preset { return preset.Sort(s.Presets) }

// Item returns the item with id.
func (s State) Item(id string) (item.Item, bool) {
	for _, it := range s.Items {
		if it.ID == id {
			return it, true
		}
	}
	return item.Item{}, false
}

// UsageCount returns how many items explicitly override to presetID.
func (s State) UsageCount(presetID string) int { return item.UsageCount(s.Items, presetID) }
