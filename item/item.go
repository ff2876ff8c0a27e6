// Package item holds the working set of graphics exported from the canvas
// together with their per-item preset assignment and compression results.
package item

import (
	"strings"

	"github.com/CrazyForks/tiny-svg/preset"
)

// Untitled names graphics exported without a name.
const Untitled = "Untitled"

// Graphic is one exported node as it arrives from the host.
type Graphic struct {
	ID     string `json:"id"`
	NodeID string `json:"nodeId"`
	Name   string `json:"name"`
	SVG    string `json:"svg"`
}

// Item is one graphic in the working set.
type Item struct {
	ID                string   `json:"id"`
	SourceID          string   `json:"sourceId"`
	Name              string   `json:"name"`
	OriginalPayload   string   `json:"originalPayload"`
	CompressedPayload string   `json:"compressedPayload,omitempty"`
	PresetOverride    string   `json:"presetOverride"`
	OriginalSize      int      `json:"originalSize"`
	CompressedSize    int      `json:"compressedSize,omitempty"`
	CompressionRatio  *float64 `json:"compressionRatio,omitempty"`
	Error             string   `json:"error,omitempty"`
	Compressed        bool     `json:"compressed"`
}

// FromGraphic ingests an exported graphic.
func FromGraphic(g Graphic) Item {
	name := strings.TrimSpace(g.Name)
	if name == "" {
		name = Untitled
	}
	src := g.NodeID
	if src == "" {
		src = g.ID
	}
	return Item{
		ID:              g.ID,
		SourceID:        src,
		Name:            name,
		OriginalPayload: g.SVG,
		PresetOverride:  preset.Inherit,
		OriginalSize:    len(g.SVG),
	}
}

// FromGraphics ingests a whole selection, preserving order.
func FromGraphics(gs []Graphic) []Item {
	out := make([]Item, len(gs))
	for i, g := range gs {
		out[i] = FromGraphic(g)
	}
	return out
}

// Inherits reports whether the item follows the global default.
func (it Item) Inherits() bool {
	return it.PresetOverride == "" || it.PresetOverride == preset.Inherit
}

// UsageCount returns how many items explicitly select preset id. Items that
// inherit are not counted, even when id is the global default.
func UsageCount(items []Item, id string) int {
	n := 0
	for _, it := range items {
		if !it.Inherits() && it.PresetOverride == id {
			n++
		}
	}
	return n
}
