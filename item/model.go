package item

import "github.com/CrazyForks/tiny-svg/preset"

// Model is the working set shown by the UI. It is owned by a single actor
// and is not safe for concurrent use.
type Model struct {
	items []Item
	index map[string]int
}

// NewModel returns an empty working set.
func NewModel() *Model {
	return &Model{index: map[string]int{}}
}

// Replace discards the current working set and ingests gs in order.
func (m *Model) Replace(gs []Graphic) {
	m.items = FromGraphics(gs)
	m.reindex()
}

// Clear destroys the working set.
func (m *Model) Clear() {
	m.items = nil
	m.index = map[string]int{}
}

func (m *Model) reindex() {
	m.index = make(map[string]int, len(m.items))
	for i, it := range m.items {
		m.index[it.ID] = i
	}
}

// Items returns a copy of the working set in selection order.
func (m *Model) Items() []Item {
	out := make([]Item, len(m.items))
	for i, it := range m.items {
		out[i] = it.copy()
	}
	return out
}

// Len returns the number of items.
func (m *Model) Len() int { return len(m.items) }

// Get returns the item with id.
func (m *Model) Get(id string) (Item, bool) {
	i, ok := m.index[id]
	if !ok {
		return Item{}, false
	}
	return m.items[i].copy(), true
}

// Update applies fn to the item with id in place.
func (m *Model) Update(id string, fn func(*Item)) bool {
	i, ok := m.index[id]
	if !ok {
		return false
	}
	fn(&m.items[i])
	return true
}

// SetOverride assigns a preset (or preset.Inherit) to one item.
func (m *Model) SetOverride(id, presetID string) bool {
	if presetID == "" {
		presetID = preset.Inherit
	}
	return m.Update(id, func(it *Item) { it.PresetOverride = presetID })
}

// ResetOverride points every item that selected presetID back at
// preset.Inherit and returns the ids it touched.
func (m *Model) ResetOverride(presetID string) []string {
	var touched []string
	for i := range m.items {
		if m.items[i].PresetOverride == presetID && !m.items[i].Inherits() {
			m.items[i].PresetOverride = preset.Inherit
			touched = append(touched, m.items[i].ID)
		}
	}
	return touched
}

// Inheriting returns the items that follow the global default.
func (m *Model) Inheriting() []Item {
	var out []Item
	for _, it := range m.items {
		if it.Inherits() {
			out = append(out, it.copy())
		}
	}
	return out
}

// UsageCount counts items explicitly selecting presetID.
func (m *Model) UsageCount(presetID string) int { return UsageCount(m.items, presetID) }

func (it Item) copy() Item {
	if it.CompressionRatio != nil {
		r := *it.CompressionRatio
		it.CompressionRatio = &r
	}
	return it
}
