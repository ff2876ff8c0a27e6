// Package protocol defines the messages exchanged between the host and the
// UI. Every message travels as one JSON frame; nothing is shared across the
// boundary except the encoded bytes.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/CrazyForks/tiny-svg/item"
	"github.com/CrazyForks/tiny-svg/preset"
)

// Name identifies a message.
type Name string

// Requests (UI to host).
const (
	Init         Name = "INIT"
	GetSelection Name = "GET_SELECTION"
	GetPresets   Name = "GET_PRESETS"
	SavePreset   Name = "SAVE_PRESET"
	DeletePreset Name = "DELETE_PRESET"
	ResetPresets Name = "RESET_PRESETS"
	Close        Name = "CLOSE"
)

// Events (host to UI).
const (
	SelectionChanged Name = "SELECTION_CHANGED"
	PresetsLoaded    Name = "PRESETS_LOADED"
	PresetSaved      Name = "PRESET_SAVED"
	PresetDeleted    Name = "PRESET_DELETED"
	PresetsReset     Name = "PRESETS_RESET"
	Error            Name = "ERROR"
)

func (n Name) IsRequest() bool {
	switch n {
	case Init, GetSelection, GetPresets, SavePreset, DeletePreset, ResetPresets, Close:
		return true
	}
	return false
}

func (n Name) IsEvent() bool {
	switch n {
	case SelectionChanged, PresetsLoaded, PresetSaved, PresetDeleted, PresetsReset, Error:
		return true
	}
	return false
}

var (
	ErrUnknownMessage   = errors.New("unknown message type")
	ErrMalformedMessage = errors.New("malformed message")
)

// Message is the flat envelope carried by every frame. Only the fields
// relevant to Type are set.
type Message struct {
	Type    Name            `json:"type"`
	Preset  *preset.Preset  `json:"preset,omitempty"`
	Presets []preset.Preset `json:"presets,omitempty"`
	ID      string          `json:"id,omitempty"`
	Items   []item.Graphic  `json:"items,omitempty"`
	Message string          `json:"message,omitempty"`
	Detail  string          `json:"detail,omitempty"`
}

func NewInit() Message         { return Message{Type: Init} }
func NewGetSelection() Message { return Message{Type: GetSelection} }
func NewGetPresets() Message   { return Message{Type: GetPresets} }
func NewResetPresets() Message { return Message{Type: ResetPresets} }
func NewClose() Message        { return Message{Type: Close} }

func NewSavePreset(p preset.Preset) Message { return Message{Type: SavePreset, Preset: &p} }
func NewDeletePreset(id string) Message     { return Message{Type: DeletePreset, ID: id} }

func NewSelectionChanged(items []item.Graphic) Message {
	return Message{Type: SelectionChanged, Items: items}
}

func NewPresetsLoaded(list []preset.Preset) Message {
	return Message{Type: PresetsLoaded, Presets: list}
}

func NewPresetSaved(p preset.Preset) Message { return Message{Type: PresetSaved, Preset: &p} }
func NewPresetDeleted(id string) Message     { return Message{Type: PresetDeleted, ID: id} }

func NewPresetsReset(list []preset.Preset) Message {
	return Message{Type: PresetsReset, Presets: list}
}

// NewError builds an ERROR event; detail may be empty.
func NewError(message, detail string) Message {
	return Message{Type: Error, Message: message, Detail: detail}
}

// Encode serializes m into a frame. Markup is written without HTML
// escaping.
func Encode(m Message) ([]byte, error) {
	if !m.Type.IsRequest() && !m.Type.IsEvent() {
		return nil, fmt.Errorf("encode %q: %w", m.Type, ErrUnknownMessage)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Type, err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Decode parses a frame and checks that the payload required by its type is
// present.
func Decode(frame []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(frame, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if !m.Type.IsRequest() && !m.Type.IsEvent() {
		return Message{}, fmt.Errorf("decode %q: %w", m.Type, ErrUnknownMessage)
	}
	switch m.Type {
	case SavePreset, PresetSaved:
		if m.Preset == nil {
			return Message{}, fmt.Errorf("%s without preset: %w", m.Type, ErrMalformedMessage)
		}
	case DeletePreset, PresetDeleted:
		if m.ID == "" {
			return Message{}, fmt.Errorf("%s without id: %w", m.Type, ErrMalformedMessage)
		}
	}
	return m, nil
}
