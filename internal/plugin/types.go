// Package plugin discovers and runs transition hooks: external executables
// that are told about gesture state changes over a JSON stdin/stdout protocol.
package plugin

import (
	"encoding/json"
	"strings"

	"github.com/ayusman/gesturepi/internal/gesture"
)

// EventTransition is the only event currently sent to hooks.
const EventTransition = "transition"

// Manifest describes a plugin's metadata and the states it subscribes to.
type Manifest struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Executable  string `json:"executable"`
	// States lists state names or digit codes; empty subscribes to every state.
	States []string `json:"states,omitempty"`
	// Config is passed through to every request unchanged.
	Config json.RawMessage `json:"config,omitempty"`
}

// Request represents a request sent to a plugin for execution.
type Request struct {
	Event     string          `json:"event"`
	State     string          `json:"state"`
	Code      string          `json:"code"`
	Previous  string          `json:"previous,omitempty"`
	Timestamp int64           `json:"timestamp"` // unix milliseconds
	Config    json.RawMessage `json:"config,omitempty"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Subscribes reports whether the plugin wants to hear about state.
// Unparseable entries in the manifest never match.
func (p *Plugin) Subscribes(state gesture.State) bool {
	if len(p.Manifest.States) == 0 {
		return true
	}
	for _, s := range p.Manifest.States {
		v, err := gesture.Parse(strings.TrimSpace(s))
		if err == nil && v == state {
			return true
		}
	}
	return false
}
