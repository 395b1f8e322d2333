// Package main provides a keyboard hook for Linux.
// It presses a configured key, via xdotool, whenever the gesture state changes.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Request represents the input from the plugin executor.
type Request struct {
	Event     string          `json:"event"`
	State     string          `json:"state"`
	Code      string          `json:"code"`
	Previous  string          `json:"previous,omitempty"`
	Timestamp int64           `json:"timestamp"`
	Config    json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config maps state names to xdotool key combinations, e.g. "open_hand": "space"
// or "closed_fist": "ctrl+w".
type Config struct {
	Keys map[string]string `json:"keys"`
}

// modifierMap maps user-friendly modifier names to xdotool names.
var modifierMap = map[string]string{
	"control": "ctrl",
	"ctrl":    "ctrl",
	"alt":     "alt",
	"option":  "alt",
	"shift":   "shift",
	"super":   "super",
	"cmd":     "super",
	"command": "super",
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	key, err := keyFor(req)
	if err != nil {
		writeErrorResponse(err.Error())
		return
	}
	if key == "" {
		writeResponse(Response{Success: true, Data: json.RawMessage(`{"pressed":null}`)})
		return
	}

	if err := pressKey(key); err != nil {
		writeErrorResponse(fmt.Sprintf("press %s failed: %v", key, err))
		return
	}

	data, _ := json.Marshal(map[string]string{"pressed": key})
	writeResponse(Response{Success: true, Data: data})
}

// keyFor returns the normalized key combination bound to the request's state, or ""
// when the state has no binding.
func keyFor(req Request) (string, error) {
	if req.Event != "transition" {
		return "", fmt.Errorf("unknown event: %s", req.Event)
	}

	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return "", fmt.Errorf("failed to parse config: %w", err)
		}
	}

	combo, ok := cfg.Keys[req.State]
	if !ok {
		return "", nil
	}
	return normalizeKey(combo)
}

// normalizeKey rewrites modifier aliases into xdotool's vocabulary.
func normalizeKey(combo string) (string, error) {
	parts := strings.Split(strings.TrimSpace(combo), "+")
	key := strings.TrimSpace(parts[len(parts)-1])
	if key == "" {
		return "", fmt.Errorf("key is required")
	}

	out := make([]string, 0, len(parts))
	for _, mod := range parts[:len(parts)-1] {
		m, ok := modifierMap[strings.ToLower(strings.TrimSpace(mod))]
		if !ok {
			return "", fmt.Errorf("unknown modifier: %s", mod)
		}
		out = append(out, m)
	}
	return strings.Join(append(out, key), "+"), nil
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	writeResponse(Response{
		Success: false,
		Error:   errMsg,
	})
}

func writeResponse(resp Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}

// pressKey sends the key to the focused X11 window.
func pressKey(key string) error {
	cmd := exec.Command("xdotool", "key", "--clearmodifiers", key)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
