// Package gesture provides the gesture states published by gesturepi and the
// classifier that maps a detected hand and its finger gap count onto them.
package gesture

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownState is returned when a code or name does not identify a State.
var ErrUnknownState = errors.New("unknown gesture state")

// State is the coarse hand gesture recognized in a frame.
type State int

const (
	// NoHand means no sufficiently large foreground region was found.
	NoHand State = iota
	// ClosedFist means a hand was found with too few finger gaps.
	ClosedFist
	// OpenHand means a hand was found with spread fingers.
	OpenHand
)

// States lists every valid state in code order.
var States = []State{NoHand, ClosedFist, OpenHand}

// Valid reports whether s is one of the three defined states.
func (s State) Valid() bool {
	return s >= NoHand && s <= OpenHand
}

// Code returns the single ASCII digit used in the persisted state record.
func (s State) Code() byte {
	return byte('0' + s)
}

// String returns the snake_case name of the state.
func (s State) String() string {
	switch s {
	case NoHand:
		return "no_hand"
	case ClosedFist:
		return "closed_fist"
	case OpenHand:
		return "open_hand"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ParseCode converts a persisted digit back into a State.
func ParseCode(c byte) (State, error) {
	s := State(int(c) - '0')
	if c < '0' || !s.Valid() {
		return NoHand, fmt.Errorf("%w: code %q", ErrUnknownState, c)
	}
	return s, nil
}

// Parse accepts either a digit code ("2") or a state name ("open_hand").
func Parse(v string) (State, error) {
	v = strings.TrimSpace(strings.ToLower(v))
	if len(v) == 1 {
		return ParseCode(v[0])
	}
	for _, s := range States {
		if s.String() == v {
			return s, nil
		}
	}
	return NoHand, fmt.Errorf("%w: %q", ErrUnknownState, v)
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownState, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText accepts anything Parse accepts.
func (s *State) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
