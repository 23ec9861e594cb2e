// README: Geofence visit state machine with enter/exit hysteresis.
package visit

import (
	"errors"
	"time"

	"docent/internal/modules/poi"
	"docent/internal/types"
)

// EventKind discriminates visit transitions.
type EventKind string

const (
	EventEnter EventKind = "enter"
	EventExit  EventKind = "exit"
)

// Event is emitted exactly once per transition. For any spot, enters and
// exits strictly alternate, starting with an enter.
type Event struct {
	Kind   EventKind
	SpotID types.ID
	Meters float64
	At     time.Time
}

var ErrBadRadii = errors.New("enter radius must be smaller than exit radius")

// Machine tracks which single spot a session is currently at.
//
// Two distinct radii give the geofence hysteresis: a session enters a spot
// when it comes within the enter radius and only leaves once it moves past
// the larger exit radius. A single shared radius would flap on GPS jitter
// right at the boundary.
//
// Not safe for concurrent use; each session owns exactly one Machine and
// advances it from a single goroutine.
type Machine struct {
	index  *poi.Index
	enterM float64
	exitM  float64

	current types.ID // "" while outside every geofence
	lastFix *poi.Fix
}

func NewMachine(index *poi.Index, enterM, exitM float64) (*Machine, error) {
	if enterM <= 0 || enterM >= exitM {
		return nil, ErrBadRadii
	}
	return &Machine{index: index, enterM: enterM, exitM: exitM}, nil
}

// Current returns the spot the session is inside, or "" when outside.
func (m *Machine) Current() types.ID {
	return m.current
}

// Inside reports whether the session is currently at a spot.
func (m *Machine) Inside() bool {
	return m.current != ""
}

// LastFix returns the most recent valid fix, or nil before the first one.
func (m *Machine) LastFix() *poi.Fix {
	return m.lastFix
}

// Advance consumes one position fix and returns the transition events it
// caused, if any.
//
// A nil fix means the sensor had nothing this tick: state is preserved
// unchanged and no events are emitted. Out-of-range coordinates are reported
// as poi.ErrInvalidFix and otherwise treated exactly like a missing fix, so
// a glitching sensor can never force a spurious exit.
func (m *Machine) Advance(fix *poi.Fix) ([]Event, error) {
	if fix == nil {
		return nil, nil
	}
	if !fix.Position.Valid() {
		return nil, poi.ErrInvalidFix
	}

	if m.current == "" {
		return m.advanceOutside(fix)
	}
	return m.advanceInside(fix)
}

func (m *Machine) advanceOutside(fix *poi.Fix) ([]Event, error) {
	id, dist, err := m.index.Nearest(*fix)
	if err != nil {
		return nil, err
	}
	m.lastFix = fix
	if dist > m.enterM {
		return nil, nil
	}
	m.current = id
	return []Event{{Kind: EventEnter, SpotID: id, Meters: dist, At: fix.ObservedAt}}, nil
}

func (m *Machine) advanceInside(fix *poi.Fix) ([]Event, error) {
	// Distance to the spot we are inside, not the nearest overall: a fix that
	// happens to drift closer to a neighbouring spot must not reassign the
	// visit while we are still within the current geofence.
	dist, err := m.index.DistanceTo(*fix, m.current)
	if err != nil {
		return nil, err
	}
	m.lastFix = fix
	if dist < m.exitM {
		return nil, nil
	}
	exited := m.current
	m.current = ""
	return []Event{{Kind: EventExit, SpotID: exited, Meters: dist, At: fix.ObservedAt}}, nil
}
