// README: Spot (point of interest) model and position fix.
package poi

import (
	"time"

	"docent/internal/types"
)

// Spot is one guided point of interest. Loaded once at startup and never
// mutated afterwards; safe to share read-only across sessions.
type Spot struct {
	ID       types.ID
	Name     string
	Position types.Point
	// Intro holds the guide text per language tag ("cn", "tw").
	Intro map[string]string
	// Content maps a language tag to the audio content key in the blob store.
	Content map[string]string
}

// Fix is a single position report from the location sensor. Transient; the
// session keeps at most the current and previous fix.
type Fix struct {
	Position   types.Point
	ObservedAt time.Time
}
