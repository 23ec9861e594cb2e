// README: Content dispatch on visit enter, at most once per contiguous visit.
package guide

import (
	"docent/internal/modules/poi"
	"docent/internal/types"
)

// NoContent is the sentinel returned when a spot has no guide content in any
// acceptable language. Missing content is a user-visible condition, not an
// error.
const NoContent = ""

// Dispatcher resolves which content key to play when a visit starts.
type Dispatcher struct {
	defaultLang string
}

func NewDispatcher(defaultLang string) *Dispatcher {
	return &Dispatcher{defaultLang: defaultLang}
}

// DefaultLanguage returns the configured fallback language tag.
func (d *Dispatcher) DefaultLanguage() string {
	return d.defaultLang
}

// OnEnter resolves the content key for the entered spot in the requested
// language, falling back to the default language, then to NoContent.
func (d *Dispatcher) OnEnter(spot *poi.Spot, lang string) string {
	if spot == nil {
		return NoContent
	}
	if key, ok := spot.Content[lang]; ok && key != "" {
		return key
	}
	if key, ok := spot.Content[d.defaultLang]; ok && key != "" {
		return key
	}
	return NoContent
}

// Record tracks the one spot whose content was already triggered during the
// current visit. Reset on exit so a genuine re-entry triggers again.
type Record struct {
	lastTriggered types.ID
}

// ShouldTrigger reports whether content for the spot may fire, and marks it
// as fired. Repeated calls for the same contiguous visit return false.
func (r *Record) ShouldTrigger(spot types.ID) bool {
	if spot == "" || r.lastTriggered == spot {
		return false
	}
	r.lastTriggered = spot
	return true
}

// Reset clears trigger eligibility; called when the visit ends.
func (r *Record) Reset() {
	r.lastTriggered = ""
}

// LastTriggered returns the spot whose content fired during this visit, or "".
func (r *Record) LastTriggered() types.ID {
	return r.lastTriggered
}
