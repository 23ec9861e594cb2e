// README: Per-visitor session: fix mailbox, tick reducer, background runner.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"docent/internal/modules/broadcast"
	"docent/internal/modules/guide"
	"docent/internal/modules/poi"
	"docent/internal/modules/visit"
	"docent/internal/types"
)

// LocationSource supplies at most one new fix per poll. Absence and failure
// are the same thing to the caller: a nil fix, which the tick treats as a
// no-op.
type LocationSource interface {
	Poll(ctx context.Context) *poi.Fix
}

// Mailbox is the HTTP-fed LocationSource: the client pushes fixes, the tick
// loop drains them. Keeps only the newest fix; a fix with an observation
// time at or before the last accepted one is dropped as a stale duplicate.
type Mailbox struct {
	mu       sync.Mutex
	pending  *poi.Fix
	lastSeen time.Time
}

// Offer stores a fix for the next tick. Returns false for stale or
// duplicate fixes.
func (m *Mailbox) Offer(fix poi.Fix) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !fix.ObservedAt.After(m.lastSeen) {
		return false
	}
	m.lastSeen = fix.ObservedAt
	f := fix
	m.pending = &f
	return true
}

// Poll hands out the pending fix once; subsequent polls return nil until a
// fresh fix arrives.
func (m *Mailbox) Poll(_ context.Context) *poi.Fix {
	m.mu.Lock()
	defer m.mu.Unlock()
	fix := m.pending
	m.pending = nil
	return fix
}

// TickResult is the UI-facing outcome of one tick.
type TickResult struct {
	At          time.Time           `json:"at"`
	CurrentSpot types.ID            `json:"current_spot,omitempty"`
	SpotName    string              `json:"spot_name,omitempty"`
	Intro       string              `json:"intro,omitempty"`
	Events      []visit.Event       `json:"events,omitempty"`
	ContentKey  string              `json:"content_key,omitempty"`
	ContentURL  string              `json:"content_url,omitempty"`
	Override    *broadcast.Command  `json:"override,omitempty"`
}

// Session owns all per-visitor state. The machine and dispatch record are
// only touched from the tick loop; the mailbox and arbiter are the two
// concurrency-safe handoff points fed by other goroutines.
type Session struct {
	ID   types.ID
	Lang string

	index      *poi.Index
	machine    *visit.Machine
	dispatcher *guide.Dispatcher
	content    guide.ContentStore
	source     LocationSource
	arbiter    *broadcast.Arbiter
	record     guide.Record
	log        *zap.Logger

	mu   sync.Mutex
	last TickResult
}

// Arbiter exposes the session's broadcast arbiter for feed fan-out.
func (s *Session) Arbiter() *broadcast.Arbiter {
	return s.arbiter
}

// OfferFix feeds a client-reported fix into the mailbox.
func (s *Session) OfferFix(fix poi.Fix) bool {
	mb, ok := s.source.(*Mailbox)
	if !ok {
		return false
	}
	return mb.Offer(fix)
}

// Snapshot returns the most recent tick result.
func (s *Session) Snapshot() TickResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// CurrentSpotName returns the name of the spot the session is at, or "".
// Used to frame free-text questions; reads the last tick snapshot so it
// never races the tick loop.
func (s *Session) CurrentSpotName() string {
	return s.Snapshot().SpotName
}

// Tick runs one polling cycle: poll fix, advance the visit machine,
// dispatch content on enter, check for a broadcast override. Never blocks
// beyond the poll's own context.
//
// An active override pre-empts content dispatch for this tick only. Visit
// state still advances, and the dispatch record stays eligible, so the
// suppressed guide content fires on the next uninterrupted tick of the same
// visit.
func (s *Session) Tick(ctx context.Context) TickResult {
	fix := s.source.Poll(ctx)
	events, err := s.machine.Advance(fix)
	if err != nil {
		// Invalid fix: logged and treated exactly like a missing one.
		s.log.Warn("rejected fix", zap.String("session", string(s.ID)), zap.Error(err))
	}
	for _, e := range events {
		if e.Kind == visit.EventExit {
			s.record.Reset()
		}
	}

	result := TickResult{
		At:          time.Now(),
		CurrentSpot: s.machine.Current(),
		Events:      events,
		Override:    s.arbiter.Consume(),
	}

	if spot := s.index.Get(result.CurrentSpot); spot != nil {
		result.SpotName = spot.Name
		result.Intro = introFor(spot, s.Lang, s.dispatcher)

		if result.Override == nil && s.record.ShouldTrigger(spot.ID) {
			key := s.dispatcher.OnEnter(spot, s.Lang)
			result.ContentKey = key
			if url, ok := s.content.ResolveURL(ctx, key); ok {
				result.ContentURL = url
			}
			if key != guide.NoContent {
				s.log.Info("guide content triggered",
					zap.String("session", string(s.ID)),
					zap.String("spot", string(spot.ID)),
					zap.String("content_key", key))
			}
		}
	}

	s.mu.Lock()
	s.last = result
	s.mu.Unlock()
	return result
}

// introFor mirrors the dispatcher's language fallback for the intro text.
func introFor(spot *poi.Spot, lang string, d *guide.Dispatcher) string {
	if text, ok := spot.Intro[lang]; ok && text != "" {
		return text
	}
	return spot.Intro[d.DefaultLanguage()]
}

// run drives the tick loop at a fixed cadence until the context is cancelled.
func (s *Session) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}
