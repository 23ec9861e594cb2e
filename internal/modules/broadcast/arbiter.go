// README: Broadcast override arbitration with monotonic de-duplication.
package broadcast

import (
	"sync"
	"time"
)

// Well-known override commands an operator can broadcast.
const (
	CommandSOS     = "SOS"
	CommandWelcome = "WELCOME"
	CommandClosing = "CLOSING"
)

// Command is one override instruction from the operator feed. IssuedAt is
// unix milliseconds at the publisher and is the only de-duplication key the
// at-least-once channel needs.
type Command struct {
	Name     string `json:"command"`
	IssuedAt int64  `json:"issued_at"`
}

// KnownCommand reports whether name is one of the supported overrides.
func KnownCommand(name string) bool {
	switch name {
	case CommandSOS, CommandWelcome, CommandClosing:
		return true
	}
	return false
}

// NewCommand stamps a command with the current time.
func NewCommand(name string) Command {
	return Command{Name: name, IssuedAt: time.Now().UnixMilli()}
}

// Arbiter guards a session against duplicate and out-of-order broadcast
// delivery. It retains only the highest issue timestamp seen so far, so a
// replayed or stale command is dropped without needing message IDs.
//
// Safe for concurrent ingestion from the feed goroutine while the session
// tick loop consumes.
type Arbiter struct {
	mu         sync.Mutex
	lastSeenAt int64
	active     *Command
}

// Ingest accepts the command only if it was issued strictly after everything
// seen so far. Returns false for duplicates and stale replays.
func (a *Arbiter) Ingest(cmd Command) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if cmd.IssuedAt <= a.lastSeenAt {
		return false
	}
	a.lastSeenAt = cmd.IssuedAt
	c := cmd
	a.active = &c
	return true
}

// Consume returns the pending override, clearing it so each accepted command
// pre-empts exactly one presentation cycle. Nil when nothing is pending.
func (a *Arbiter) Consume() *Command {
	a.mu.Lock()
	defer a.mu.Unlock()
	cmd := a.active
	a.active = nil
	return cmd
}

// LastSeenAt returns the highest issue timestamp accepted so far.
func (a *Arbiter) LastSeenAt() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastSeenAt
}
