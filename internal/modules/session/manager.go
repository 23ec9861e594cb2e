// README: Session manager: lifecycle, broadcast fan-out, question routing.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docent/internal/config"
	"docent/internal/modules/answer"
	"docent/internal/modules/broadcast"
	"docent/internal/modules/guide"
	"docent/internal/modules/poi"
	"docent/internal/modules/visit"
	"docent/internal/types"
)

var ErrSessionNotFound = errors.New("session not found")

// Manager owns the session table. The spot index, content store, and
// answerer are shared read-only across sessions; everything mutable is
// per-session.
type Manager struct {
	index      *poi.Index
	dispatcher *guide.Dispatcher
	content    guide.ContentStore
	answerer   *answer.Answerer
	cfg        config.GuideConfig
	log        *zap.Logger

	rootCtx context.Context

	mu       sync.RWMutex
	sessions map[types.ID]*Session
	cancels  map[types.ID]context.CancelFunc
}

// NewManager wires shared dependencies. rootCtx bounds every session runner;
// cancelling it tears the whole table down.
func NewManager(
	rootCtx context.Context,
	index *poi.Index,
	content guide.ContentStore,
	answerer *answer.Answerer,
	cfg config.GuideConfig,
	log *zap.Logger,
) *Manager {
	return &Manager{
		index:      index,
		dispatcher: guide.NewDispatcher(cfg.DefaultLanguage),
		content:    content,
		answerer:   answerer,
		cfg:        cfg,
		log:        log,
		rootCtx:    rootCtx,
		sessions:   make(map[types.ID]*Session),
		cancels:    make(map[types.ID]context.CancelFunc),
	}
}

// Create starts a new session with its own tick runner.
func (m *Manager) Create(lang string) (*Session, error) {
	if lang == "" {
		lang = m.cfg.DefaultLanguage
	}
	machine, err := visit.NewMachine(m.index, m.cfg.EnterRadiusM, m.cfg.ExitRadiusM)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:         types.ID(uuid.NewString()),
		Lang:       lang,
		index:      m.index,
		machine:    machine,
		dispatcher: m.dispatcher,
		content:    m.content,
		source:     &Mailbox{},
		arbiter:    &broadcast.Arbiter{},
		log:        m.log,
	}

	ctx, cancel := context.WithCancel(m.rootCtx)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.cancels[s.ID] = cancel
	m.mu.Unlock()

	go s.run(ctx, time.Duration(m.cfg.TickSeconds)*time.Second)

	m.log.Info("session created",
		zap.String("session", string(s.ID)), zap.String("lang", lang))
	return s, nil
}

// Get returns the session, or nil.
func (m *Manager) Get(id types.ID) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}

// Close tears a session down. All state is session-scoped, so teardown is
// cancelling the runner and dropping the object.
func (m *Manager) Close(id types.ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	cancel, ok := m.cancels[id]
	if !ok {
		return false
	}
	cancel()
	delete(m.cancels, id)
	delete(m.sessions, id)
	m.log.Info("session closed", zap.String("session", string(id)))
	return true
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Ingest fans a broadcast command out to every live session's arbiter.
// Implements broadcast.Sink. Returns true if any session accepted it.
func (m *Manager) Ingest(cmd broadcast.Command) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	accepted := false
	for _, s := range m.sessions {
		if s.Arbiter().Ingest(cmd) {
			accepted = true
		}
	}
	return accepted
}

// Ask answers a free-text question for the session, framed by the spot the
// visitor is currently at. Runs on the caller's goroutine and never touches
// visit state, so a slow generation call cannot stall any tick loop.
func (m *Manager) Ask(ctx context.Context, id types.ID, question string) (answer.Outcome, error) {
	s := m.Get(id)
	if s == nil {
		return answer.Outcome{}, ErrSessionNotFound
	}
	return m.answerer.Answer(ctx, question, s.CurrentSpotName())
}
