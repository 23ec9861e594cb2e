package session

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap"

	"docent/internal/config"
	"docent/internal/modules/answer"
	"docent/internal/modules/broadcast"
	"docent/internal/modules/guide"
)

func testGuideCfg() config.GuideConfig {
	return config.GuideConfig{
		EnterRadiusM:    120,
		ExitRadiusM:     170,
		TickSeconds:     3600, // tests drive Tick directly; keep the runner quiet
		DefaultLanguage: "cn",
	}
}

func newTestManager(t *testing.T, ctx context.Context) *Manager {
	t.Helper()
	answerer := answer.NewAnswerer(nil, nil, config.AnswerConfig{TopK: 2, MaxDistance: 0.35})
	return NewManager(ctx, newTestIndex(t), guide.NopContentStore{}, answerer, testGuideCfg(), zap.NewNop())
}

func TestManager_CreateGetClose(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := newTestManager(t, ctx)

	s, err := m.Create("tw")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.Lang != "tw" {
		t.Errorf("expected tw, got %q", s.Lang)
	}
	if m.Get(s.ID) != s {
		t.Error("Get must return the created session")
	}
	if m.Len() != 1 {
		t.Errorf("expected 1 session, got %d", m.Len())
	}

	if !m.Close(s.ID) {
		t.Error("Close must succeed for a live session")
	}
	if m.Close(s.ID) {
		t.Error("double Close must report false")
	}
	if m.Get(s.ID) != nil {
		t.Error("closed session must be gone")
	}
}

func TestManager_CreateDefaultsLanguage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := newTestManager(t, ctx)

	s, err := m.Create("")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer m.Close(s.ID)
	if s.Lang != "cn" {
		t.Errorf("expected default cn, got %q", s.Lang)
	}
}

func TestManager_IngestFansOutToAllSessions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := newTestManager(t, ctx)

	s1, _ := m.Create("cn")
	s2, _ := m.Create("tw")
	defer m.Close(s1.ID)
	defer m.Close(s2.ID)

	cmd := broadcast.Command{Name: broadcast.CommandWelcome, IssuedAt: 100}
	if !m.Ingest(cmd) {
		t.Fatal("fan-out must accept a fresh command")
	}

	for _, s := range []*Session{s1, s2} {
		got := s.Arbiter().Consume()
		if got == nil || got.Name != broadcast.CommandWelcome {
			t.Errorf("session %s did not receive the override", s.ID)
		}
	}

	// Redelivery is dropped by every session.
	if m.Ingest(cmd) {
		t.Error("duplicate delivery must be rejected everywhere")
	}
}

func TestManager_IngestWithNoSessions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := newTestManager(t, ctx)

	if m.Ingest(broadcast.Command{Name: broadcast.CommandSOS, IssuedAt: 1}) {
		t.Error("no sessions: nothing can accept")
	}
}

func TestManager_AskUnknownSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := newTestManager(t, ctx)

	if _, err := m.Ask(ctx, "missing", "問題"); err != ErrSessionNotFound {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_AskFailsClosedWithoutIndex(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := newTestManager(t, ctx)

	s, _ := m.Create("cn")
	defer m.Close(s.ID)

	out, err := m.Ask(ctx, s.ID, "這裡的歷史？")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if out.Kind != answer.Unavailable || out.Reason != "index missing" {
		t.Errorf("expected fail-closed unavailable outcome, got %+v", out)
	}
}

func TestManager_RunnersStopOnClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	m := newTestManager(t, ctx)

	s1, _ := m.Create("cn")
	s2, _ := m.Create("cn")
	m.Close(s1.ID)
	m.Close(s2.ID)
	cancel()

	// Runners exit via context; give the scheduler a beat before goleak scans.
	time.Sleep(10 * time.Millisecond)
}
