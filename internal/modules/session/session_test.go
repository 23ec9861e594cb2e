package session

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"docent/internal/modules/broadcast"
	"docent/internal/modules/guide"
	"docent/internal/modules/poi"
	"docent/internal/modules/visit"
	"docent/internal/types"
)

var testSpotPos = types.Point{Lat: 23.6960, Lng: 120.5360}

const metersPerLatDegree = 111194.9

func newTestIndex(t *testing.T) *poi.Index {
	t.Helper()
	idx, err := poi.NewIndex([]*poi.Spot{
		{
			ID:       "library",
			Name:     "圖書館",
			Position: testSpotPos,
			Intro:    map[string]string{"cn": "圖書館簡介", "tw": "圖書館簡介（台語）"},
			Content: map[string]string{
				"cn": "audio/library_cn.mp3",
				"tw": "audio/library_tw.mp3",
			},
		},
	})
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	return idx
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	idx := newTestIndex(t)
	machine, err := visit.NewMachine(idx, 120, 170)
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
	return &Session{
		ID:         "test-session",
		Lang:       "cn",
		index:      idx,
		machine:    machine,
		dispatcher: guide.NewDispatcher("cn"),
		content:    guide.NopContentStore{},
		source:     &Mailbox{},
		arbiter:    &broadcast.Arbiter{},
		log:        zap.NewNop(),
	}
}

func offerAtMeters(t *testing.T, s *Session, meters float64, at time.Time) {
	t.Helper()
	ok := s.OfferFix(poi.Fix{
		Position: types.Point{
			Lat: testSpotPos.Lat + meters/metersPerLatDegree,
			Lng: testSpotPos.Lng,
		},
		ObservedAt: at,
	})
	if !ok {
		t.Fatalf("fix at %.0fm was rejected", meters)
	}
}

func TestMailbox_DropsStaleAndDuplicateFixes(t *testing.T) {
	var mb Mailbox
	now := time.Now()

	if !mb.Offer(poi.Fix{ObservedAt: now}) {
		t.Fatal("fresh fix must be accepted")
	}
	if mb.Offer(poi.Fix{ObservedAt: now}) {
		t.Error("duplicate timestamp must be dropped")
	}
	if mb.Offer(poi.Fix{ObservedAt: now.Add(-time.Second)}) {
		t.Error("older fix must be dropped")
	}
	if !mb.Offer(poi.Fix{ObservedAt: now.Add(time.Second)}) {
		t.Error("newer fix must be accepted")
	}

	if fix := mb.Poll(context.Background()); fix == nil {
		t.Fatal("expected the pending fix")
	}
	if fix := mb.Poll(context.Background()); fix != nil {
		t.Error("second poll must return nil until a fresh fix arrives")
	}
}

func TestTick_EnterDispatchesOnce(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()
	now := time.Now()

	offerAtMeters(t, s, 50, now)
	res := s.Tick(ctx)

	if res.CurrentSpot != "library" {
		t.Fatalf("expected inside library, got %q", res.CurrentSpot)
	}
	if res.ContentKey != "audio/library_cn.mp3" {
		t.Fatalf("expected dispatch on enter, got key %q", res.ContentKey)
	}
	if res.Intro != "圖書館簡介" {
		t.Errorf("expected intro text, got %q", res.Intro)
	}

	// Further ticks while still inside: no re-dispatch, with or without fixes.
	res = s.Tick(ctx)
	if res.ContentKey != "" {
		t.Errorf("tick without a fix re-dispatched: %q", res.ContentKey)
	}
	offerAtMeters(t, s, 60, now.Add(time.Second))
	res = s.Tick(ctx)
	if res.ContentKey != "" {
		t.Errorf("tick with an in-fence fix re-dispatched: %q", res.ContentKey)
	}
	if res.CurrentSpot != "library" {
		t.Errorf("expected to remain inside, got %q", res.CurrentSpot)
	}
}

func TestTick_MissingFixesLeaveStateUntouched(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	offerAtMeters(t, s, 50, time.Now())
	s.Tick(ctx)
	before := s.machine.Current()
	triggered := s.record.LastTriggered()

	for i := 0; i < 10; i++ {
		res := s.Tick(ctx)
		if len(res.Events) != 0 {
			t.Fatalf("tick %d emitted events with no fix: %v", i, res.Events)
		}
	}

	if s.machine.Current() != before {
		t.Error("visit state changed across fix-less ticks")
	}
	if s.record.LastTriggered() != triggered {
		t.Error("dispatch record changed across fix-less ticks")
	}
}

func TestTick_ExitThenReEnterRedispatches(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()
	now := time.Now()

	offerAtMeters(t, s, 50, now)
	if res := s.Tick(ctx); res.ContentKey == "" {
		t.Fatal("expected dispatch on first enter")
	}

	offerAtMeters(t, s, 200, now.Add(time.Second))
	res := s.Tick(ctx)
	if len(res.Events) != 1 || res.Events[0].Kind != visit.EventExit {
		t.Fatalf("expected exit event, got %v", res.Events)
	}
	if res.CurrentSpot != "" {
		t.Errorf("expected outside after exit, got %q", res.CurrentSpot)
	}

	offerAtMeters(t, s, 50, now.Add(2*time.Second))
	res = s.Tick(ctx)
	if res.ContentKey != "audio/library_cn.mp3" {
		t.Errorf("re-entry after a real exit must dispatch again, got %q", res.ContentKey)
	}
}

func TestTick_OverridePreemptsDispatchForOneTick(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	if !s.Arbiter().Ingest(broadcast.Command{Name: broadcast.CommandSOS, IssuedAt: 1}) {
		t.Fatal("ingest failed")
	}
	offerAtMeters(t, s, 50, time.Now())

	res := s.Tick(ctx)
	if res.Override == nil || res.Override.Name != broadcast.CommandSOS {
		t.Fatalf("expected SOS override, got %v", res.Override)
	}
	if res.ContentKey != "" {
		t.Error("override must pre-empt content dispatch for the tick")
	}
	if res.CurrentSpot != "library" {
		t.Error("override must not alter visit state")
	}

	// Next tick: override consumed, deferred dispatch fires.
	res = s.Tick(ctx)
	if res.Override != nil {
		t.Error("override must be consumed after one presentation cycle")
	}
	if res.ContentKey != "audio/library_cn.mp3" {
		t.Errorf("suppressed dispatch should fire on the next tick, got %q", res.ContentKey)
	}
}

func TestTick_LanguageFallback(t *testing.T) {
	s := newTestSession(t)
	s.Lang = "en" // not provisioned; falls back to cn
	offerAtMeters(t, s, 50, time.Now())

	res := s.Tick(context.Background())
	if res.ContentKey != "audio/library_cn.mp3" {
		t.Errorf("expected cn fallback, got %q", res.ContentKey)
	}
	if res.Intro != "圖書館簡介" {
		t.Errorf("expected cn intro fallback, got %q", res.Intro)
	}
}

func TestTick_InvalidFixIsNoOp(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	offerAtMeters(t, s, 50, time.Now())
	s.Tick(ctx)

	// Bypass the mailbox validity of coordinates: push a malformed fix.
	if !s.OfferFix(poi.Fix{
		Position:   types.Point{Lat: 95, Lng: 500},
		ObservedAt: time.Now().Add(time.Minute),
	}) {
		t.Fatal("mailbox should accept by timestamp; validation happens in the machine")
	}
	res := s.Tick(ctx)
	if len(res.Events) != 0 {
		t.Fatalf("invalid fix emitted events: %v", res.Events)
	}
	if res.CurrentSpot != "library" {
		t.Error("invalid fix must not alter visit state")
	}
}
