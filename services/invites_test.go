package services

import (
	"context"
	"testing"
	"time"

	"clan-economy-bot/platform"
)

func newTestInvites(t *testing.T) (*InviteService, *EconomyService, *fakePlatform) {
	t.Helper()
	econ := newTestEconomy(t)
	chat := &fakePlatform{}
	s, err := NewInviteService(DefaultConfig(), econ.store, econ, chat)
	if err != nil {
		t.Fatalf("NewInviteService: %v", err)
	}
	return s, econ, chat
}

func TestHandleJoinAttribution(t *testing.T) {
	s, _, chat := newTestInvites(t)
	ctx := context.Background()

	chat.invites = []platform.InviteUse{
		{Code: "abc", Uses: 5, InviterID: "inviter"},
		{Code: "xyz", Uses: 2, InviterID: "other"},
	}
	if err := s.PrimeSnapshot(ctx, "g1"); err != nil {
		t.Fatalf("PrimeSnapshot: %v", err)
	}

	chat.invites[0].Uses = 6
	if err := s.HandleJoin(ctx, "g1", "newbie"); err != nil {
		t.Fatalf("HandleJoin: %v", err)
	}
	if s.PendingCount() != 1 {
		t.Fatalf("pending=%d want=1", s.PendingCount())
	}
	rec, ok := s.pending["newbie"]
	if !ok || rec.InviterID != "inviter" || rec.GuildID != "g1" {
		t.Fatalf("pending record=%+v ok=%v", rec, ok)
	}

	// A second join event for the same member with no delta changes nothing.
	if err := s.HandleJoin(ctx, "g1", "newbie"); err != nil {
		t.Fatalf("HandleJoin repeat: %v", err)
	}
	if s.PendingCount() != 1 {
		t.Fatalf("pending after repeat=%d want=1", s.PendingCount())
	}
}

func TestHandleJoinNoDelta(t *testing.T) {
	s, _, chat := newTestInvites(t)
	ctx := context.Background()

	chat.invites = []platform.InviteUse{{Code: "abc", Uses: 5, InviterID: "inviter"}}
	s.PrimeSnapshot(ctx, "g1")

	if err := s.HandleJoin(ctx, "g1", "newbie"); err != nil {
		t.Fatalf("HandleJoin: %v", err)
	}
	if s.PendingCount() != 0 {
		t.Fatalf("no-delta join attributed: pending=%d", s.PendingCount())
	}
}

func TestHandleJoinAmbiguousDelta(t *testing.T) {
	s, _, chat := newTestInvites(t)
	ctx := context.Background()

	chat.invites = []platform.InviteUse{
		{Code: "abc", Uses: 5, InviterID: "a"},
		{Code: "xyz", Uses: 2, InviterID: "b"},
	}
	s.PrimeSnapshot(ctx, "g1")

	chat.invites[0].Uses = 6
	chat.invites[1].Uses = 3
	if err := s.HandleJoin(ctx, "g1", "newbie"); err != nil {
		t.Fatalf("HandleJoin: %v", err)
	}
	if s.PendingCount() != 0 {
		t.Fatalf("ambiguous delta attributed: pending=%d", s.PendingCount())
	}

	// The snapshot still advanced, so the next clean bump attributes normally.
	chat.invites[1].Uses = 4
	if err := s.HandleJoin(ctx, "g1", "late"); err != nil {
		t.Fatalf("HandleJoin: %v", err)
	}
	if rec := s.pending["late"]; rec.InviterID != "b" {
		t.Fatalf("post-ambiguity attribution=%+v", rec)
	}
}

func TestHandleJoinSelfInvite(t *testing.T) {
	s, _, chat := newTestInvites(t)
	ctx := context.Background()

	chat.invites = []platform.InviteUse{{Code: "abc", Uses: 0, InviterID: "loner"}}
	s.PrimeSnapshot(ctx, "g1")

	chat.invites[0].Uses = 1
	if err := s.HandleJoin(ctx, "g1", "loner"); err != nil {
		t.Fatalf("HandleJoin: %v", err)
	}
	if s.PendingCount() != 0 {
		t.Fatalf("self invite attributed: pending=%d", s.PendingCount())
	}
}

func TestSweepGrantsAfterRetention(t *testing.T) {
	s, econ, chat := newTestInvites(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	chat.invites = []platform.InviteUse{{Code: "abc", Uses: 0, InviterID: "inviter"}}
	s.PrimeSnapshot(ctx, "g1")
	chat.invites[0].Uses = 1
	s.HandleJoin(ctx, "g1", "newbie")

	// Not due yet.
	s.now = func() time.Time { return base.Add(6 * 24 * time.Hour) }
	if err := s.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if s.PendingCount() != 1 || econ.Balance("inviter") != 0 {
		t.Fatalf("early sweep acted: pending=%d balance=%d", s.PendingCount(), econ.Balance("inviter"))
	}

	s.now = func() time.Time { return base.Add(7 * 24 * time.Hour) }
	if err := s.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if s.PendingCount() != 0 {
		t.Fatalf("pending after sweep=%d want=0", s.PendingCount())
	}
	reward := econ.Balance("inviter")
	if reward < 10000 || reward > 30000 {
		t.Fatalf("reward=%d want in [10000,30000]", reward)
	}
	if len(chat.dms["inviter"]) != 1 {
		t.Fatalf("dms sent=%d want=1", len(chat.dms["inviter"]))
	}

	// The record is gone; another sweep pays nothing more.
	if err := s.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if econ.Balance("inviter") != reward {
		t.Fatalf("second sweep paid again: %d want=%d", econ.Balance("inviter"), reward)
	}
}

func TestSweepDiscardsDeparted(t *testing.T) {
	s, econ, chat := newTestInvites(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	chat.invites = []platform.InviteUse{{Code: "abc", Uses: 0, InviterID: "inviter"}}
	s.PrimeSnapshot(ctx, "g1")
	chat.invites[0].Uses = 1
	s.HandleJoin(ctx, "g1", "flake")

	chat.absent = map[string]bool{"flake": true}
	s.now = func() time.Time { return base.Add(8 * 24 * time.Hour) }
	if err := s.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if s.PendingCount() != 0 {
		t.Fatalf("pending after discard=%d want=0", s.PendingCount())
	}
	if econ.Balance("inviter") != 0 {
		t.Fatalf("departed member still paid: %d", econ.Balance("inviter"))
	}
}

func TestPendingSurvivesRestart(t *testing.T) {
	s, econ, chat := newTestInvites(t)
	ctx := context.Background()

	chat.invites = []platform.InviteUse{{Code: "abc", Uses: 0, InviterID: "inviter"}}
	s.PrimeSnapshot(ctx, "g1")
	chat.invites[0].Uses = 1
	s.HandleJoin(ctx, "g1", "newbie")

	reloaded, err := NewInviteService(DefaultConfig(), econ.store, econ, chat)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.PendingCount() != 1 {
		t.Fatalf("reloaded pending=%d want=1", reloaded.PendingCount())
	}
}
