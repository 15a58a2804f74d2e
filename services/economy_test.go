package services

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"clan-economy-bot/storage"
)

func newTestEconomy(t *testing.T) *EconomyService {
	t.Helper()
	s, err := NewEconomyService(DefaultConfig(), storage.NewMemoryStore())
	if err != nil {
		t.Fatalf("NewEconomyService: %v", err)
	}
	s.rng = rand.New(rand.NewSource(1))
	return s
}

func TestCreditDebit(t *testing.T) {
	s := newTestEconomy(t)

	if bal := s.Balance("u1"); bal != 0 {
		t.Fatalf("fresh balance=%d want=0", bal)
	}
	if _, err := s.Credit("u1", 500); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if bal, err := s.Debit("u1", 200); err != nil || bal != 300 {
		t.Fatalf("Debit: bal=%d err=%v", bal, err)
	}

	_, err := s.Debit("u1", 301)
	if !IsKind(err, KindInsufficientFunds) {
		t.Fatalf("over-debit err=%v want InsufficientFunds", err)
	}
	if bal := s.Balance("u1"); bal != 300 {
		t.Fatalf("balance after rejected debit=%d want=300", bal)
	}

	if _, err := s.Credit("u1", 0); !IsKind(err, KindValidation) {
		t.Fatalf("zero credit err=%v want Validation", err)
	}
	if _, err := s.Debit("u1", -5); !IsKind(err, KindValidation) {
		t.Fatalf("negative debit err=%v want Validation", err)
	}
}

func TestAdminAdjustFloorsAtZero(t *testing.T) {
	s := newTestEconomy(t)

	if bal, err := s.AdminAdjust("u1", 1000); err != nil || bal != 1000 {
		t.Fatalf("positive adjust: bal=%d err=%v", bal, err)
	}
	if bal, err := s.AdminAdjust("u1", -5000); err != nil || bal != 0 {
		t.Fatalf("negative adjust should floor at zero: bal=%d err=%v", bal, err)
	}
	if _, err := s.AdminAdjust("u1", 0); !IsKind(err, KindValidation) {
		t.Fatalf("zero adjust err=%v want Validation", err)
	}
}

func TestTransfer(t *testing.T) {
	s := newTestEconomy(t)
	s.Credit("a", 1000)

	if err := s.Transfer("a", "b", 400); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if got := s.Balance("a") + s.Balance("b"); got != 1000 {
		t.Fatalf("total after transfer=%d want=1000", got)
	}
	if s.Balance("b") != 400 {
		t.Fatalf("recipient balance=%d want=400", s.Balance("b"))
	}

	if err := s.Transfer("a", "a", 100); !IsKind(err, KindValidation) {
		t.Fatalf("self transfer err=%v want Validation", err)
	}
	if err := s.Transfer("a", "b", 601); !IsKind(err, KindInsufficientFunds) {
		t.Fatalf("uncovered transfer err=%v want InsufficientFunds", err)
	}
	if s.Balance("a") != 600 || s.Balance("b") != 400 {
		t.Fatalf("balances changed by failed transfer: a=%d b=%d", s.Balance("a"), s.Balance("b"))
	}
}

func TestCooldownWindow(t *testing.T) {
	s := newTestEconomy(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	if err := s.TryConsume("u1", ActionDaily, 24*time.Hour); err != nil {
		t.Fatalf("first consume: %v", err)
	}

	err := s.TryConsume("u1", ActionDaily, 24*time.Hour)
	if !IsKind(err, KindCooldownActive) {
		t.Fatalf("second consume err=%v want CooldownActive", err)
	}
	var se *Error
	if !errors.As(err, &se) || se.Remaining != 24*time.Hour {
		t.Fatalf("remaining=%v want=24h", se.Remaining)
	}

	// A different action is independent.
	if err := s.TryConsume("u1", ActionBeg, time.Hour); err != nil {
		t.Fatalf("independent action blocked: %v", err)
	}

	s.now = func() time.Time { return base.Add(24*time.Hour - time.Millisecond) }
	if err := s.TryConsume("u1", ActionDaily, 24*time.Hour); !IsKind(err, KindCooldownActive) {
		t.Fatalf("consume just inside window err=%v want CooldownActive", err)
	}

	s.now = func() time.Time { return base.Add(24 * time.Hour) }
	if err := s.TryConsume("u1", ActionDaily, 24*time.Hour); err != nil {
		t.Fatalf("consume at window boundary: %v", err)
	}
}

func TestClaimDailyRange(t *testing.T) {
	s := newTestEconomy(t)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 50; i++ {
		day := base.Add(time.Duration(i) * 24 * time.Hour)
		s.now = func() time.Time { return day }
		reward, err := s.ClaimDaily("u1")
		if err != nil {
			t.Fatalf("ClaimDaily day %d: %v", i, err)
		}
		if reward < 10000 || reward > 50000 {
			t.Fatalf("daily reward=%d want in [10000,50000]", reward)
		}
	}
}

func TestClaimFailureLeavesNoTrace(t *testing.T) {
	s := newTestEconomy(t)
	s.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }

	before := s.Balance("u1")
	if _, err := s.ClaimWeekly("u1"); err != nil {
		t.Fatalf("first weekly: %v", err)
	}
	after := s.Balance("u1")
	if after <= before {
		t.Fatalf("weekly did not pay: before=%d after=%d", before, after)
	}

	if _, err := s.ClaimWeekly("u1"); !IsKind(err, KindCooldownActive) {
		t.Fatalf("second weekly err=%v want CooldownActive", err)
	}
	if s.Balance("u1") != after {
		t.Fatalf("blocked claim changed balance: %d want=%d", s.Balance("u1"), after)
	}
}

func TestTop(t *testing.T) {
	s := newTestEconomy(t)
	s.Credit("a", 100)
	s.Credit("b", 300)
	s.Credit("c", 200)
	s.Credit("d", 300)

	top := s.Top(3)
	if len(top) != 3 {
		t.Fatalf("len(top)=%d want=3", len(top))
	}
	// Ties break by user ID so the order is stable.
	if top[0].UserID != "b" || top[1].UserID != "d" || top[2].UserID != "c" {
		t.Fatalf("order=%s,%s,%s want=b,d,c", top[0].UserID, top[1].UserID, top[2].UserID)
	}
}

func TestPurchase(t *testing.T) {
	s := newTestEconomy(t)
	s.Credit("u1", 10000000)

	item, err := s.Purchase("u1", 3)
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	if item.Name != "Custom Emoji" {
		t.Fatalf("item=%q want=Custom Emoji", item.Name)
	}
	if bal := s.Balance("u1"); bal != 5000000 {
		t.Fatalf("balance after purchase=%d want=5000000", bal)
	}
	if got := s.InventoryOf("u1")["Custom Emoji"]; got != 1 {
		t.Fatalf("inventory count=%d want=1", got)
	}

	if _, err := s.Purchase("u1", 1); !IsKind(err, KindInsufficientFunds) {
		t.Fatalf("unaffordable purchase err=%v want InsufficientFunds", err)
	}
	if _, err := s.Purchase("u1", 0); !IsKind(err, KindValidation) {
		t.Fatalf("index 0 err=%v want Validation", err)
	}
	if _, err := s.Purchase("u1", 4); !IsKind(err, KindValidation) {
		t.Fatalf("index out of range err=%v want Validation", err)
	}
}

func TestStatePersistsAcrossRestart(t *testing.T) {
	store := storage.NewMemoryStore()
	s, err := NewEconomyService(DefaultConfig(), store)
	if err != nil {
		t.Fatalf("NewEconomyService: %v", err)
	}
	s.Credit("u1", 5000777)
	if _, err := s.Purchase("u1", 3); err != nil {
		t.Fatalf("Purchase: %v", err)
	}

	reloaded, err := NewEconomyService(DefaultConfig(), store)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if bal := reloaded.Balance("u1"); bal != s.Balance("u1") {
		t.Fatalf("reloaded balance=%d want=%d", bal, s.Balance("u1"))
	}
	if got := reloaded.InventoryOf("u1")["Custom Emoji"]; got != 1 {
		t.Fatalf("reloaded inventory count=%d want=1", got)
	}
}
