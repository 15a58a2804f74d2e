package services

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"clan-economy-bot/models"
	"clan-economy-bot/storage"
)

// Gated action names, used as cooldown keys.
const (
	ActionDaily      = "daily"
	ActionWeekly     = "weekly"
	ActionBeg        = "beg"
	ActionSlots      = "slots"
	ActionCoinflip   = "coinflip"
	ActionClanWeekly = "clanweekly"
)

// EconomyService owns the ledger, the cooldown tracker and the inventory
// store. All three live in one service because every command path touches the
// ledger; a single mutex serializes mutations so read-modify-write never loses
// an update, and every successful mutation is flushed to the document store
// before the call returns.
type EconomyService struct {
	cfg   Config
	store storage.DocumentStore

	mu          sync.Mutex
	balances    models.Balances
	cooldowns   models.Cooldowns
	inventories models.Inventories

	now func() time.Time
	rng *rand.Rand
}

func NewEconomyService(cfg Config, store storage.DocumentStore) (*EconomyService, error) {
	s := &EconomyService{
		cfg:         cfg,
		store:       store,
		balances:    models.Balances{},
		cooldowns:   models.Cooldowns{},
		inventories: models.Inventories{},
		now:         time.Now,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if _, err := store.Get(storage.DocBalances, &s.balances); err != nil {
		return nil, fmt.Errorf("failed to load balances: %w", err)
	}
	if _, err := store.Get(storage.DocCooldowns, &s.cooldowns); err != nil {
		return nil, fmt.Errorf("failed to load cooldowns: %w", err)
	}
	if _, err := store.Get(storage.DocInventories, &s.inventories); err != nil {
		return nil, fmt.Errorf("failed to load inventories: %w", err)
	}
	return s, nil
}

// --- Ledger ---

// Balance returns the user's current balance. Unknown users rest at zero.
func (s *EconomyService) Balance(userID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[userID]
}

// Credit adds amount (> 0) to the user's balance.
func (s *EconomyService) Credit(userID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, validationf("amount must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[userID] += amount
	if err := s.flushBalances(); err != nil {
		return 0, err
	}
	return s.balances[userID], nil
}

// Debit removes amount (> 0) from the user's balance, failing without any
// mutation when the balance does not cover it.
func (s *EconomyService) Debit(userID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, validationf("amount must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.debitLocked(userID, amount); err != nil {
		return 0, err
	}
	if err := s.flushBalances(); err != nil {
		return 0, err
	}
	return s.balances[userID], nil
}

func (s *EconomyService) debitLocked(userID string, amount int64) error {
	if s.balances[userID] < amount {
		return insufficientf("not enough coins")
	}
	s.balances[userID] -= amount
	return nil
}

// AdminAdjust applies a signed delta. Negative deltas floor the result at
// zero instead of failing.
func (s *EconomyService) AdminAdjust(userID string, delta int64) (int64, error) {
	if delta == 0 {
		return 0, validationf("amount must be non-zero")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.balances[userID] + delta
	if next < 0 {
		next = 0
	}
	s.balances[userID] = next
	if err := s.flushBalances(); err != nil {
		return 0, err
	}
	return next, nil
}

// Transfer atomically moves amount from one user to another. Self-transfers
// and uncovered debits fail as a unit with no partial effect.
func (s *EconomyService) Transfer(fromID, toID string, amount int64) error {
	if amount <= 0 {
		return validationf("amount must be positive")
	}
	if fromID == toID {
		return validationf("you can't give coins to yourself")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.debitLocked(fromID, amount); err != nil {
		return err
	}
	s.balances[toID] += amount
	return s.flushBalances()
}

// Top returns the n richest users, balance descending.
func (s *EconomyService) Top(n int) []models.BalanceEntry {
	s.mu.Lock()
	entries := make([]models.BalanceEntry, 0, len(s.balances))
	for id, bal := range s.balances {
		entries = append(entries, models.BalanceEntry{UserID: id, Balance: bal})
	}
	s.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Balance != entries[j].Balance {
			return entries[i].Balance > entries[j].Balance
		}
		return entries[i].UserID < entries[j].UserID
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// --- Cooldown tracker ---

// TryConsume checks the cooldown for (user, action). When the window has
// passed it stores the current timestamp and returns nil; otherwise it
// returns a CooldownActive error with the remaining wait and changes nothing.
func (s *EconomyService) TryConsume(userID, action string, window time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tryConsumeLocked(userID, action, window); err != nil {
		return err
	}
	return s.flushCooldowns()
}

func (s *EconomyService) tryConsumeLocked(userID, action string, window time.Duration) error {
	now := s.now().UnixMilli()
	last := s.cooldowns[userID][action]
	elapsed := time.Duration(now-last) * time.Millisecond
	if elapsed < window {
		return cooldownErr(window - elapsed)
	}
	if s.cooldowns[userID] == nil {
		s.cooldowns[userID] = map[string]int64{}
	}
	s.cooldowns[userID][action] = now
	return nil
}

// --- Earning actions ---

// ClaimDaily grants the daily reward, gated by a 24 hour window.
func (s *EconomyService) ClaimDaily(userID string) (int64, error) {
	return s.claim(userID, ActionDaily, s.cfg.DailyWindow, s.cfg.DailyMin, s.cfg.DailyMax)
}

// ClaimWeekly grants the weekly reward, gated by a 7 day window.
func (s *EconomyService) ClaimWeekly(userID string) (int64, error) {
	return s.claim(userID, ActionWeekly, s.cfg.WeeklyWindow, s.cfg.WeeklyMin, s.cfg.WeeklyMax)
}

// Beg grants a small reward, gated by an hourly window.
func (s *EconomyService) Beg(userID string) (int64, error) {
	return s.claim(userID, ActionBeg, s.cfg.BegWindow, s.cfg.BegMin, s.cfg.BegMax)
}

func (s *EconomyService) claim(userID, action string, window time.Duration, min, max int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tryConsumeLocked(userID, action, window); err != nil {
		return 0, err
	}
	reward := s.randRange(min, max)
	s.balances[userID] += reward
	if err := s.flushBalances(); err != nil {
		return 0, err
	}
	if err := s.flushCooldowns(); err != nil {
		return 0, err
	}
	return reward, nil
}

// randRange draws uniformly from [min, max]. Callers hold s.mu.
func (s *EconomyService) randRange(min, max int64) int64 {
	if max <= min {
		return min
	}
	return min + s.rng.Int63n(max-min+1)
}

// --- Shop / inventory ---

// ShopCatalog returns the fixed, ordered catalog.
func (s *EconomyService) ShopCatalog() []models.ShopItem {
	return s.cfg.Shop
}

// Purchase buys the 1-based catalog entry, debiting the listed price and
// incrementing the buyer's inventory.
func (s *EconomyService) Purchase(userID string, index int) (models.ShopItem, error) {
	if index < 1 || index > len(s.cfg.Shop) {
		return models.ShopItem{}, validationf("invalid item number")
	}
	item := s.cfg.Shop[index-1]

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.debitLocked(userID, item.Price); err != nil {
		return models.ShopItem{}, err
	}
	if s.inventories[userID] == nil {
		s.inventories[userID] = map[string]int64{}
	}
	s.inventories[userID][item.Name]++
	if err := s.flushBalances(); err != nil {
		return models.ShopItem{}, err
	}
	if err := s.flushInventories(); err != nil {
		return models.ShopItem{}, err
	}
	return item, nil
}

// InventoryOf returns a copy of the user's item counts.
func (s *EconomyService) InventoryOf(userID string) map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.inventories[userID]))
	for item, count := range s.inventories[userID] {
		out[item] = count
	}
	return out
}

// --- Persistence ---

func (s *EconomyService) flushBalances() error {
	if err := s.store.Put(storage.DocBalances, s.balances); err != nil {
		return fmt.Errorf("failed to persist balances: %w", err)
	}
	return nil
}

func (s *EconomyService) flushCooldowns() error {
	if err := s.store.Put(storage.DocCooldowns, s.cooldowns); err != nil {
		return fmt.Errorf("failed to persist cooldowns: %w", err)
	}
	return nil
}

func (s *EconomyService) flushInventories() error {
	if err := s.store.Put(storage.DocInventories, s.inventories); err != nil {
		return fmt.Errorf("failed to persist inventories: %w", err)
	}
	return nil
}
