package services

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"clan-economy-bot/models"
	"clan-economy-bot/platform"
	"clan-economy-bot/storage"
)

// InviteService correlates invite-use-count deltas with newly joined members
// and pays the inviter once the member survives the retention window. The
// per-guild snapshot is updated atomically with the diff computation, so
// concurrent or duplicate join events can never double-attribute.
type InviteService struct {
	cfg   Config
	store storage.DocumentStore
	econ  *EconomyService
	chat  platform.Platform

	mu        sync.Mutex
	snapshots map[string]map[string]int // guildID -> invite code -> uses
	pending   models.PendingInvites

	now func() time.Time
	rng *rand.Rand
}

func NewInviteService(cfg Config, store storage.DocumentStore, econ *EconomyService, chat platform.Platform) (*InviteService, error) {
	s := &InviteService{
		cfg:       cfg,
		store:     store,
		econ:      econ,
		chat:      chat,
		snapshots: map[string]map[string]int{},
		pending:   models.PendingInvites{},
		now:       time.Now,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if _, err := store.Get(storage.DocPendingInvites, &s.pending); err != nil {
		return nil, fmt.Errorf("failed to load pending invites: %w", err)
	}
	return s, nil
}

// PrimeSnapshot refreshes the reference snapshot for a guild without
// attributing anything. Run at startup and whenever a guild becomes ready.
func (s *InviteService) PrimeSnapshot(ctx context.Context, guildID string) error {
	uses, err := s.chat.GuildInvites(ctx, guildID)
	if err != nil {
		return fmt.Errorf("failed to prime invite snapshot for %s: %w", guildID, err)
	}
	s.mu.Lock()
	s.snapshots[guildID] = toCounts(uses)
	s.mu.Unlock()
	return nil
}

// HandleJoin diffs the guild's current invite counts against the snapshot.
// Exactly one code with a strictly increased count attributes the join to
// that code's inviter and records one pending reward; anything else (no
// delta, or an ambiguous multi-code delta) attributes nobody. The snapshot
// advances either way.
func (s *InviteService) HandleJoin(ctx context.Context, guildID, memberID string) error {
	uses, err := s.chat.GuildInvites(ctx, guildID)
	if err != nil {
		return fmt.Errorf("failed to list invites for %s: %w", guildID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.snapshots[guildID]
	var inviterID, code string
	bumped := 0
	for _, inv := range uses {
		if inv.Uses > before[inv.Code] {
			bumped++
			inviterID, code = inv.InviterID, inv.Code
		}
	}
	s.snapshots[guildID] = toCounts(uses)

	if bumped != 1 || inviterID == "" || inviterID == memberID {
		if bumped > 1 {
			log.Printf("⚠️ ambiguous invite delta for %s (%d codes moved), skipping attribution", guildID, bumped)
		}
		return nil
	}
	if _, exists := s.pending[memberID]; exists {
		return nil
	}

	s.pending[memberID] = models.PendingInviteReward{
		InviterID: inviterID,
		GuildID:   guildID,
		JoinedAt:  s.now().UnixMilli(),
	}
	if err := s.flush(); err != nil {
		delete(s.pending, memberID)
		return err
	}
	log.Printf("📥 Attributed join of %s to invite %s (inviter %s)", memberID, code, inviterID)
	return nil
}

// Sweep walks pending records past the retention window. A member still
// present earns their inviter a randomized reward; a member who left voids
// the record. Either way the record is removed exactly once.
func (s *InviteService) Sweep(ctx context.Context) error {
	cutoff := s.now().Add(-s.cfg.InviteRetention).UnixMilli()

	s.mu.Lock()
	due := make(map[string]models.PendingInviteReward)
	for memberID, rec := range s.pending {
		if rec.JoinedAt <= cutoff {
			due[memberID] = rec
		}
	}
	s.mu.Unlock()

	for memberID, rec := range due {
		present, err := s.chat.MemberPresent(ctx, rec.GuildID, memberID)
		if err != nil {
			log.Printf("⚠️ presence check failed for %s, retrying next sweep: %v", memberID, err)
			continue
		}

		s.mu.Lock()
		if _, still := s.pending[memberID]; !still {
			s.mu.Unlock()
			continue
		}
		delete(s.pending, memberID)
		if err := s.flush(); err != nil {
			s.pending[memberID] = rec
			s.mu.Unlock()
			return err
		}
		var reward int64
		if present {
			reward = s.cfg.InviteRewardMin
			if s.cfg.InviteRewardMax > s.cfg.InviteRewardMin {
				reward += s.rng.Int63n(s.cfg.InviteRewardMax - s.cfg.InviteRewardMin + 1)
			}
		}
		s.mu.Unlock()

		if reward == 0 {
			log.Printf("🚮 Discarded invite reward for %s — member %s left", rec.InviterID, memberID)
			continue
		}
		if _, err := s.econ.Credit(rec.InviterID, reward); err != nil {
			return fmt.Errorf("failed to grant invite reward to %s: %w", rec.InviterID, err)
		}
		log.Printf("🎁 Granted %d coins to %s for inviting %s", reward, rec.InviterID, memberID)
		s.notify(ctx, rec.InviterID, reward)
	}
	return nil
}

// PendingCount reports how many rewards are waiting on retention.
func (s *InviteService) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *InviteService) notify(ctx context.Context, inviterID string, reward int64) {
	msg := fmt.Sprintf("🎁 You received **%d** coins — someone you invited stuck around!", reward)
	if err := s.chat.DirectMessage(ctx, inviterID, msg); err != nil {
		log.Printf("⚠️ failed to DM invite reward notice to %s: %v", inviterID, err)
	}
}

func (s *InviteService) flush() error {
	if err := s.store.Put(storage.DocPendingInvites, s.pending); err != nil {
		return fmt.Errorf("failed to persist pending invites: %w", err)
	}
	return nil
}

func toCounts(uses []platform.InviteUse) map[string]int {
	counts := make(map[string]int, len(uses))
	for _, u := range uses {
		counts[u.Code] = u.Uses
	}
	return counts
}
