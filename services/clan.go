package services

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"clan-economy-bot/models"
	"clan-economy-bot/platform"
	"clan-economy-bot/storage"

	"github.com/gosimple/slug"
)

const (
	acceptEmoji  = "✅"
	declineEmoji = "❌"
)

// memberRef is the reverse-index entry: which clan a user belongs to and in
// what role. It makes "is this user already in a clan" O(1) and keeps the
// one-clan-one-role invariant mechanically checkable.
type memberRef struct {
	Slug string
	Role models.ClanRole
}

// ClanService owns the clan registry: the role hierarchy state machine, the
// pooled vault with derived level/goal, and the interactive invite flow. A
// single mutex serializes registry mutations; the reverse index is rebuilt
// from the persisted document on start and maintained in lockstep with every
// transition afterwards.
type ClanService struct {
	cfg   Config
	store storage.DocumentStore
	econ  *EconomyService
	chat  platform.Platform

	mu         sync.Mutex
	clans      models.Clans
	membership map[string]memberRef

	now func() time.Time
	rng *rand.Rand
}

func NewClanService(cfg Config, store storage.DocumentStore, econ *EconomyService, chat platform.Platform) (*ClanService, error) {
	s := &ClanService{
		cfg:        cfg,
		store:      store,
		econ:       econ,
		chat:       chat,
		clans:      models.Clans{},
		membership: map[string]memberRef{},
		now:        time.Now,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if _, err := store.Get(storage.DocClans, &s.clans); err != nil {
		return nil, fmt.Errorf("failed to load clans: %w", err)
	}
	for key, c := range s.clans {
		s.membership[c.Owner] = memberRef{Slug: key, Role: models.RoleOwner}
		for _, id := range c.CoLeaders {
			s.membership[id] = memberRef{Slug: key, Role: models.RoleCoLeader}
		}
		for _, id := range c.Elders {
			s.membership[id] = memberRef{Slug: key, Role: models.RoleElder}
		}
		for _, id := range c.Members {
			s.membership[id] = memberRef{Slug: key, Role: models.RoleMember}
		}
	}
	return s, nil
}

// --- Lifecycle ---

// Create registers a new private clan owned by ownerID. The owner must not
// hold any role anywhere, and the slugged name must be unused.
func (s *ClanService) Create(guildID, ownerID, name, tag string) (*models.Clan, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 32 {
		return nil, validationf("clan name must be 1-32 characters")
	}
	key := slug.Make(name)
	if key == "" {
		return nil, validationf("clan name must contain letters or digits")
	}
	if tag == "" {
		tag = key
		if len(tag) > 4 {
			tag = tag[:4]
		}
	}
	tag = strings.ToUpper(tag)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clans[key]; ok {
		return nil, alreadyExistsf("a clan named **%s** already exists", name)
	}
	if _, ok := s.membership[ownerID]; ok {
		return nil, alreadyInStatef("you are already in a clan")
	}

	c := &models.Clan{
		Name:          name,
		Tag:           tag,
		GuildID:       guildID,
		Owner:         ownerID,
		Private:       true,
		Contributions: map[string]int64{},
		CreatedAt:     s.now(),
	}
	s.clans[key] = c
	s.membership[ownerID] = memberRef{Slug: key, Role: models.RoleOwner}
	if err := s.flush(); err != nil {
		delete(s.clans, key)
		delete(s.membership, ownerID)
		return nil, err
	}
	return copyClan(c), nil
}

// SetVisibility flips the clan between invite-only and open. Owner only;
// already being in the requested state is a no-op reply.
func (s *ClanService) SetVisibility(actorID string, private bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, c, err := s.ownedClanLocked(actorID)
	if err != nil {
		return err
	}
	if c.Private == private {
		if private {
			return alreadyInStatef("**%s** is already private", c.Name)
		}
		return alreadyInStatef("**%s** is already public", c.Name)
	}
	c.Private = private
	return s.flush()
}

// Join adds the user to an open clan and applies the clan tag to their
// nickname. Private clans require an invite.
func (s *ClanService) Join(ctx context.Context, userID, name string) (*models.Clan, error) {
	key := slug.Make(name)

	s.mu.Lock()
	c, ok := s.clans[key]
	if !ok {
		s.mu.Unlock()
		return nil, notFoundf("no clan named **%s**", name)
	}
	if c.Private {
		s.mu.Unlock()
		return nil, permissionf("**%s** is invite-only", c.Name)
	}
	if _, ok := s.membership[userID]; ok {
		s.mu.Unlock()
		return nil, alreadyInStatef("you are already in a clan")
	}
	c.Members = append(c.Members, userID)
	s.membership[userID] = memberRef{Slug: key, Role: models.RoleMember}
	if err := s.flush(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	guildID, tag := c.GuildID, c.Tag
	out := copyClan(c)
	s.mu.Unlock()

	s.applyTag(ctx, guildID, userID, tag)
	return out, nil
}

// Invite runs the interactive accept/decline flow for a private clan: the
// owner requests, the target gets a single-shot reaction prompt with a
// bounded wait, and only an accept mutates the registry. The registry lock is
// not held while waiting.
func (s *ClanService) Invite(ctx context.Context, channelID, actorID, targetID string) (bool, error) {
	s.mu.Lock()
	key, c, err := s.ownedClanLocked(actorID)
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	if !c.Private {
		s.mu.Unlock()
		return false, validationf("**%s** is public — members can join directly", c.Name)
	}
	if _, ok := s.membership[targetID]; ok {
		s.mu.Unlock()
		return false, alreadyInStatef("that user is already in a clan")
	}
	clanName := c.Name
	s.mu.Unlock()

	prompt := fmt.Sprintf("📨 <@%s>, you've been invited to join **%s**! React %s to accept or %s to decline.",
		targetID, clanName, acceptEmoji, declineEmoji)
	msgID, err := s.chat.SendChannel(ctx, channelID, prompt)
	if err != nil {
		return false, fmt.Errorf("failed to send invite prompt: %w", err)
	}
	for _, e := range []string{acceptEmoji, declineEmoji} {
		if err := s.chat.React(ctx, channelID, msgID, e); err != nil {
			log.Printf("⚠️ failed to seed invite reaction: %v", err)
		}
	}

	emoji, err := s.chat.AwaitReaction(ctx, channelID, msgID, targetID,
		[]string{acceptEmoji, declineEmoji}, s.cfg.InviteTimeout)
	if err == platform.ErrTimeout {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if emoji != acceptEmoji {
		return false, nil
	}

	// Re-validate: the registry may have moved while we waited.
	s.mu.Lock()
	c, ok := s.clans[key]
	if !ok {
		s.mu.Unlock()
		return false, notFoundf("**%s** was disbanded while the invite was pending", clanName)
	}
	if _, taken := s.membership[targetID]; taken {
		s.mu.Unlock()
		return false, alreadyInStatef("that user joined another clan in the meantime")
	}
	c.Members = append(c.Members, targetID)
	s.membership[targetID] = memberRef{Slug: key, Role: models.RoleMember}
	if err := s.flush(); err != nil {
		s.mu.Unlock()
		return false, err
	}
	guildID, tag := c.GuildID, c.Tag
	s.mu.Unlock()

	s.applyTag(ctx, guildID, targetID, tag)
	return true, nil
}

// --- Role ladder ---

var rungs = []models.ClanRole{models.RoleMember, models.RoleElder, models.RoleCoLeader}

// Promote moves the target up the ladder by degree (1 or 2), capped at
// co-leader. Owner only. Every input maps to a definite outcome: an unknown
// target is NotFound, a co-leader is AlreadyInState.
func (s *ClanService) Promote(actorID, targetID string, degree int) (models.ClanRole, error) {
	if degree < 1 || degree > 2 {
		return "", validationf("degree must be 1 or 2")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, rung, err := s.ladderTargetLocked(actorID, targetID)
	if err != nil {
		return "", err
	}
	if rung == len(rungs)-1 {
		return "", alreadyInStatef("that member is already a co-leader")
	}
	next := rung + degree
	if next > len(rungs)-1 {
		next = len(rungs) - 1
	}
	s.moveRoleLocked(c, targetID, rungs[rung], rungs[next])
	s.membership[targetID] = memberRef{Slug: s.membership[targetID].Slug, Role: rungs[next]}
	if err := s.flush(); err != nil {
		return "", err
	}
	return rungs[next], nil
}

// Demote moves the target down the ladder by degree (1 or 2). Stepping below
// member ejects them from the clan entirely. Owner only. Returns the new
// role, or removed=true when the target was ejected.
func (s *ClanService) Demote(ctx context.Context, actorID, targetID string, degree int) (role models.ClanRole, removed bool, err error) {
	if degree < 1 || degree > 2 {
		return "", false, validationf("degree must be 1 or 2")
	}
	s.mu.Lock()

	c, rung, err := s.ladderTargetLocked(actorID, targetID)
	if err != nil {
		s.mu.Unlock()
		return "", false, err
	}
	next := rung - degree
	if next < 0 {
		s.removeFromClanLocked(c, targetID)
		if err := s.flush(); err != nil {
			s.mu.Unlock()
			return "", false, err
		}
		guildID := c.GuildID
		s.mu.Unlock()
		s.applyTag(ctx, guildID, targetID, "")
		return "", true, nil
	}
	s.moveRoleLocked(c, targetID, rungs[rung], rungs[next])
	s.membership[targetID] = memberRef{Slug: s.membership[targetID].Slug, Role: rungs[next]}
	if err := s.flush(); err != nil {
		s.mu.Unlock()
		return "", false, err
	}
	s.mu.Unlock()
	return rungs[next], false, nil
}

// ladderTargetLocked validates an owner-only ladder operation and returns the
// clan and the target's current rung index.
func (s *ClanService) ladderTargetLocked(actorID, targetID string) (*models.Clan, int, error) {
	key, c, err := s.ownedClanLocked(actorID)
	if err != nil {
		return nil, 0, err
	}
	if targetID == actorID {
		return nil, 0, validationf("you can't change your own role")
	}
	ref, ok := s.membership[targetID]
	if !ok || ref.Slug != key {
		return nil, 0, notFoundf("that user is not in your clan")
	}
	for i, r := range rungs {
		if ref.Role == r {
			return c, i, nil
		}
	}
	return nil, 0, notFoundf("that user is not on the role ladder")
}

// TransferOwnership makes the target the owner. The target must already hold
// a role in the clan; the old owner steps down to co-leader.
func (s *ClanService) TransferOwnership(actorID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, c, err := s.ownedClanLocked(actorID)
	if err != nil {
		return err
	}
	if targetID == actorID {
		return alreadyInStatef("you already own this clan")
	}
	ref, ok := s.membership[targetID]
	if !ok || ref.Slug != key {
		return notFoundf("that user is not in your clan")
	}

	s.moveRoleLocked(c, targetID, ref.Role, "")
	c.Owner = targetID
	c.CoLeaders = append(c.CoLeaders, actorID)
	s.membership[targetID] = memberRef{Slug: key, Role: models.RoleOwner}
	s.membership[actorID] = memberRef{Slug: key, Role: models.RoleCoLeader}
	return s.flush()
}

// Kick removes the target from the clan. Owners and co-leaders may kick;
// co-leaders may not kick other co-leaders, and nobody kicks the owner.
func (s *ClanService) Kick(ctx context.Context, actorID, targetID string) error {
	s.mu.Lock()

	actorRef, ok := s.membership[actorID]
	if !ok {
		s.mu.Unlock()
		return notFoundf("you are not in a clan")
	}
	if actorRef.Role != models.RoleOwner && actorRef.Role != models.RoleCoLeader {
		s.mu.Unlock()
		return permissionf("only the owner or a co-leader can kick members")
	}
	if targetID == actorID {
		s.mu.Unlock()
		return validationf("use leave to exit your clan")
	}
	targetRef, ok := s.membership[targetID]
	if !ok || targetRef.Slug != actorRef.Slug {
		s.mu.Unlock()
		return notFoundf("that user is not in your clan")
	}
	if targetRef.Role == models.RoleOwner {
		s.mu.Unlock()
		return permissionf("the owner cannot be kicked")
	}
	if targetRef.Role.Rank() >= actorRef.Role.Rank() {
		s.mu.Unlock()
		return permissionf("only the owner can kick a co-leader")
	}

	c := s.clans[actorRef.Slug]
	s.removeFromClanLocked(c, targetID)
	if err := s.flush(); err != nil {
		s.mu.Unlock()
		return err
	}
	guildID := c.GuildID
	s.mu.Unlock()

	s.applyTag(ctx, guildID, targetID, "")
	return nil
}

// Leave removes the caller from their clan. The owner must transfer or
// disband first.
func (s *ClanService) Leave(ctx context.Context, userID string) (string, error) {
	s.mu.Lock()

	ref, ok := s.membership[userID]
	if !ok {
		s.mu.Unlock()
		return "", notFoundf("you are not in a clan")
	}
	if ref.Role == models.RoleOwner {
		s.mu.Unlock()
		return "", permissionf("the owner can't leave — transfer ownership or disband first")
	}
	c := s.clans[ref.Slug]
	s.removeFromClanLocked(c, userID)
	if err := s.flush(); err != nil {
		s.mu.Unlock()
		return "", err
	}
	name, guildID := c.Name, c.GuildID
	s.mu.Unlock()

	s.applyTag(ctx, guildID, userID, "")
	return name, nil
}

// Disband deletes the clan entirely. Owner only.
func (s *ClanService) Disband(actorID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, c, err := s.ownedClanLocked(actorID)
	if err != nil {
		return "", err
	}
	delete(s.clans, key)
	for id, ref := range s.membership {
		if ref.Slug == key {
			delete(s.membership, id)
		}
	}
	if err := s.flush(); err != nil {
		return "", err
	}
	return c.Name, nil
}

// --- Vault ---

// Deposit moves coins from the user's balance into their clan's vault and
// their cumulative contribution. Level and goal are derived on read, so the
// recompute is implicit.
func (s *ClanService) Deposit(userID string, amount int64) (*models.Clan, error) {
	if amount <= 0 {
		return nil, validationf("amount must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, ok := s.membership[userID]
	if !ok {
		return nil, notFoundf("you are not in a clan")
	}
	c := s.clans[ref.Slug]

	if _, err := s.econ.Debit(userID, amount); err != nil {
		return nil, err
	}
	c.Vault += amount
	c.Contributions[userID] += amount
	if err := s.flush(); err != nil {
		return nil, err
	}
	return copyClan(c), nil
}

// WeeklyReward mints a random reward straight into the clan vault, credited
// to the caller's contributions. Gated per user by a 7 day window; no ledger
// debit is involved.
func (s *ClanService) WeeklyReward(userID string) (int64, *models.Clan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, ok := s.membership[userID]
	if !ok {
		return 0, nil, notFoundf("you are not in a clan")
	}
	c := s.clans[ref.Slug]

	if err := s.econ.TryConsume(userID, ActionClanWeekly, s.cfg.ClanWeeklyWindow); err != nil {
		return 0, nil, err
	}
	reward := s.cfg.ClanWeeklyMin
	if s.cfg.ClanWeeklyMax > s.cfg.ClanWeeklyMin {
		reward += s.rng.Int63n(s.cfg.ClanWeeklyMax - s.cfg.ClanWeeklyMin + 1)
	}
	c.Vault += reward
	c.Contributions[userID] += reward
	if err := s.flush(); err != nil {
		return 0, nil, err
	}
	return reward, copyClan(c), nil
}

// --- Queries ---

// Info returns the clan by name.
func (s *ClanService) Info(name string) (*models.Clan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clans[slug.Make(name)]
	if !ok {
		return nil, notFoundf("no clan named **%s**", name)
	}
	return copyClan(c), nil
}

// ClanOf returns the clan the user belongs to and their role in it.
func (s *ClanService) ClanOf(userID string) (*models.Clan, models.ClanRole, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := s.membership[userID]
	if !ok {
		return nil, "", notFoundf("you are not in a clan")
	}
	return copyClan(s.clans[ref.Slug]), ref.Role, nil
}

// Profile returns the user's cumulative contribution and its share of the
// vault.
func (s *ClanService) Profile(userID string) (contribution int64, percent float64, clan *models.Clan, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := s.membership[userID]
	if !ok {
		return 0, 0, nil, notFoundf("you are not in a clan")
	}
	c := s.clans[ref.Slug]
	contribution = c.Contributions[userID]
	if c.Vault > 0 {
		percent = float64(contribution) / float64(c.Vault) * 100
	}
	return contribution, percent, copyClan(c), nil
}

// Leaderboard returns all clans sorted by vault descending.
func (s *ClanService) Leaderboard() []*models.Clan {
	s.mu.Lock()
	out := make([]*models.Clan, 0, len(s.clans))
	for _, c := range s.clans {
		out = append(out, copyClan(c))
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Vault != out[j].Vault {
			return out[i].Vault > out[j].Vault
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// BaseGoal exposes the level step for presentation.
func (s *ClanService) BaseGoal() int64 { return s.cfg.ClanBaseGoal }

// --- Internals ---

// ownedClanLocked resolves the actor's clan and enforces ownership,
// returning the registry key alongside the record.
func (s *ClanService) ownedClanLocked(actorID string) (string, *models.Clan, error) {
	ref, ok := s.membership[actorID]
	if !ok {
		return "", nil, notFoundf("you are not in a clan")
	}
	if ref.Role != models.RoleOwner {
		return "", nil, permissionf("only the clan owner can do that")
	}
	return ref.Slug, s.clans[ref.Slug], nil
}

// moveRoleLocked moves a user between role lists. Empty from/to skips that
// side.
func (s *ClanService) moveRoleLocked(c *models.Clan, userID string, from, to models.ClanRole) {
	switch from {
	case models.RoleMember:
		c.Members = removeID(c.Members, userID)
	case models.RoleElder:
		c.Elders = removeID(c.Elders, userID)
	case models.RoleCoLeader:
		c.CoLeaders = removeID(c.CoLeaders, userID)
	}
	switch to {
	case models.RoleMember:
		c.Members = append(c.Members, userID)
	case models.RoleElder:
		c.Elders = append(c.Elders, userID)
	case models.RoleCoLeader:
		c.CoLeaders = append(c.CoLeaders, userID)
	}
}

// removeFromClanLocked drops the user from every role set and the reverse
// index. Contributions stay so the vault sum invariant holds.
func (s *ClanService) removeFromClanLocked(c *models.Clan, userID string) {
	c.Members = removeID(c.Members, userID)
	c.Elders = removeID(c.Elders, userID)
	c.CoLeaders = removeID(c.CoLeaders, userID)
	delete(s.membership, userID)
}

func (s *ClanService) flush() error {
	if err := s.store.Put(storage.DocClans, s.clans); err != nil {
		return fmt.Errorf("failed to persist clans: %w", err)
	}
	return nil
}

// applyTag renames a member for their clan (or clears the tag). Nickname
// failures are non-fatal.
func (s *ClanService) applyTag(ctx context.Context, guildID, userID, tag string) {
	if err := s.chat.SetClanTag(ctx, guildID, userID, tag); err != nil {
		log.Printf("⚠️ failed to update nickname for %s: %v", userID, err)
	}
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func copyClan(c *models.Clan) *models.Clan {
	out := *c
	out.CoLeaders = append([]string(nil), c.CoLeaders...)
	out.Elders = append([]string(nil), c.Elders...)
	out.Members = append([]string(nil), c.Members...)
	out.Contributions = make(map[string]int64, len(c.Contributions))
	for k, v := range c.Contributions {
		out.Contributions[k] = v
	}
	return &out
}
