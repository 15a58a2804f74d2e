package services

import (
	"context"
	"testing"

	"clan-economy-bot/models"
	"clan-economy-bot/storage"
)

func newTestClans(t *testing.T) (*ClanService, *EconomyService, *fakePlatform) {
	t.Helper()
	econ := newTestEconomy(t)
	chat := &fakePlatform{}
	s, err := NewClanService(DefaultConfig(), econ.store, econ, chat)
	if err != nil {
		t.Fatalf("NewClanService: %v", err)
	}
	return s, econ, chat
}

func TestCreateClan(t *testing.T) {
	s, _, _ := newTestClans(t)

	c, err := s.Create("g1", "owner", "Night Watch", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Tag != "NIGH" {
		t.Fatalf("derived tag=%q want=NIGH", c.Tag)
	}
	if !c.Private {
		t.Fatal("new clan should start private")
	}
	if role, ok := c.RoleOf("owner"); !ok || role != models.RoleOwner {
		t.Fatalf("owner role=%q ok=%v", role, ok)
	}

	// Same slug, different spelling.
	if _, err := s.Create("g1", "other", "night watch", ""); !IsKind(err, KindAlreadyExists) {
		t.Fatalf("duplicate name err=%v want AlreadyExists", err)
	}
	// One clan per user.
	if _, err := s.Create("g1", "owner", "Second Clan", ""); !IsKind(err, KindAlreadyInState) {
		t.Fatalf("second clan err=%v want AlreadyInState", err)
	}
	if _, err := s.Create("g1", "x", "", ""); !IsKind(err, KindValidation) {
		t.Fatalf("empty name err=%v want Validation", err)
	}
}

func TestJoinVisibility(t *testing.T) {
	s, _, chat := newTestClans(t)
	ctx := context.Background()
	s.Create("g1", "owner", "Night Watch", "NW")

	if _, err := s.Join(ctx, "u1", "Night Watch"); !IsKind(err, KindPermissionDenied) {
		t.Fatalf("join private err=%v want PermissionDenied", err)
	}
	if _, err := s.Join(ctx, "u1", "No Such Clan"); !IsKind(err, KindNotFound) {
		t.Fatalf("join unknown err=%v want NotFound", err)
	}

	if err := s.SetVisibility("u1", false); !IsKind(err, KindNotFound) {
		t.Fatalf("visibility by outsider err=%v want NotFound", err)
	}
	if err := s.SetVisibility("owner", false); err != nil {
		t.Fatalf("SetVisibility: %v", err)
	}
	if err := s.SetVisibility("owner", false); !IsKind(err, KindAlreadyInState) {
		t.Fatalf("repeat visibility err=%v want AlreadyInState", err)
	}

	c, err := s.Join(ctx, "u1", "Night Watch")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if role, ok := c.RoleOf("u1"); !ok || role != models.RoleMember {
		t.Fatalf("joiner role=%q ok=%v", role, ok)
	}
	if chat.tags["u1"] != "NW" {
		t.Fatalf("tag applied=%q want=NW", chat.tags["u1"])
	}

	if _, err := s.Join(ctx, "u1", "Night Watch"); !IsKind(err, KindAlreadyInState) {
		t.Fatalf("double join err=%v want AlreadyInState", err)
	}
}

func TestInviteFlow(t *testing.T) {
	s, _, chat := newTestClans(t)
	ctx := context.Background()
	s.Create("g1", "owner", "Night Watch", "NW")

	chat.reaction = "✅"
	accepted, err := s.Invite(ctx, "ch1", "owner", "u1")
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	if !accepted {
		t.Fatal("accept reaction should join the target")
	}
	if _, role, err := s.ClanOf("u1"); err != nil || role != models.RoleMember {
		t.Fatalf("invited role=%q err=%v", role, err)
	}
	if len(chat.sent) != 1 {
		t.Fatalf("prompts sent=%d want=1", len(chat.sent))
	}

	chat.reaction = "❌"
	if accepted, err := s.Invite(ctx, "ch1", "owner", "u2"); err != nil || accepted {
		t.Fatalf("decline: accepted=%v err=%v", accepted, err)
	}
	chat.reaction = "" // timeout
	if accepted, err := s.Invite(ctx, "ch1", "owner", "u2"); err != nil || accepted {
		t.Fatalf("timeout: accepted=%v err=%v", accepted, err)
	}
	if _, _, err := s.ClanOf("u2"); !IsKind(err, KindNotFound) {
		t.Fatalf("declined target should not be in a clan: %v", err)
	}

	// Non-owners can't invite, and public clans don't use invites.
	if _, err := s.Invite(ctx, "ch1", "u1", "u2"); !IsKind(err, KindPermissionDenied) {
		t.Fatalf("member invite err=%v want PermissionDenied", err)
	}
	s.SetVisibility("owner", false)
	if _, err := s.Invite(ctx, "ch1", "owner", "u2"); !IsKind(err, KindValidation) {
		t.Fatalf("invite to public clan err=%v want Validation", err)
	}
}

func TestPromoteDemote(t *testing.T) {
	s, _, _ := newTestClans(t)
	ctx := context.Background()
	s.Create("g1", "owner", "Night Watch", "NW")
	s.SetVisibility("owner", false)
	s.Join(ctx, "u1", "Night Watch")

	role, err := s.Promote("owner", "u1", 1)
	if err != nil || role != models.RoleElder {
		t.Fatalf("promote 1: role=%q err=%v", role, err)
	}
	role, err = s.Promote("owner", "u1", 1)
	if err != nil || role != models.RoleCoLeader {
		t.Fatalf("promote 2: role=%q err=%v", role, err)
	}
	if _, err := s.Promote("owner", "u1", 1); !IsKind(err, KindAlreadyInState) {
		t.Fatalf("promote past co-leader err=%v want AlreadyInState", err)
	}

	role, removed, err := s.Demote(ctx, "owner", "u1", 2)
	if err != nil || removed || role != models.RoleMember {
		t.Fatalf("demote 2: role=%q removed=%v err=%v", role, removed, err)
	}
	_, removed, err = s.Demote(ctx, "owner", "u1", 1)
	if err != nil || !removed {
		t.Fatalf("demote below member: removed=%v err=%v", removed, err)
	}
	if _, _, err := s.ClanOf("u1"); !IsKind(err, KindNotFound) {
		t.Fatalf("ejected member still indexed: %v", err)
	}

	// Double-step promotion caps at co-leader.
	s.Join(ctx, "u2", "Night Watch")
	role, err = s.Promote("owner", "u2", 2)
	if err != nil || role != models.RoleCoLeader {
		t.Fatalf("promote by 2: role=%q err=%v", role, err)
	}

	if _, err := s.Promote("owner", "owner", 1); !IsKind(err, KindValidation) {
		t.Fatalf("self promote err=%v want Validation", err)
	}
	if _, err := s.Promote("owner", "stranger", 1); !IsKind(err, KindNotFound) {
		t.Fatalf("promote outsider err=%v want NotFound", err)
	}
	if _, err := s.Promote("owner", "u2", 3); !IsKind(err, KindValidation) {
		t.Fatalf("degree 3 err=%v want Validation", err)
	}
}

func TestTransferOwnership(t *testing.T) {
	s, _, _ := newTestClans(t)
	ctx := context.Background()
	s.Create("g1", "owner", "Night Watch", "NW")
	s.SetVisibility("owner", false)
	s.Join(ctx, "u1", "Night Watch")

	if err := s.TransferOwnership("owner", "stranger"); !IsKind(err, KindNotFound) {
		t.Fatalf("transfer to outsider err=%v want NotFound", err)
	}
	if err := s.TransferOwnership("owner", "owner"); !IsKind(err, KindAlreadyInState) {
		t.Fatalf("transfer to self err=%v want AlreadyInState", err)
	}
	if err := s.TransferOwnership("owner", "u1"); err != nil {
		t.Fatalf("TransferOwnership: %v", err)
	}

	if _, role, _ := s.ClanOf("u1"); role != models.RoleOwner {
		t.Fatalf("new owner role=%q", role)
	}
	if _, role, _ := s.ClanOf("owner"); role != models.RoleCoLeader {
		t.Fatalf("old owner role=%q want coLeader", role)
	}
}

func TestKickPermissions(t *testing.T) {
	s, _, chat := newTestClans(t)
	ctx := context.Background()
	s.Create("g1", "owner", "Night Watch", "NW")
	s.SetVisibility("owner", false)
	for _, id := range []string{"co1", "co2", "m1"} {
		s.Join(ctx, id, "Night Watch")
	}
	s.Promote("owner", "co1", 2)
	s.Promote("owner", "co2", 2)

	if err := s.Kick(ctx, "m1", "co1"); !IsKind(err, KindPermissionDenied) {
		t.Fatalf("member kick err=%v want PermissionDenied", err)
	}
	if err := s.Kick(ctx, "co1", "co2"); !IsKind(err, KindPermissionDenied) {
		t.Fatalf("co-leader kicking co-leader err=%v want PermissionDenied", err)
	}
	if err := s.Kick(ctx, "co1", "owner"); !IsKind(err, KindPermissionDenied) {
		t.Fatalf("kick owner err=%v want PermissionDenied", err)
	}
	if err := s.Kick(ctx, "owner", "owner"); !IsKind(err, KindValidation) {
		t.Fatalf("self kick err=%v want Validation", err)
	}

	if err := s.Kick(ctx, "co1", "m1"); err != nil {
		t.Fatalf("co-leader kick member: %v", err)
	}
	if err := s.Kick(ctx, "owner", "co2"); err != nil {
		t.Fatalf("owner kick co-leader: %v", err)
	}
	if chat.tags["m1"] != "" {
		t.Fatalf("kicked member keeps tag %q", chat.tags["m1"])
	}
}

func TestLeaveAndDisband(t *testing.T) {
	s, _, _ := newTestClans(t)
	ctx := context.Background()
	s.Create("g1", "owner", "Night Watch", "NW")
	s.SetVisibility("owner", false)
	s.Join(ctx, "u1", "Night Watch")

	if _, err := s.Leave(ctx, "owner"); !IsKind(err, KindPermissionDenied) {
		t.Fatalf("owner leave err=%v want PermissionDenied", err)
	}
	if name, err := s.Leave(ctx, "u1"); err != nil || name != "Night Watch" {
		t.Fatalf("Leave: name=%q err=%v", name, err)
	}
	if _, err := s.Leave(ctx, "u1"); !IsKind(err, KindNotFound) {
		t.Fatalf("leave twice err=%v want NotFound", err)
	}

	if _, err := s.Disband("u1"); !IsKind(err, KindNotFound) {
		t.Fatalf("disband by outsider err=%v want NotFound", err)
	}
	if name, err := s.Disband("owner"); err != nil || name != "Night Watch" {
		t.Fatalf("Disband: name=%q err=%v", name, err)
	}
	if _, err := s.Info("Night Watch"); !IsKind(err, KindNotFound) {
		t.Fatalf("disbanded clan still found: %v", err)
	}
	// The name is free again.
	if _, err := s.Create("g1", "owner", "Night Watch", ""); err != nil {
		t.Fatalf("recreate after disband: %v", err)
	}
}

func TestDepositAndContributions(t *testing.T) {
	s, econ, _ := newTestClans(t)
	ctx := context.Background()
	s.Create("g1", "owner", "Night Watch", "NW")
	s.SetVisibility("owner", false)
	s.Join(ctx, "u1", "Night Watch")
	econ.Credit("owner", 100000)
	econ.Credit("u1", 100000)

	if _, err := s.Deposit("owner", 60000); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	c, err := s.Deposit("u1", 40000)
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if c.Vault != 100000 {
		t.Fatalf("vault=%d want=100000", c.Vault)
	}
	var sum int64
	for _, v := range c.Contributions {
		sum += v
	}
	if sum != c.Vault {
		t.Fatalf("contributions sum=%d vault=%d", sum, c.Vault)
	}
	if econ.Balance("owner") != 40000 || econ.Balance("u1") != 60000 {
		t.Fatalf("balances after deposit: owner=%d u1=%d", econ.Balance("owner"), econ.Balance("u1"))
	}

	if _, err := s.Deposit("u1", 60001); !IsKind(err, KindInsufficientFunds) {
		t.Fatalf("uncovered deposit err=%v want InsufficientFunds", err)
	}
	if _, err := s.Deposit("u1", 0); !IsKind(err, KindValidation) {
		t.Fatalf("zero deposit err=%v want Validation", err)
	}
	if _, err := s.Deposit("stranger", 100); !IsKind(err, KindNotFound) {
		t.Fatalf("outsider deposit err=%v want NotFound", err)
	}

	// Contributions survive the contributor leaving.
	if _, err := s.Leave(ctx, "u1"); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	c, _ = s.Info("Night Watch")
	sum = 0
	for _, v := range c.Contributions {
		sum += v
	}
	if sum != c.Vault {
		t.Fatalf("after leave: contributions sum=%d vault=%d", sum, c.Vault)
	}
}

func TestLevelAndGoal(t *testing.T) {
	base := int64(100000)
	cases := []struct {
		vault int64
		level int64
		goal  int64
	}{
		{0, 1, 100000},
		{99999, 1, 100000},
		{100000, 2, 200000},
		{300005, 4, 400000},
	}
	for _, tc := range cases {
		c := &models.Clan{Vault: tc.vault, Contributions: map[string]int64{}}
		if got := c.Level(base); got != tc.level {
			t.Fatalf("vault=%d level=%d want=%d", tc.vault, got, tc.level)
		}
		if got := c.Goal(base); got != tc.goal {
			t.Fatalf("vault=%d goal=%d want=%d", tc.vault, got, tc.goal)
		}
	}
}

func TestClanWeeklyReward(t *testing.T) {
	s, _, _ := newTestClans(t)
	s.Create("g1", "owner", "Night Watch", "NW")

	reward, c, err := s.WeeklyReward("owner")
	if err != nil {
		t.Fatalf("WeeklyReward: %v", err)
	}
	if reward < 50000 || reward > 150000 {
		t.Fatalf("reward=%d want in [50000,150000]", reward)
	}
	if c.Vault != reward || c.Contributions["owner"] != reward {
		t.Fatalf("vault=%d contribution=%d want both=%d", c.Vault, c.Contributions["owner"], reward)
	}

	if _, _, err := s.WeeklyReward("owner"); !IsKind(err, KindCooldownActive) {
		t.Fatalf("second weekly err=%v want CooldownActive", err)
	}
	if _, _, err := s.WeeklyReward("stranger"); !IsKind(err, KindNotFound) {
		t.Fatalf("outsider weekly err=%v want NotFound", err)
	}
}

func TestClanLeaderboardAndRestart(t *testing.T) {
	store := storage.NewMemoryStore()
	econ, err := NewEconomyService(DefaultConfig(), store)
	if err != nil {
		t.Fatalf("NewEconomyService: %v", err)
	}
	s, err := NewClanService(DefaultConfig(), store, econ, &fakePlatform{})
	if err != nil {
		t.Fatalf("NewClanService: %v", err)
	}

	econ.Credit("a", 1000000)
	econ.Credit("b", 1000000)
	s.Create("g1", "a", "Alpha", "")
	s.Create("g1", "b", "Bravo", "")
	s.Deposit("a", 5000)
	s.Deposit("b", 9000)

	lb := s.Leaderboard()
	if len(lb) != 2 || lb[0].Name != "Bravo" || lb[1].Name != "Alpha" {
		t.Fatalf("leaderboard order wrong: %+v", lb)
	}

	reloaded, err := NewClanService(DefaultConfig(), store, econ, &fakePlatform{})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	c, role, err := reloaded.ClanOf("a")
	if err != nil || role != models.RoleOwner || c.Vault != 5000 {
		t.Fatalf("reloaded membership: clan=%+v role=%q err=%v", c, role, err)
	}
}
