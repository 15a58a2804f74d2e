package models

// PendingInviteReward is a recorded but not-yet-granted reward owed to an
// inviter, contingent on the invitee still being present once the retention
// deadline passes.
type PendingInviteReward struct {
	InviterID string `json:"inviter_id"`
	GuildID   string `json:"guild_id"`
	JoinedAt  int64  `json:"joined_at_epoch_ms"`
}

// PendingInvites is the persisted tracker document, keyed by the joined
// member's id. A record is removed exactly once, by grant or by
// discard-on-absence, whichever fires first.
type PendingInvites map[string]PendingInviteReward
