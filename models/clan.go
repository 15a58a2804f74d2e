package models

import "time"

// ClanRole is a rung on the clan role ladder.
type ClanRole string

const (
	RoleMember   ClanRole = "member"
	RoleElder    ClanRole = "elder"
	RoleCoLeader ClanRole = "coLeader"
	RoleOwner    ClanRole = "owner"
)

// Rank orders the ladder: member(0) < elder(1) < coLeader(2) < owner(3).
func (r ClanRole) Rank() int {
	switch r {
	case RoleElder:
		return 1
	case RoleCoLeader:
		return 2
	case RoleOwner:
		return 3
	default:
		return 0
	}
}

// Clan is one guild-within-guild. Owner is a singleton; CoLeaders, Elders and
// Members are pairwise disjoint and never contain the owner. Level and goal
// are derived from the vault on every read, never stored.
type Clan struct {
	Name          string           `json:"name"`
	Tag           string           `json:"tag"`
	GuildID       string           `json:"guild_id"`
	Owner         string           `json:"owner"`
	CoLeaders     []string         `json:"co_leaders"`
	Elders        []string         `json:"elders"`
	Members       []string         `json:"members"`
	Private       bool             `json:"private"`
	Vault         int64            `json:"vault"`
	Contributions map[string]int64 `json:"contributions"`
	CreatedAt     time.Time        `json:"created_at"`
}

// Clans is the persisted registry document, keyed by slugged clan name.
type Clans map[string]*Clan

// Level derives the clan level from the vault: floor(vault/baseGoal)+1.
func (c *Clan) Level(baseGoal int64) int64 {
	return c.Vault/baseGoal + 1
}

// Goal derives the next vault target: baseGoal*level.
func (c *Clan) Goal(baseGoal int64) int64 {
	return baseGoal * c.Level(baseGoal)
}

// RoleOf reports the role a user holds in this clan, if any.
func (c *Clan) RoleOf(userID string) (ClanRole, bool) {
	if c.Owner == userID {
		return RoleOwner, true
	}
	for _, id := range c.CoLeaders {
		if id == userID {
			return RoleCoLeader, true
		}
	}
	for _, id := range c.Elders {
		if id == userID {
			return RoleElder, true
		}
	}
	for _, id := range c.Members {
		if id == userID {
			return RoleMember, true
		}
	}
	return "", false
}

// Size counts every member including the owner.
func (c *Clan) Size() int {
	return 1 + len(c.CoLeaders) + len(c.Elders) + len(c.Members)
}
