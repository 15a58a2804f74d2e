package handlers

import (
	"context"
	"fmt"
	"strings"

	"clan-economy-bot/models"
	"clan-economy-bot/platform"
	"clan-economy-bot/utils"
)

func (d *Dispatcher) clan(ctx context.Context, m platform.Message, args []string) (string, error) {
	if len(args) == 0 {
		return fmt.Sprintf("❌ Usage: `%sclan <create|join|invite|promote|demote|info|weekly|deposit|profile|leave|lb|transfer|kick|disband|public|private>`", d.Prefix), nil
	}
	sub := strings.ToLower(args[0])
	rest := args[1:]

	switch sub {
	case "create":
		return d.clanCreate(m, rest)
	case "public":
		return d.clanVisibility(m, false)
	case "private":
		return d.clanVisibility(m, true)
	case "join":
		return d.clanJoin(ctx, m, rest)
	case "invite":
		return d.clanInvite(ctx, m)
	case "promote":
		return d.clanPromote(m, rest)
	case "demote":
		return d.clanDemote(ctx, m, rest)
	case "transfer":
		return d.clanTransfer(m)
	case "kick":
		return d.clanKick(ctx, m)
	case "leave":
		return d.clanLeave(ctx, m)
	case "disband":
		return d.clanDisband(m)
	case "deposit":
		return d.clanDeposit(m, rest)
	case "weekly":
		return d.clanWeekly(m)
	case "info":
		return d.clanInfo(ctx, m, rest)
	case "profile":
		return d.clanProfile(m)
	case "lb":
		return d.clanLeaderboard()
	default:
		return fmt.Sprintf("❌ Unknown clan command `%s`.", sub), nil
	}
}

func (d *Dispatcher) clanCreate(m platform.Message, args []string) (string, error) {
	if len(args) < 1 {
		return fmt.Sprintf("❌ Usage: `%sclan create <name> [tag]`", d.Prefix), nil
	}
	tag := ""
	if len(args) > 1 {
		tag = args[len(args)-1]
		args = args[:len(args)-1]
	}
	name := strings.Join(args, " ")
	c, err := d.Clans.Create(m.GuildID, m.AuthorID, name, tag)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("🏰 Clan **%s** [%s] founded! It starts private — use `%sclan invite @user` or `%sclan public`.", c.Name, c.Tag, d.Prefix, d.Prefix), nil
}

func (d *Dispatcher) clanVisibility(m platform.Message, private bool) (string, error) {
	if err := d.Clans.SetVisibility(m.AuthorID, private); err != nil {
		return "", err
	}
	if private {
		return "🔒 Your clan is now private.", nil
	}
	return "🔓 Your clan is now public — anyone can join.", nil
}

func (d *Dispatcher) clanJoin(ctx context.Context, m platform.Message, args []string) (string, error) {
	if len(args) < 1 {
		return fmt.Sprintf("❌ Usage: `%sclan join <name>`", d.Prefix), nil
	}
	c, err := d.Clans.Join(ctx, m.AuthorID, strings.Join(args, " "))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ You joined **%s**!", c.Name), nil
}

func (d *Dispatcher) clanInvite(ctx context.Context, m platform.Message) (string, error) {
	if len(m.Mentions) == 0 {
		return fmt.Sprintf("❌ Usage: `%sclan invite @user`", d.Prefix), nil
	}
	target := m.Mentions[0]
	accepted, err := d.Clans.Invite(ctx, m.ChannelID, m.AuthorID, target.ID)
	if err != nil {
		return "", err
	}
	if !accepted {
		return fmt.Sprintf("📪 %s didn't accept the invite.", target.Username), nil
	}
	return fmt.Sprintf("✅ %s joined the clan!", target.Username), nil
}

func (d *Dispatcher) clanPromote(m platform.Message, args []string) (string, error) {
	if len(m.Mentions) == 0 {
		return fmt.Sprintf("❌ Usage: `%sclan promote @user [2]`", d.Prefix), nil
	}
	target := m.Mentions[0]
	role, err := d.Clans.Promote(m.AuthorID, target.ID, parseDegree(args))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("⬆️ %s is now a **%s**.", target.Username, roleLabel(role)), nil
}

func (d *Dispatcher) clanDemote(ctx context.Context, m platform.Message, args []string) (string, error) {
	if len(m.Mentions) == 0 {
		return fmt.Sprintf("❌ Usage: `%sclan demote @user [2]`", d.Prefix), nil
	}
	target := m.Mentions[0]
	role, removed, err := d.Clans.Demote(ctx, m.AuthorID, target.ID, parseDegree(args))
	if err != nil {
		return "", err
	}
	if removed {
		return fmt.Sprintf("⬇️ %s was removed from the clan.", target.Username), nil
	}
	return fmt.Sprintf("⬇️ %s is now a **%s**.", target.Username, roleLabel(role)), nil
}

func (d *Dispatcher) clanTransfer(m platform.Message) (string, error) {
	if len(m.Mentions) == 0 {
		return fmt.Sprintf("❌ Usage: `%sclan transfer @user`", d.Prefix), nil
	}
	target := m.Mentions[0]
	if err := d.Clans.TransferOwnership(m.AuthorID, target.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("👑 %s is the new clan owner. You step down to co-leader.", target.Username), nil
}

func (d *Dispatcher) clanKick(ctx context.Context, m platform.Message) (string, error) {
	if len(m.Mentions) == 0 {
		return fmt.Sprintf("❌ Usage: `%sclan kick @user`", d.Prefix), nil
	}
	target := m.Mentions[0]
	if err := d.Clans.Kick(ctx, m.AuthorID, target.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("👢 %s was kicked from the clan.", target.Username), nil
}

func (d *Dispatcher) clanLeave(ctx context.Context, m platform.Message) (string, error) {
	name, err := d.Clans.Leave(ctx, m.AuthorID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("👋 You left **%s**.", name), nil
}

func (d *Dispatcher) clanDisband(m platform.Message) (string, error) {
	name, err := d.Clans.Disband(m.AuthorID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("💥 **%s** has been disbanded.", name), nil
}

func (d *Dispatcher) clanDeposit(m platform.Message, args []string) (string, error) {
	amount, ok := parseAmount(args, 0)
	if !ok {
		return fmt.Sprintf("❌ Usage: `%sclan deposit <amount>`", d.Prefix), nil
	}
	c, err := d.Clans.Deposit(m.AuthorID, amount)
	if err != nil {
		return "", err
	}
	base := d.Clans.BaseGoal()
	return fmt.Sprintf("🏦 Deposited **%s** coins. Vault: **%s** / **%s** (level %d).",
		utils.Coins(amount), utils.Coins(c.Vault), utils.Coins(c.Goal(base)), c.Level(base)), nil
}

func (d *Dispatcher) clanWeekly(m platform.Message) (string, error) {
	reward, c, err := d.Clans.WeeklyReward(m.AuthorID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("🎁 You earned **%s** coins for **%s**'s vault!", utils.Coins(reward), c.Name), nil
}

func (d *Dispatcher) clanInfo(ctx context.Context, m platform.Message, args []string) (string, error) {
	var c *models.Clan
	var err error
	if len(args) > 0 {
		c, err = d.Clans.Info(strings.Join(args, " "))
	} else {
		c, _, err = d.Clans.ClanOf(m.AuthorID)
	}
	if err != nil {
		return "", err
	}
	base := d.Clans.BaseGoal()
	visibility := "🔓 public"
	if c.Private {
		visibility = "🔒 private"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🏰 **%s** [%s] — %s\n", c.Name, c.Tag, visibility)
	fmt.Fprintf(&b, "Level **%d** · Vault **%s** / **%s**\n", c.Level(base), utils.Coins(c.Vault), utils.Coins(c.Goal(base)))
	fmt.Fprintf(&b, "👑 Owner: %s\n", d.username(ctx, c.Owner))
	fmt.Fprintf(&b, "⭐ Co-leaders: %s\n", roster(ctx, d, c.CoLeaders))
	fmt.Fprintf(&b, "🛡️ Elders: %s\n", roster(ctx, d, c.Elders))
	fmt.Fprintf(&b, "👥 Members: %s (%d total)", roster(ctx, d, c.Members), c.Size())
	return b.String(), nil
}

func (d *Dispatcher) clanProfile(m platform.Message) (string, error) {
	contribution, percent, c, err := d.Clans.Profile(m.AuthorID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("📊 You contributed **%s** coins to **%s** — %.1f%% of the vault.",
		utils.Coins(contribution), c.Name, percent), nil
}

func (d *Dispatcher) clanLeaderboard() (string, error) {
	clans := d.Clans.Leaderboard()
	if len(clans) == 0 {
		return "🏰 No clans yet.", nil
	}
	if len(clans) > 10 {
		clans = clans[:10]
	}
	base := d.Clans.BaseGoal()
	var b strings.Builder
	b.WriteString("**🏆 Top Clans**\n\n")
	for i, c := range clans {
		fmt.Fprintf(&b, "**%d.** %s [%s] — 🏦 **%s** coins (level %d)\n",
			i+1, c.Name, c.Tag, utils.Coins(c.Vault), c.Level(base))
	}
	return b.String(), nil
}

// parseDegree reads the optional double-step marker: a trailing "2" promotes
// or demotes two rungs at once.
func parseDegree(args []string) int {
	for _, a := range args {
		if a == "2" {
			return 2
		}
	}
	return 1
}

func roleLabel(r models.ClanRole) string {
	switch r {
	case models.RoleCoLeader:
		return "co-leader"
	case models.RoleElder:
		return "elder"
	case models.RoleOwner:
		return "owner"
	default:
		return "member"
	}
}

func roster(ctx context.Context, d *Dispatcher, ids []string) string {
	if len(ids) == 0 {
		return "—"
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, d.username(ctx, id))
	}
	return strings.Join(names, ", ")
}
