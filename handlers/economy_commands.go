package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"clan-economy-bot/platform"
	"clan-economy-bot/utils"
)

func (d *Dispatcher) balance(ctx context.Context, m platform.Message) (string, error) {
	targetID := m.AuthorID
	name := ""
	if len(m.Mentions) > 0 {
		targetID = m.Mentions[0].ID
		name = m.Mentions[0].Username
	}
	if name == "" {
		name = d.username(ctx, targetID)
	}
	return fmt.Sprintf("💰 %s has **%s** coins.", name, utils.Coins(d.Econ.Balance(targetID))), nil
}

func (d *Dispatcher) adminAdjust(ctx context.Context, m platform.Message, args []string, add bool) (string, error) {
	verb := "addmoney"
	if !add {
		verb = "removemoney"
	}
	if !d.isAdmin(m) {
		return "❌ You do not have permission to use this command.", nil
	}
	amount, ok := parseAmount(args, 1)
	if len(m.Mentions) == 0 || !ok {
		return fmt.Sprintf("❌ Usage: `%s%s @user <amount>`", d.Prefix, verb), nil
	}
	target := m.Mentions[0]
	delta := amount
	if !add {
		delta = -amount
	}
	if _, err := d.Econ.AdminAdjust(target.ID, delta); err != nil {
		return "", err
	}
	if add {
		return fmt.Sprintf("✅ Added **%s** coins to %s.", utils.Coins(amount), target.Username), nil
	}
	return fmt.Sprintf("✅ Removed **%s** coins from %s.", utils.Coins(amount), target.Username), nil
}

func (d *Dispatcher) daily(m platform.Message) (string, error) {
	reward, err := d.Econ.ClaimDaily(m.AuthorID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("🎉 You got **%s** coins from daily.", utils.Coins(reward)), nil
}

func (d *Dispatcher) weekly(m platform.Message) (string, error) {
	reward, err := d.Econ.ClaimWeekly(m.AuthorID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("💸 You got **%s** coins from weekly.", utils.Coins(reward)), nil
}

func (d *Dispatcher) beg(m platform.Message) (string, error) {
	reward, err := d.Econ.Beg(m.AuthorID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("🤲 Someone gave you **%s** coins.", utils.Coins(reward)), nil
}

func (d *Dispatcher) give(ctx context.Context, m platform.Message, args []string) (string, error) {
	amount, ok := parseAmount(args, 1)
	if len(m.Mentions) == 0 || !ok {
		return fmt.Sprintf("❌ Usage: `%sgive @user <amount>`", d.Prefix), nil
	}
	target := m.Mentions[0]
	if err := d.Econ.Transfer(m.AuthorID, target.ID, amount); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ You gave **%s** coins to %s.", utils.Coins(amount), target.Username), nil
}

func (d *Dispatcher) slots(ctx context.Context, m platform.Message, args []string) (string, error) {
	stake, ok := parseAmount(args, 0)
	if !ok {
		return fmt.Sprintf("❌ Usage: `%sslots <amount>`", d.Prefix), nil
	}
	d.reply(ctx, m, "🎰 Spinning...\n🔄 | 🔄 | 🔄")
	res, err := d.Gamble.Spin(ctx, m.AuthorID, stake)
	if err != nil {
		return "", err
	}
	line := fmt.Sprintf("🎰 | %s |", strings.Join(res.Reels[:], " | "))
	if res.Net > 0 {
		return fmt.Sprintf("%s\n🎉 You won **%s** coins!", line, utils.Coins(res.Net)), nil
	}
	return fmt.Sprintf("%s\n💀 You lost **%s** coins.", line, utils.Coins(stake)), nil
}

func (d *Dispatcher) coinflip(m platform.Message, args []string) (string, error) {
	stake, ok := parseAmount(args, 0)
	if !ok {
		return "❌ Enter a valid amount to bet.", nil
	}
	if len(args) < 2 {
		return "❌ Please choose `heads` (or `h`) or `tails` (or `t`).", nil
	}
	var call string
	switch strings.ToLower(args[1]) {
	case "h", "heads":
		call = "heads"
	case "t", "tails":
		call = "tails"
	default:
		return "❌ Please choose `heads` (or `h`) or `tails` (or `t`).", nil
	}

	res, err := d.Gamble.Flip(m.AuthorID, stake, call)
	if err != nil {
		return "", err
	}
	if res.Won {
		return fmt.Sprintf("🪙 It landed on **%s**!\n🎉 You won **%s** coins!", res.Result, utils.Coins(stake)), nil
	}
	return fmt.Sprintf("🪙 It landed on **%s**!\n💀 You lost **%s** coins.", res.Result, utils.Coins(stake)), nil
}

func (d *Dispatcher) leaderboard(ctx context.Context) (string, error) {
	top := d.Econ.Top(10)
	var b strings.Builder
	b.WriteString("**🏆 Top 10 Richest Users**\n\n")
	for i, entry := range top {
		fmt.Fprintf(&b, "**%d.** %s — 💰 **%s** coins\n", i+1, d.username(ctx, entry.UserID), utils.Coins(entry.Balance))
	}
	return b.String(), nil
}

func (d *Dispatcher) shop() string {
	var b strings.Builder
	b.WriteString("🛒 **Shop Items:**\n")
	for i, item := range d.Econ.ShopCatalog() {
		fmt.Fprintf(&b, "%d. %s - %s coins\n", i+1, item.Name, utils.Coins(item.Price))
	}
	return b.String()
}

func (d *Dispatcher) buy(m platform.Message, args []string) (string, error) {
	if len(args) < 1 {
		return fmt.Sprintf("❌ Invalid item number. Use `%sshop` to see available items.", d.Prefix), nil
	}
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Sprintf("❌ Invalid item number. Use `%sshop` to see available items.", d.Prefix), nil
	}
	item, err := d.Econ.Purchase(m.AuthorID, index)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ You bought **%s** for **%s** coins.", item.Name, utils.Coins(item.Price)), nil
}

func (d *Dispatcher) inventory(m platform.Message) string {
	items := d.Econ.InventoryOf(m.AuthorID)
	if len(items) == 0 {
		return "🎒 Your inventory is empty."
	}
	var b strings.Builder
	b.WriteString("🎒 **Your Inventory:**\n")
	for item, count := range items {
		fmt.Fprintf(&b, "• %s x%d\n", item, count)
	}
	return b.String()
}

// parseAmount reads a positive integer from args[i].
func parseAmount(args []string, i int) (int64, bool) {
	if len(args) <= i {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(args[i], ",", ""), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
