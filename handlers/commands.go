// handlers/commands.go — prefix command dispatch
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"clan-economy-bot/platform"
	"clan-economy-bot/services"
	"clan-economy-bot/utils"
)

// Dispatcher resolves prefix commands to core operations and renders the
// results. Each user's commands run through a FIFO queue so their own
// commands apply in arrival order; different users interleave freely.
type Dispatcher struct {
	Prefix     string
	Econ       *services.EconomyService
	Gamble     *services.GambleService
	Clans      *services.ClanService
	Chat       platform.Platform
	AdminUsers map[string]bool

	mu     sync.Mutex
	queues map[string]*userQueue
}

func NewDispatcher(prefix string, econ *services.EconomyService, gamble *services.GambleService, clans *services.ClanService, chat platform.Platform, adminUsers map[string]bool) *Dispatcher {
	return &Dispatcher{
		Prefix:     prefix,
		Econ:       econ,
		Gamble:     gamble,
		Clans:      clans,
		Chat:       chat,
		AdminUsers: adminUsers,
		queues:     map[string]*userQueue{},
	}
}

// Dispatch enqueues a message on its author's queue. Non-command messages
// are ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, m platform.Message) {
	if !strings.HasPrefix(m.Content, d.Prefix) {
		return
	}
	d.mu.Lock()
	q, ok := d.queues[m.AuthorID]
	if !ok {
		q = &userQueue{}
		d.queues[m.AuthorID] = q
	}
	d.mu.Unlock()

	q.push(func() { d.handle(ctx, m) })
}

func (d *Dispatcher) handle(ctx context.Context, m platform.Message) {
	fields := strings.Fields(strings.TrimPrefix(m.Content, d.Prefix))
	if len(fields) == 0 {
		return
	}
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	var reply string
	var err error
	switch cmd {
	case "balance", "bal":
		reply, err = d.balance(ctx, m)
	case "addmoney":
		reply, err = d.adminAdjust(ctx, m, args, true)
	case "removemoney":
		reply, err = d.adminAdjust(ctx, m, args, false)
	case "daily":
		reply, err = d.daily(m)
	case "weekly":
		reply, err = d.weekly(m)
	case "beg":
		reply, err = d.beg(m)
	case "give":
		reply, err = d.give(ctx, m, args)
	case "slots":
		reply, err = d.slots(ctx, m, args)
	case "coinflip", "cf":
		reply, err = d.coinflip(m, args)
	case "eclb":
		reply, err = d.leaderboard(ctx)
	case "shop":
		reply = d.shop()
	case "buy":
		reply, err = d.buy(m, args)
	case "inventory":
		reply = d.inventory(m)
	case "clan":
		reply, err = d.clan(ctx, m, args)
	case "help":
		reply = d.help()
	default:
		return
	}

	if err != nil {
		reply = renderError(err)
	}
	if reply == "" {
		return
	}
	d.reply(ctx, m, reply)
}

func (d *Dispatcher) reply(ctx context.Context, m platform.Message, text string) {
	if _, err := d.Chat.SendChannel(ctx, m.ChannelID, fmt.Sprintf("<@%s> %s", m.AuthorID, text)); err != nil {
		log.Printf("⚠️ failed to send reply: %v", err)
	}
}

func (d *Dispatcher) isAdmin(m platform.Message) bool {
	return m.IsAdmin || d.AdminUsers[m.AuthorID]
}

// username resolves a display name, degrading to "Unknown User" when the
// platform can't be reached.
func (d *Dispatcher) username(ctx context.Context, userID string) string {
	name, err := d.Chat.Username(ctx, userID)
	if err != nil {
		return "Unknown User"
	}
	return name
}

// renderError maps a service rejection to a user-facing line.
func renderError(err error) string {
	var se *services.Error
	if !errors.As(err, &se) {
		log.Printf("❌ command failed: %v", err)
		return "❌ Something went wrong. Try again later."
	}
	switch se.Kind {
	case services.KindCooldownActive:
		return fmt.Sprintf("🕓 Wait **%s** before doing that again.", utils.Wait(se.Remaining))
	case services.KindInsufficientFunds:
		return "❌ You don't have enough coins."
	case services.KindPermissionDenied:
		return "❌ " + se.Message
	case services.KindNotFound, services.KindAlreadyExists, services.KindAlreadyInState, services.KindValidation:
		return "❌ " + se.Message
	default:
		return "❌ " + se.Message
	}
}

func (d *Dispatcher) help() string {
	p := d.Prefix
	return fmt.Sprintf(`**📜 Economy Bot Commands**

💰 **Economy:**
`+"`%sbalance [@user]`"+` – Check your or someone else's balance
`+"`%sdaily`"+` – Claim daily coins
`+"`%sweekly`"+` – Claim weekly reward
`+"`%sbeg`"+` – Beg for coins
`+"`%sgive @user <amount>`"+` – Give coins to another user

🎰 **Gambling:**
`+"`%scoinflip <amount> <heads/tails or h/t>`"+` – Flip a coin and gamble coins
`+"`%sslots <amount>`"+` – Spin the slot machine

🛒 **Shop & Inventory:**
`+"`%sshop`"+` – View items available in the shop
`+"`%sbuy <item number>`"+` – Buy an item from the shop
`+"`%sinventory`"+` – See your owned items

🏰 **Clans:**
`+"`%sclan create <name> [tag]`"+` – Found a clan
`+"`%sclan join <name>`"+` / `+"`invite @user`"+` / `+"`leave`"+` – Membership
`+"`%sclan promote/demote @user [2]`"+` – Move members on the ladder
`+"`%sclan deposit <amount>`"+` / `+"`weekly`"+` / `+"`info`"+` / `+"`profile`"+` / `+"`lb`"+` – Vault & stats

📈 **Leaderboard:**
`+"`%seclb`"+` – View top richest users`,
		p, p, p, p, p, p, p, p, p, p, p, p, p, p, p)
}

// userQueue serializes one user's commands in arrival order.
type userQueue struct {
	mu      sync.Mutex
	jobs    []func()
	running bool
}

func (q *userQueue) push(fn func()) {
	q.mu.Lock()
	q.jobs = append(q.jobs, fn)
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.mu.Unlock()
	go q.drain()
}

func (q *userQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.jobs) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		fn := q.jobs[0]
		q.jobs = q.jobs[1:]
		q.mu.Unlock()
		fn()
	}
}
