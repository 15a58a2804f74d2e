package platform

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// UserRef is a user mentioned in a command.
type UserRef struct {
	ID       string
	Username string
}

// Message is one incoming chat message, already stripped to what the
// dispatcher needs.
type Message struct {
	GuildID   string
	ChannelID string
	MessageID string
	AuthorID  string
	Content   string
	Mentions  []UserRef
	IsAdmin   bool
}

// Events are the callbacks the engine registers against the gateway.
type Events struct {
	OnMessage    func(ctx context.Context, m Message)
	OnMemberJoin func(ctx context.Context, guildID, userID string)
	OnGuildReady func(ctx context.Context, guildID string)
}

// Discord adapts a discordgo session to the Platform interface.
type Discord struct {
	Session *discordgo.Session
}

func NewDiscord(token string) (*Discord, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildInvites |
		discordgo.IntentsGuildMessageReactions
	return &Discord{Session: session}, nil
}

// Start registers the gateway handlers and opens the connection. ctx bounds
// the lifetime of every callback.
func (d *Discord) Start(ctx context.Context, ev Events) error {
	d.Session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot || m.GuildID == "" {
			return
		}
		if ev.OnMessage == nil {
			return
		}
		msg := Message{
			GuildID:   m.GuildID,
			ChannelID: m.ChannelID,
			MessageID: m.ID,
			AuthorID:  m.Author.ID,
			Content:   strings.TrimSpace(m.Content),
			IsAdmin:   d.isAdmin(m),
		}
		for _, u := range m.Mentions {
			msg.Mentions = append(msg.Mentions, UserRef{ID: u.ID, Username: u.Username})
		}
		ev.OnMessage(ctx, msg)
	})

	d.Session.AddHandler(func(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
		if ev.OnMemberJoin == nil || m.User == nil || m.User.Bot {
			return
		}
		ev.OnMemberJoin(ctx, m.GuildID, m.User.ID)
	})

	d.Session.AddHandler(func(s *discordgo.Session, g *discordgo.GuildCreate) {
		if ev.OnGuildReady != nil {
			ev.OnGuildReady(ctx, g.ID)
		}
	})

	d.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Printf("✅ Logged in as %s", r.User.Username)
	})

	if err := d.Session.Open(); err != nil {
		return fmt.Errorf("failed to open gateway connection: %w", err)
	}
	return nil
}

func (d *Discord) Close() error {
	return d.Session.Close()
}

func (d *Discord) isAdmin(m *discordgo.MessageCreate) bool {
	perms, err := d.Session.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil {
		return false
	}
	return perms&discordgo.PermissionAdministrator != 0
}

func (d *Discord) Username(ctx context.Context, userID string) (string, error) {
	user, err := d.Session.User(userID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to fetch user %s: %w", userID, err)
	}
	return user.Username, nil
}

func (d *Discord) SendChannel(ctx context.Context, channelID, content string) (string, error) {
	msg, err := d.Session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	return msg.ID, nil
}

func (d *Discord) React(ctx context.Context, channelID, messageID, emoji string) error {
	return d.Session.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx))
}

// AwaitReaction waits for the first qualifying reaction. The gateway handler
// is removed on every exit path and the result channel is buffered, so a late
// reaction can never fire the waiter twice or leak a goroutine.
func (d *Discord) AwaitReaction(ctx context.Context, channelID, messageID, userID string, emojis []string, timeout time.Duration) (string, error) {
	got := make(chan string, 1)
	remove := d.Session.AddHandler(func(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
		if r.MessageID != messageID || r.UserID != userID {
			return
		}
		for _, e := range emojis {
			if r.Emoji.Name == e {
				select {
				case got <- e:
				default:
				}
				return
			}
		}
	})
	defer remove()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case emoji := <-got:
		return emoji, nil
	case <-timer.C:
		return "", ErrTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (d *Discord) SetClanTag(ctx context.Context, guildID, userID, tag string) error {
	member, err := d.Session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to fetch member %s: %w", userID, err)
	}
	base := member.Nick
	if base == "" && member.User != nil {
		base = member.User.Username
	}
	if i := strings.LastIndex(base, " ["); i >= 0 && strings.HasSuffix(base, "]") {
		base = base[:i]
	}
	nick := base
	if tag != "" {
		nick = fmt.Sprintf("%s [%s]", base, tag)
	}
	return d.Session.GuildMemberNickname(guildID, userID, nick, discordgo.WithContext(ctx))
}

func (d *Discord) GuildInvites(ctx context.Context, guildID string) ([]InviteUse, error) {
	invites, err := d.Session.GuildInvites(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list invites for guild %s: %w", guildID, err)
	}
	uses := make([]InviteUse, 0, len(invites))
	for _, inv := range invites {
		use := InviteUse{Code: inv.Code, Uses: inv.Uses}
		if inv.Inviter != nil {
			use.InviterID = inv.Inviter.ID
		}
		uses = append(uses, use)
	}
	return uses, nil
}

func (d *Discord) MemberPresent(ctx context.Context, guildID, userID string) (bool, error) {
	_, err := d.Session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		if restErr, ok := err.(*discordgo.RESTError); ok && restErr.Response != nil && restErr.Response.StatusCode == 404 {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (d *Discord) DirectMessage(ctx context.Context, userID, content string) error {
	channel, err := d.Session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to open DM channel: %w", err)
	}
	_, err = d.Session.ChannelMessageSend(channel.ID, content, discordgo.WithContext(ctx))
	return err
}
