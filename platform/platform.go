// Package platform is the boundary to the chat platform. The engine consumes
// these capabilities and never touches the connection directly; failures of
// the softer calls (names, DMs, nicknames) are expected to degrade, not abort.
package platform

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned by AwaitReaction when the wait expires without a
// qualifying reaction.
var ErrTimeout = errors.New("platform: reaction wait timed out")

// InviteUse is one guild invite with its current use count.
type InviteUse struct {
	Code      string
	Uses      int
	InviterID string
}

// Platform is the chat-platform collaborator.
type Platform interface {
	// Username resolves a user id to a display name.
	Username(ctx context.Context, userID string) (string, error)

	// SendChannel posts a message and returns its id.
	SendChannel(ctx context.Context, channelID, content string) (string, error)

	// React adds a reaction to a message.
	React(ctx context.Context, channelID, messageID, emoji string) error

	// AwaitReaction blocks until the given user reacts to the message with one
	// of the listed emojis, or the timeout elapses. The wait is single-shot:
	// the first qualifying reaction wins and the listener is removed on every
	// exit path.
	AwaitReaction(ctx context.Context, channelID, messageID, userID string, emojis []string, timeout time.Duration) (string, error)

	// SetClanTag suffixes the member's nickname with the clan tag, or clears
	// the suffix when tag is empty.
	SetClanTag(ctx context.Context, guildID, userID, tag string) error

	// GuildInvites lists the guild's invites with use counts.
	GuildInvites(ctx context.Context, guildID string) ([]InviteUse, error)

	// MemberPresent reports whether the user is still a guild member.
	MemberPresent(ctx context.Context, guildID, userID string) (bool, error)

	// DirectMessage sends a DM to the user.
	DirectMessage(ctx context.Context, userID, content string) error
}
