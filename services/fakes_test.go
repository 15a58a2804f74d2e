package services

import (
	"context"
	"time"

	"clan-economy-bot/platform"
)

// fakePlatform is an in-memory Platform stand-in. Zero value: every call
// succeeds, reactions time out, no invites, everyone present.
type fakePlatform struct {
	reaction    string // AwaitReaction result; "" means timeout
	invites     []platform.InviteUse
	invitesErr  error
	absent      map[string]bool // userID -> gone from the guild
	sent        []string
	dms         map[string][]string
	tags        map[string]string // userID -> applied tag
	usernames   map[string]string
	usernameErr error
}

func (f *fakePlatform) Username(ctx context.Context, userID string) (string, error) {
	if f.usernameErr != nil {
		return "", f.usernameErr
	}
	if name, ok := f.usernames[userID]; ok {
		return name, nil
	}
	return "user-" + userID, nil
}

func (f *fakePlatform) SendChannel(ctx context.Context, channelID, content string) (string, error) {
	f.sent = append(f.sent, content)
	return "msg-1", nil
}

func (f *fakePlatform) React(ctx context.Context, channelID, messageID, emoji string) error {
	return nil
}

func (f *fakePlatform) AwaitReaction(ctx context.Context, channelID, messageID, userID string, emojis []string, timeout time.Duration) (string, error) {
	if f.reaction == "" {
		return "", platform.ErrTimeout
	}
	return f.reaction, nil
}

func (f *fakePlatform) SetClanTag(ctx context.Context, guildID, userID, tag string) error {
	if f.tags == nil {
		f.tags = map[string]string{}
	}
	f.tags[userID] = tag
	return nil
}

func (f *fakePlatform) GuildInvites(ctx context.Context, guildID string) ([]platform.InviteUse, error) {
	if f.invitesErr != nil {
		return nil, f.invitesErr
	}
	return f.invites, nil
}

func (f *fakePlatform) MemberPresent(ctx context.Context, guildID, userID string) (bool, error) {
	return !f.absent[userID], nil
}

func (f *fakePlatform) DirectMessage(ctx context.Context, userID, content string) error {
	if f.dms == nil {
		f.dms = map[string][]string{}
	}
	f.dms[userID] = append(f.dms[userID], content)
	return nil
}
