package bot

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/drillbitlabs/drillbot/internal/audit"
	"github.com/drillbitlabs/drillbot/internal/slack"
	"github.com/drillbitlabs/drillbot/internal/store"
)

// registerCommand is the leading token that triggers registration handling.
const registerCommand = "!register"

// DefaultGreeting is the canned reply sent to known users outside the
// registration flow.
const DefaultGreeting = "Szevasz!"

// ClientFactory builds a Slack client for a bot token. Injected so tests
// can substitute a fake platform.
type ClientFactory func(botToken string) slack.Client

// Bot routes message events to the right team's registry and talks back to
// users over Slack.
type Bot struct {
	name     string
	greeting string
	coord    *store.Coordinator
	clients  ClientFactory
	auditor  *audit.Store // optional
}

// New returns a Bot. auditor may be nil to disable the audit trail.
func New(name string, coord *store.Coordinator, clients ClientFactory, auditor *audit.Store) *Bot {
	return &Bot{
		name:     name,
		greeting: DefaultGreeting,
		coord:    coord,
		clients:  clients,
		auditor:  auditor,
	}
}

// clientFor returns a Slack client for the given team, or nil when the
// team has no stored credential.
func (b *Bot) clientFor(teamID string) slack.Client {
	rec, ok := b.coord.Record(teamID)
	if !ok {
		return nil
	}
	return b.clients(rec.BotToken)
}

// isMember reports whether userID appears in teamID's member list. Used as
// the membership predicate for team resolution; costs one users.list call.
func (b *Bot) isMember(ctx context.Context, teamID, userID string) (bool, error) {
	client := b.clientFor(teamID)
	if client == nil {
		return false, fmt.Errorf("no credential for team %s", teamID)
	}
	members, err := client.ListTeamMembers(ctx)
	if err != nil {
		return false, err
	}
	for _, m := range members {
		if m.ID == userID {
			return true, nil
		}
	}
	return false, nil
}

// HandleMessage processes one inbound message event. A user that belongs
// to no known team is dropped quietly; nothing in this path is allowed to
// escalate into a request failure.
func (b *Bot) HandleMessage(ctx context.Context, ev MessageEvent) {
	if ev.User == "" {
		return
	}

	teamID, ok := b.coord.SelectTeamForUser(ctx, ev.User, b.isMember)
	if !ok {
		log.Printf("bot: user %s not found in any authorized team, dropping event", ev.User)
		return
	}

	if strings.HasPrefix(ev.Text, registerCommand) {
		b.handleRegistration(ctx, teamID, ev.User, ev.Text)
		return
	}

	b.reply(ctx, teamID, ev.User)
}

// handleRegistration handles the !register command. A bare "!register"
// self-registers the sender if they are not registered yet; an admin can
// follow the command with usernames to register those users in bulk. All
// registrations target teamID, the team the sender resolved to.
func (b *Bot) handleRegistration(ctx context.Context, teamID, userID, text string) {
	if text == registerCommand {
		registered, err := b.coord.IsRegisteredIn(teamID, userID)
		if err != nil {
			log.Printf("bot: registration lookup for %s: %v", userID, err)
			return
		}
		if registered {
			return
		}
		if err := b.coord.RegisterUserIn(teamID, userID); err != nil {
			log.Printf("bot: registering %s: %v", userID, err)
			return
		}
		b.audit(ctx, audit.ActionUserRegistered, teamID, userID, "self-registered")
		return
	}

	admin, err := b.coord.IsAdminIn(teamID, userID)
	if err != nil {
		log.Printf("bot: admin lookup for %s: %v", userID, err)
		return
	}
	if !admin {
		return
	}

	names := strings.Fields(text)[1:]
	ids, err := b.resolveUserIDs(ctx, teamID, names)
	if err != nil {
		log.Printf("bot: resolving usernames %v: %v", names, err)
		return
	}
	for _, id := range ids {
		registered, err := b.coord.IsRegisteredIn(teamID, id)
		if err != nil {
			log.Printf("bot: registration lookup for %s: %v", id, err)
			continue
		}
		if registered {
			continue
		}
		if err := b.coord.RegisterUserIn(teamID, id); err != nil {
			log.Printf("bot: registering %s: %v", id, err)
			continue
		}
		b.audit(ctx, audit.ActionUserRegistered, teamID, id, "registered by admin "+userID)
	}
}

// resolveUserIDs maps usernames to user ids via the team's member list.
// Names with no matching member are skipped.
func (b *Bot) resolveUserIDs(ctx context.Context, teamID string, names []string) ([]string, error) {
	client := b.clientFor(teamID)
	if client == nil {
		return nil, fmt.Errorf("no credential for team %s", teamID)
	}
	members, err := client.ListTeamMembers(ctx)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	var ids []string
	for _, m := range members {
		if wanted[m.Name] {
			ids = append(ids, m.ID)
		}
	}
	return ids, nil
}

// reply sends the canned greeting to the user over a direct channel.
func (b *Bot) reply(ctx context.Context, teamID, userID string) {
	client := b.clientFor(teamID)
	if client == nil {
		log.Printf("bot: no credential for team %s, cannot reply", teamID)
		return
	}
	channel, err := client.OpenDirectChannel(ctx, userID)
	if err != nil {
		log.Printf("bot: opening dm with %s: %v", userID, err)
		return
	}
	if err := client.PostMessage(ctx, channel, b.greeting); err != nil {
		log.Printf("bot: messaging %s: %v", userID, err)
		return
	}
	b.audit(ctx, audit.ActionMessageReplied, teamID, userID, b.name+" sent greeting")
}

func (b *Bot) audit(ctx context.Context, action audit.Action, teamID, userID, summary string) {
	if b.auditor == nil {
		return
	}
	err := b.auditor.Log(ctx, audit.Entry{
		Action:  action,
		TeamID:  teamID,
		UserID:  userID,
		Summary: summary,
	})
	if err != nil {
		log.Printf("bot: audit log: %v", err)
	}
}
