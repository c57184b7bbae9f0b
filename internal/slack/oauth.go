package slack

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// Authorization is the outcome of an OAuth code exchange: the workspace
// that installed the bot and the bot token to act in it.
type Authorization struct {
	TeamID   string
	BotToken string
}

// OAuthConfig describes the Slack app credentials used for the install
// flow.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Endpoint overrides the Slack OAuth endpoint, for tests. The zero
	// value means production Slack.
	Endpoint oauth2.Endpoint
}

func (c OAuthConfig) oauth2Config() *oauth2.Config {
	ep := c.Endpoint
	if ep.TokenURL == "" {
		ep = endpoints.Slack
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Scopes:       []string{"bot"},
		Endpoint:     ep,
		RedirectURL:  c.RedirectURL,
	}
}

// AuthorizeURL returns the consent URL to send an installing admin to,
// with a fresh state nonce.
func (c OAuthConfig) AuthorizeURL() (consentURL, state string) {
	state = uuid.New().String()
	return c.oauth2Config().AuthCodeURL(state), state
}

// ExchangeCode swaps the temporary authorization code for the installing
// workspace's bot credential. Slack returns the team id and the bot token
// as extra fields alongside the user access token.
func (c OAuthConfig) ExchangeCode(ctx context.Context, code string) (*Authorization, error) {
	tok, err := c.oauth2Config().Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}

	teamID, _ := tok.Extra("team_id").(string)
	if teamID == "" {
		return nil, fmt.Errorf("oauth response missing team_id")
	}

	bot, _ := tok.Extra("bot").(map[string]any)
	botToken, _ := bot["bot_access_token"].(string)
	if botToken == "" {
		return nil, fmt.Errorf("oauth response missing bot access token")
	}

	return &Authorization{TeamID: teamID, BotToken: botToken}, nil
}
