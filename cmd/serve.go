package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/drillbitlabs/drillbot/internal/audit"
	"github.com/drillbitlabs/drillbot/internal/bot"
	"github.com/drillbitlabs/drillbot/internal/config"
	"github.com/drillbitlabs/drillbot/internal/db"
	"github.com/drillbitlabs/drillbot/internal/server"
	"github.com/drillbitlabs/drillbot/internal/slack"
	"github.com/drillbitlabs/drillbot/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bot server",
	Long:  `Starts the HTTP server for Slack event callbacks and the OAuth install flow, and optionally the RTM event streams for already authorized teams.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		if cfg.Slack.SigningSecret == "" {
			log.Printf("warning: no Slack signing secret configured, event requests will not be verified")
		}

		database, err := db.Open(cfg.AuditDB)
		if err != nil {
			return fmt.Errorf("opening audit database: %w", err)
		}
		defer database.Close()
		auditor := audit.NewStore(database)

		coord := store.NewCoordinator(cfg.DataDir)
		if err := coord.Load(); err != nil {
			return fmt.Errorf("loading team registry: %w", err)
		}
		log.Printf("loaded %d authorized team(s)", len(coord.TeamIDs()))

		factory := func(token string) slack.Client { return slack.NewClient(token, nil) }
		b := bot.New(cfg.BotName, coord, factory, auditor)

		oauthCfg := slack.OAuthConfig{
			ClientID:     cfg.Slack.ClientID,
			ClientSecret: cfg.Slack.ClientSecret,
			RedirectURL:  cfg.Slack.RedirectURL,
		}

		srv := server.New(server.Config{Port: cfg.Port, AllowAll: cfg.AllowAllCORS})
		bot.RegisterRoutes(srv.Router(),
			bot.NewEventsHandler(b, cfg.Slack.SigningSecret),
			bot.NewOAuthHandler(oauthCfg, coord, auditor))
		audit.RegisterRoutes(srv.Router(), auditor)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cfg.RTM {
			runRTMStreams(ctx, coord, b)
		}

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

// runRTMStreams starts one RTM read loop per authorized team, reconnecting
// with a fixed backoff until the context ends. Teams authorized after
// startup are reached via the Events API only.
func runRTMStreams(ctx context.Context, coord *store.Coordinator, b *bot.Bot) {
	for _, teamID := range coord.TeamIDs() {
		rec, ok := coord.Record(teamID)
		if !ok {
			continue
		}
		go func(teamID, token string) {
			rtm := slack.NewRTM(slack.NewClient(token, nil))
			for ctx.Err() == nil {
				err := rtm.Run(ctx, func(ctx context.Context, ev slack.RTMEvent) {
					b.HandleMessage(ctx, bot.MessageEvent{
						User:    ev.User,
						Text:    ev.Text,
						Channel: ev.Channel,
					})
				})
				if ctx.Err() != nil {
					return
				}
				log.Printf("rtm: team %s stream ended: %v; reconnecting in 5s", teamID, err)
				select {
				case <-time.After(5 * time.Second):
				case <-ctx.Done():
					return
				}
			}
		}(teamID, rec.BotToken)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
