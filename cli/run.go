package cli

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"strikebot/bot"
	"strikebot/dashboard"
	"strikebot/handlers"
	"strikebot/utils/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to Discord and start the pollers and the dashboard",
	RunE:  runBot,
}

func runBot(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	b, err := bot.New(cfg, store)
	if err != nil {
		return err
	}
	handlers.Register(b)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.Run(gctx) })

	if cfg.Dashboard.Enabled {
		srv, err := newDashboard(b)
		if err != nil {
			return err
		}
		g.Go(func() error { return srv.Run(gctx) })
	}

	err = g.Wait()
	logger.Infof("Bot is shutting down")
	return err
}

func newDashboard(b *bot.Bot) (*dashboard.Server, error) {
	dc := dashboard.Config{
		Addr:          cfg.Dashboard.Addr,
		PublicBaseURL: cfg.Dashboard.PublicBaseURL,
		ClientID:      cfg.Discord.AppID,
		ClientSecret:  cfg.Dashboard.ClientSecret,
		SessionSecret: cfg.Dashboard.SessionSecret,
		SessionMaxAge: cfg.Dashboard.SessionMaxAge,
		GuildID:       cfg.Discord.GuildID,
		Location:      cfg.Location(),
		Access:        b,
		Moderation:    b.Discipline,
		Giveaways:     b.Giveaways,
		Store:         b.Store,
		Clock:         b.Clock,
		StartedAt:     b.Started,
	}
	// A nil *Updater must not become a non-nil interface.
	if b.Counters != nil {
		dc.Counters = b.Counters
	}
	return dashboard.New(dc)
}
