package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"strikebot/model"
	"strikebot/utils/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		// Open migrates.
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()
		logger.Infof("Database %s is up to date", cfg.Database.Path)
		return nil
	},
}

var dueCmd = &cobra.Command{
	Use:   "due",
	Short: "Print mutes and giveaways that the pollers would process now",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		now := time.Now()
		mutes, err := store.DueMutes(ctx, now)
		if err != nil {
			return err
		}
		giveaways, err := store.DueGiveaways(ctx, now)
		if err != nil {
			return err
		}
		return printDue(cmd.OutOrStdout(), mutes, giveaways, cfg.Location())
	},
}

func printDue(out io.Writer, mutes []model.MuteRecord, giveaways []model.Giveaway, loc *time.Location) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Due mutes: %d\n", len(mutes))
	if len(mutes) > 0 {
		fmt.Fprintln(w, "GUILD\tUSER\tUNMUTE AT\tROLES")
	}
	for _, m := range mutes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", m.GuildID, m.UserID, m.UnmuteAt.In(loc).Format("2006-01-02 15:04"), len(m.RoleIDs))
	}
	fmt.Fprintf(w, "\nDue giveaways: %d\n", len(giveaways))
	if len(giveaways) > 0 {
		fmt.Fprintln(w, "ID\tPRIZE\tCHANNEL\tEND AT")
	}
	for _, g := range giveaways {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", g.ID, g.Prize, g.ChannelID, g.EndAt.In(loc).Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
