package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"strikebot/utils"
	"strikebot/utils/logger"
)

// Run opens the gateway, registers commands, reconciles giveaway messages and
// starts the pollers. It blocks until ctx is cancelled and then shuts down.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}
	b.startedAt.Store(b.Clock.Now().Unix())

	if err := b.RefreshCommands(); err != nil {
		logger.Errorf("%v", err)
	}

	n, err := b.Giveaways.Reconcile(ctx)
	if err != nil {
		logger.Errorf("Failed to reconcile giveaways: %v", err)
	} else {
		logger.Infof("Reconciled %d running giveaways", n)
	}

	b.scheduler = NewScheduler(b.pollers()...)
	b.scheduler.Start(ctx)

	logger.Infof("Bot is now running.")
	b.logStartup(ctx)

	<-ctx.Done()
	b.Close()
	return nil
}

func (b *Bot) logStartup(ctx context.Context) {
	channelID := b.Config.Moderation.ModLogChannelID
	if channelID == "" {
		return
	}
	embed := utils.AuditEmbed(utils.Info, "Startup", b.Clock.Now(), utils.Field("System", "Bot has started successfully."))
	if _, err := b.Platform.SendMessage(ctx, channelID, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}); err != nil {
		logger.Warnf("Failed to send startup log: %v", err)
	}
}

// Close stops the pollers and the gateway connection.
func (b *Bot) Close() {
	logger.Infof("Gracefully shutting down.")
	if b.scheduler != nil {
		b.scheduler.Stop()
	}
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			logger.Warnf("Failed to close redis client: %v", err)
		}
	}
	if err := b.Session.Close(); err != nil {
		logger.Warnf("Failed to close session: %v", err)
	}
}
