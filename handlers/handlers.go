package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"

	"strikebot/bot"
	"strikebot/discipline"
	"strikebot/giveaway"
	"strikebot/tasks"
	"strikebot/tasks/lookup"
	"strikebot/utils"
	"strikebot/utils/logger"
)

const commandTimeout = 30 * time.Second

type commandFunc func(ctx context.Context, b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate)

func Register(b *bot.Bot) {
	b.CommandHandlers = commandHandlers(b)
	addHandlers(b)
}

func commandHandlers(b *bot.Bot) map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	m := map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate){
		"mute":         deferred(b, true, handleMute),
		"unmute":       deferred(b, true, handleUnmute),
		"strikes":      deferred(b, false, handleStrikes),
		"resetstrikes": deferred(b, true, handleResetStrikes),
		"warn":         deferred(b, true, handleWarn),
		"warns":        deferred(b, true, handleWarns),
		"removewarn":   deferred(b, true, handleRemoveWarn),
		"resetwarns":   deferred(b, true, handleResetWarns),
		"kick":         deferred(b, true, handleKick),
		"ban":          deferred(b, true, handleBan),
		"purge":        deferred(b, true, handlePurge),
		"setuproles":   deferred(b, true, handleSetupRoles),
		"modstats":     deferred(b, true, handleModStats),
		"giveaway":     deferred(b, true, handleGiveawayCommand),
		"counter":      deferred(b, true, handleCounter),
		"botstatus": deferred(b, true, func(_ context.Context, b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
			SystemInfoHandler(b, s, i)
		}),
	}
	if b.Lookup != nil {
		m["weer"] = deferred(b, false, handleWeather)
		m["zoek"] = searchCommand(b)
	}
	return m
}

// deferred acknowledges the interaction before running fn, so slow platform
// calls do not hit the three second response deadline.
func deferred(b *bot.Bot, ephemeral bool, fn commandFunc) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.GuildID == "" || i.Member == nil || i.Member.User == nil {
			utils.SendErrorResponse(s, i, "This command only works in a server.")
			return
		}
		if err := utils.DeferResponse(s, i, ephemeral); err != nil {
			logger.Errorf("Failed to defer interaction %s: %v", i.ID, err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		fn(ctx, b, s, i)
	}
}

func addHandlers(b *bot.Bot) {
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		logger.Infof("Logged in as: %v#%v", s.State.User.Username, s.State.User.Discriminator)
	})
	b.Session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("Interaction %s panicked: %v", i.ID, r)
			}
		}()
		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			if h, ok := b.CommandHandlers[i.ApplicationCommandData().Name]; ok {
				h(s, i)
			}
		case discordgo.InteractionMessageComponent:
			customID := i.MessageComponentData().CustomID
			if action, id, ok := giveaway.ParseCustomID(customID); ok {
				handleGiveawayButton(b, s, i, action, id)
			} else if page, ok := utils.ParsePage(customID, tasks.StatsPagePrefix); ok {
				handleModStatsPage(b, s, i, page)
			} else if id, page, ok := lookup.ParsePageID(customID); ok {
				handleSearchPage(b, s, i, id, page)
			}
		}
	})
}

// replyError turns an engine error into an ephemeral follow-up. Domain errors
// are shown as-is; anything else is logged and reported generically.
func replyError(s *discordgo.Session, i *discordgo.InteractionCreate, op string, err error) {
	var de discipline.Error
	var ge giveaway.Error
	switch {
	case errors.As(err, &de), errors.As(err, &ge), errors.Is(err, utils.ErrInvalidDuration):
		utils.SendFollowUpError(s, i.Interaction, err.Error())
	default:
		logger.Errorf("%s failed for interaction %s: %v", op, i.ID, err)
		utils.SendFollowUpError(s, i.Interaction, "Something went wrong, try again later.")
	}
}

type options map[string]*discordgo.ApplicationCommandInteractionDataOption

func optionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) options {
	m := make(options, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return m
}

func (o options) string(name string) string {
	if opt, ok := o[name]; ok {
		return opt.StringValue()
	}
	return ""
}

func (o options) int(name string, fallback int) int {
	if opt, ok := o[name]; ok {
		return int(opt.IntValue())
	}
	return fallback
}

func (o options) userID(name string) string {
	if opt, ok := o[name]; ok {
		return opt.UserValue(nil).ID
	}
	return ""
}

func (o options) has(name string) bool {
	_, ok := o[name]
	return ok
}
