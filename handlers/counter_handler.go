package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"strikebot/bot"
	"strikebot/model"
	"strikebot/tasks/counters"
	"strikebot/utils"
)

func handleCounter(ctx context.Context, b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if b.Counters == nil {
		utils.SendFollowUpError(s, i.Interaction, "Counters are disabled in the configuration.")
		return
	}
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return
	}
	sub := data.Options[0]

	switch sub.Name {
	case "setup":
		if _, err := b.Counters.EnsureChannels(ctx); err != nil {
			replyError(s, i, "counter setup", err)
			return
		}
		states, err := b.Counters.Refresh(ctx)
		if err != nil {
			replyError(s, i, "counter setup", err)
			return
		}
		utils.SendFollowUp(s, i.Interaction, "✅ Counters are on and update automatically.\n"+describeCounters(states)+
			"\nUse **/counter refresh** to update right away.")
	case "refresh":
		states, err := b.Counters.Refresh(ctx)
		if err != nil {
			replyError(s, i, "counter refresh", err)
			return
		}
		utils.SendFollowUp(s, i.Interaction, "✅ Counters refreshed.\n"+describeCounters(states))
	case "override":
		opts := optionMap(sub.Options)
		kind := model.CounterKind(opts.string("kind"))
		if !kind.Valid() {
			utils.SendFollowUpError(s, i.Interaction, "Unknown counter.")
			return
		}
		var value *int64
		if opts.has("value") {
			v := int64(opts.int("value", 0))
			value = &v
		}
		if err := b.Counters.SetOverride(ctx, kind, value); err != nil {
			replyError(s, i, "counter override", err)
			return
		}
		if value == nil {
			utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("✅ Override for **%s** cleared.", kind))
			return
		}
		utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("✅ Override for **%s** set to %s.", kind, counters.FormatCount(value)))
	}
}

func describeCounters(states []model.CounterState) string {
	var lines []string
	for _, st := range states {
		lines = append(lines, fmt.Sprintf("• %s: %s", st.Kind, counters.FormatCount(counters.Resolve(st.Cached, st.Override))))
	}
	return strings.Join(lines, "\n")
}
