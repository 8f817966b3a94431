package giveaway

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"strikebot/model"
)

const defaultColor = 0x2ecc71

// Custom id prefixes of the message buttons; the giveaway id follows the colon.
const (
	JoinPrefix   = "giveaway_participate:"
	LeavePrefix  = "giveaway_leave:"
	CancelPrefix = "giveaway_cancel:"
	RerollPrefix = "giveaway_reroll:"
)

// Action is the button a custom id refers to.
type Action string

const (
	ActionJoin   Action = "join"
	ActionLeave  Action = "leave"
	ActionCancel Action = "cancel"
	ActionReroll Action = "reroll"
)

// ParseCustomID extracts the action and giveaway id from a button custom id.
func ParseCustomID(customID string) (Action, int64, bool) {
	prefixes := []struct {
		prefix string
		action Action
	}{
		{JoinPrefix, ActionJoin},
		{LeavePrefix, ActionLeave},
		{CancelPrefix, ActionCancel},
		{RerollPrefix, ActionReroll},
	}
	for _, p := range prefixes {
		rest, ok := strings.CutPrefix(customID, p.prefix)
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || id <= 0 {
			return "", 0, false
		}
		return p.action, id, true
	}
	return "", 0, false
}

type style struct {
	color  int
	footer string
}

func (s style) base(title, description string, g *model.Giveaway) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       s.color,
		Footer:      &discordgo.MessageEmbedFooter{Text: s.footer},
	}
	if g.ThumbnailURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: g.ThumbnailURL}
	}
	return embed
}

func entriesValue(g *model.Giveaway, count int) string {
	if g.Bounded() {
		return fmt.Sprintf("%d/%d", count, g.MaxParticipants)
	}
	return strconv.Itoa(count)
}

// embed renders the giveaway message itself.
func (s style) embed(g *model.Giveaway, count int) *discordgo.MessageEmbed {
	e := s.base(g.Prize, g.Description, g)
	end := g.EndAt.Unix()
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Ends", Value: fmt.Sprintf("<t:%d:F>\n(<t:%d:R>)", end, end)},
		{Name: "Entries", Value: entriesValue(g, count), Inline: true},
		{Name: "Winners", Value: strconv.Itoa(g.WinnersCount), Inline: true},
	}
	return e
}

func (s style) cancelledEmbed(g *model.Giveaway, count int) *discordgo.MessageEmbed {
	e := s.embed(g, count)
	e.Title = g.Prize + " [CANCELLED]"
	e.Description = strings.TrimSpace(g.Description + "\n\n🛑 **Cancelled**")
	return e
}

func (s style) resultsEmbed(g *model.Giveaway, winners []string, count int, suffix string) *discordgo.MessageEmbed {
	desc := "No entries 😢"
	switch {
	case len(winners) == 1:
		desc = "The winner of this giveaway is tagged above! Congratulations 🎉"
	case len(winners) > 1:
		desc = "The winners of this giveaway are tagged above! Congratulations 🎉"
	}
	e := s.base(fmt.Sprintf("%s [%s]", g.Prize, suffix), desc, g)
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Prize", Value: g.Prize, Inline: true},
		{Name: "Entries", Value: strconv.Itoa(count), Inline: true},
	}
	if len(winners) > 0 {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Winners", Value: strconv.Itoa(len(winners)), Inline: true})
	}
	return e
}

func (s style) winnerDM(g *model.Giveaway) *discordgo.MessageEmbed {
	return s.base("Congratulations! 🎉", fmt.Sprintf("You won **%s**!", g.Prize), g)
}

// components renders the button row. Join, leave and cancel are live while the
// giveaway runs; reroll only after it ended with a draw.
func components(id int64, ended, cancelled bool) []discordgo.MessageComponent {
	suffix := strconv.FormatInt(id, 10)
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "Join", Style: discordgo.PrimaryButton, Emoji: &discordgo.ComponentEmoji{Name: "🎉"}, CustomID: JoinPrefix + suffix, Disabled: ended},
				discordgo.Button{Label: "Leave", Style: discordgo.SecondaryButton, Emoji: &discordgo.ComponentEmoji{Name: "🚪"}, CustomID: LeavePrefix + suffix, Disabled: ended},
				discordgo.Button{Label: "Cancel", Style: discordgo.DangerButton, Emoji: &discordgo.ComponentEmoji{Name: "🛑"}, CustomID: CancelPrefix + suffix, Disabled: ended},
				discordgo.Button{Label: "Reroll", Style: discordgo.SecondaryButton, Emoji: &discordgo.ComponentEmoji{Name: "🔁"}, CustomID: RerollPrefix + suffix, Disabled: !ended || cancelled},
			},
		},
	}
}

func mentions(userIDs []string) string {
	parts := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		parts = append(parts, "<@"+id+">")
	}
	return strings.Join(parts, " ")
}
