// Package tasks holds periodic and on-demand jobs that summarise bot state.
package tasks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"strikebot/model"
	"strikebot/utils"
)

// StatsSource is the read side of the discipline store.
type StatsSource interface {
	ListDiscipline(ctx context.Context, guildID string) ([]model.DisciplineRecord, error)
	ListMutes(ctx context.Context, guildID string) ([]model.MuteRecord, error)
}

const (
	statsRows = 15
	// StatsPagePrefix prefixes the custom ids of the /modstats page buttons.
	StatsPagePrefix = "modstats"
)

// GenerateDisciplineStatsEmbed summarises who holds strikes or warnings and
// which mutes are still running. page is 1-based and clamped to the valid
// range; the clamped page and the page count are returned with the embed.
func GenerateDisciplineStatsEmbed(ctx context.Context, src StatsSource, guildID string, now time.Time, page int) (*discordgo.MessageEmbed, int, int, error) {
	records, err := src.ListDiscipline(ctx, guildID)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to get discipline records for guild %s: %w", guildID, err)
	}
	mutes, err := src.ListMutes(ctx, guildID)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to get mutes for guild %s: %w", guildID, err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Strikes != records[j].Strikes {
			return records[i].Strikes > records[j].Strikes
		}
		return records[i].Warns > records[j].Warns
	})

	totalStrikes, totalWarns := 0, 0
	for _, r := range records {
		totalStrikes += r.Strikes
		totalWarns += r.Warns
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("**Strikes: %d** · **Warnings: %d** · **Muted: %d**\n\n", totalStrikes, totalWarns, len(mutes)))
	if len(records) == 0 {
		builder.WriteString("Nobody has strikes or warnings.\n")
	}
	pages := utils.PageCount(len(records), statsRows)
	page = min(max(page, 1), pages)
	start := (page - 1) * statsRows
	end := min(start+statsRows, len(records))
	for i := start; i < end; i++ {
		r := records[i]
		builder.WriteString(fmt.Sprintf("%d. <@%s>: %d strike(s), %d warning(s)\n", i+1, r.UserID, r.Strikes, r.Warns))
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Moderation overview",
		Description: builder.String(),
		Timestamp:   now.Format(time.RFC3339),
		Color:       0x00ff00,
	}
	if pages > 1 {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Page %d/%d", page, pages)}
	}
	if len(mutes) > 0 {
		var lines []string
		for i, m := range mutes {
			if i == statsRows {
				lines = append(lines, fmt.Sprintf("… and %d more", len(mutes)-statsRows))
				break
			}
			lines = append(lines, fmt.Sprintf("<@%s> until <t:%d:f>", m.UserID, m.UnmuteAt.Unix()))
		}
		embed.Fields = []*discordgo.MessageEmbedField{{Name: "Active mutes", Value: strings.Join(lines, "\n")}}
	}
	return embed, page, pages, nil
}
