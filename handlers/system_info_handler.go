package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"strikebot/bot"
	"strikebot/utils"
)

func SystemInfoHandler(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	info := utils.CollectSystemInfo(ctx)

	var dbSize int64
	if size, err := b.Store.Size(ctx); err == nil {
		dbSize = size / 1024 / 1024
	}

	uptime := "-"
	if started := b.Started(); !started.IsZero() {
		uptime = b.Clock.Now().Sub(started).Truncate(time.Second).String()
	}

	embed := &discordgo.MessageEmbed{
		Title: "System information",
		Color: 0x5865F2, // Discord Blurple
		Fields: []*discordgo.MessageEmbedField{
			{Name: "💻 OS", Value: orDash(info.OS), Inline: true},
			{Name: "🔧 Kernel", Value: orDash(info.KernelVersion), Inline: true},
			{Name: "🐹 Go", Value: info.GoVersion, Inline: true},
			{Name: "🔼 CPUs", Value: fmt.Sprintf("%d", info.CPUCount), Inline: true},
			{Name: "🔥 CPU usage", Value: fmt.Sprintf("%.1f%%", info.CPUPercent), Inline: true},
			{Name: "🧠 Memory", Value: fmt.Sprintf("%.1f%% (%d MB / %d MB)", info.MemPercent, info.MemUsedMB, info.MemTotalMB), Inline: true},
			{Name: "🗃️ Database", Value: fmt.Sprintf("%d MB", dbSize), Inline: true},
			{Name: "⏱️ WebSocket latency", Value: s.HeartbeatLatency().String(), Inline: true},
			{Name: "🚀 Goroutines", Value: fmt.Sprintf("%d", info.Goroutines), Inline: true},
			{Name: "⏳ Uptime", Value: uptime, Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("System monitor · today %s", b.Clock.Now().In(b.Config.Location()).Format("15:04")),
		},
	}

	utils.SendFollowUpEmbed(s, i.Interaction, embed)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
