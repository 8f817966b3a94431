package model

import "time"

// Giveaway is a prize draw tied to one message.
type Giveaway struct {
	ID              int64
	GuildID         string
	ChannelID       string
	MessageID       string
	CreatorID       string
	Prize           string
	Description     string
	ThumbnailURL    string
	EndAt           time.Time
	MaxParticipants int // 0 means unbounded
	WinnersCount    int
	Ended           bool
	WinnerIDs       []string
	CreatedAt       time.Time
}

// Bounded reports whether the giveaway caps its entries.
func (g *Giveaway) Bounded() bool {
	return g.MaxParticipants > 0
}

// GiveawaySummary is a giveaway row joined with its entry count.
type GiveawaySummary struct {
	Giveaway
	EntryCount int
}
