package model

import "time"

// DisciplineRecord holds the strike and warning counters of one member.
type DisciplineRecord struct {
	GuildID   string
	UserID    string
	Strikes   int
	Warns     int
	UpdatedAt time.Time
}

// MuteRecord is a scheduled unmute. RoleIDs is the snapshot of stripped roles.
type MuteRecord struct {
	GuildID  string
	UserID   string
	RoleIDs  []string
	UnmuteAt time.Time
}

// Due reports whether the mute has expired at now.
func (m MuteRecord) Due(now time.Time) bool {
	return !now.Before(m.UnmuteAt)
}

// Punishment is the enforcement chosen for a strike level.
type Punishment string

const (
	PunishmentMute Punishment = "mute"
	PunishmentBan  Punishment = "ban"
)
