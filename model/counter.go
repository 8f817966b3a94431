package model

// CounterKind names a tracked metric.
type CounterKind string

const (
	CounterMembers   CounterKind = "members"
	CounterTwitch    CounterKind = "twitch"
	CounterInstagram CounterKind = "instagram"
	CounterTikTok    CounterKind = "tiktok"
)

// CounterKinds lists every kind in display order.
var CounterKinds = []CounterKind{CounterMembers, CounterTwitch, CounterInstagram, CounterTikTok}

// Valid reports whether k is a known kind.
func (k CounterKind) Valid() bool {
	for _, kind := range CounterKinds {
		if kind == k {
			return true
		}
	}
	return false
}

// CounterChannel binds a kind to the voice channel that displays it.
type CounterChannel struct {
	GuildID   string
	Kind      CounterKind
	ChannelID string
}

// CounterState is what the dashboard shows per kind.
type CounterState struct {
	Kind      CounterKind `json:"kind"`
	ChannelID string      `json:"channel_id,omitempty"`
	Cached    *int64      `json:"cached"`
	Override  *int64      `json:"override"`
}
