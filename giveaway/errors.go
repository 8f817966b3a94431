package giveaway

type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrGiveawayNotFound  Error = "giveaway not found"
	ErrGiveawayEnded     Error = "giveaway has already ended"
	ErrGiveawayNotEnded  Error = "giveaway has not ended yet"
	ErrBelowMinimumLevel Error = "member does not have the required level role"
	ErrGiveawayFull      Error = "giveaway is full"
	ErrNoEntries         Error = "giveaway has no entries"
	ErrForbidden         Error = "only admins and crew can manage giveaways"
	ErrInvalidGiveaway   Error = "invalid giveaway"
)

// JoinStatus is the non-error outcome of Join.
type JoinStatus int

const (
	Joined JoinStatus = iota
	AlreadyJoined
)

// LeaveStatus is the non-error outcome of Leave.
type LeaveStatus int

const (
	Left LeaveStatus = iota
	NotParticipating
)
