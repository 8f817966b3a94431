package discipline

type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrInsufficientRank Error = "target has an equal or higher role than the bot"
	ErrRolesMissing     Error = "strike or mute roles are missing, run /setuproles first"
	ErrBanFailed        Error = "ban failed"
	ErrKickFailed       Error = "kick failed"
	ErrRoleEditFailed   Error = "role edit failed"
	ErrInvalidAmount    Error = "amount must be between 1 and 50"
)
