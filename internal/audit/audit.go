package audit

import "time"

// Action describes what was done.
type Action string

const (
	ActionTeamAuthorized Action = "team_authorized"
	ActionUserRegistered Action = "user_registered"
	ActionMessageReplied Action = "message_replied"
)

// Entry is a single audit trail record. UserID is empty for actions that
// have no acting or affected user, such as a workspace install.
type Entry struct {
	ID        string
	Timestamp time.Time
	Action    Action
	TeamID    string
	UserID    string
	Summary   string
}
