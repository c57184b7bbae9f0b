package bot

// MessageEvent is a platform message normalized to what the bot consumes:
// who said what, where. User may be empty for system-generated messages.
type MessageEvent struct {
	User    string
	Text    string
	Channel string
}
