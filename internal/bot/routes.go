package bot

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the Slack webhook and install-flow endpoints on the
// given router.
func RegisterRoutes(r chi.Router, events *EventsHandler, oauth *OAuthHandler) {
	r.Post("/api/slack/events", events.HandleEvent)
	r.Get("/oauth/install", oauth.HandleInstall)
	r.Get("/oauth/callback", oauth.HandleCallback)
}
