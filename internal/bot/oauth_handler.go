package bot

import (
	"fmt"
	"log"
	"net/http"

	"github.com/drillbitlabs/drillbot/internal/audit"
	"github.com/drillbitlabs/drillbot/internal/slack"
	"github.com/drillbitlabs/drillbot/internal/store"
)

// OAuthHandler completes the Slack app install flow: it sends installing
// admins to the consent page and exchanges the code Slack redirects back
// with for the workspace's bot credential.
type OAuthHandler struct {
	cfg     slack.OAuthConfig
	coord   *store.Coordinator
	auditor *audit.Store // optional
}

// NewOAuthHandler creates the install-flow handler.
func NewOAuthHandler(cfg slack.OAuthConfig, coord *store.Coordinator, auditor *audit.Store) *OAuthHandler {
	return &OAuthHandler{cfg: cfg, coord: coord, auditor: auditor}
}

// HandleInstall redirects the browser to the Slack consent page.
func (h *OAuthHandler) HandleInstall(w http.ResponseWriter, r *http.Request) {
	consentURL, _ := h.cfg.AuthorizeURL()
	http.Redirect(w, r, consentURL, http.StatusFound)
}

// HandleCallback handles GET /oauth/callback: it exchanges the temporary
// code and records the authorized team.
func (h *OAuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		errMsg := r.URL.Query().Get("error")
		if errMsg == "" {
			errMsg = "no authorization code received"
		}
		http.Error(w, "authorization failed: "+errMsg, http.StatusBadRequest)
		return
	}

	auth, err := h.cfg.ExchangeCode(r.Context(), code)
	if err != nil {
		log.Printf("oauth: %v", err)
		http.Error(w, "authorization failed", http.StatusBadGateway)
		return
	}

	if err := h.coord.Authorize(auth.TeamID, auth.BotToken); err != nil {
		log.Printf("oauth: %v", err)
		http.Error(w, "failed to store authorization", http.StatusInternalServerError)
		return
	}

	if h.auditor != nil {
		err := h.auditor.Log(r.Context(), audit.Entry{
			Action:  audit.ActionTeamAuthorized,
			TeamID:  auth.TeamID,
			Summary: "workspace installed the bot",
		})
		if err != nil {
			log.Printf("oauth: audit log: %v", err)
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<html><body><h2>Authorization successful!</h2><p>You can close this tab.</p></body></html>")
}
