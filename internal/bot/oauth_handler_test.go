package bot

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"

	"github.com/drillbitlabs/drillbot/internal/slack"
	"github.com/drillbitlabs/drillbot/internal/store"
)

// fakeTokenServer serves an oauth.access-shaped response.
func fakeTokenServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parsing token request: %v", err)
		}
		if r.FormValue("code") == "" {
			t.Error("token request missing code")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOAuthCallbackAuthorizesTeam(t *testing.T) {
	_, _, coord, dir := setupBot(t)

	srv := fakeTokenServer(t, `{
		"ok": true,
		"access_token": "xoxp-user",
		"token_type": "bearer",
		"team_id": "T3",
		"bot": {"bot_user_id": "U9", "bot_access_token": "xoxb-tok3"}
	}`)

	cfg := slack.OAuthConfig{
		ClientID:     "cid",
		ClientSecret: "csecret",
		Endpoint:     oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
	}
	h := NewOAuthHandler(cfg, coord, nil)

	req := httptest.NewRequest(http.MethodGet, "/oauth/callback?code=tmpcode", nil)
	rec := httptest.NewRecorder()
	h.HandleCallback(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	if got := coord.CurrentTeam(); got != "T3" {
		t.Errorf("CurrentTeam() = %q, want %q", got, "T3")
	}
	rec3, ok := coord.Record("T3")
	if !ok || rec3.BotToken != "xoxb-tok3" {
		t.Errorf("Record(T3) = (%+v, %v), want bot token xoxb-tok3", rec3, ok)
	}

	// The authorization reached the registry file.
	records, err := store.NewTeamStore(dir).Load()
	if err != nil {
		t.Fatal(err)
	}
	if records["T3"].BotToken != "xoxb-tok3" {
		t.Errorf("persisted token = %q, want %q", records["T3"].BotToken, "xoxb-tok3")
	}
}

func TestOAuthCallbackMissingBotToken(t *testing.T) {
	_, _, coord, _ := setupBot(t)

	srv := fakeTokenServer(t, `{"ok": true, "access_token": "xoxp-user", "token_type": "bearer", "team_id": "T3"}`)

	cfg := slack.OAuthConfig{
		ClientID:     "cid",
		ClientSecret: "csecret",
		Endpoint:     oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
	}
	h := NewOAuthHandler(cfg, coord, nil)

	req := httptest.NewRequest(http.MethodGet, "/oauth/callback?code=tmpcode", nil)
	rec := httptest.NewRecorder()
	h.HandleCallback(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadGateway)
	}
	if _, ok := coord.Record("T3"); ok {
		t.Error("a failed exchange must not authorize the team")
	}
}

func TestOAuthCallbackMissingCode(t *testing.T) {
	_, _, coord, _ := setupBot(t)

	h := NewOAuthHandler(slack.OAuthConfig{}, coord, nil)

	req := httptest.NewRequest(http.MethodGet, "/oauth/callback?error=access_denied", nil)
	rec := httptest.NewRecorder()
	h.HandleCallback(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestOAuthInstallRedirects(t *testing.T) {
	_, _, coord, _ := setupBot(t)

	h := NewOAuthHandler(slack.OAuthConfig{ClientID: "cid", ClientSecret: "csecret"}, coord, nil)

	req := httptest.NewRequest(http.MethodGet, "/oauth/install", nil)
	rec := httptest.NewRecorder()
	h.HandleInstall(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusFound)
	}
	loc := rec.Header().Get("Location")
	if loc == "" {
		t.Fatal("missing redirect location")
	}
}
