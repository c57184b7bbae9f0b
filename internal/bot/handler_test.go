package bot

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// signRequest adds a valid v0 Slack signature for the given body.
func signRequest(r *http.Request, secret string, body []byte) {
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "v0:%s:%s", timestamp, body)
	r.Header.Set("X-Slack-Request-Timestamp", timestamp)
	r.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
}

func TestHandleEventURLVerification(t *testing.T) {
	b, _, _, _ := setupBot(t)
	h := NewEventsHandler(b, "")

	body := `{"type":"url_verification","challenge":"abc123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/slack/events", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.HandleEvent(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["challenge"] != "abc123" {
		t.Errorf("challenge = %q, want %q", resp["challenge"], "abc123")
	}
}

func TestHandleEventDispatchesMessage(t *testing.T) {
	b, _, coord, _ := setupBot(t)
	const secret = "shh"
	h := NewEventsHandler(b, secret)

	body := []byte(`{"type":"event_callback","event":{"type":"message","user":"u2","text":"!register","channel":"C1"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/slack/events", strings.NewReader(string(body)))
	signRequest(req, secret, body)
	rec := httptest.NewRecorder()

	h.HandleEvent(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	d, _ := coord.Data("T1")
	if !d.IsRegistered("u2") {
		t.Error("event_callback should have registered u2")
	}
}

func TestHandleEventRejectsBadSignature(t *testing.T) {
	b, _, coord, _ := setupBot(t)
	h := NewEventsHandler(b, "shh")

	body := []byte(`{"type":"event_callback","event":{"type":"message","user":"u2","text":"!register","channel":"C1"}}`)

	tests := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"missing headers", func(r *http.Request) {}},
		{"wrong secret", func(r *http.Request) { signRequest(r, "other-secret", body) }},
		{"stale timestamp", func(r *http.Request) {
			timestamp := fmt.Sprintf("%d", time.Now().Add(-10*time.Minute).Unix())
			mac := hmac.New(sha256.New, []byte("shh"))
			fmt.Fprintf(mac, "v0:%s:%s", timestamp, body)
			r.Header.Set("X-Slack-Request-Timestamp", timestamp)
			r.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/slack/events", strings.NewReader(string(body)))
			tt.setup(req)
			rec := httptest.NewRecorder()

			h.HandleEvent(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}

	d, _ := coord.Data("T1")
	if len(d.RegisteredUsers()) != 0 {
		t.Error("unverified requests must not reach the bot")
	}
}

func TestHandleEventSkipsBotMessages(t *testing.T) {
	b, fake, _, _ := setupBot(t)
	h := NewEventsHandler(b, "")

	body := `{"type":"event_callback","event":{"type":"message","user":"u3","text":"hi","channel":"C1","bot_id":"B42"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/slack/events", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.HandleEvent(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if len(fake.posts) != 0 {
		t.Error("bot messages must not trigger replies")
	}
}

func TestHandleEventRejectsInvalidJSON(t *testing.T) {
	b, _, _, _ := setupBot(t)
	h := NewEventsHandler(b, "")

	req := httptest.NewRequest(http.MethodPost, "/api/slack/events", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	h.HandleEvent(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
