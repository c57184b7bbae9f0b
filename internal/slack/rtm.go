package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"

	"github.com/gorilla/websocket"
)

// RTMEvent is one frame from the Real Time Messaging stream. Only message
// frames reach the handler; everything else (hello, presence, acks) is
// skipped.
type RTMEvent struct {
	Type    string `json:"type"`
	User    string `json:"user"`
	Text    string `json:"text"`
	Channel string `json:"channel"`
	BotID   string `json:"bot_id"`
}

// RTMHandler consumes message events from the RTM stream.
type RTMHandler func(ctx context.Context, ev RTMEvent)

// RTM is a minimal Real Time Messaging client: it calls rtm.connect to get
// a websocket URL and pumps message events to a handler until the context
// is cancelled or the connection drops. Reconnecting is the caller's
// responsibility.
type RTM struct {
	client *APIClient
	dialer *websocket.Dialer
}

// NewRTM returns an RTM client on top of the given Web API client.
func NewRTM(client *APIClient) *RTM {
	return &RTM{client: client, dialer: websocket.DefaultDialer}
}

// Run connects and dispatches message events until ctx is done or the
// stream breaks.
func (r *RTM) Run(ctx context.Context, handle RTMHandler) error {
	var out struct {
		URL string `json:"url"`
	}
	if err := r.client.call(ctx, "rtm.connect", url.Values{}, &out); err != nil {
		return err
	}

	conn, _, err := r.dialer.DialContext(ctx, out.URL, nil)
	if err != nil {
		return fmt.Errorf("dialing rtm websocket: %w", err)
	}
	defer conn.Close()

	// Close the socket when the context ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("reading rtm frame: %w", err)
		}

		var ev RTMEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Printf("rtm: skipping undecodable frame: %v", err)
			continue
		}
		if ev.Type != "message" || ev.BotID != "" {
			continue
		}
		handle(ctx, ev)
	}
}
