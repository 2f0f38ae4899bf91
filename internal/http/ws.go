package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"topicspin-api/internal/admin"
	"topicspin-api/internal/stream"
	"topicspin-api/pkg/jwt"
)

type wsMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// wsToken reads the session token from "Sec-WebSocket-Protocol: bearer, <token>"
// since browsers cannot set headers on a websocket handshake.
func wsToken(r *http.Request) string {
	if tok, ok := bearer(r); ok {
		return tok
	}
	parts := websocket.Subprotocols(r)
	for i := 0; i+1 < len(parts); i++ {
		if strings.EqualFold(parts[i], "bearer") {
			return parts[i+1]
		}
	}
	return ""
}

func WS(allowedOrigins []string, src stream.Source, hub *stream.Hub, rooms []int, v *jwt.Validator) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		Subprotocols: []string{"bearer"},
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" { // CLI/servers
				return true
			}
			for _, o := range allowedOrigins {
				o = strings.TrimSpace(o)
				if o == "*" || strings.EqualFold(o, origin) {
					return true
				}
			}
			return false
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := v.Validate(wsToken(r)); err != nil {
			WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid token")
			return
		}
		filter := admin.ParseFilter(r.URL.Query())

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn.SetReadLimit(512)
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		feed := stream.Open(ctx, src, hub, filter, rooms, stream.ReplayFrom(r, time.Now()))
		tick := time.NewTicker(15 * time.Second)
		defer tick.Stop()

		send := func(m wsMessage) bool {
			b, _ := json.Marshal(m)
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			return conn.WriteMessage(websocket.TextMessage, b) == nil
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
					return
				}
			case view := <-feed.Views:
				if !send(wsMessage{Type: "snapshot", Data: view}) {
					return
				}
			case ev, ok := <-feed.Events:
				if !ok {
					return
				}
				if stream.Visible(ev, filter) && !send(wsMessage{Type: "assignment", Data: ev}) {
					return
				}
			}
		}
	}
}
