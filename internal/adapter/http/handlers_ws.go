package adapthttp

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"niblet/internal/app"
	"niblet/internal/domain"
	"niblet/internal/speech"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

type socketInbound struct {
	Type      string            `json:"type"`
	Text      string            `json:"text,omitempty"`
	MessageID string            `json:"messageId,omitempty"`
	Action    app.ConfirmAction `json:"action,omitempty"`
	Calories  int               `json:"calories,omitempty"`
	Rating    int               `json:"rating,omitempty"`
}

type socketOutbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// socketConn serialises writes; gorilla connections allow one writer at a
// time.
type socketConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *socketConn) send(typ string, data any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := c.conn.WriteJSON(socketOutbound{Type: typ, Data: data}); err != nil {
		log.Printf("[websocket] write failed: %v", err)
	}
}

func (c *socketConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
}

func (c *socketConn) sendErr(err error) {
	c.send("error", map[string]any{"status": statusFor(err), "error": err.Error()})
}

// handleChatSocket carries one chat session over a websocket. Text turns,
// confirmations and ratings go through the chat service; "listen" starts
// speech recognition whose transcripts become text turns.
func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	userID := userFromContext(r).ID
	sessionID := r.URL.Query().Get("session")
	created := sessionID == ""
	if created {
		sess, err := s.svc.Chat.CreateSession(r.Context(), userID, r.URL.Query().Get("personality"))
		if err != nil {
			fail(w, r, err)
			return
		}
		sessionID = sess.ID
	} else if _, err := s.svc.Chat.Session(r.Context(), userID, sessionID); err != nil {
		fail(w, r, err)
		return
	}

	raw, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer raw.Close()
	conn := &socketConn{conn: raw}
	if created {
		// A session opened by this socket has no other handle once it closes.
		defer func() { _ = s.svc.Chat.Close(userID, sessionID) }()
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = raw.SetReadDeadline(time.Now().Add(wsReadTimeout))
	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})
	go pingLoop(ctx, conn)

	log.Printf("[websocket] connected user=%d session=%s", userID, sessionID)
	if sess, err := s.svc.Chat.Session(ctx, userID, sessionID); err == nil {
		conn.send("session", sess)
	}

	turn := func(ctx context.Context, text string) {
		msgs, err := s.svc.Chat.Send(ctx, userID, sessionID, text)
		if err != nil {
			conn.sendErr(err)
			return
		}
		conn.send("messages", msgs)
	}

	var bridge *speech.Bridge
	defer func() {
		if bridge != nil {
			_ = bridge.Close()
		}
	}()

	for {
		var msg socketInbound
		if err := raw.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			var syntax *json.SyntaxError
			if errors.As(err, &syntax) {
				conn.sendErr(domain.Validationf("invalid message"))
				continue
			}
			return
		}
		_ = raw.SetReadDeadline(time.Now().Add(wsReadTimeout))

		switch msg.Type {
		case "text":
			turn(ctx, msg.Text)
		case "confirm":
			msgs, err := s.svc.Chat.Confirm(ctx, userID, sessionID, msg.MessageID, msg.Action, msg.Calories)
			if err != nil {
				conn.sendErr(err)
				continue
			}
			conn.send("messages", msgs)
		case "rating":
			msgs, err := s.svc.Chat.Rate(ctx, userID, sessionID, msg.MessageID, msg.Rating)
			if err != nil {
				conn.sendErr(err)
				continue
			}
			conn.send("messages", msgs)
		case "listen":
			if bridge == nil {
				b, err := speech.NewBridge(s.speech, turn, func(code string) {
					conn.send("speech_error", map[string]string{"code": code})
				})
				if err != nil {
					conn.send("speech_error", map[string]string{"code": "unavailable", "error": err.Error()})
					continue
				}
				bridge = b
			}
			if err := bridge.Listen(ctx); err != nil {
				conn.send("speech_error", map[string]string{"code": "start", "error": err.Error()})
				continue
			}
			conn.send("listening", map[string]bool{"listening": true})
		case "stop":
			if bridge != nil {
				_ = bridge.Close()
				bridge = nil
			}
			conn.send("listening", map[string]bool{"listening": false})
		default:
			conn.sendErr(domain.Validationf("unsupported message type %q", msg.Type))
		}
	}
}

func pingLoop(ctx context.Context, conn *socketConn) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		}
	}
}
