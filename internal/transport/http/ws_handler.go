package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"trivia-service/internal/domain"
	"trivia-service/internal/game"
	"github.com/gorilla/websocket"
)

const (
	writeWait        = 10 * time.Second
	controlWait      = 5 * time.Second
	outboxSize       = 32
	defaultHeartbeat = 30 * time.Second
)

// WSHandler upgrades role-specific endpoints and bridges each socket
// to the game session: one writer goroutine drains the session-owned
// outbox, the read loop dispatches inbound messages by role and type.
// It also runs the liveness sweep over every tracked connection.
type WSHandler struct {
	session   *game.Session
	upgrader  websocket.Upgrader
	heartbeat time.Duration

	mu    sync.Mutex
	conns map[*websocket.Conn]*liveness
}

type liveness struct {
	alive atomic.Bool
}

func NewWSHandler(session *game.Session, heartbeat time.Duration) *WSHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &WSHandler{
		session: session,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		heartbeat: heartbeat,
		conns:     make(map[*websocket.Conn]*liveness),
	}
}

func (h *WSHandler) ServeHost(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, domain.RoleHost)
}

func (h *WSHandler) ServeVerifier(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, domain.RoleVerifier)
}

func (h *WSHandler) ServePlayer(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, domain.RolePlayer)
}

func (h *WSHandler) serve(w http.ResponseWriter, r *http.Request, role domain.Role) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	outbox := make(chan game.Envelope, outboxSize)
	var gc *game.Conn
	switch role {
	case domain.RoleHost:
		gc, err = h.session.AttachHost(outbox)
	case domain.RoleVerifier:
		gc, err = h.session.AttachVerifier(outbox)
	case domain.RolePlayer:
		gc = h.session.AttachPlayer(r.Context(), playerToken(r), outbox)
	}
	if err != nil {
		// Slot conflict: tell the newcomer and hang up. The incumbent
		// is untouched.
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteJSON(game.ErrorMsg{Type: game.TypeError, Message: "another " + string(role) + " is already connected"})
		return
	}
	log.Printf("%s connected (%s)", role, gc.ID)

	h.track(conn)
	defer h.untrack(conn)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		broken := false
		for msg := range outbox {
			if broken {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				broken = true
				conn.Close()
			}
		}
		if !broken {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(controlWait))
			conn.Close()
		}
	}()

	h.readLoop(conn, gc, outbox)

	h.session.Detach(gc) // closes the outbox, which stops the writer
	<-writerDone
	log.Printf("%s disconnected (%s)", role, gc.ID)
}

func (h *WSHandler) readLoop(conn *websocket.Conn, gc *game.Conn, outbox chan game.Envelope) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("dropping malformed %s message: %v", gc.Role, err)
			continue
		}
		switch gc.Role {
		case domain.RoleHost:
			h.dispatchHost(env.Type, data)
		case domain.RoleVerifier:
			h.dispatchVerifier(env.Type, data)
		case domain.RolePlayer:
			h.dispatchPlayer(gc, outbox, env.Type, data)
		}
	}
}

func (h *WSHandler) dispatchHost(typ string, data []byte) {
	switch typ {
	case "question":
		var m struct {
			QuestionID   string `json:"questionId"`
			QuestionText string `json:"questionText"`
			Points       int    `json:"points"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			log.Printf("dropping malformed question selection: %v", err)
			return
		}
		h.session.SelectQuestion(m.QuestionID, m.QuestionText, m.Points)
	case "reset":
		h.session.Reset()
	default:
		log.Printf("unknown message type from host: %s", typ)
	}
}

func (h *WSHandler) dispatchVerifier(typ string, data []byte) {
	switch typ {
	case "verification":
		var m struct {
			PlayerID   string `json:"playerId"`
			QuestionID string `json:"questionId"`
			Correct    *bool  `json:"correct"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			log.Printf("dropping malformed verification: %v", err)
			return
		}
		if m.PlayerID == "" || m.QuestionID == "" || m.Correct == nil {
			return
		}
		if err := h.session.Verify(m.PlayerID, m.QuestionID, *m.Correct); err != nil {
			log.Printf("verification ignored: %v", err)
		}
	default:
		log.Printf("unknown message type from verifier: %s", typ)
	}
}

func (h *WSHandler) dispatchPlayer(gc *game.Conn, outbox chan game.Envelope, typ string, data []byte) {
	switch typ {
	case "answer":
		var m struct {
			Answer string `json:"answer"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			log.Printf("dropping malformed answer: %v", err)
			return
		}
		if err := h.session.RecordAnswer(gc.ID, m.Answer); err != nil {
			reply(outbox, game.ErrorMsg{Type: game.TypeError, Message: err.Error()})
		}
	case "register":
		var m struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			log.Printf("dropping malformed registration: %v", err)
			return
		}
		h.session.SetPlayerName(gc.ID, m.Name)
	default:
		log.Printf("unknown message type from player: %s", typ)
	}
}

// reply enqueues a targeted message on the sender's own outbox without
// blocking the read loop.
func reply(outbox chan game.Envelope, msg game.Envelope) {
	select {
	case outbox <- msg:
	default:
	}
}

func playerToken(r *http.Request) string {
	cookie, err := r.Cookie(game.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (h *WSHandler) track(conn *websocket.Conn) {
	l := &liveness{}
	l.alive.Store(true)
	conn.SetPongHandler(func(string) error {
		l.alive.Store(true)
		return nil
	})
	h.mu.Lock()
	h.conns[conn] = l
	h.mu.Unlock()
}

func (h *WSHandler) untrack(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
}

// RunHeartbeat sweeps all tracked connections at a fixed interval:
// anyone that failed to pong since the previous sweep is forcibly
// closed (same detach path as a client-initiated close), the rest get
// a fresh ping. WriteControl is safe concurrently with the writer
// goroutine.
func (h *WSHandler) RunHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.sweep()
		}
	}
}

func (h *WSHandler) sweep() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, l := range h.conns {
		if !l.alive.Swap(false) {
			log.Printf("closing unresponsive connection %s", conn.RemoteAddr())
			conn.Close()
			delete(h.conns, conn)
			continue
		}
		_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(controlWait))
	}
}
