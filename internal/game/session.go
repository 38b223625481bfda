package game

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"

	"trivia-service/internal/domain"
	"github.com/google/uuid"
)

// CookieName is the client-side cookie carrying the reconnect token.
const CookieName = "playerId"

// TokenMaxAge is the reconnect token lifetime in seconds.
const TokenMaxAge = 86400

// TokenStore validates reconnect tokens across player detaches.
// Implementations live in internal/infra (in-memory and Redis).
type TokenStore interface {
	Save(ctx context.Context, token string) error
	Valid(ctx context.Context, token string) (bool, error)
}

// Options configures a Session.
type Options struct {
	// Reconnect keeps detached player records and re-binds them when a
	// returning connection replays its token. Requires Tokens.
	Reconnect bool
	Tokens    TokenStore
	// ScoresEveryVerify pushes a scores broadcast after each
	// verification. Disable it when a periodic scores ticker runs
	// instead; final-state scores are identical either way.
	ScoresEveryVerify bool
}

// Conn is one live attachment to the session. The session owns the
// outbox for the connection's lifetime and is the only closer.
type Conn struct {
	ID     string
	Role   domain.Role
	outbox chan Envelope
	once   sync.Once
}

func (c *Conn) close() {
	c.once.Do(func() { close(c.outbox) })
}

// Session is the authoritative game state: the single host and
// verifier slots, the player registry, the current question, and the
// answer ledger. Every operation runs under one mutex, so state
// mutations and the broadcasts they trigger are atomic with respect to
// each other. Broadcast sends are non-blocking enqueues; a slow or
// dead peer never stalls the session or other recipients.
type Session struct {
	mu       sync.Mutex
	host     *Conn
	verifier *Conn
	conns    map[string]*Conn          // live player transports, keyed by player ID
	players  map[string]*domain.Player // live players
	retained map[string]*domain.Player // detached players awaiting reconnect, keyed by token
	ledger   map[string]*domain.LedgerEntry
	current  *domain.Question
	seq      int
	opts     Options
}

func NewSession(opts Options) *Session {
	if opts.Tokens == nil {
		opts.Reconnect = false
	}
	return &Session{
		conns:    make(map[string]*Conn),
		players:  make(map[string]*domain.Player),
		retained: make(map[string]*domain.Player),
		ledger:   make(map[string]*domain.LedgerEntry),
		opts:     opts,
	}
}

// AttachHost claims the host slot. A second host is rejected with
// domain.ErrSlotOccupied; the incumbent is undisturbed.
func (s *Session) AttachHost(outbox chan Envelope) (*Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.host != nil {
		return nil, domain.ErrSlotOccupied
	}
	c := &Conn{ID: uuid.NewString(), Role: domain.RoleHost, outbox: outbox}
	s.host = c
	s.sendLocked(c, ConnectedMsg{Type: TypeConnected, Role: domain.RoleHost})
	s.sendLocked(c, PlayerListMsg{Type: TypePlayerList, Players: s.scoreboardLocked()})
	return c, nil
}

// AttachVerifier claims the verifier slot.
func (s *Session) AttachVerifier(outbox chan Envelope) (*Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.verifier != nil {
		return nil, domain.ErrSlotOccupied
	}
	c := &Conn{ID: uuid.NewString(), Role: domain.RoleVerifier, outbox: outbox}
	s.verifier = c
	s.sendLocked(c, ConnectedMsg{Type: TypeConnected, Role: domain.RoleVerifier})
	if s.current != nil {
		s.sendLocked(c, QuestionMsg{
			Type:         TypeQuestionActive,
			QuestionID:   s.current.ID,
			QuestionText: s.current.Text,
			Points:       s.current.Points,
		})
	}
	return c, nil
}

// AttachPlayer always succeeds. When reconnect is enabled and the
// replayed token resolves to a known player, the prior record (score,
// name, answer history) is re-bound to the new transport without
// changing identity; a token held by a still-live connection replaces
// that connection's transport instead.
func (s *Session) AttachPlayer(ctx context.Context, token string, outbox chan Envelope) *Conn {
	valid := false
	if s.opts.Reconnect && token != "" {
		ok, err := s.opts.Tokens.Valid(ctx, token)
		if err != nil {
			log.Printf("token lookup failed: %v", err)
		}
		valid = ok
	}

	s.mu.Lock()
	var p *domain.Player
	if valid {
		if live, ok := s.players[token]; ok {
			p = live
			if old := s.conns[token]; old != nil {
				delete(s.conns, token)
				old.close()
			}
		} else if kept, ok := s.retained[token]; ok {
			p = kept
			delete(s.retained, token)
		}
	}
	if p == nil {
		s.seq++
		p = &domain.Player{
			ID:       uuid.NewString(),
			Name:     domain.DefaultName(s.seq),
			Seq:      s.seq,
			Answered: make(map[string]string),
		}
	}

	c := &Conn{ID: p.ID, Role: domain.RolePlayer, outbox: outbox}
	s.players[p.ID] = p
	s.conns[p.ID] = c

	if s.opts.Reconnect {
		s.sendLocked(c, SetCookieMsg{Type: TypeSetCookie, Name: CookieName, Value: p.ID, MaxAge: TokenMaxAge})
	}
	s.sendLocked(c, s.gameStateLocked(p))
	s.broadcastAllLocked(PlayerListMsg{Type: TypePlayerList, Players: s.scoreboardLocked()})
	s.mu.Unlock()

	if s.opts.Reconnect {
		if err := s.opts.Tokens.Save(ctx, p.ID); err != nil {
			log.Printf("token save failed: %v", err)
		}
	}
	return c
}

// Detach releases a connection. Host and verifier slots are freed; a
// player is removed from the roster, or, with reconnect enabled, its
// record is retained under its token with only the transport cleared.
// Safe to call more than once per connection.
func (s *Session) Detach(c *Conn) {
	if c == nil {
		return
	}
	s.mu.Lock()
	switch c.Role {
	case domain.RoleHost:
		if s.host == c {
			s.host = nil
		}
	case domain.RoleVerifier:
		if s.verifier == c {
			s.verifier = nil
		}
	case domain.RolePlayer:
		if s.conns[c.ID] == c {
			delete(s.conns, c.ID)
			if p, ok := s.players[c.ID]; ok {
				delete(s.players, c.ID)
				if s.opts.Reconnect {
					s.retained[p.ID] = p
				}
			}
			s.broadcastAllLocked(PlayerListMsg{Type: TypePlayerList, Players: s.scoreboardLocked()})
		}
	}
	s.mu.Unlock()
	c.close()
}

// SelectQuestion opens a question for answers. Malformed selections
// (empty ID or text, non-positive points) are dropped without a reply.
// Reusing a question ID wipes that question's prior ledger entry.
func (s *Session) SelectQuestion(id, text string, points int) {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(text) == "" || points <= 0 {
		log.Printf("dropping malformed question selection (id=%q points=%d)", id, points)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &domain.Question{ID: id, Text: text, Points: points}
	s.ledger[id] = &domain.LedgerEntry{
		Points:  points,
		Answers: make(map[string]*domain.AnswerRecord),
	}
	s.broadcastPlayersLocked(QuestionMsg{Type: TypeQuestion, QuestionID: id, QuestionText: text, Points: points})
	s.sendLocked(s.verifier, QuestionMsg{Type: TypeQuestionActive, QuestionID: id, QuestionText: text, Points: points})
}

// RecordAnswer stores a player's submission for the current question.
// The verifier sees the answer text; the host only learns that the
// player answered.
func (s *Session) RecordAnswer(playerID, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	if s.current == nil {
		return domain.ErrNoActiveQuestion
	}
	if !p.Registered() {
		return domain.ErrUnregisteredPlayer
	}

	entry, ok := s.ledger[s.current.ID]
	if !ok {
		entry = &domain.LedgerEntry{Points: s.current.Points, Answers: make(map[string]*domain.AnswerRecord)}
		s.ledger[s.current.ID] = entry
	}
	if _, dup := entry.Answers[playerID]; dup {
		return domain.ErrDuplicateAnswer
	}

	entry.Answers[playerID] = &domain.AnswerRecord{Answer: answer}
	p.Answered[s.current.ID] = answer

	s.sendLocked(s.verifier, PlayerAnswerMsg{
		Type:       TypePlayerAnswer,
		PlayerID:   p.ID,
		PlayerName: p.Name,
		QuestionID: s.current.ID,
		Answer:     answer,
	})
	s.sendLocked(s.host, PlayerAnsweredMsg{Type: TypePlayerAnswered, PlayerID: p.ID, PlayerName: p.Name})
	return nil
}

// Verify settles (or re-settles) one player's answer to one question.
// The score delta uses the points snapshot taken at selection time, so
// late verdicts on past questions stay correct. Flipping a verdict
// adjusts the score in both directions; repeating it changes nothing.
func (s *Session) Verify(playerID, questionID string, correct bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok {
		p, ok = s.retained[playerID]
	}
	if !ok {
		return domain.ErrPlayerNotFound
	}
	entry, ok := s.ledger[questionID]
	if !ok {
		return domain.ErrAnswerNotFound
	}
	rec, ok := entry.Answers[playerID]
	if !ok {
		return domain.ErrAnswerNotFound
	}

	delta := 0
	switch {
	case !rec.Verified && correct:
		delta = entry.Points
	case rec.Verified && rec.Correct && !correct:
		delta = -entry.Points
	case rec.Verified && !rec.Correct && correct:
		delta = entry.Points
	}
	rec.Verified = true
	rec.Correct = correct
	p.Score += delta

	s.sendLocked(s.conns[playerID], VerificationMsg{Type: TypeVerification, Correct: correct, NewScore: p.Score})
	if s.opts.ScoresEveryVerify {
		s.broadcastAllLocked(ScoresMsg{Type: TypeScores, Scores: s.scoreboardLocked()})
	}
	return nil
}

// Reset wipes the question, the ledger, and every score and
// answered-set, retained records included, then announces the wipe and
// an all-zero scoreboard.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	s.ledger = make(map[string]*domain.LedgerEntry)
	for _, p := range s.players {
		p.Score = 0
		p.Answered = make(map[string]string)
	}
	for _, p := range s.retained {
		p.Score = 0
		p.Answered = make(map[string]string)
	}
	s.broadcastAllLocked(GameResetMsg{Type: TypeGameReset})
	s.broadcastAllLocked(ScoresMsg{Type: TypeScores, Scores: s.scoreboardLocked()})
}

// SetPlayerName registers or renames a player. Empty names (after
// trimming) are ignored; re-registering simply overwrites.
func (s *Session) SetPlayerName(playerID, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok {
		return
	}
	p.Name = name
	s.broadcastAllLocked(PlayerListMsg{Type: TypePlayerList, Players: s.scoreboardLocked()})
}

// Scores returns the scoreboard: live players sorted by descending
// score, ties in creation order.
func (s *Session) Scores() []domain.ScoreEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scoreboardLocked()
}

// BroadcastScores pushes the scoreboard to every role. Used by the
// periodic scores ticker when per-verification pushes are disabled.
func (s *Session) BroadcastScores() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastAllLocked(ScoresMsg{Type: TypeScores, Scores: s.scoreboardLocked()})
}

func (s *Session) scoreboardLocked() []domain.ScoreEntry {
	players := make([]*domain.Player, 0, len(s.players))
	for _, p := range s.players {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].Score != players[j].Score {
			return players[i].Score > players[j].Score
		}
		return players[i].Seq < players[j].Seq
	})
	entries := make([]domain.ScoreEntry, 0, len(players))
	for _, p := range players {
		entries = append(entries, domain.ScoreEntry{ID: p.ID, Name: p.Name, Score: p.Score})
	}
	return entries
}

func (s *Session) gameStateLocked(p *domain.Player) GameStateMsg {
	answered := make([]string, 0, len(p.Answered))
	for qid := range p.Answered {
		answered = append(answered, qid)
	}
	sort.Strings(answered)
	return GameStateMsg{
		Type:              TypeGameState,
		ID:                p.ID,
		Name:              p.Name,
		Score:             p.Score,
		AnsweredQuestions: answered,
		Question:          s.current,
	}
}

// sendLocked enqueues without blocking. If the outbox is full the
// oldest pending message is dropped to make room; the state carried by
// later broadcasts supersedes it anyway.
func (s *Session) sendLocked(c *Conn, msg Envelope) {
	if c == nil {
		return
	}
	select {
	case c.outbox <- msg:
	default:
		select {
		case <-c.outbox:
		default:
		}
		select {
		case c.outbox <- msg:
		default:
		}
	}
}

func (s *Session) broadcastPlayersLocked(msg Envelope) {
	for _, c := range s.conns {
		s.sendLocked(c, msg)
	}
}

func (s *Session) broadcastAllLocked(msg Envelope) {
	s.sendLocked(s.host, msg)
	s.sendLocked(s.verifier, msg)
	s.broadcastPlayersLocked(msg)
}
