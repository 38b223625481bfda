package domain

import (
	"fmt"
	"strings"
)

// Role identifies the endpoint a connection attached through.
type Role string

const (
	RoleHost     Role = "host"
	RoleVerifier Role = "verifier"
	RolePlayer   Role = "player"
)

// Question is the question currently open for answers, announced by the host.
type Question struct {
	ID     string `json:"questionId"`
	Text   string `json:"questionText"`
	Points int    `json:"points"`
}

// Player accumulates score and answer history across the game session.
// The ID doubles as the reconnect token handed to the client.
type Player struct {
	ID       string
	Name     string
	Score    int
	Seq      int               // creation order; tie-breaker for scoreboards
	Answered map[string]string // questionID -> submitted answer text
}

// Registered reports whether the player has replaced the generated
// default name. Unregistered players may not submit answers.
func (p *Player) Registered() bool {
	return !IsDefaultName(p.Name)
}

// DefaultName builds the placeholder name assigned at creation.
func DefaultName(seq int) string {
	return fmt.Sprintf("Player-%d", seq)
}

// IsDefaultName reports whether a name still matches the generated
// "Player-N" pattern.
func IsDefaultName(name string) bool {
	rest, ok := strings.CutPrefix(name, "Player-")
	if !ok || rest == "" {
		return false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// AnswerRecord is one player's submission for one question.
// Correct is meaningful only once Verified is true.
type AnswerRecord struct {
	Answer   string
	Verified bool
	Correct  bool
}

// LedgerEntry holds everything recorded for a single question: the
// points value snapshotted when the host selected it, and every
// player's submission. Re-verifying an old question settles against
// the snapshot, not whatever question is currently active.
type LedgerEntry struct {
	Points  int
	Answers map[string]*AnswerRecord // keyed by player ID
}

// ScoreEntry is the broadcast-friendly view of a player.
type ScoreEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// BankQuestion is a single cell of a question bank board.
type BankQuestion struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Points int    `json:"points"`
}

// QuestionBank is the board content served to the host UI: one column
// of questions per category. The game core never reads it; questions
// enter play only through the host's selection message.
type QuestionBank struct {
	ID         string           `json:"id"`
	Categories []string         `json:"categories"`
	Questions  [][]BankQuestion `json:"questions"`
}
