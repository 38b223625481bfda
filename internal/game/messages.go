package game

import "trivia-service/internal/domain"

// Envelope is any outbound wire message. Every concrete message carries
// a "type" discriminant; clients ignore unrecognized fields.
type Envelope = any

// Outbound message types.
const (
	TypeConnected      = "connected"
	TypeError          = "error"
	TypeQuestion       = "question"
	TypeQuestionActive = "questionActive"
	TypePlayerAnswer   = "playerAnswer"
	TypePlayerAnswered = "playerAnswered"
	TypeVerification   = "verification"
	TypeScores         = "scores"
	TypePlayerList     = "playerList"
	TypeGameReset      = "gameReset"
	TypeGameState      = "gameState"
	TypeSetCookie      = "setCookie"
)

// ConnectedMsg confirms a successful host or verifier attach.
type ConnectedMsg struct {
	Type string      `json:"type"`
	Role domain.Role `json:"role"`
}

// ErrorMsg is a targeted failure reply; it is never broadcast.
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// QuestionMsg announces the active question. Sent to players as
// "question" and to the verifier as "questionActive".
type QuestionMsg struct {
	Type         string `json:"type"`
	QuestionID   string `json:"questionId"`
	QuestionText string `json:"questionText"`
	Points       int    `json:"points"`
}

// PlayerAnswerMsg carries a submission, answer text included.
// Verifier only.
type PlayerAnswerMsg struct {
	Type       string `json:"type"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

// PlayerAnsweredMsg tells the host someone answered, without revealing
// the answer text.
type PlayerAnsweredMsg struct {
	Type       string `json:"type"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

// VerificationMsg reports a verdict and the resulting score to the one
// player it concerns.
type VerificationMsg struct {
	Type     string `json:"type"`
	Correct  bool   `json:"correct"`
	NewScore int    `json:"newScore"`
}

// ScoresMsg is the full scoreboard, sorted by descending score.
type ScoresMsg struct {
	Type   string              `json:"type"`
	Scores []domain.ScoreEntry `json:"scores"`
}

// PlayerListMsg is broadcast whenever the player roster changes.
type PlayerListMsg struct {
	Type    string              `json:"type"`
	Players []domain.ScoreEntry `json:"players"`
}

// GameResetMsg notifies every role that the game was wiped.
type GameResetMsg struct {
	Type string `json:"type"`
}

// GameStateMsg seeds a freshly attached (or reattached) player with
// its identity, score, and answer history.
type GameStateMsg struct {
	Type              string           `json:"type"`
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	Score             int              `json:"score"`
	AnsweredQuestions []string         `json:"answeredQuestions"`
	Question          *domain.Question `json:"question,omitempty"`
}

// SetCookieMsg instructs the player client to persist its reconnect
// token. MaxAge is in seconds.
type SetCookieMsg struct {
	Type   string `json:"type"`
	Name   string `json:"name"`
	Value  string `json:"value"`
	MaxAge int    `json:"maxAge"`
}
