package domain

import "errors"

var (
	// ErrSlotOccupied is returned when a second host or verifier tries to attach.
	ErrSlotOccupied = errors.New("role slot already occupied")
	// ErrNoActiveQuestion is returned when an answer arrives with no question open.
	ErrNoActiveQuestion = errors.New("no active question")
	// ErrUnregisteredPlayer is returned when a player answers before choosing a name.
	ErrUnregisteredPlayer = errors.New("player has not registered a name")
	// ErrDuplicateAnswer is returned on a second submission for the same question.
	ErrDuplicateAnswer = errors.New("answer already submitted for this question")
	// ErrPlayerNotFound is returned when an operation names an unknown player.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrAnswerNotFound is returned when a verification targets a missing ledger entry.
	ErrAnswerNotFound = errors.New("answer not found")
	// ErrBankNotFound indicates the question bank could not be loaded.
	ErrBankNotFound = errors.New("question bank not found")
)
