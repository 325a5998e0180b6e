package fsm

import "trainingbot/internal/domain"

// Effect is a persistent-store write the dispatcher applies after the
// transition computes. Effects are idempotent-safe to repeat so a failed
// session write can be recovered by re-running the event.
type Effect interface {
	effect()
}

// SaveProfileEffect merges profile fields into the user row
type SaveProfileEffect struct {
	Patch domain.UserPatch
}

func (SaveProfileEffect) effect() {}

// SaveQuizResultEffect persists a completed attempt atomically
type SaveQuizResultEffect struct {
	Result domain.QuizResult
}

func (SaveQuizResultEffect) effect() {}
