package models

import "errors"

var (
	// ErrEmptyTranscript marks a session with no turns. The pipeline treats it
	// as a clean exit, never as a failure.
	ErrEmptyTranscript = errors.New("no conversation recorded")

	ErrClassificationFormat = errors.New("classification format error")
	ErrOracleUnavailable    = errors.New("classification oracle unavailable")
	ErrNotFound             = errors.New("not found")
	ErrPersistence          = errors.New("persistence error")
	ErrSessionOpen          = errors.New("conversation session still open")
	ErrConflict             = errors.New("concurrent update conflict")
	ErrInvalidEmotion       = errors.New("invalid emotion score")
)
