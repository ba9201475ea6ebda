package screenings

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrTerminal    = errors.New("screening already in a terminal state")
	ErrNotReady    = errors.New("classification not ready")
	ErrFailed      = errors.New("classification failed")
	ErrCancelled   = errors.New("screening cancelled")
	ErrNoLanguage  = errors.New("language code not set")
	ErrNoRecording = errors.New("no recording uploaded")
)
