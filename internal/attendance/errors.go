package attendance

import "errors"

var (
	// ErrNoMatch means no enrolled template was within tolerance of the probe.
	ErrNoMatch = errors.New("no matching identity")
	// ErrPersistence wraps failures to write an attendance entry.
	ErrPersistence = errors.New("attendance entry not persisted")
	// ErrEnrollment wraps failures to store a new identity.
	ErrEnrollment = errors.New("identity not enrolled")
)
