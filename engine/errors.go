package engine

import (
	"errors"
	"fmt"
)

// NoApplicableBranch is returned when a specific trigger matched but none
// of its conditions held and it has no unconditioned replies.
type NoApplicableBranch struct {
	Trigger string
	Topic   string
}

func (e *NoApplicableBranch) Error() string {
	return fmt.Sprintf("trigger %q in topic %q has no applicable branch", e.Trigger, e.Topic)
}

// RedirectDepthExceeded is returned when redirects nest deeper than the
// configured bound.
type RedirectDepthExceeded struct {
	Depth     int
	Utterance string
}

func (e *RedirectDepthExceeded) Error() string {
	return fmt.Sprintf("redirect depth %d exceeded resolving %q", e.Depth, e.Utterance)
}

// NoResponseAvailable is returned when nothing matched, including every
// reachable catch-all.
type NoResponseAvailable struct {
	Input string
	Topic string
}

func (e *NoResponseAvailable) Error() string {
	return fmt.Sprintf("no response available for %q in topic %q", e.Input, e.Topic)
}

// IsTurnError reports whether err is one of the per-turn resolution
// failures. Such errors leave the session unchanged and the conversation
// may continue.
func IsTurnError(err error) bool {
	var nab *NoApplicableBranch
	var rde *RedirectDepthExceeded
	var nra *NoResponseAvailable
	return errors.As(err, &nab) || errors.As(err, &rde) || errors.As(err, &nra)
}
