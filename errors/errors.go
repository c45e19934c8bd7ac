package errors

import "fmt"

var (
	ErrNotMember             = fmt.Errorf("not a member of the channel")
	ErrNetworkFailure        = fmt.Errorf("network failure")
	ErrStreamDisconnected    = fmt.Errorf("stream disconnected")
	ErrStaleEvent            = fmt.Errorf("event for a channel no longer joined")
	ErrOrphanPatch           = fmt.Errorf("reaction patch for an unseen message")
	ErrNotAllowed            = fmt.Errorf("action not allowed")
	ErrMessageNotFound       = fmt.Errorf("message not found")
	ErrChannelNotFound       = fmt.Errorf("channel not found")
	ErrEmptyMessage          = fmt.Errorf("message body is empty")
	ErrTimelineAlreadySeeded = fmt.Errorf("timeline already seeded")
	ErrSessionNotActive      = fmt.Errorf("session is not active")
	ErrInvalidToken          = fmt.Errorf("invalid or expired token")
	ErrRateLimited           = fmt.Errorf("too many requests")
	ErrInvalidPayload        = fmt.Errorf("invalid payload")
	ErrJoinRejected          = fmt.Errorf("room join rejected")
	ErrWorkerPanic           = fmt.Errorf("worker panic")
)

// Network tags a transport error with ErrNetworkFailure while keeping the cause.
func Network(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrNetworkFailure, err)
}
