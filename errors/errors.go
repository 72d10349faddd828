package errors

import "fmt"

// Outcome taxonomy shared by the service and transport layers.
var (
	ErrUnprocessable = fmt.Errorf("unprocessable input")
	ErrConflict      = fmt.Errorf("conflict")
	ErrNotFound      = fmt.Errorf("not found")
	ErrForbidden     = fmt.Errorf("forbidden")
	ErrUnauthorized  = fmt.Errorf("unauthorized")
	ErrInternal      = fmt.Errorf("internal error")
)

var (
	ErrWorkerPanic          = fmt.Errorf("worker panic")
	ErrInvalidToken         = fmt.Errorf("invalid token")
	ErrTokenGeneration      = fmt.Errorf("token generation failed")
	ErrParticipantRefreshed = fmt.Errorf("participant refreshed since snapshot")
	ErrInvalidConfig        = fmt.Errorf("invalid configuration")
	ErrFeedClosed           = fmt.Errorf("feed closed")
)
