package engine

import (
	"errors"
	"fmt"
)

// ErrReducerPanic matches a RuntimeError raised because the reducer
// panicked. The action is journaled as rejected.
var ErrReducerPanic = errors.New("reducer panicked")

// RuntimeError is an error the engine detected while processing an event.
type RuntimeError struct {
	Code      RuntimeErrorCode
	Message   string
	FlowToken string
	Seq       int64
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeInvalidEvent: the event has no flow or an unencodable payload.
	ErrCodeInvalidEvent RuntimeErrorCode = "INVALID_EVENT"

	// ErrCodeReducerPanic: the reducer panicked.
	ErrCodeReducerPanic RuntimeErrorCode = "REDUCER_PANIC"

	// ErrCodeSubscriberPanic: a subscriber panicked after the state moved on.
	ErrCodeSubscriberPanic RuntimeErrorCode = "SUBSCRIBER_PANIC"
)

func (e *RuntimeError) Error() string {
	if e.FlowToken != "" {
		return fmt.Sprintf("%s: %s (flow=%s, seq=%d)", e.Code, e.Message, e.FlowToken, e.Seq)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is makes errors.Is(err, ErrReducerPanic) match reducer panics.
func (e *RuntimeError) Is(target error) bool {
	return target == ErrReducerPanic && e.Code == ErrCodeReducerPanic
}

func newPanicError(code RuntimeErrorCode, flowToken string, seq int64, recovered any) *RuntimeError {
	return &RuntimeError{
		Code:      code,
		Message:   fmt.Sprint(recovered),
		FlowToken: flowToken,
		Seq:       seq,
	}
}
