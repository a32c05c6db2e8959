package agent

import (
	"errors"
	"fmt"
)

// ErrIterationLimit is returned when the loop runs its configured maximum
// number of iterations without the model converging to a final answer.
var ErrIterationLimit = errors.New("iteration limit exceeded without a final answer")

// ErrCancelled is returned when cancellation is observed during a run. It
// is fatal to the current Run call only; subsequent calls proceed normally.
var ErrCancelled = errors.New("run cancelled")

// ErrBusy is returned when Run is called while another run is in flight on
// the same loop. A loop drives a single conversation with a single active
// request at a time.
var ErrBusy = errors.New("a run is already in progress")

// QuotaError reports that the quota tracker denied the request before any
// network call was attempted.
type QuotaError struct {
	// Reason names the horizon and limit that tripped.
	Reason string
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("quota exceeded: %s", e.Reason)
}

// ProviderError wraps a transport or HTTP failure from the model client.
// No retry is attempted inside the loop; retry policy is a caller concern.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider request failed: %v", e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
