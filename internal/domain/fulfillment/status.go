package fulfillment

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Status is an order's position in the pay-on-pickup fulfillment workflow.
type Status string

const (
	// StatusCreated is the initial status of an order finalized from a cart.
	StatusCreated Status = "created"
	// StatusReadyForTake marks the parcel as prepared for customer pickup.
	StatusReadyForTake Status = "ready_for_take"
	// StatusCompleted is the terminal status of the normal flow.
	StatusCompleted Status = "order_completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusReadyForTake, StatusCompleted:
		return true
	default:
		return false
	}
}

// Transition command names. These are the administrative actions that drive
// the workflow; no timer or external trigger ever moves the status.
const (
	TransitionReadyForTake = "ready_for_take"
	TransitionComplete     = "order_completed"
	TransitionUncomplete   = "uncomplete"
)

// Transition is one guarded edge of the fulfillment workflow.
type Transition struct {
	Name   string
	Source Status
	Target Status

	// Label is the human-readable action label the administrative UI
	// renders as a button.
	Label string
}

// transitions lists every legal edge. There is deliberately no edge back to
// StatusCreated.
var transitions = []Transition{
	{Name: TransitionReadyForTake, Source: StatusCreated, Target: StatusReadyForTake, Label: "Prepare for taking"},
	{Name: TransitionComplete, Source: StatusReadyForTake, Target: StatusCompleted, Label: "Mark as completed"},
	{Name: TransitionUncomplete, Source: StatusCompleted, Target: StatusReadyForTake, Label: "Uncomplete"},
}

// ErrInvalidTransition is returned when a transition is fired from a status
// it is not declared for, or when the transition name is unknown.
var ErrInvalidTransition = errors.New("invalid status transition")

// InvalidTransitionError carries the rejected transition and the status it
// was attempted from. Matches ErrInvalidTransition.
type InvalidTransitionError struct {
	Name string
	From Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("transition %q is not legal from status %q", e.Name, e.From)
}

// Is reports that an InvalidTransitionError matches ErrInvalidTransition.
func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// Available returns the transitions that may legally fire from s, in
// declaration order. The administrative UI renders exactly these as actions.
func Available(s Status) []Transition {
	var out []Transition
	for _, t := range transitions {
		if t.Source == s {
			out = append(out, t)
		}
	}
	return out
}

// Next returns the target status of firing the named transition from s.
// It fails with an InvalidTransitionError when the name is unknown or the
// transition is not declared for s; the caller's status is left untouched.
func Next(s Status, name string) (Status, error) {
	for _, t := range transitions {
		if t.Name != name {
			continue
		}
		if t.Source != s {
			return s, &InvalidTransitionError{Name: name, From: s}
		}
		return t.Target, nil
	}
	return s, &InvalidTransitionError{Name: name, From: s}
}
