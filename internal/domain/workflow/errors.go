package workflow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrStateConflict   = errors.New("Request state does not allow this transition")
	ErrUnauthorized    = errors.New("Actor is not authorized for this transition")
	ErrRequestNotFound = errors.New("Request not found")
	ErrUnknownKind     = errors.New("No workflow is registered for this request kind")
)

// StateConflictError reports a transition attempted from a state that does
// not permit it.
type StateConflictError struct {
	RequestID string
	Current   Status
	Target    Status
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("request %s is %s and cannot move to %s", e.RequestID, e.Current, e.Target)
}

func (e *StateConflictError) Unwrap() error {
	return ErrStateConflict
}

// AuthorizationError reports an actor lacking every role accepted by the step.
type AuthorizationError struct {
	ActorID  string
	Required []Role
	Action   string
}

func (e *AuthorizationError) Error() string {
	roles := make([]string, 0, len(e.Required))
	for _, r := range e.Required {
		roles = append(roles, string(r))
	}
	return fmt.Sprintf("actor %s cannot %s: requires one of [%s]", e.ActorID, e.Action, strings.Join(roles, ", "))
}

func (e *AuthorizationError) Unwrap() error {
	return ErrUnauthorized
}
