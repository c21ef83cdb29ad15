package fsm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-restaurant-booking/internal/apperr"
)

type Kind int

const (
	KindInvalid Kind = iota
	KindAlreadyInState
)

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrAlreadyInState    = errors.New("already in state")
)

type TransitionError struct {
	Kind     Kind
	Entity   string
	EntityID string
	Action   string
	Current  string
	Target   string
	Allowed  []string
}

func (e *TransitionError) Error() string {
	if e.Kind == KindAlreadyInState {
		return fmt.Sprintf("%s %s is already %s", e.Entity, e.EntityID, e.Current)
	}
	allowed := "none"
	if len(e.Allowed) > 0 {
		allowed = strings.Join(e.Allowed, ", ")
	}
	return fmt.Sprintf("%s %s cannot move from %s to %s (allowed: %s)", e.Entity, e.EntityID, e.Current, e.Target, allowed)
}

func (e *TransitionError) Code() apperr.Code {
	if e.Kind == KindAlreadyInState {
		return apperr.CodeAlreadyInState
	}
	return apperr.CodeInvalidTransition
}

func (e *TransitionError) Context() map[string]any {
	ctx := map[string]any{
		"entity":          e.Entity,
		"entity_id":       e.EntityID,
		"current_state":   e.Current,
		"target_state":    e.Target,
		"allowed_targets": e.Allowed,
	}
	if e.Action != "" {
		ctx["action"] = e.Action
	}
	return ctx
}

func (e *TransitionError) Is(target error) bool {
	switch target {
	case ErrAlreadyInState:
		return e.Kind == KindAlreadyInState
	case ErrInvalidTransition:
		return e.Kind == KindInvalid
	}
	return false
}
