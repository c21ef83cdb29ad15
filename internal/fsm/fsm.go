// Package fsm implements status adjacency tables with named-action guards.
//
// A Machine carries the canonical state -> allowed-targets table, plus a
// table of named actions. An action lists the exact source states it accepts
// and may be narrower than the raw adjacency (two actions can share a target
// but not their sources). Both the boolean predicates and the asserting
// variants read the same tables.
package fsm

import (
	"fmt"
	"slices"
)

type Action[S ~string] struct {
	Name string
	From []S
	To   S
}

type Machine[S ~string] struct {
	entity  string
	next    map[S][]S
	actions map[string]Action[S]
}

// New builds a machine. It panics when an action names a source -> target
// pair missing from the adjacency table; tables are package constants so an
// inconsistency is a programming error caught at init.
func New[S ~string](entity string, next map[S][]S, actions ...Action[S]) *Machine[S] {
	m := &Machine[S]{entity: entity, next: next, actions: make(map[string]Action[S], len(actions))}
	for _, a := range actions {
		for _, from := range a.From {
			if !slices.Contains(next[from], a.To) {
				panic(fmt.Sprintf("fsm: %s action %q: %s -> %s not in adjacency table", entity, a.Name, from, a.To))
			}
		}
		m.actions[a.Name] = a
	}
	return m
}

func (m *Machine[S]) Entity() string { return m.entity }

// CanTransition is a pure adjacency lookup.
func (m *Machine[S]) CanTransition(from, to S) bool {
	return slices.Contains(m.next[from], to)
}

func (m *Machine[S]) Allowed(from S) []S {
	return slices.Clone(m.next[from])
}

func (m *Machine[S]) IsTerminal(s S) bool {
	next, ok := m.next[s]
	return ok && len(next) == 0
}

func (m *Machine[S]) Known(s S) bool {
	_, ok := m.next[s]
	return ok
}

// AssertTransition checks a raw status change. Equal states are reported as
// AlreadyInState before the adjacency table is consulted.
func (m *Machine[S]) AssertTransition(entityID string, from, to S) error {
	if from == to {
		return m.fail(KindAlreadyInState, "", entityID, from, to)
	}
	if !m.CanTransition(from, to) {
		return m.fail(KindInvalid, "", entityID, from, to)
	}
	return nil
}

// Can reports whether the named action is legal from the given state.
func (m *Machine[S]) Can(action string, from S) bool {
	a, ok := m.actions[action]
	return ok && slices.Contains(a.From, from)
}

// Assert is the failing variant of Can.
func (m *Machine[S]) Assert(action, entityID string, from S) error {
	a, ok := m.actions[action]
	if !ok {
		return fmt.Errorf("fsm: %s has no action %q", m.entity, action)
	}
	if from == a.To {
		return m.fail(KindAlreadyInState, action, entityID, from, a.To)
	}
	if !slices.Contains(a.From, from) {
		return m.fail(KindInvalid, action, entityID, from, a.To)
	}
	return nil
}

// Target returns the state the named action moves to.
func (m *Machine[S]) Target(action string) (S, bool) {
	a, ok := m.actions[action]
	return a.To, ok
}

func (m *Machine[S]) fail(kind Kind, action, entityID string, from, to S) *TransitionError {
	allowed := make([]string, 0, len(m.next[from]))
	for _, s := range m.next[from] {
		allowed = append(allowed, string(s))
	}
	return &TransitionError{
		Kind:     kind,
		Entity:   m.entity,
		EntityID: entityID,
		Action:   action,
		Current:  string(from),
		Target:   string(to),
		Allowed:  allowed,
	}
}
