package fsm_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-restaurant-booking/internal/apperr"
	"github.com/ariefcatur/go-restaurant-booking/internal/fsm"
)

type light string

const (
	red    light = "red"
	green  light = "green"
	yellow light = "yellow"
	off    light = "off"
)

func newLights() *fsm.Machine[light] {
	return fsm.New("light", map[light][]light{
		red:    {green, off},
		green:  {yellow, off},
		yellow: {red, off},
		off:    {},
	},
		fsm.Action[light]{Name: "go", From: []light{red}, To: green},
		fsm.Action[light]{Name: "stop", From: []light{yellow}, To: red},
		fsm.Action[light]{Name: "shutdown", From: []light{red, green, yellow}, To: off},
	)
}

func TestCanTransition(t *testing.T) {
	m := newLights()
	assert.True(t, m.CanTransition(red, green))
	assert.False(t, m.CanTransition(red, yellow))
	assert.False(t, m.CanTransition(off, red))
	assert.True(t, m.IsTerminal(off))
	assert.False(t, m.IsTerminal(red))
	assert.False(t, m.IsTerminal("unknown"))
	assert.ElementsMatch(t, []light{green, off}, m.Allowed(red))
}

func TestAllowedReturnsCopy(t *testing.T) {
	m := newLights()
	a := m.Allowed(red)
	a[0] = off
	assert.Equal(t, green, m.Allowed(red)[0])
}

func TestAssertAction(t *testing.T) {
	m := newLights()

	require.NoError(t, m.Assert("go", "l1", red))

	err := m.Assert("go", "l1", yellow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fsm.ErrInvalidTransition))
	assert.False(t, errors.Is(err, fsm.ErrAlreadyInState))
	assert.Equal(t, apperr.CodeInvalidTransition, apperr.CodeOf(err))

	var te *fsm.TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "yellow", te.Current)
	assert.Equal(t, "green", te.Target)
	assert.Equal(t, "l1", te.EntityID)
	assert.ElementsMatch(t, []string{"red", "off"}, te.Allowed)

	err = m.Assert("go", "l1", green)
	assert.True(t, errors.Is(err, fsm.ErrAlreadyInState))
	assert.Equal(t, apperr.CodeAlreadyInState, apperr.CodeOf(err))
}

func TestAssertTransitionChecksSameStateFirst(t *testing.T) {
	m := newLights()
	err := m.AssertTransition("l2", off, off)
	assert.True(t, errors.Is(err, fsm.ErrAlreadyInState))

	err = m.AssertTransition("l2", off, red)
	assert.True(t, errors.Is(err, fsm.ErrInvalidTransition))

	assert.NoError(t, m.AssertTransition("l2", green, yellow))
}

func TestUnknownAction(t *testing.T) {
	m := newLights()
	assert.False(t, m.Can("fly", red))
	err := m.Assert("fly", "l3", red)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInternal, apperr.CodeOf(err))
}

func TestNewPanicsOnActionOutsideAdjacency(t *testing.T) {
	assert.Panics(t, func() {
		fsm.New("light", map[light][]light{red: {green}, green: {}},
			fsm.Action[light]{Name: "skip", From: []light{green}, To: red},
		)
	})
}

func TestErrorContext(t *testing.T) {
	m := newLights()
	ctx := apperr.ContextOf(m.Assert("stop", "l4", green))
	assert.Equal(t, "light", ctx["entity"])
	assert.Equal(t, "stop", ctx["action"])
	assert.Equal(t, "green", ctx["current_state"])
	assert.Equal(t, "red", ctx["target_state"])
}
