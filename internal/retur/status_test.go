package retur

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_OnlyFromSourceState(t *testing.T) {
	valid := map[Action]Status{
		ActionApprove: StatusAwaitingApproval,
		ActionDestroy: StatusApproved,
		ActionSend:    StatusDestroyed,
	}

	for action, source := range valid {
		for _, from := range Statuses {
			next, err := Apply(from, action)
			if from == source {
				require.NoError(t, err, "%s from %s", action, from)
				assert.NotEqual(t, from, next)
				continue
			}
			assert.ErrorIs(t, err, ErrInvalidTransition, "%s from %s", action, from)
			assert.Equal(t, from, next)
		}
	}
}

func TestApply_FullSequence(t *testing.T) {
	st := StatusAwaitingApproval
	visited := []Status{st}

	for _, a := range []Action{ActionApprove, ActionDestroy, ActionSend} {
		next, err := Apply(st, a)
		require.NoError(t, err)
		st = next
		visited = append(visited, st)
	}

	assert.Equal(t, Statuses, visited)
	assert.True(t, st.Terminal())
}

func TestApply_SendFromAwaitingRejected(t *testing.T) {
	next, err := Apply(StatusAwaitingApproval, ActionSend)

	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, ActionSend, te.Action)
	assert.Equal(t, StatusAwaitingApproval, next)
}

func TestApply_DeleteIsNotATransition(t *testing.T) {
	_, err := Apply(StatusApproved, ActionDelete)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.True(t, Allowed(StatusApproved, ActionDelete))
}

func TestActions(t *testing.T) {
	assert.Equal(t, []Action{ActionApprove, ActionDelete}, Actions(StatusAwaitingApproval))
	assert.Equal(t, []Action{ActionDestroy, ActionDelete}, Actions(StatusApproved))
	assert.Equal(t, []Action{ActionSend, ActionDelete}, Actions(StatusDestroyed))
	assert.Equal(t, []Action{ActionDelete}, Actions(StatusSent))
	assert.Equal(t, []Action{ActionDelete}, Actions(Status("Dibatalkan")))
}

func TestParseStatus(t *testing.T) {
	for in, want := range map[string]Status{
		"Menunggu Persetujuan": StatusAwaitingApproval,
		"approved":             StatusApproved,
		"Destroyed":            StatusDestroyed,
		"sent to recipient":    StatusSent,
	} {
		got, err := ParseStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseStatus("cancelled")
	assert.Error(t, err)
}

func TestRequiresConfirmation(t *testing.T) {
	assert.True(t, RequiresConfirmation(ActionDestroy))
	assert.False(t, RequiresConfirmation(ActionApprove))
	assert.False(t, RequiresConfirmation(ActionSend))
}
