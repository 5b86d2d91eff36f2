package retur

import (
	"fmt"
	"strings"
)

// Status values are the strings persisted in the retur.status column.
type Status string

const (
	StatusAwaitingApproval Status = "Menunggu Persetujuan"
	StatusApproved         Status = "Sudah Disetujui"
	StatusDestroyed        Status = "Sudah Dimusnahkan"
	StatusSent             Status = "Sudah Kirim ke Pak Taufik"
)

// Statuses lists every state in workflow order.
var Statuses = []Status{
	StatusAwaitingApproval,
	StatusApproved,
	StatusDestroyed,
	StatusSent,
}

var statusSlugs = map[Status]string{
	StatusAwaitingApproval: "awaiting",
	StatusApproved:         "approved",
	StatusDestroyed:        "destroyed",
	StatusSent:             "sent",
}

var statusLabels = map[Status]string{
	StatusAwaitingApproval: "Awaiting Approval",
	StatusApproved:         "Approved",
	StatusDestroyed:        "Destroyed",
	StatusSent:             "Sent to Recipient",
}

func (s Status) Valid() bool {
	_, ok := statusSlugs[s]
	return ok
}

func (s Status) Slug() string {
	return statusSlugs[s]
}

func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// ParseStatus accepts the persisted value, the slug or the English label.
func ParseStatus(s string) (Status, error) {
	v := strings.TrimSpace(s)
	for _, st := range Statuses {
		if v == string(st) || strings.EqualFold(v, st.Slug()) || strings.EqualFold(v, st.Label()) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status: %q", s)
}

type Action string

const (
	ActionApprove Action = "approve"
	ActionDestroy Action = "destroy"
	ActionSend    Action = "send"
	ActionDelete  Action = "delete"
)

func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionApprove, ActionDestroy, ActionSend, ActionDelete:
		return a, nil
	default:
		return "", fmt.Errorf("unknown action: %q", s)
	}
}

type transition struct {
	from Status
	to   Status
}

// transitions is the single source of truth for action gating. Delete is not
// a transition: it is available from every state.
var transitions = map[Action]transition{
	ActionApprove: {from: StatusAwaitingApproval, to: StatusApproved},
	ActionDestroy: {from: StatusApproved, to: StatusDestroyed},
	ActionSend:    {from: StatusDestroyed, to: StatusSent},
}

// Apply returns the status reached by running action from the given status.
func Apply(from Status, action Action) (Status, error) {
	t, ok := transitions[action]
	if !ok || t.from != from {
		return from, &TransitionError{From: from, Action: action}
	}
	return t.to, nil
}

// Allowed reports whether action may be offered for a record in status s.
func Allowed(s Status, action Action) bool {
	if action == ActionDelete {
		return true
	}
	t, ok := transitions[action]
	return ok && t.from == s
}

// Actions returns the actions to offer for a record in status s, forward
// transitions first.
func Actions(s Status) []Action {
	var actions []Action
	for _, a := range []Action{ActionApprove, ActionDestroy, ActionSend} {
		if Allowed(s, a) {
			actions = append(actions, a)
		}
	}
	return append(actions, ActionDelete)
}

func RequiresConfirmation(action Action) bool {
	return action == ActionDestroy
}

func (s Status) Terminal() bool {
	return s == StatusSent
}
