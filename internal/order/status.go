package order

import (
	"errors"
	"fmt"
	"strings"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusInTransit Status = "in_transit"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
	StatusProblem   Status = "problem"
)

var Statuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusPreparing,
	StatusReady,
	StatusInTransit,
	StatusDelivered,
	StatusCancelled,
	StatusProblem,
}

var ErrInvalidStatus = errors.New("invalid order status")

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Statuses {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

// Terminal reports whether no further progress is possible. A problem order
// still accepts cancellation so deducted stock can be returned.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

func (s Status) Active() bool {
	return !s.Terminal() && s != StatusProblem
}

type Event string

const (
	EventConfirm        Event = "confirm"
	EventStartPreparing Event = "start_preparing"
	EventMarkReady      Event = "mark_ready"
	EventDispatch       Event = "dispatch"
	EventDeliver        Event = "deliver"
	EventCancel         Event = "cancel"
	EventReportProblem  Event = "report_problem"
)

var Events = []Event{EventConfirm, EventStartPreparing, EventMarkReady, EventDispatch, EventDeliver, EventCancel, EventReportProblem}

var ErrInvalidEvent = errors.New("invalid order event")

func ParseEvent(raw string) (Event, error) {
	e := Event(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Events {
		if e == known {
			return e, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidEvent, raw)
}

// Effect is an inventory side effect attached to a transition.
type Effect string

const (
	EffectDeductStock  Effect = "deduct_stock"
	EffectRestoreStock Effect = "restore_stock"
)

type Transition struct {
	From    Status
	Event   Event
	To      Status
	Effects []Effect
}

type transitionKey struct {
	from  Status
	event Event
}

var transitions = buildTransitions()

func buildTransitions() map[transitionKey]Transition {
	happy := []struct {
		from  Status
		event Event
		to    Status
	}{
		{StatusPending, EventConfirm, StatusConfirmed},
		{StatusConfirmed, EventStartPreparing, StatusPreparing},
		{StatusPreparing, EventMarkReady, StatusReady},
		{StatusReady, EventDispatch, StatusInTransit},
		{StatusInTransit, EventDeliver, StatusDelivered},
	}

	table := make(map[transitionKey]Transition)
	add := func(t Transition) {
		table[transitionKey{t.From, t.Event}] = t
	}

	for _, h := range happy {
		t := Transition{From: h.from, Event: h.event, To: h.to}
		if h.from == StatusPending && h.to == StatusConfirmed {
			t.Effects = []Effect{EffectDeductStock}
		}
		add(t)
	}

	for _, s := range []Status{StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusInTransit} {
		add(Transition{From: s, Event: EventCancel, To: StatusCancelled, Effects: []Effect{EffectRestoreStock}})
		add(Transition{From: s, Event: EventReportProblem, To: StatusProblem})
	}
	add(Transition{From: StatusProblem, Event: EventCancel, To: StatusCancelled, Effects: []Effect{EffectRestoreStock}})

	return table
}

var ErrInvalidTransition = errors.New("invalid order status transition")

// Fire looks up the transition for event from the given state.
func Fire(from Status, event Event) (Transition, error) {
	t, ok := transitions[transitionKey{from, event}]
	if !ok {
		return Transition{}, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, event, from)
	}
	return t, nil
}

// Resolve finds the transition that moves from to to.
func Resolve(from, to Status) (Transition, error) {
	for _, t := range transitions {
		if t.From == from && t.To == to {
			return t, nil
		}
	}
	return Transition{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// Next lists the statuses reachable from s.
func Next(s Status) []Status {
	out := make([]Status, 0)
	for _, candidate := range Statuses {
		if _, err := Resolve(s, candidate); err == nil {
			out = append(out, candidate)
		}
	}
	return out
}
