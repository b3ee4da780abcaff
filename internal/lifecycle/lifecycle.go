// Package lifecycle governs an event's moderation states. Every state change,
// whether requested by the initiator or by an administrator, is resolved
// through the same transition table so the two call sites cannot disagree.
package lifecycle

import (
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/event-hosting/internal/apperr"
	"github.com/Shivanand-hulikatti/event-hosting/internal/model"
)

// MinLeadTime is how far in the future an event date must be when it is set.
const MinLeadTime = 2 * time.Hour

// Actor identifies who is asking for a transition.
type Actor string

const (
	Initiator Actor = "initiator"
	Admin     Actor = "admin"
)

type rule struct {
	actor   Actor
	to      model.EventState
	from    []model.EventState
	publish bool
	denied  map[model.EventState]string
}

var transitions = map[model.StateAction]rule{
	model.ActionSendToReview: {
		actor: Initiator,
		to:    model.EventPending,
		from:  []model.EventState{model.EventPending},
		denied: map[model.EventState]string{
			model.EventPublished: "published event cannot be sent to review",
			model.EventCanceled:  "canceled event cannot be resubmitted",
		},
	},
	model.ActionCancelReview: {
		actor: Initiator,
		to:    model.EventCanceled,
		from:  []model.EventState{model.EventPending, model.EventCanceled},
		denied: map[model.EventState]string{
			model.EventPublished: "published event cannot be withdrawn",
		},
	},
	model.ActionPublishEvent: {
		actor:   Admin,
		to:      model.EventPublished,
		from:    []model.EventState{model.EventPending},
		publish: true,
		denied: map[model.EventState]string{
			model.EventPublished: "event not awaiting publication",
			model.EventCanceled:  "event not awaiting publication",
		},
	},
	model.ActionRejectEvent: {
		actor: Admin,
		to:    model.EventCanceled,
		from:  []model.EventState{model.EventPending, model.EventCanceled},
		denied: map[model.EventState]string{
			model.EventPublished: "published event cannot be rejected",
		},
	},
}

// Next resolves the state an event in state from moves to when actor performs
// action. It does not modify anything.
func Next(from model.EventState, actor Actor, action model.StateAction) (model.EventState, error) {
	r, ok := transitions[action]
	if !ok {
		return "", apperr.Validation("unknown state action %q", action)
	}
	if r.actor != actor {
		return "", apperr.Validation("state action %s is not available to the %s", action, actor)
	}
	for _, s := range r.from {
		if s == from {
			return r.to, nil
		}
	}
	if msg, ok := r.denied[from]; ok {
		return "", apperr.Conflict("%s", msg)
	}
	return "", apperr.Conflict("cannot %s an event in state %s", action, from)
}

// Apply performs action on e, stamping the publication time when the event
// becomes published.
func Apply(e *model.Event, actor Actor, action model.StateAction, now time.Time) error {
	next, err := Next(e.State, actor, action)
	if err != nil {
		return err
	}
	if transitions[action].publish {
		published := now
		e.PublishedOn = &published
	}
	e.State = next
	return nil
}

// CheckEditable fails with a conflict once an event has been published.
func CheckEditable(e *model.Event) error {
	if e.State == model.EventPublished {
		return apperr.Conflict("published event with id=%d cannot be changed", e.ID)
	}
	return nil
}

// CheckEventDate verifies date leaves at least MinLeadTime before the event.
func CheckEventDate(date, now time.Time) error {
	if date.Before(now.Add(MinLeadTime)) {
		return apperr.Validation("event date must be at least %s after the current moment", formatLead(MinLeadTime))
	}
	return nil
}

// ApplyEdits copies the non-nil fields of u onto e. The category reference is
// copied as is; resolving it is the caller's job.
func ApplyEdits(e *model.Event, u *model.UpdateEvent, now time.Time) error {
	if !u.HasFieldEdits() {
		return nil
	}
	if err := CheckEditable(e); err != nil {
		return err
	}
	if u.EventDate != nil {
		if err := CheckEventDate(*u.EventDate, now); err != nil {
			return err
		}
	}
	if u.ParticipantLimit != nil {
		limit := *u.ParticipantLimit
		if limit < 0 {
			return apperr.Validation("participant limit cannot be negative")
		}
		if limit != 0 && limit < e.ConfirmedRequests {
			return apperr.Conflict("participant limit %d is below the %d already confirmed", limit, e.ConfirmedRequests)
		}
	}

	if u.Title != nil {
		e.Title = *u.Title
	}
	if u.Annotation != nil {
		e.Annotation = *u.Annotation
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
	if u.Category != nil {
		e.CategoryID = *u.Category
	}
	if u.EventDate != nil {
		e.EventDate = *u.EventDate
	}
	if u.Location != nil {
		e.Location = *u.Location
	}
	if u.Paid != nil {
		e.Paid = *u.Paid
	}
	if u.ParticipantLimit != nil {
		e.ParticipantLimit = *u.ParticipantLimit
	}
	if u.RequestModeration != nil {
		e.RequestModeration = *u.RequestModeration
	}
	return nil
}

func formatLead(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	}
	return d.String()
}
