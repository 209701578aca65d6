package pressroom

// The editorial workflow is a small closed graph:
//
//	draft -> review -> published
//	review -> draft      (rejected back to rework)
//	published -> draft   (unpublish)
//
// There is no absorbing state; published articles can always return to
// draft. Self transitions are rejected. The table is consulted before every
// status-changing operation; nothing else in the codebase assigns Status.
var transitions = map[Status][]Status{
	StatusDraft:     {StatusReview},
	StatusReview:    {StatusPublished, StatusDraft},
	StatusPublished: {StatusDraft},
}

// CanTransition reports whether the workflow allows moving from one status
// to another. It returns a *TransitionError identifying the illegal pair on
// rejection, nil otherwise.
func CanTransition(from, to Status) error {
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return &TransitionError{From: from, To: to}
}

// CanPublishDirect reports whether the direct-publish shortcut is available
// from the given status. Elevated roles may publish straight from draft,
// bypassing review; every other starting point is rejected.
func CanPublishDirect(from Status) error {
	switch from {
	case StatusDraft, StatusReview:
		return nil
	}
	return &TransitionError{From: from, To: StatusPublished}
}

// NextStatuses returns the statuses reachable from the given status via the
// guarded workflow, in table order.
func NextStatuses(from Status) []Status {
	next := transitions[from]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}
