package order

type ActionKind string

const (
	ActionCreate       ActionKind = "created"
	ActionUpdateStatus ActionKind = "status_updated"
	ActionIgnore       ActionKind = "ignored"
)

type IgnoreReason string

const (
	ReasonDuplicateDelivery IgnoreReason = "duplicate-delivery"
	ReasonUnchangedStatus   IgnoreReason = "unchanged-status"
	ReasonStaleDelivery     IgnoreReason = "stale-delivery"
)

// Action is the guard's decision for one delivery.
type Action struct {
	Kind   ActionKind
	Status Status       // target status for ActionUpdateStatus
	Reason IgnoreReason // set for ActionIgnore
}

// ChangesState reports whether the action writes to the store.
func (a Action) ChangesState() bool {
	return a.Kind == ActionCreate || a.Kind == ActionUpdateStatus
}

// Admit decides what to do with fragment given the currently stored record
// (nil when none). It must be evaluated under the per-form critical section
// that also covers the resulting write.
func Admit(fragment Fragment, existing *OrderRecord) Action {
	if existing == nil {
		return Action{Kind: ActionCreate, Status: fragment.Status}
	}
	if existing.RawPayloadDigest == fragment.Digest {
		return Action{Kind: ActionIgnore, Reason: ReasonDuplicateDelivery}
	}
	if existing.Status == fragment.Status {
		return Action{Kind: ActionIgnore, Reason: ReasonUnchangedStatus}
	}
	if existing.Status.CanTransitionTo(fragment.Status) {
		return Action{Kind: ActionUpdateStatus, Status: fragment.Status}
	}
	return Action{Kind: ActionIgnore, Reason: ReasonStaleDelivery}
}
