package models

// Status is the trust state of a registry entry.
//
// Legal graph:
//
//	unknown → quarantined
//	quarantined → approved
//	quarantined → blocked
//	approved ⇄ blocked
//
// unknown exists only inside the admit operation; no reader ever observes a
// persisted entry still carrying it. Every change past the initial
// quarantine is administrator-initiated; there are no timeout transitions.
type Status string

const (
	StatusUnknown     Status = "unknown"
	StatusQuarantined Status = "quarantined"
	StatusApproved    Status = "approved"
	StatusBlocked     Status = "blocked"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusUnknown, StatusQuarantined, StatusApproved, StatusBlocked:
		return true
	}
	return false
}

// CanTransitionTo reports whether the edge s→target is in the legal graph.
// Same-state edges are not part of the graph; callers that want approve of
// an approved entry to be a no-op handle that before asking.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusUnknown:
		return target == StatusQuarantined
	case StatusQuarantined:
		return target == StatusApproved || target == StatusBlocked
	case StatusApproved:
		return target == StatusBlocked
	case StatusBlocked:
		return target == StatusApproved
	}
	return false
}
