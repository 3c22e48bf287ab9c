package constants

// RequestStatus is the canonical workflow status for rows in requests.
type RequestStatus string

// Stable values (store these exact strings in DB).
const (
	StatusOpen       RequestStatus = "Open"        // newly created, awaiting review
	StatusInProgress RequestStatus = "In Progress" // under review
	StatusClosed     RequestStatus = "Closed"      // terminal
)

var allStatuses = []RequestStatus{StatusOpen, StatusInProgress, StatusClosed}

// allowedTransitions is the forward-only workflow. Closed has no exits.
var allowedTransitions = map[RequestStatus][]RequestStatus{
	StatusOpen:       {StatusInProgress, StatusClosed},
	StatusInProgress: {StatusClosed},
	StatusClosed:     {},
}

// IsValidStatus reports whether s is one of the stable status strings.
func IsValidStatus(s string) bool {
	for _, st := range allStatuses {
		if s == string(st) {
			return true
		}
	}
	return false
}

// CanTransition reports whether the workflow permits from -> to.
// A no-op transition (from == to) is not a workflow step and is rejected.
func CanTransition(from, to RequestStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllStatuses returns the workflow statuses in display order.
func AllStatuses() []RequestStatus {
	out := make([]RequestStatus, len(allStatuses))
	copy(out, allStatuses)
	return out
}
