package registry

import "strings"

// Status represents the lifecycle of a discovered file.
type Status string

const (
	StatusPending      Status = "pending"
	StatusChecking     Status = "checking"
	StatusSkipped      Status = "skipped"
	StatusTransferring Status = "transferring"
	StatusReady        Status = "ready"
	StatusEncoding     Status = "encoding"
	StatusSuccess      Status = "success"
	StatusError        Status = "error"
	StatusCancelled    Status = "cancelled"
	StatusDeleted      Status = "deleted"
)

var allStatuses = []Status{
	StatusPending,
	StatusChecking,
	StatusSkipped,
	StatusTransferring,
	StatusReady,
	StatusEncoding,
	StatusSuccess,
	StatusError,
	StatusCancelled,
	StatusDeleted,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// transitions is the closed transition graph. A record may only move along
// these edges; everything else is rejected by Registry.Update.
var transitions = map[Status]map[Status]struct{}{
	StatusPending: {
		StatusChecking:  {},
		StatusCancelled: {},
		StatusDeleted:   {},
		// Failed zero-byte deletion during the scan.
		StatusError: {},
	},
	StatusChecking: {
		StatusSkipped:      {},
		StatusError:        {},
		StatusDeleted:      {},
		StatusTransferring: {},
		StatusCancelled:    {},
	},
	StatusTransferring: {
		StatusReady:     {},
		StatusError:     {},
		StatusCancelled: {},
	},
	StatusReady: {
		StatusEncoding:  {},
		StatusCancelled: {},
	},
	StatusEncoding: {
		StatusSuccess:   {},
		StatusError:     {},
		StatusCancelled: {},
	},
}

var terminalStatuses = map[Status]struct{}{
	StatusSkipped:   {},
	StatusSuccess:   {},
	StatusError:     {},
	StatusCancelled: {},
	StatusDeleted:   {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	next, ok := transitions[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

// IsTerminal reports whether a record in this status will never move again.
func (s Status) IsTerminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

// Label returns the uppercase display form used by the terminal UI.
func (s Status) Label() string {
	return strings.ToUpper(string(s))
}
