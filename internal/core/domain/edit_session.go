package domain

import "time"

// SessionState is the lifecycle state of an edit session.
type SessionState string

const (
	SessionOpen   SessionState = "open"
	SessionSaving SessionState = "saving"
	SessionClosed SessionState = "closed"
)

// AllocationUIState holds the per-allocation presentation state derived when a
// session opens. It is keyed by the allocation's stable identifier, never by
// its position in the working slice.
type AllocationUIState struct {
	ShowVirtual    bool   `json:"showVirtual"`    // account picker starts on the virtual tab
	CategoryFilter string `json:"categoryFilter"` // pre-selected category of the current account
}

// EditSession is one open transaction-edit session. The working set is the
// user's in-progress edits; the original set is an immutable snapshot used for
// dirty comparison and discarded-on-cancel semantics.
type EditSession struct {
	SessionID           string
	State               SessionState
	Master              Transaction // snapshot of the master at open time
	Description         string      // working copy of the master description
	OriginalDescription string
	Working             []Allocation
	Original            []Allocation
	UIState             map[string]AllocationUIState // keyed by AllocationID
	SaveError           string                       // retained message from the last failed save
	OpenedAt            time.Time
}
