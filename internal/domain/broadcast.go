package domain

import (
	"strings"
	"time"
)

// BroadcastScope selects the recipient set of a broadcast.
type BroadcastScope string

const (
	ScopeAll    BroadcastScope = "all"
	ScopeAdmins BroadcastScope = "admins"
	ScopeTest   BroadcastScope = "test"
)

// ParseBroadcastScope accepts the scope names used by admin commands.
func ParseBroadcastScope(raw string) (BroadcastScope, error) {
	switch BroadcastScope(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ScopeAll:
		return ScopeAll, nil
	case ScopeAdmins:
		return ScopeAdmins, nil
	case ScopeTest:
		return ScopeTest, nil
	default:
		return "", ErrUnknownBroadcastScope
	}
}

// BroadcastJob is a message and the recipients captured at submission.
type BroadcastJob struct {
	ID          string
	SubmittedBy int64
	Scope       BroadcastScope
	Body        string
	Recipients  []int64
	SubmittedAt time.Time
}

// BroadcastSummary counts fan-out outcomes.
type BroadcastSummary struct {
	Attempted int `json:"attempted"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}
