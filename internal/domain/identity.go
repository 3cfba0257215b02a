package domain

import "time"

// Profile is what the chat platform tells us about the sender of an event.
type Profile struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
}

// DisplayName prefers the first name and falls back to the handle.
func (p Profile) DisplayName() string {
	if p.FirstName != "" {
		return p.FirstName
	}
	if p.Username != "" {
		return "@" + p.Username
	}
	return "User"
}

// Identity is an end user known to the marketplace.
type Identity struct {
	ID       int64
	Name     string
	Handle   string
	JoinedAt time.Time
	Banned   bool
}

// Mention renders the handle when there is one.
func (i Identity) Mention() string {
	if i.Handle != "" {
		return "@" + i.Handle
	}
	if i.Name != "" {
		return i.Name
	}
	return "User"
}
