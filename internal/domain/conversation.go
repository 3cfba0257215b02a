package domain

import "time"

// SessionState is a step of the listing-creation dialogue.
type SessionState string

const (
	StateAwaitingImage       SessionState = "awaiting_image"
	StateAwaitingTitle       SessionState = "awaiting_title"
	StateAwaitingPrice       SessionState = "awaiting_price"
	StateAwaitingDescription SessionState = "awaiting_description"
	StateAwaitingCategory    SessionState = "awaiting_category"
	StateCompleted           SessionState = "completed"
	StateCancelled           SessionState = "cancelled"
)

var allowedTransitions = map[SessionState][]SessionState{
	StateAwaitingImage:       {StateAwaitingTitle, StateCancelled},
	StateAwaitingTitle:       {StateAwaitingPrice, StateCancelled},
	StateAwaitingPrice:       {StateAwaitingDescription, StateCancelled},
	StateAwaitingDescription: {StateAwaitingCategory, StateCancelled},
	StateAwaitingCategory:    {StateCompleted, StateCancelled},
	StateCompleted:           {},
	StateCancelled:           {},
}

// IsValidTransition reports whether next directly follows current.
func IsValidTransition(current, next SessionState) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further input is accepted.
func (s SessionState) IsTerminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// Step is the 1-based position shown to the user ("Step 2/5").
func (s SessionState) Step() int {
	switch s {
	case StateAwaitingImage:
		return 1
	case StateAwaitingTitle:
		return 2
	case StateAwaitingPrice:
		return 3
	case StateAwaitingDescription:
		return 4
	case StateAwaitingCategory:
		return 5
	default:
		return 0
	}
}

// Draft is the partially collected listing.
type Draft struct {
	MediaRef    string
	Title       string
	Price       int64
	Description string
	Category    Category
}

// Complete reports whether every required field was collected.
func (d Draft) Complete() bool {
	return d.MediaRef != "" && d.Title != "" && d.Price > 0 && d.Category != ""
}

// ConversationSession drives one identity through listing creation.
type ConversationSession struct {
	IdentityID int64
	State      SessionState
	Draft      Draft
	StartedAt  time.Time
	UpdatedAt  time.Time
}

// NewConversationSession starts a dialogue at the first step.
func NewConversationSession(identityID int64, now time.Time) *ConversationSession {
	return &ConversationSession{
		IdentityID: identityID,
		State:      StateAwaitingImage,
		StartedAt:  now,
		UpdatedAt:  now,
	}
}

// Advance moves to next if the edge exists.
func (s *ConversationSession) Advance(next SessionState, now time.Time) error {
	if !IsValidTransition(s.State, next) {
		return ErrInvalidTransition
	}
	s.State = next
	s.UpdatedAt = now
	return nil
}
