package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/freshmanacadamy/Ver/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventListingCreated  EventType = "listing_created"
	EventListingDecided  EventType = "listing_decided"
	EventListingReported EventType = "listing_reported"
	EventChatOpened      EventType = "chat_opened"
	EventChatClosed      EventType = "chat_closed"
	EventSupportRequest  EventType = "support_requested"
)

// Event represents a domain event emitted by the workflow services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ActorID   int64       `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with a fresh id.
func New(eventType EventType, actorID int64, now time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ActorID:   actorID,
		Timestamp: now,
		Payload:   payload,
	}
}

// ListingCreatedPayload carries the new pending listing.
type ListingCreatedPayload struct {
	Listing domain.Listing `json:"listing"`
	Owner   string         `json:"owner"`
}

// ListingDecidedPayload payload.
type ListingDecidedPayload struct {
	ListingID   int64                `json:"listing_id"`
	OwnerID     int64                `json:"owner_id"`
	NewStatus   domain.ListingStatus `json:"new_status"`
	ModeratorID int64                `json:"moderator_id"`
}

// ListingReportedPayload payload.
type ListingReportedPayload struct {
	ListingID  int64  `json:"listing_id"`
	ReporterID int64  `json:"reporter_id"`
	Reason     string `json:"reason"`
}

// ChatOpenedPayload payload.
type ChatOpenedPayload struct {
	InitiatorID   int64  `json:"initiator_id"`
	CounterpartID int64  `json:"counterpart_id"`
	ListingID     int64  `json:"listing_id"`
	ListingTitle  string `json:"listing_title"`
}

// ChatClosedPayload payload.
type ChatClosedPayload struct {
	InitiatorID   int64  `json:"initiator_id"`
	CounterpartID int64  `json:"counterpart_id"`
	ListingID     int64  `json:"listing_id"`
	Reason        string `json:"reason"`
	Messages      int    `json:"messages"`
}

// SupportRequestPayload carries a user's message for the admins.
type SupportRequestPayload struct {
	IdentityID int64  `json:"identity_id"`
	Body       string `json:"body"`
}
