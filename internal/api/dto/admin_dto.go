package dto

import (
	"time"

	"github.com/freshmanacadamy/Ver/internal/domain"
)

// ListingResponse is a listing as shown to admins.
type ListingResponse struct {
	ID          int64                `json:"id"`
	OwnerID     int64                `json:"owner_id"`
	Title       string               `json:"title"`
	Price       int64                `json:"price"`
	Category    domain.Category      `json:"category"`
	Description string               `json:"description"`
	HasMedia    bool                 `json:"has_media"`
	Status      domain.ListingStatus `json:"status"`
	CreatedAt   time.Time            `json:"created_at"`
	ModeratorID *int64               `json:"moderator_id,omitempty"`
	DecidedAt   *time.Time           `json:"decided_at,omitempty"`
}

// NewListingResponse maps a domain listing.
func NewListingResponse(l domain.Listing) ListingResponse {
	return ListingResponse{
		ID:          l.ID,
		OwnerID:     l.OwnerID,
		Title:       l.Title,
		Price:       l.Price,
		Category:    l.Category,
		Description: l.Description,
		HasMedia:    l.MediaRef != "",
		Status:      l.Status,
		CreatedAt:   l.CreatedAt,
		ModeratorID: l.ModeratorID,
		DecidedAt:   l.DecidedAt,
	}
}

// ChatSummary describes one active pairing.
type ChatSummary struct {
	InitiatorID   int64     `json:"initiator_id"`
	CounterpartID int64     `json:"counterpart_id"`
	ListingID     int64     `json:"listing_id"`
	StartedAt     time.Time `json:"started_at"`
	LastActive    time.Time `json:"last_active"`
	MessageCount  int       `json:"message_count"`
}

// ChatMessageResponse is one relayed message.
type ChatMessageResponse struct {
	SenderID int64           `json:"sender_id"`
	Role     domain.ChatRole `json:"role"`
	Text     string          `json:"text,omitempty"`
	MediaRef string          `json:"media_ref,omitempty"`
	SentAt   time.Time       `json:"sent_at"`
}

// ChatDetailResponse is a pairing with its full log.
type ChatDetailResponse struct {
	ChatSummary
	Messages []ChatMessageResponse `json:"messages"`
}

// NewChatSummary maps a live session.
func NewChatSummary(c *domain.ChatSession) ChatSummary {
	return ChatSummary{
		InitiatorID:   c.InitiatorID,
		CounterpartID: c.CounterpartID,
		ListingID:     c.ListingID,
		StartedAt:     c.StartedAt,
		LastActive:    c.LastActive(),
		MessageCount:  len(c.Messages()),
	}
}

// NewChatDetail maps a live session and its log.
func NewChatDetail(c *domain.ChatSession) ChatDetailResponse {
	msgs := c.Messages()
	out := ChatDetailResponse{ChatSummary: NewChatSummary(c), Messages: make([]ChatMessageResponse, 0, len(msgs))}
	out.MessageCount = len(msgs)
	for _, m := range msgs {
		out.Messages = append(out.Messages, ChatMessageResponse{
			SenderID: m.SenderID,
			Role:     m.Role,
			Text:     m.Text,
			MediaRef: m.MediaRef,
			SentAt:   m.SentAt,
		})
	}
	return out
}
