package domain

import (
	"sync"
	"time"
)

// ChatRole says which side of a pairing sent a message.
type ChatRole string

const (
	RoleInitiator   ChatRole = "initiator"
	RoleCounterpart ChatRole = "counterpart"
)

// ChatMessage is one relayed message.
type ChatMessage struct {
	SenderID int64
	Role     ChatRole
	Text     string
	MediaRef string
	SentAt   time.Time
}

// ChatSession is a symmetric pairing of two identities around one listing.
// Both identity keys of the chat store point at the same value.
type ChatSession struct {
	InitiatorID   int64
	CounterpartID int64
	ListingID     int64
	StartedAt     time.Time

	mu         sync.Mutex
	messages   []ChatMessage
	lastActive time.Time
	closed     bool
}

// NewChatSession builds an open pairing.
func NewChatSession(initiatorID, counterpartID, listingID int64, now time.Time) *ChatSession {
	return &ChatSession{
		InitiatorID:   initiatorID,
		CounterpartID: counterpartID,
		ListingID:     listingID,
		StartedAt:     now,
		lastActive:    now,
	}
}

// Involves reports whether id is one of the two parties.
func (c *ChatSession) Involves(id int64) bool {
	return c.InitiatorID == id || c.CounterpartID == id
}

// PartnerOf returns the other party.
func (c *ChatSession) PartnerOf(id int64) int64 {
	if id == c.InitiatorID {
		return c.CounterpartID
	}
	return c.InitiatorID
}

// RoleOf returns the role id plays in this pairing.
func (c *ChatSession) RoleOf(id int64) ChatRole {
	if id == c.InitiatorID {
		return RoleInitiator
	}
	return RoleCounterpart
}

// Append records a message from one of the two parties unless the session
// was already closed.
func (c *ChatSession) Append(senderID int64, text, mediaRef string, now time.Time) (ChatMessage, error) {
	if !c.Involves(senderID) {
		return ChatMessage{}, ErrNotParty
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ChatMessage{}, ErrNoActiveSession
	}
	msg := ChatMessage{
		SenderID: senderID,
		Role:     c.RoleOf(senderID),
		Text:     text,
		MediaRef: mediaRef,
		SentAt:   now,
	}
	c.messages = append(c.messages, msg)
	c.lastActive = now
	return msg, nil
}

// Messages returns a copy of the log in send order.
func (c *ChatSession) Messages() []ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ChatMessage(nil), c.messages...)
}

// LastActive is the time of the latest message, or the start time.
func (c *ChatSession) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

// MarkClosed stops further appends.
func (c *ChatSession) MarkClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Closed reports whether MarkClosed ran.
func (c *ChatSession) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
