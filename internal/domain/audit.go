package domain

import "time"

// AuditAction captures what an audit entry records.
type AuditAction string

const (
	AuditListingApproved AuditAction = "LISTING_APPROVED"
	AuditListingRejected AuditAction = "LISTING_REJECTED"
	AuditIdentityBanned  AuditAction = "IDENTITY_BANNED"
	AuditIdentityUnban   AuditAction = "IDENTITY_UNBANNED"
	AuditChatOpened      AuditAction = "CHAT_OPENED"
	AuditChatClosed      AuditAction = "CHAT_CLOSED"
	AuditBroadcast       AuditAction = "BROADCAST"
	AuditMaintenance     AuditAction = "MAINTENANCE_TOGGLED"
)

// AuditEntry is an immutable record of an administrative or pairing action.
type AuditEntry struct {
	ID        string         `json:"id"`
	ActorID   int64          `json:"actor_id"`
	Action    AuditAction    `json:"action"`
	SubjectID int64          `json:"subject_id"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
