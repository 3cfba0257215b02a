package repository

import (
	"sync"
	"time"

	"github.com/freshmanacadamy/Ver/internal/domain"
)

// ConversationRepository holds at most one listing dialogue per identity.
// Callers serialize access to a given identity's session; the session's
// fields are only read or written under that serialization. The store keeps
// its own last-touched time per identity for sweeps that run outside it.
type ConversationRepository interface {
	Get(identityID int64) (*domain.ConversationSession, bool)
	// Put stores session and stamps it as touched at session.UpdatedAt.
	Put(session *domain.ConversationSession)
	// Touch records activity on the identity's session, if any.
	Touch(identityID int64, at time.Time)
	Delete(identityID int64)
	// IdleSince returns identities not touched since before cutoff. Callers
	// recheck the session itself under the identity's lock.
	IdleSince(cutoff time.Time) []int64
	Count() int
}

type conversationRepository struct {
	mu       sync.RWMutex
	sessions map[int64]*domain.ConversationSession
	touched  map[int64]time.Time
}

// NewConversationRepository builds an in-memory session store.
func NewConversationRepository() ConversationRepository {
	return &conversationRepository{
		sessions: make(map[int64]*domain.ConversationSession),
		touched:  make(map[int64]time.Time),
	}
}

func (r *conversationRepository) Get(identityID int64) (*domain.ConversationSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[identityID]
	return s, ok
}

func (r *conversationRepository) Put(session *domain.ConversationSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.IdentityID] = session
	r.touched[session.IdentityID] = session.UpdatedAt
}

func (r *conversationRepository) Touch(identityID int64, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[identityID]; ok {
		r.touched[identityID] = at
	}
}

func (r *conversationRepository) Delete(identityID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, identityID)
	delete(r.touched, identityID)
}

func (r *conversationRepository) IdleSince(cutoff time.Time) []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []int64
	for id, at := range r.touched {
		if at.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *conversationRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
