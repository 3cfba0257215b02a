package repository

import (
	"sort"
	"sync"

	"github.com/freshmanacadamy/Ver/internal/domain"
)

// ChatRepository stores active pairings under both party ids. Pairing and
// removal touch both keys under one lock so no reader sees half a pairing.
type ChatRepository interface {
	// Pair inserts s under both parties unless either is already paired.
	Pair(s *domain.ChatSession) error
	Lookup(identityID int64) (*domain.ChatSession, bool)
	// Remove drops s if it is still the live pairing of its parties.
	Remove(s *domain.ChatSession) bool
	// RemoveFor drops whatever pairing identityID is part of.
	RemoveFor(identityID int64) (*domain.ChatSession, bool)
	// Active returns each live pairing once, oldest first.
	Active() []*domain.ChatSession
	Count() int
}

type chatRepository struct {
	mu      sync.RWMutex
	byParty map[int64]*domain.ChatSession
}

// NewChatRepository builds an in-memory pairing store.
func NewChatRepository() ChatRepository {
	return &chatRepository{byParty: make(map[int64]*domain.ChatSession)}
}

func (r *chatRepository) Pair(s *domain.ChatSession) error {
	if s.InitiatorID == s.CounterpartID {
		return domain.ErrSelfChat
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.byParty[s.InitiatorID]; busy {
		return domain.ErrAlreadyPaired
	}
	if _, busy := r.byParty[s.CounterpartID]; busy {
		return domain.ErrAlreadyPaired
	}
	r.byParty[s.InitiatorID] = s
	r.byParty[s.CounterpartID] = s
	return nil
}

func (r *chatRepository) Lookup(identityID int64) (*domain.ChatSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byParty[identityID]
	return s, ok
}

func (r *chatRepository) Remove(s *domain.ChatSession) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byParty[s.InitiatorID] != s {
		return false
	}
	r.drop(s)
	return true
}

func (r *chatRepository) RemoveFor(identityID int64) (*domain.ChatSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byParty[identityID]
	if !ok {
		return nil, false
	}
	r.drop(s)
	return s, true
}

// drop must run with mu held.
func (r *chatRepository) drop(s *domain.ChatSession) {
	delete(r.byParty, s.InitiatorID)
	delete(r.byParty, s.CounterpartID)
	s.MarkClosed()
}

func (r *chatRepository) Active() []*domain.ChatSession {
	r.mu.RLock()
	seen := make(map[*domain.ChatSession]struct{}, len(r.byParty)/2)
	result := make([]*domain.ChatSession, 0, len(r.byParty)/2)
	for _, s := range r.byParty {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		result = append(result, s)
	}
	r.mu.RUnlock()
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.Before(result[j].StartedAt)
	})
	return result
}

func (r *chatRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byParty) / 2
}
