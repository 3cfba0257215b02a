package repository

import (
	"sort"
	"sync"
	"time"

	"github.com/freshmanacadamy/Ver/internal/domain"
)

// IdentityRepository stores every identity the bot has seen.
type IdentityRepository interface {
	// Observe returns the identity for p, creating it on first sight.
	Observe(p domain.Profile, now time.Time) (identity domain.Identity, created bool)
	Get(id int64) (domain.Identity, error)
	SetBanned(id int64, banned bool) (domain.Identity, error)
	// IDs returns a snapshot of all identity ids in join order.
	IDs() []int64
	Count() int
}

type identityRepository struct {
	mu    sync.RWMutex
	byID  map[int64]*domain.Identity
	order []int64
}

// NewIdentityRepository builds an in-memory identity store.
func NewIdentityRepository() IdentityRepository {
	return &identityRepository{byID: make(map[int64]*domain.Identity)}
}

func (r *identityRepository) Observe(p domain.Profile, now time.Time) (domain.Identity, bool) {
	r.mu.RLock()
	existing, ok := r.byID[p.ID]
	if ok {
		out := *existing
		r.mu.RUnlock()
		return out, false
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byID[p.ID]; ok {
		return *existing, false
	}
	identity := &domain.Identity{
		ID:       p.ID,
		Name:     p.DisplayName(),
		Handle:   p.Username,
		JoinedAt: now,
	}
	r.byID[p.ID] = identity
	r.order = append(r.order, p.ID)
	return *identity, true
}

func (r *identityRepository) Get(id int64) (domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	identity, ok := r.byID[id]
	if !ok {
		return domain.Identity{}, domain.ErrIdentityNotFound
	}
	return *identity, nil
}

func (r *identityRepository) SetBanned(id int64, banned bool) (domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	identity, ok := r.byID[id]
	if !ok {
		return domain.Identity{}, domain.ErrIdentityNotFound
	}
	identity.Banned = banned
	return *identity, nil
}

func (r *identityRepository) IDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]int64(nil), r.order...)
}

func (r *identityRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func sortNewestFirst(listings []domain.Listing) {
	sort.Slice(listings, func(i, j int) bool {
		if listings[i].CreatedAt.Equal(listings[j].CreatedAt) {
			return listings[i].ID > listings[j].ID
		}
		return listings[i].CreatedAt.After(listings[j].CreatedAt)
	})
}
