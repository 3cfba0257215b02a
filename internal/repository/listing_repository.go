package repository

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/freshmanacadamy/Ver/internal/domain"
)

// ListingRepository is the listing catalog.
type ListingRepository interface {
	// Create materializes a finished draft as a pending listing.
	Create(ownerID int64, draft domain.Draft, now time.Time) (domain.Listing, error)
	Get(id int64) (domain.Listing, error)
	// Decide moves a pending listing to approved or rejected exactly once.
	Decide(id int64, decision domain.Decision, moderatorID int64, now time.Time) (domain.Listing, error)
	ListByStatus(status domain.ListingStatus) []domain.Listing
	ListByOwner(ownerID int64) []domain.Listing
	CountByStatus() map[domain.ListingStatus]int
}

type listingRepository struct {
	mu     sync.RWMutex
	nextID atomic.Int64
	byID   map[int64]*domain.Listing
}

// NewListingRepository builds an in-memory catalog with ids starting at 1.
func NewListingRepository() ListingRepository {
	return &listingRepository{byID: make(map[int64]*domain.Listing)}
}

func (r *listingRepository) Create(ownerID int64, draft domain.Draft, now time.Time) (domain.Listing, error) {
	if !draft.Complete() {
		return domain.Listing{}, domain.ErrIncompleteDraft
	}
	listing := &domain.Listing{
		ID:          r.nextID.Add(1),
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(draft.Title),
		Price:       draft.Price,
		Category:    draft.Category,
		Description: draft.Description,
		MediaRef:    draft.MediaRef,
		Status:      domain.ListingPending,
		CreatedAt:   now,
	}
	r.mu.Lock()
	r.byID[listing.ID] = listing
	r.mu.Unlock()
	return clone(listing), nil
}

func (r *listingRepository) Get(id int64) (domain.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	listing, ok := r.byID[id]
	if !ok {
		return domain.Listing{}, domain.ErrListingNotFound
	}
	return clone(listing), nil
}

func (r *listingRepository) Decide(id int64, decision domain.Decision, moderatorID int64, now time.Time) (domain.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	listing, ok := r.byID[id]
	if !ok {
		return domain.Listing{}, domain.ErrListingNotFound
	}
	if listing.IsDecided() {
		return clone(listing), domain.ErrAlreadyDecided
	}
	decidedAt := now
	moderator := moderatorID
	listing.Status = decision.Status()
	listing.ModeratorID = &moderator
	listing.DecidedAt = &decidedAt
	return clone(listing), nil
}

func (r *listingRepository) ListByStatus(status domain.ListingStatus) []domain.Listing {
	return r.filter(func(l *domain.Listing) bool { return l.Status == status })
}

func (r *listingRepository) ListByOwner(ownerID int64) []domain.Listing {
	return r.filter(func(l *domain.Listing) bool { return l.OwnerID == ownerID })
}

func (r *listingRepository) CountByStatus() map[domain.ListingStatus]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := map[domain.ListingStatus]int{
		domain.ListingPending:  0,
		domain.ListingApproved: 0,
		domain.ListingRejected: 0,
	}
	for _, l := range r.byID {
		counts[l.Status]++
	}
	return counts
}

func (r *listingRepository) filter(keep func(*domain.Listing) bool) []domain.Listing {
	r.mu.RLock()
	result := make([]domain.Listing, 0)
	for _, l := range r.byID {
		if keep(l) {
			result = append(result, clone(l))
		}
	}
	r.mu.RUnlock()
	sortNewestFirst(result)
	return result
}

func clone(l *domain.Listing) domain.Listing {
	out := *l
	if l.ModeratorID != nil {
		id := *l.ModeratorID
		out.ModeratorID = &id
	}
	if l.DecidedAt != nil {
		at := *l.DecidedAt
		out.DecidedAt = &at
	}
	return out
}
