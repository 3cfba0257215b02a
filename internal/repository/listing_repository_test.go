package repository

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshmanacadamy/Ver/internal/domain"
)

func completeDraft(title string) domain.Draft {
	return domain.Draft{
		MediaRef:    "photo-1",
		Title:       title,
		Price:       1500,
		Description: domain.NoDescription,
		Category:    domain.CategoryElectronics,
	}
}

func TestListingRepository_CreateAndDecide(t *testing.T) {
	repo := NewListingRepository()
	now := time.Now()

	listing, err := repo.Create(1, completeDraft("Calculus Textbook"), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), listing.ID)
	assert.Equal(t, domain.ListingPending, listing.Status)
	assert.Nil(t, listing.ModeratorID)

	approved, err := repo.Decide(listing.ID, domain.DecisionApprove, 100, now)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingApproved, approved.Status)
	require.NotNil(t, approved.ModeratorID)
	assert.Equal(t, int64(100), *approved.ModeratorID)

	again, err := repo.Decide(listing.ID, domain.DecisionReject, 200, now)
	assert.ErrorIs(t, err, domain.ErrAlreadyDecided)
	assert.Equal(t, domain.ListingApproved, again.Status)
	assert.Equal(t, int64(100), *again.ModeratorID)

	_, err = repo.Decide(99, domain.DecisionApprove, 100, now)
	assert.ErrorIs(t, err, domain.ErrListingNotFound)
}

func TestListingRepository_RejectsIncompleteDraft(t *testing.T) {
	repo := NewListingRepository()
	draft := completeDraft("Lamp")
	draft.MediaRef = ""
	_, err := repo.Create(1, draft, time.Now())
	assert.ErrorIs(t, err, domain.ErrIncompleteDraft)
	assert.Empty(t, repo.ListByOwner(1))
}

func TestListingRepository_ListsNewestFirst(t *testing.T) {
	repo := NewListingRepository()
	base := time.Now()
	for i, title := range []string{"a", "b", "c"} {
		_, err := repo.Create(1, completeDraft(title), base.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}
	pending := repo.ListByStatus(domain.ListingPending)
	require.Len(t, pending, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{pending[0].Title, pending[1].Title, pending[2].Title})

	counts := repo.CountByStatus()
	assert.Equal(t, 3, counts[domain.ListingPending])
	assert.Equal(t, 0, counts[domain.ListingApproved])
}

func TestListingRepository_ConcurrentDecideHasOneWinner(t *testing.T) {
	repo := NewListingRepository()
	listing, err := repo.Create(1, completeDraft("Desk"), time.Now())
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(moderator int64) {
			defer wg.Done()
			if _, err := repo.Decide(listing.ID, domain.DecisionApprove, moderator, time.Now()); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(int64(i + 1))
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestListingRepository_ReturnsCopies(t *testing.T) {
	repo := NewListingRepository()
	listing, err := repo.Create(1, completeDraft("Chair"), time.Now())
	require.NoError(t, err)
	_, err = repo.Decide(listing.ID, domain.DecisionApprove, 5, time.Now())
	require.NoError(t, err)

	got, err := repo.Get(listing.ID)
	require.NoError(t, err)
	*got.ModeratorID = 777

	again, err := repo.Get(listing.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), *again.ModeratorID)
}
