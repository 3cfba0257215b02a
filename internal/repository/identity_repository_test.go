package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshmanacadamy/Ver/internal/domain"
)

func TestIdentityRepository_ObserveCreatesOnce(t *testing.T) {
	repo := NewIdentityRepository()
	now := time.Now()

	first, created := repo.Observe(domain.Profile{ID: 1, FirstName: "Abebe", Username: "abebe"}, now)
	assert.True(t, created)
	assert.Equal(t, "Abebe", first.Name)
	assert.Equal(t, "abebe", first.Handle)

	again, created := repo.Observe(domain.Profile{ID: 1, FirstName: "Renamed"}, now.Add(time.Hour))
	assert.False(t, created)
	assert.Equal(t, "Abebe", again.Name)
	assert.Equal(t, now, again.JoinedAt)

	repo.Observe(domain.Profile{ID: 2}, now)
	assert.Equal(t, []int64{1, 2}, repo.IDs())
	assert.Equal(t, 2, repo.Count())
}

func TestIdentityRepository_SetBanned(t *testing.T) {
	repo := NewIdentityRepository()
	_, err := repo.SetBanned(1, true)
	assert.ErrorIs(t, err, domain.ErrIdentityNotFound)

	repo.Observe(domain.Profile{ID: 1}, time.Now())
	identity, err := repo.SetBanned(1, true)
	require.NoError(t, err)
	assert.True(t, identity.Banned)

	got, err := repo.Get(1)
	require.NoError(t, err)
	assert.True(t, got.Banned)
}
