package repository

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshmanacadamy/Ver/internal/domain"
)

func TestChatRepository_PairIsSymmetric(t *testing.T) {
	repo := NewChatRepository()
	s := domain.NewChatSession(2, 1, 10, time.Now())
	require.NoError(t, repo.Pair(s))

	a, ok := repo.Lookup(1)
	require.True(t, ok)
	b, ok := repo.Lookup(2)
	require.True(t, ok)
	assert.Same(t, a, b)
	assert.Equal(t, 1, repo.Count())
}

func TestChatRepository_Exclusivity(t *testing.T) {
	repo := NewChatRepository()
	require.NoError(t, repo.Pair(domain.NewChatSession(2, 1, 10, time.Now())))

	assert.ErrorIs(t, repo.Pair(domain.NewChatSession(3, 1, 10, time.Now())), domain.ErrAlreadyPaired)
	assert.ErrorIs(t, repo.Pair(domain.NewChatSession(2, 4, 11, time.Now())), domain.ErrAlreadyPaired)
	assert.ErrorIs(t, repo.Pair(domain.NewChatSession(5, 5, 11, time.Now())), domain.ErrSelfChat)

	_, ok := repo.Lookup(3)
	assert.False(t, ok)
}

func TestChatRepository_RemoveForDropsBothKeys(t *testing.T) {
	repo := NewChatRepository()
	s := domain.NewChatSession(2, 1, 10, time.Now())
	require.NoError(t, repo.Pair(s))

	removed, ok := repo.RemoveFor(2)
	require.True(t, ok)
	assert.Same(t, s, removed)
	assert.True(t, s.Closed())

	_, ok = repo.Lookup(1)
	assert.False(t, ok)
	_, ok = repo.Lookup(2)
	assert.False(t, ok)

	_, ok = repo.RemoveFor(2)
	assert.False(t, ok)
	assert.False(t, repo.Remove(s))
}

func TestChatRepository_ConcurrentPairNeverDoubleBooks(t *testing.T) {
	repo := NewChatRepository()
	var wg sync.WaitGroup
	for buyer := int64(2); buyer < 50; buyer++ {
		wg.Add(1)
		go func(buyer int64) {
			defer wg.Done()
			_ = repo.Pair(domain.NewChatSession(buyer, 1, 10, time.Now()))
		}(buyer)
	}
	wg.Wait()

	assert.Equal(t, 1, repo.Count())
	active := repo.Active()
	require.Len(t, active, 1)
	seller, ok := repo.Lookup(1)
	require.True(t, ok)
	assert.Same(t, active[0], seller)
}
