package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/freshmanacadamy/Ver/internal/domain"
)

func TestIdentityService_PageFollowsJoinOrder(t *testing.T) {
	h := newHarness(t)

	users, total := h.identities.Page(0, 2)
	assert.Equal(t, 5, total)
	assert.Equal(t, []int64{userU1, userU2}, identityIDs(users))

	users, _ = h.identities.Page(1, 2)
	assert.Equal(t, []int64{userU3, adminA1}, identityIDs(users))

	users, _ = h.identities.Page(2, 2)
	assert.Equal(t, []int64{adminA2}, identityIDs(users))

	users, total = h.identities.Page(3, 2)
	assert.Empty(t, users)
	assert.Equal(t, 5, total)

	users, _ = h.identities.Page(-1, 2)
	assert.Empty(t, users)
}

func identityIDs(in []domain.Identity) []int64 {
	out := make([]int64, 0, len(in))
	for _, i := range in {
		out = append(out, i.ID)
	}
	return out
}
