package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errSentinel = errors.New("listing was already decided")

func TestConflictKeepsCause(t *testing.T) {
	err := fmt.Errorf("decide: %w", NewConflict(errSentinel, map[string]any{"listing_id": 1}))

	assert.ErrorIs(t, err, errSentinel)
	assert.True(t, IsCode(err, CodeConflict))
	de := ToDomainError(err)
	assert.Equal(t, http.StatusConflict, de.HTTPStatus)
	assert.Equal(t, errSentinel.Error(), de.Error())
}

func TestToDomainErrorWrapsUnknown(t *testing.T) {
	de := ToDomainError(errors.New("boom"))
	assert.Equal(t, CodeInternal, de.Code)
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	assert.Nil(t, ToDomainError(nil))
}

func TestDeliveryFailure(t *testing.T) {
	cause := errors.New("chat not found")
	err := NewDeliveryFailure(42, cause)

	assert.True(t, IsCode(err, CodeDeliveryFailure))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, int64(42), ToDomainError(err).Details["recipient_id"])
	assert.Contains(t, err.Error(), "chat not found")
}

func TestIsCodeOnPlainError(t *testing.T) {
	assert.False(t, IsCode(errors.New("x"), CodeNotFound))
	assert.False(t, IsCode(nil, CodeNotFound))
}
