package bperrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalidBlueprintDefinition(t *testing.T) {
	t.Run("single reason", func(t *testing.T) {
		err := NewInvalidBlueprintDefinition("blueprint definition must have a name")
		assert.Equal(t, "invalid blueprint definition: blueprint definition must have a name", err.Error())
	})

	t.Run("multiple reasons are joined", func(t *testing.T) {
		err := &InvalidBlueprintDefinition{Reasons: []string{"reason one", "reason two"}}
		assert.Equal(t, "invalid blueprint definition: reason one; reason two", err.Error())
	})
}

func TestStoreError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewStoreError("lease", cause)

	assert.Contains(t, err.Error(), "lease")
	assert.Contains(t, err.Error(), "connection refused")
	assert.True(t, errors.Is(err, cause))

	t.Run("nil cause yields nil error", func(t *testing.T) {
		assert.Nil(t, NewStoreError("lease", nil))
	})
}

func TestInstanceNotFound(t *testing.T) {
	err := NewInstanceNotFound("blueprint", "deposit-flow")
	assert.Equal(t, "blueprint not found: deposit-flow", err.Error())
}

func TestAlreadyExists(t *testing.T) {
	err := NewAlreadyExists("execution", "deposit-flow")
	assert.Equal(t, "execution already exists: deposit-flow", err.Error())
}

func TestErrNoActionRequiredIsDistinctFromOtherErrors(t *testing.T) {
	wrapped := errors.Join(ErrNoActionRequired)
	assert.True(t, errors.Is(wrapped, ErrNoActionRequired))
	assert.False(t, errors.Is(errors.New("unrelated"), ErrNoActionRequired))
}
