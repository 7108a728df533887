package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserIDIsStableAndCaseInsensitive(t *testing.T) {
	a := UserID("Alice")
	assert.Equal(t, a, UserID("alice"))
	assert.Equal(t, a, UserID(" ALICE "))
	assert.NotEqual(t, a, UserID("bob"))
	assert.True(t, IsID(a))
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	assert.NotEqual(t, a, b)
	assert.True(t, IsID(a))
	assert.False(t, IsID("alice"))
}
