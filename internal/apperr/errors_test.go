package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	err := MapNotFound("dungeon")

	assert.True(t, errors.Is(err, NotFound))
	assert.False(t, errors.Is(err, DuplicateName))

	wrapped := fmt.Errorf("dispatch: %w", err)
	assert.True(t, errors.Is(wrapped, NotFound))
	assert.Equal(t, CodeNotFound, CodeOf(wrapped))
}

func TestCodeOfForeignError(t *testing.T) {
	assert.Equal(t, CodeUnknown, CodeOf(errors.New("boom")))
	assert.Equal(t, CodeUnknown, CodeOf(nil))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := Wrap(CodeMalformedMessage, cause, "cannot decode envelope")

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, MalformedMessage)
	assert.Equal(t, "cannot decode envelope: unexpected EOF", err.Error())
}

func TestMetadata(t *testing.T) {
	err := ObjectNotFound("cave", "abc")
	assert.Equal(t, "cave", err.Metadata["map"])
	assert.Equal(t, "abc", err.Metadata["object"])
	assert.Equal(t, "object 'abc' not found on map 'cave'", err.Error())
}
