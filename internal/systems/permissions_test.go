package systems

import (
	"testing"

	"github.com/hopper1357/VTT/internal/apperr"
	"github.com/hopper1357/VTT/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorize(t *testing.T) {
	gm := &domain.User{ID: "gm", Username: "dm", Role: domain.RoleGM}
	alice := &domain.User{ID: "u1", Username: "alice", Role: domain.RolePlayer}
	bob := &domain.User{ID: "u2", Username: "bob", Role: domain.RolePlayer}

	owned, err := domain.NewToken("t1", "hero", 0, 0)
	require.NoError(t, err)
	owned.OwnerID = "u1"

	shared, err := domain.NewToken("t2", "ally", 0, 0)
	require.NoError(t, err)
	shared.OwnerID = domain.OwnerAllPlayers

	unowned, err := domain.NewToken("t3", "orc", 0, 0)
	require.NoError(t, err)

	wall := domain.NewMapObject("w", 1, 1, 0)

	tests := []struct {
		name    string
		actor   *domain.User
		kind    CommandKind
		target  domain.Object
		allowed bool
	}{
		{"player reads", alice, KindRead, nil, true},
		{"nil actor reads", nil, KindRead, nil, true},
		{"gm creates map", gm, KindCreateMap, nil, true},
		{"player creates map", alice, KindCreateMap, nil, false},
		{"player creates entity", alice, KindCreateEntity, nil, false},
		{"player places object", alice, KindPlaceObject, nil, false},
		{"player removes token", alice, KindRemoveObject, owned, false},
		{"owner moves token", alice, KindMoveObject, owned, true},
		{"other player moves token", bob, KindMoveObject, owned, false},
		{"anyone moves shared token", bob, KindMoveObject, shared, true},
		{"player moves unowned token", alice, KindMoveObject, unowned, false},
		{"player moves wall", alice, KindMoveObject, wall, false},
		{"gm moves wall", gm, KindMoveObject, wall, true},
		{"player saves", alice, KindPersistence, nil, false},
		{"nil actor mutates", nil, KindPlaceObject, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.actor, tt.kind, tt.target)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, apperr.Unauthorized)
			}
		})
	}
}

func TestCommandKindMutates(t *testing.T) {
	assert.False(t, KindRead.Mutates())
	assert.True(t, KindMoveObject.Mutates())
	assert.Equal(t, "MOVE_OBJECT", KindMoveObject.String())
}
