package domain

import (
	"encoding/json"
	"testing"

	"github.com/hopper1357/VTT/internal/apperr"
	"github.com/hopper1357/VTT/pkg/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenRequiresEntity(t *testing.T) {
	_, err := NewToken("t", "  ", 0, 0)
	assert.ErrorIs(t, err, apperr.InvalidArgument)

	tok, err := NewToken("t", "e1", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenLayer, tok.Layer)
	assert.Equal(t, DefaultGlyph, tok.Glyph)
}

func TestTokenOwnedBy(t *testing.T) {
	tok, err := NewToken("t", "e1", 0, 0)
	require.NoError(t, err)

	assert.False(t, tok.OwnedBy("u1"), "unowned token")

	tok.OwnerID = "u1"
	assert.True(t, tok.OwnedBy("u1"))
	assert.False(t, tok.OwnedBy("u2"))

	tok.OwnerID = OwnerAllPlayers
	assert.True(t, tok.OwnedBy("u2"))
}

func TestParseShapeType(t *testing.T) {
	tests := []struct {
		input string
		want  ShapeType
		ok    bool
	}{
		{"circle", ShapeCircle, true},
		{"SQUARE", ShapeSquare, true},
		{"Triangle", ShapeTriangle, true},
		{"hexagon", ShapeHexagon, true},
		{"star", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseShapeType(tt.input)
			if !tt.ok {
				assert.ErrorIs(t, err, apperr.InvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewPathAnchorsOnFirstPoint(t *testing.T) {
	_, err := NewPath("p", nil, 0)
	assert.ErrorIs(t, err, apperr.InvalidArgument)

	p, err := NewPath("p", []geometry.Point{{X: 7, Y: 1}, {X: 2, Y: 2}}, 1)
	require.NoError(t, err)
	assert.Equal(t, geometry.Point{X: 7, Y: 1}, p.Pos())
	assert.Equal(t, DefaultStrokeWidth, p.StrokeWidth)
}

func TestCloneIsDeep(t *testing.T) {
	radius := 4
	fill := "#ff0000"
	shape := NewShape("s", ShapeSquare, 1, 1, 2)
	shape.LightRadius = &radius
	shape.FillColor = &fill

	c := Clone(shape).(*Shape)
	*c.LightRadius = 9
	*c.FillColor = "#00ff00"
	c.X = 5

	assert.Equal(t, 4, *shape.LightRadius)
	assert.Equal(t, "#ff0000", *shape.FillColor)
	assert.Equal(t, 1, shape.X)

	group := NewGroup("g", 0, 0, 0, []string{"a"})
	gc := Clone(group).(*Group)
	gc.Members[0] = "z"
	assert.Equal(t, "a", group.Members[0])
}

func TestUnmarshalObjectDefaults(t *testing.T) {
	obj, err := UnmarshalObject([]byte(`{"object_type":"Shape","id":"s1","x":1,"y":2}`))
	require.NoError(t, err)

	shape, ok := obj.(*Shape)
	require.True(t, ok)
	assert.Equal(t, ShapeCircle, shape.ShapeType)
	assert.Equal(t, DefaultGlyph, shape.Glyph)
	assert.Equal(t, DefaultSize, shape.Size)
	assert.Equal(t, DefaultStrokeColor, shape.StrokeColor)
	assert.Equal(t, DefaultStrokeWidth, shape.StrokeWidth)
	assert.InDelta(t, DefaultOpacity, shape.Opacity, 1e-9)
	assert.Nil(t, shape.FillColor)
}

func TestUnmarshalObjectErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		code apperr.Code
	}{
		{"unknown type", `{"object_type":"Dragon","id":"d"}`, apperr.CodeInvalidArgument},
		{"token without entity", `{"object_type":"Token","id":"t"}`, apperr.CodeInvalidArgument},
		{"unknown shape", `{"object_type":"Shape","id":"s","shape_type":"STAR"}`, apperr.CodeInvalidArgument},
		{"missing id", `{"object_type":"MapObject"}`, apperr.CodeInvalidArgument},
		{"broken json", `{"object_type":`, apperr.CodeMalformedMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalObject([]byte(tt.data))
			require.Error(t, err)
			assert.Equal(t, tt.code, apperr.CodeOf(err))
		})
	}
}

func TestMapJSONKeepsKindsAndOrder(t *testing.T) {
	m, err := NewMap("cave", 8, 6, GridHex)
	require.NoError(t, err)
	m.Background = "cave.png"

	radius := 5
	fill := "#112233"

	wall := NewMapObject("wall", 1, 1, 0)
	wall.BlocksLight = true
	tok, err := NewToken("tok", "hero", 2, 2)
	require.NoError(t, err)
	tok.OwnerID = "u1"
	tok.LightRadius = &radius
	shape := NewShape("shape", ShapeHexagon, 3, 3, 2)
	shape.FillColor = &fill
	shape.Opacity = 0.5
	path, err := NewPath("path", []geometry.Point{{X: 4, Y: 4}, {X: 5, Y: 5}}, 1)
	require.NoError(t, err)
	path.StrokeWidth = 0
	group := NewGroup("group", 3, 3, 0, []string{"shape", "path"})

	for _, o := range []Object{wall, tok, shape, path, group} {
		require.NoError(t, m.add(o))
	}

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded Map
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, m, &decoded)
}

func TestMapUnmarshalRejectsDuplicateIDs(t *testing.T) {
	data := `{"name":"m","width":2,"height":2,"grid_type":"square","objects":[
		{"object_type":"MapObject","id":"a"},
		{"object_type":"MapObject","id":"a"}]}`

	var m Map
	err := json.Unmarshal([]byte(data), &m)
	assert.ErrorIs(t, err, apperr.DuplicateName)
}

func TestBlockingCells(t *testing.T) {
	m, err := NewMap("m", 5, 5, GridSquare)
	require.NoError(t, err)

	wall := NewMapObject("w", 2, 2, 0)
	wall.BlocksLight = true
	require.NoError(t, m.add(wall))
	require.NoError(t, m.add(NewMapObject("rug", 3, 3, 0)))

	cells := m.BlockingCells()
	assert.Len(t, cells, 1)
	assert.Contains(t, cells, geometry.Point{X: 2, Y: 2})
}
