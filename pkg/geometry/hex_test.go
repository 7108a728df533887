package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOffsetCubeRoundTrip(t *testing.T) {
	const width, height = 17, 13

	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			p := Point{X: col, Y: row}
			c := OffsetToCube(p)
			require.Zero(t, c.Q+c.R+c.S, "cube invariant broken for %v", p)
			require.Equal(t, p, CubeToOffset(c), "round trip failed for %v", p)
		}
	}
}

func TestOffsetToCube(t *testing.T) {
	tests := []struct {
		name string
		in   Point
		want Cube
	}{
		{"origin", Point{0, 0}, Cube{0, 0, 0}},
		{"even row", Point{3, 2}, Cube{Q: 2, R: 2, S: -4}},
		{"odd row", Point{3, 1}, Cube{Q: 2, R: 1, S: -3}},
		{"odd row first column", Point{0, 3}, Cube{Q: -2, R: 3, S: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OffsetToCube(tt.in))
		})
	}
}

func TestDistance(t *testing.T) {
	origin := Cube{}
	for dir := range Directions {
		assert.Equal(t, 1, Distance(origin, origin.Neighbor(dir)))
		assert.Equal(t, 3, Distance(origin, Directions[dir].Scale(3)))
	}

	a := Cube{Q: 2, R: -1, S: -1}
	b := Cube{Q: -1, R: 3, S: -2}
	assert.Equal(t, 4, Distance(a, b))
	assert.Equal(t, Distance(a, b), Distance(b, a))
}

func TestNeighborWrapsDirection(t *testing.T) {
	c := Cube{Q: 1, R: 1, S: -2}
	assert.Equal(t, c.Neighbor(0), c.Neighbor(6))
	assert.Equal(t, c.Neighbor(5), c.Neighbor(-1))
}

func TestHexNeighbors(t *testing.T) {
	p := Point{X: 4, Y: 3}
	neighbors := HexNeighbors(p)
	require.Len(t, neighbors, 6)

	seen := make(map[Point]bool)
	for _, n := range neighbors {
		assert.Equal(t, 1, HexDistance(p, n), "neighbor %v of %v", n, p)
		seen[n] = true
	}
	assert.Len(t, seen, 6, "neighbors must be distinct")
}

func TestNewCube(t *testing.T) {
	_, err := NewCube(1, 1, 1)
	assert.Error(t, err)

	c, err := NewCube(1, -2, 1)
	require.NoError(t, err)
	assert.Equal(t, Cube{Q: 1, R: -2, S: 1}, c)
}

func TestPoint(t *testing.T) {
	assert.True(t, Point{0, 0}.InBounds(1, 1))
	assert.False(t, Point{1, 0}.InBounds(1, 1))
	assert.False(t, Point{-1, 0}.InBounds(5, 5))
	assert.Equal(t, 3, Chebyshev(Point{5, 5}, Point{2, 7}))
	assert.Equal(t, "(2,7)", Point{2, 7}.String())
}
