package geometry

import "fmt"

// Cube - кубические координаты гекса. Инвариант: Q+R+S == 0.
type Cube struct {
	Q int `json:"q"`
	R int `json:"r"`
	S int `json:"s"`
}

// NewCube создает гекс и проверяет инвариант q+r+s=0.
func NewCube(q, r, s int) (Cube, error) {
	if q+r+s != 0 {
		return Cube{}, fmt.Errorf("cube coordinates must sum to 0, got %d+%d+%d", q, r, s)
	}
	return Cube{Q: q, R: r, S: s}, nil
}

func (c Cube) Add(o Cube) Cube {
	return Cube{Q: c.Q + o.Q, R: c.R + o.R, S: c.S + o.S}
}

func (c Cube) Sub(o Cube) Cube {
	return Cube{Q: c.Q - o.Q, R: c.R - o.R, S: c.S - o.S}
}

func (c Cube) Scale(k int) Cube {
	return Cube{Q: c.Q * k, R: c.R * k, S: c.S * k}
}

// Directions - шесть единичных направлений (pointy-top), порядок фиксирован.
var Directions = [6]Cube{
	{Q: 1, R: 0, S: -1},
	{Q: 1, R: -1, S: 0},
	{Q: 0, R: -1, S: 1},
	{Q: -1, R: 0, S: 1},
	{Q: -1, R: 1, S: 0},
	{Q: 0, R: 1, S: -1},
}

// Neighbor возвращает соседа в направлении dir (0..5). Направление берется по модулю 6.
func (c Cube) Neighbor(dir int) Cube {
	dir %= len(Directions)
	if dir < 0 {
		dir += len(Directions)
	}
	return c.Add(Directions[dir])
}

// Distance = (|Δq|+|Δr|+|Δs|)/2
func Distance(a, b Cube) int {
	d := a.Sub(b)
	return (abs(d.Q) + abs(d.R) + abs(d.S)) / 2
}

// OffsetToCube переводит offset-клетку (odd-r) в кубические координаты.
//
//	q = col - (row + (row&1)) / 2
//	r = row
//
// (row + (row&1)) всегда четное, поэтому деление точное и для отрицательных строк.
func OffsetToCube(p Point) Cube {
	q := p.X - (p.Y+(p.Y&1))/2
	r := p.Y
	return Cube{Q: q, R: r, S: -q - r}
}

// CubeToOffset - точная обратная к OffsetToCube.
func CubeToOffset(c Cube) Point {
	return Point{X: c.Q + (c.R+(c.R&1))/2, Y: c.R}
}

// HexDistance считает расстояние между двумя offset-клетками.
func HexDistance(a, b Point) int {
	return Distance(OffsetToCube(a), OffsetToCube(b))
}

// HexNeighbors возвращает шесть соседей offset-клетки (без проверки границ).
func HexNeighbors(p Point) []Point {
	c := OffsetToCube(p)
	out := make([]Point, 0, len(Directions))
	for dir := range Directions {
		out = append(out, CubeToOffset(c.Neighbor(dir)))
	}
	return out
}
