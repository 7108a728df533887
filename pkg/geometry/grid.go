// Package geometry содержит чистую математику координат для квадратной и
// гексагональной сетки. Состояния нет.
package geometry

import "fmt"

// Point - клетка сетки. Для квадратной сетки это (col,row) без преобразований,
// для гексов - offset-координаты в раскладке "odd-r".
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) Add(dx, dy int) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

// InBounds проверяет, что клетка лежит в [0,w)×[0,h).
func (p Point) InBounds(w, h int) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < w && p.Y < h
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Chebyshev - расстояние на квадратной сетке с диагональными ходами.
func Chebyshev(a, b Point) int {
	return max(abs(a.X-b.X), abs(a.Y-b.Y))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
