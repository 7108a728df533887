package systems

import (
	"sort"

	"github.com/hopper1357/VTT/internal/apperr"
	"github.com/hopper1357/VTT/internal/domain"
	"github.com/hopper1357/VTT/pkg/geometry"
	"github.com/hopper1357/VTT/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Мультипликаторы для трансформации (row, col) октанта в смещение от центра:
// dx = col*xx + row*xy, dy = col*yx + row*yy
var multipliers = [4][8]int{
	{1, 0, 0, 1, -1, 0, 0, -1},  // xx
	{0, 1, 1, 0, 0, -1, -1, 0},  // xy
	{0, -1, 1, 0, 0, 1, -1, 0},  // yx
	{-1, 0, 0, 1, 1, 0, 0, -1}, // yy
}

// CellSet - множество видимых клеток.
type CellSet map[geometry.Point]struct{}

func (s CellSet) Contains(p geometry.Point) bool {
	_, ok := s[p]
	return ok
}

// Sorted возвращает клетки в порядке (y, x). Удобно для вывода и сравнения.
func (s CellSet) Sorted() []geometry.Point {
	out := make([]geometry.Point, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

// VisibleCells считает поле зрения из (ox, oy) на квадратной сетке.
// Начало координат видно всегда. Клетки за краем карты пропускаются.
func VisibleCells(m *domain.Map, ox, oy, radius int) (CellSet, error) {
	if radius < 0 {
		return nil, apperr.Invalid("fov radius must be non-negative, got %d", radius)
	}
	if m.Grid != domain.GridSquare {
		return nil, apperr.Invalid("fov is only supported on square grids, map '%s' is %s", m.Name, m.Grid)
	}

	fovLogger := logger.Log.WithFields(logrus.Fields{
		"component": "fov_system",
		"map":       m.Name,
		"origin":    geometry.Point{X: ox, Y: oy},
		"radius":    radius,
	})

	visible := CellSet{{X: ox, Y: oy}: {}}
	walls := m.BlockingCells()

	for octant := 0; octant < 8; octant++ {
		refreshOctant(m, octant, ox, oy, radius, walls, visible)
	}

	fovLogger.WithField("visible_tiles", len(visible)).Debug("FOV calculation complete.")
	return visible, nil
}

// VisibleFrom - поле зрения объекта. Объект без light_radius не видит ничего.
func VisibleFrom(m *domain.Map, obj domain.Object) (CellSet, error) {
	base := obj.Base()
	if base.LightRadius == nil {
		return CellSet{}, nil
	}
	return VisibleCells(m, base.X, base.Y, *base.LightRadius)
}

func transformOctant(octant, row, col int) (int, int) {
	dx := col*multipliers[0][octant] + row*multipliers[1][octant]
	dy := col*multipliers[2][octant] + row*multipliers[3][octant]
	return dx, dy
}

func refreshOctant(m *domain.Map, octant, ox, oy, radius int, walls map[geometry.Point]struct{}, visible CellSet) {
	var line shadowLine
	fullShadow := false

	for row := 1; row <= radius; row++ {
		for col := 0; col <= row; col++ {
			dx, dy := transformOctant(octant, row, col)
			p := geometry.Point{X: ox + dx, Y: oy + dy}

			if !m.InBounds(p) {
				continue
			}
			// Октант полностью в тени, дальше смотреть нечего
			if fullShadow {
				return
			}

			projection := projectTile(row, col)
			if line.isInShadow(projection) {
				continue
			}

			visible[p] = struct{}{}
			if _, blocked := walls[p]; blocked {
				line.add(projection)
				fullShadow = line.isFullShadow()
			}
		}
	}
}

// shadow - угловой интервал [start, end] внутри октанта, 0 <= start <= end <= 1.
type shadow struct {
	start float64
	end   float64
}

func (s shadow) contains(other shadow) bool {
	return s.start <= other.start && s.end >= other.end
}

func projectTile(row, col int) shadow {
	return shadow{
		start: float64(col) / float64(row+2),
		end:   float64(col+1) / float64(row+1),
	}
}

// shadowLine - отсортированный по start список непересекающихся теней.
// Касающиеся интервалы сливаются, поэтому покрытие объединением
// равно покрытию одной тенью.
type shadowLine struct {
	shadows []shadow
}

func (l *shadowLine) isInShadow(projection shadow) bool {
	for _, s := range l.shadows {
		if s.contains(projection) {
			return true
		}
	}
	return false
}

func (l *shadowLine) add(s shadow) {
	// Позиция вставки: первая тень, начинающаяся не раньше новой
	index := sort.Search(len(l.shadows), func(i int) bool {
		return l.shadows[i].start >= s.start
	})

	mergePrev := index > 0 && l.shadows[index-1].end >= s.start
	mergeNext := index < len(l.shadows) && l.shadows[index].start <= s.end

	switch {
	case mergePrev && mergeNext:
		prev := &l.shadows[index-1]
		prev.end = max(prev.end, s.end, l.shadows[index].end)
		l.shadows = append(l.shadows[:index], l.shadows[index+1:]...)
	case mergePrev:
		prev := &l.shadows[index-1]
		prev.end = max(prev.end, s.end)
	case mergeNext:
		next := &l.shadows[index]
		next.start = s.start
		next.end = max(next.end, s.end)
	default:
		l.shadows = append(l.shadows, shadow{})
		copy(l.shadows[index+1:], l.shadows[index:])
		l.shadows[index] = s
	}

	l.compact(index)
}

// compact сливает соседей, если новая тень перекрыла сразу несколько.
func (l *shadowLine) compact(from int) {
	i := from - 1
	if i < 0 {
		i = 0
	}
	for i+1 < len(l.shadows) {
		cur, next := l.shadows[i], l.shadows[i+1]
		if next.start > cur.end {
			i++
			continue
		}
		l.shadows[i].end = max(cur.end, next.end)
		l.shadows = append(l.shadows[:i+1], l.shadows[i+2:]...)
	}
}

func (l *shadowLine) isFullShadow() bool {
	return len(l.shadows) == 1 && l.shadows[0].start <= 0 && l.shadows[0].end >= 1
}
