package domain

import (
	"encoding/json"
	"strings"

	"github.com/hopper1357/VTT/internal/apperr"
	"github.com/hopper1357/VTT/pkg/geometry"
)

// GridType - тип сетки карты.
type GridType uint8

const (
	GridSquare GridType = iota
	GridHex             // odd-r: нечетные ряды сдвинуты вправо
)

func (g GridType) String() string {
	if g == GridHex {
		return "hex"
	}
	return "square"
}

func ParseGridType(s string) (GridType, error) {
	switch strings.ToLower(s) {
	case "", "square":
		return GridSquare, nil
	case "hex":
		return GridHex, nil
	}
	return GridSquare, apperr.Invalid("unknown grid type '%s' (square, hex)", s)
}

func (g GridType) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

func (g *GridType) UnmarshalText(b []byte) error {
	v, err := ParseGridType(string(b))
	if err != nil {
		return err
	}
	*g = v
	return nil
}

// Map - именованная карта. Objects хранится в порядке размещения:
// от этого порядка зависит выбор верхнего объекта при равных слоях.
type Map struct {
	Name       string
	Width      int
	Height     int
	Grid       GridType
	Background string
	Objects    []Object
}

func NewMap(name string, width, height int, grid GridType) (*Map, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperr.Invalid("map name is empty")
	}
	if width <= 0 || height <= 0 {
		return nil, apperr.Invalid("map size must be positive, got %dx%d", width, height)
	}
	return &Map{Name: name, Width: width, Height: height, Grid: grid}, nil
}

func (m *Map) InBounds(p geometry.Point) bool {
	return p.InBounds(m.Width, m.Height)
}

// Find ищет объект по ID. Возвращает индекс или -1.
func (m *Map) Find(id string) (Object, int) {
	for i, o := range m.Objects {
		if o.Base().ID == id {
			return o, i
		}
	}
	return nil, -1
}

func (m *Map) add(o Object) error {
	id := o.Base().ID
	if _, idx := m.Find(id); idx >= 0 {
		return apperr.New(apperr.CodeDuplicateName, "object '%s' already exists on map '%s'", id, m.Name).
			WithMetadata("map", m.Name).
			WithMetadata("object", id)
	}
	m.Objects = append(m.Objects, o)
	return nil
}

func (m *Map) remove(id string) (Object, bool) {
	o, idx := m.Find(id)
	if idx < 0 {
		return nil, false
	}
	m.Objects = append(m.Objects[:idx], m.Objects[idx+1:]...)
	return o, true
}

// ObjectsAt возвращает все объекты, чья позиция совпадает с клеткой.
func (m *Map) ObjectsAt(x, y int) []Object {
	var out []Object
	for _, o := range m.Objects {
		b := o.Base()
		if b.X == x && b.Y == y {
			out = append(out, o)
		}
	}
	return out
}

// Topmost - объект клетки с наибольшим слоем. При равенстве побеждает размещенный позже.
func (m *Map) Topmost(x, y int) Object {
	var top Object
	for _, o := range m.Objects {
		b := o.Base()
		if b.X != x || b.Y != y {
			continue
		}
		if top == nil || b.Layer >= top.Base().Layer {
			top = o
		}
	}
	return top
}

// BlockingCells - клетки, где хотя бы один объект блокирует свет.
func (m *Map) BlockingCells() map[geometry.Point]struct{} {
	cells := make(map[geometry.Point]struct{})
	for _, o := range m.Objects {
		b := o.Base()
		if b.BlocksLight {
			cells[b.Pos()] = struct{}{}
		}
	}
	return cells
}

// Clone - глубокая копия карты вместе с объектами.
func (m *Map) Clone() *Map {
	c := *m
	if m.Objects == nil {
		return &c
	}
	c.Objects = make([]Object, len(m.Objects))
	for i, o := range m.Objects {
		c.Objects[i] = o.clone()
	}
	return &c
}

type mapRecord struct {
	Name       string            `json:"name"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	GridType   GridType          `json:"grid_type"`
	Background string            `json:"background,omitempty"`
	Objects    []json.RawMessage `json:"objects"`
}

func (m *Map) MarshalJSON() ([]byte, error) {
	rec := mapRecord{
		Name:       m.Name,
		Width:      m.Width,
		Height:     m.Height,
		GridType:   m.Grid,
		Background: m.Background,
		Objects:    make([]json.RawMessage, 0, len(m.Objects)),
	}
	for _, o := range m.Objects {
		raw, err := MarshalObject(o)
		if err != nil {
			return nil, err
		}
		rec.Objects = append(rec.Objects, raw)
	}
	return json.Marshal(rec)
}

func (m *Map) UnmarshalJSON(data []byte) error {
	var rec mapRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return apperr.Wrap(apperr.CodeMalformedMessage, err, "cannot decode map")
	}
	fresh, err := NewMap(rec.Name, rec.Width, rec.Height, rec.GridType)
	if err != nil {
		return err
	}
	fresh.Background = rec.Background
	for _, raw := range rec.Objects {
		obj, err := UnmarshalObject(raw)
		if err != nil {
			return err
		}
		if err := fresh.add(obj); err != nil {
			return err
		}
	}
	*m = *fresh
	return nil
}
