package domain

import (
	"strings"

	"github.com/hopper1357/VTT/internal/apperr"
	"github.com/hopper1357/VTT/pkg/geometry"
)

// ObjectKind - дискриминант закрытого набора объектов карты.
// Используется и для диспетчеризации, и для восстановления из JSON.
type ObjectKind uint8

const (
	KindUnknown ObjectKind = iota
	KindObject
	KindToken
	KindShape
	KindPath
	KindGroup
)

var kindToString = map[ObjectKind]string{
	KindObject: "MapObject",
	KindToken:  "Token",
	KindShape:  "Shape",
	KindPath:   "Path",
	KindGroup:  "Group",
}

// ParseObjectKind конвертирует object_type из JSON в ObjectKind (без учета регистра).
func ParseObjectKind(s string) ObjectKind {
	for k, name := range kindToString {
		if strings.EqualFold(name, s) {
			return k
		}
	}
	return KindUnknown
}

func (k ObjectKind) String() string {
	if s, ok := kindToString[k]; ok {
		return s
	}
	return "Unknown"
}

// Значения по умолчанию для объектов.
const (
	DefaultGlyph       = "?"
	DefaultSize        = 1
	DefaultTokenLayer  = 4
	DefaultStrokeColor = "#000000"
	DefaultStrokeWidth = 2
	DefaultOpacity     = 1.0

	// OwnerAllPlayers - владелец токена "все игроки".
	OwnerAllPlayers = "all"
)

// Object - любой объект, который можно положить на карту.
// Интерфейс закрыт: реализации есть только в этом пакете.
type Object interface {
	Kind() ObjectKind
	// Base возвращает общую часть объекта (ID, позиция, слой...).
	Base() *MapObject
	translate(dx, dy int)
	clone() Object
}

// Clone возвращает глубокую копию объекта.
func Clone(o Object) Object {
	if o == nil {
		return nil
	}
	return o.clone()
}

// --- MapObject ---

// MapObject - базовый объект карты. Сам по себе тоже размещается (маркеры, стены, источники света).
type MapObject struct {
	ID          string
	X           int
	Y           int
	Layer       int // Z-порядок, больший слой "сверху"
	Glyph       string
	Size        int
	AssetPath   string
	BlocksLight bool
	LightRadius *int // Наличие делает объект источником света/зрения
}

// NewMapObject создает объект с дефолтным глифом и размером.
func NewMapObject(id string, x, y, layer int) *MapObject {
	return &MapObject{ID: id, X: x, Y: y, Layer: layer, Glyph: DefaultGlyph, Size: DefaultSize}
}

func (o *MapObject) Kind() ObjectKind { return KindObject }

func (o *MapObject) Base() *MapObject { return o }

func (o *MapObject) Pos() geometry.Point {
	return geometry.Point{X: o.X, Y: o.Y}
}

func (o *MapObject) translate(dx, dy int) {
	o.X += dx
	o.Y += dy
}

func (o *MapObject) copyBase() MapObject {
	c := *o
	if o.LightRadius != nil {
		r := *o.LightRadius
		c.LightRadius = &r
	}
	return c
}

func (o *MapObject) clone() Object {
	c := o.copyBase()
	return &c
}

// --- Token ---

// Token - объект, привязанный к игровой сущности. EntityID никогда не пустой.
type Token struct {
	MapObject
	EntityID string
	OwnerID  string // ID пользователя, OwnerAllPlayers или пусто (только ГМ)
}

// NewToken проверяет инвариант: токен без сущности не создается.
func NewToken(id, entityID string, x, y int) (*Token, error) {
	if strings.TrimSpace(entityID) == "" {
		return nil, apperr.Invalid("token must be bound to an entity")
	}
	base := NewMapObject(id, x, y, DefaultTokenLayer)
	return &Token{MapObject: *base, EntityID: entityID}, nil
}

func (t *Token) Kind() ObjectKind { return KindToken }

// OwnedBy - может ли пользователь (не ГМ) двигать этот токен.
func (t *Token) OwnedBy(userID string) bool {
	if t.OwnerID == "" {
		return false
	}
	return t.OwnerID == OwnerAllPlayers || t.OwnerID == userID
}

func (t *Token) clone() Object {
	c := *t
	c.MapObject = t.copyBase()
	return &c
}

// --- Drawable ---

// Drawable - общая часть нарисованных объектов (фигуры, пути).
type Drawable struct {
	MapObject
	StrokeColor string
	StrokeWidth int
	Opacity     float64
}

func newDrawable(id string, x, y, layer int) Drawable {
	return Drawable{
		MapObject:   *NewMapObject(id, x, y, layer),
		StrokeColor: DefaultStrokeColor,
		StrokeWidth: DefaultStrokeWidth,
		Opacity:     DefaultOpacity,
	}
}

// --- Shape ---

// ShapeType - вид фигуры.
type ShapeType uint8

const (
	ShapeCircle ShapeType = iota + 1
	ShapeSquare
	ShapeTriangle
	ShapeHexagon
)

var shapeNames = map[ShapeType]string{
	ShapeCircle:   "CIRCLE",
	ShapeSquare:   "SQUARE",
	ShapeTriangle: "TRIANGLE",
	ShapeHexagon:  "HEXAGON",
}

// ParseShapeType: "circle", "CIRCLE" и т.д. Неизвестное значение - InvalidArgument.
func ParseShapeType(s string) (ShapeType, error) {
	for t, name := range shapeNames {
		if strings.EqualFold(name, s) {
			return t, nil
		}
	}
	return 0, apperr.Invalid("unknown shape type '%s' (circle, square, triangle, hexagon)", s)
}

func (s ShapeType) String() string {
	if name, ok := shapeNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

type Shape struct {
	Drawable
	ShapeType ShapeType
	FillColor *string
}

func NewShape(id string, kind ShapeType, x, y, layer int) *Shape {
	return &Shape{Drawable: newDrawable(id, x, y, layer), ShapeType: kind}
}

func (s *Shape) Kind() ObjectKind { return KindShape }

func (s *Shape) clone() Object {
	c := *s
	c.MapObject = s.copyBase()
	if s.FillColor != nil {
		fill := *s.FillColor
		c.FillColor = &fill
	}
	return &c
}

// --- Path ---

// Path - ломаная. Позиция пути - его первая точка (якорь).
type Path struct {
	Drawable
	Points []geometry.Point
}

// NewPath создает путь; якорь берется из первой точки.
func NewPath(id string, points []geometry.Point, layer int) (*Path, error) {
	if len(points) == 0 {
		return nil, apperr.Invalid("path needs at least one point")
	}
	p := &Path{Drawable: newDrawable(id, points[0].X, points[0].Y, layer)}
	p.Points = append([]geometry.Point(nil), points...)
	return p, nil
}

func (p *Path) Kind() ObjectKind { return KindPath }

// Путь двигается целиком, чтобы якорь оставался первой точкой.
func (p *Path) translate(dx, dy int) {
	p.MapObject.translate(dx, dy)
	for i := range p.Points {
		p.Points[i] = p.Points[i].Add(dx, dy)
	}
}

func (p *Path) clone() Object {
	c := *p
	c.MapObject = p.copyBase()
	if p.Points != nil {
		c.Points = append([]geometry.Point{}, p.Points...)
	}
	return &c
}

// --- Group ---

// Group - составной объект. Members - слабые ссылки (ID), объекты принадлежат карте.
type Group struct {
	MapObject
	Members []string
}

func NewGroup(id string, x, y, layer int, members []string) *Group {
	return &Group{
		MapObject: *NewMapObject(id, x, y, layer),
		Members:   append([]string(nil), members...),
	}
}

func (g *Group) Kind() ObjectKind { return KindGroup }

func (g *Group) clone() Object {
	c := *g
	c.MapObject = g.copyBase()
	if g.Members != nil {
		c.Members = append([]string{}, g.Members...)
	}
	return &c
}
