package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hopper1357/VTT/internal/apperr"
	"golang.org/x/text/cases"
)

// Типы сущностей
const (
	EntityTypeCharacter = "character"
	EntityTypeNPC       = "npc"
)

// AttrName - атрибут, в котором хранится отображаемое имя сущности.
const AttrName = "name"

// Attr - значение атрибута: целое число или строка.
// Из команд все приходит текстом, целые распознаются при записи.
type Attr struct {
	Text  string
	Num   int
	IsInt bool
}

// ParseAttr распознает целое число, остальное остается строкой.
func ParseAttr(raw string) Attr {
	if n, err := strconv.Atoi(raw); err == nil {
		return Attr{Num: n, IsInt: true}
	}
	return Attr{Text: raw}
}

func TextAttr(s string) Attr { return Attr{Text: s} }

func (a Attr) String() string {
	if a.IsInt {
		return strconv.Itoa(a.Num)
	}
	return a.Text
}

// В снапшоте целые лежат числами, строки строками
func (a Attr) MarshalJSON() ([]byte, error) {
	if a.IsInt {
		return json.Marshal(a.Num)
	}
	return json.Marshal(a.Text)
}

func (a *Attr) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Attr{Text: s}
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("attribute must be a string or an integer: %w", err)
	}
	*a = Attr{Num: n, IsInt: true}
	return nil
}

// Entity - игровая сущность (персонаж, NPC). Токены ссылаются на нее по ID.
type Entity struct {
	ID         string          `json:"id"`
	Type       string          `json:"entity_type"`
	Attributes map[string]Attr `json:"attributes"`
}

func (e *Entity) Name() string {
	return e.Attributes[AttrName].String()
}

// Int читает целочисленный атрибут (hp, ac, initiative bonus...).
func (e *Entity) Int(key string) (int, bool) {
	v, ok := e.Attributes[key]
	if !ok || !v.IsInt {
		return 0, false
	}
	return v.Num, true
}

func (e *Entity) Clone() *Entity {
	c := *e
	c.Attributes = make(map[string]Attr, len(e.Attributes))
	for k, v := range e.Attributes {
		c.Attributes[k] = v
	}
	return &c
}

// AttributeKeys - ключи атрибутов в стабильном порядке (для вывода).
func (e *Entity) AttributeKeys() []string {
	keys := make([]string, 0, len(e.Attributes))
	for k := range e.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// parseAttr - имя всегда строка, даже "007".
func parseAttr(key, raw string) Attr {
	if key == AttrName {
		return TextAttr(raw)
	}
	return ParseAttr(raw)
}

// EntityRegistry хранит сущности сессии в порядке создания.
type EntityRegistry struct {
	byID  map[string]*Entity
	order []string
	fold  cases.Caser
}

func NewEntityRegistry() *EntityRegistry {
	return &EntityRegistry{
		byID: make(map[string]*Entity),
		fold: cases.Fold(),
	}
}

// Create регистрирует сущность. Имя должно быть уникальным без учета регистра.
func (r *EntityRegistry) Create(id, entityType string, attrs map[string]string) (*Entity, error) {
	typed := make(map[string]Attr, len(attrs))
	for k, v := range attrs {
		typed[k] = parseAttr(k, v)
	}
	return r.add(id, entityType, typed)
}

func (r *EntityRegistry) add(id, entityType string, attrs map[string]Attr) (*Entity, error) {
	if id == "" {
		return nil, apperr.Invalid("entity id is empty")
	}
	if _, ok := r.byID[id]; ok {
		return nil, apperr.New(apperr.CodeDuplicateName, "entity '%s' already exists", id)
	}
	e := &Entity{ID: id, Type: entityType, Attributes: make(map[string]Attr, len(attrs))}
	for k, v := range attrs {
		e.Attributes[k] = v
	}
	if name := e.Name(); name != "" {
		if _, ok := r.FindByName(name); ok {
			return nil, apperr.New(apperr.CodeDuplicateName, "entity named '%s' already exists", name).
				WithMetadata("name", name)
		}
	}
	r.byID[id] = e
	r.order = append(r.order, id)
	return e, nil
}

func (r *EntityRegistry) Get(id string) (*Entity, bool) {
	e, ok := r.byID[id]
	return e, ok
}

func (r *EntityRegistry) FindByName(name string) (*Entity, bool) {
	want := r.fold.String(name)
	for _, id := range r.order {
		e := r.byID[id]
		if r.fold.String(e.Name()) == want {
			return e, true
		}
	}
	return nil, false
}

// Resolve ищет сущность по ID, затем по имени.
func (r *EntityRegistry) Resolve(ref string) (*Entity, error) {
	if e, ok := r.byID[ref]; ok {
		return e, nil
	}
	if e, ok := r.FindByName(ref); ok {
		return e, nil
	}
	return nil, apperr.New(apperr.CodeNotFound, "entity '%s' not found", strings.TrimSpace(ref)).
		WithMetadata("entity", ref)
}

// Set меняет атрибут. Переименование проверяет уникальность имени.
func (r *EntityRegistry) Set(id, key, value string) error {
	e, ok := r.byID[id]
	if !ok {
		return apperr.New(apperr.CodeNotFound, "entity '%s' not found", id)
	}
	if key == AttrName {
		if other, ok := r.FindByName(value); ok && other.ID != id {
			return apperr.New(apperr.CodeDuplicateName, "entity named '%s' already exists", value)
		}
	}
	e.Attributes[key] = parseAttr(key, value)
	return nil
}

func (r *EntityRegistry) List() []*Entity {
	out := make([]*Entity, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

func (r *EntityRegistry) Len() int {
	return len(r.order)
}

// Reset заменяет содержимое реестра (загрузка снапшота).
func (r *EntityRegistry) Reset(entities []*Entity) error {
	fresh := NewEntityRegistry()
	for _, e := range entities {
		if _, err := fresh.add(e.ID, e.Type, e.Attributes); err != nil {
			return err
		}
	}
	*r = *fresh
	return nil
}
