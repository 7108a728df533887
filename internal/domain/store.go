package domain

import (
	"github.com/hopper1357/VTT/internal/apperr"
	"github.com/hopper1357/VTT/pkg/logger"
	"github.com/sirupsen/logrus"
)

// MoveReport - итог перемещения. Skipped - ID участников группы,
// которых на карте уже нет.
type MoveReport struct {
	Moved   []string
	Skipped []string
}

// MapStore владеет всеми картами сессии и их объектами.
// Не потокобезопасен: доступ сериализует владелец (координатор или реплика).
type MapStore struct {
	maps   map[string]*Map
	order  []string
	active string
}

func NewMapStore() *MapStore {
	return &MapStore{maps: make(map[string]*Map)}
}

// CreateMap создает пустую карту. Существующее имя - DuplicateName.
func (s *MapStore) CreateMap(name string, width, height int, grid GridType) (*Map, error) {
	if _, ok := s.maps[name]; ok {
		return nil, apperr.New(apperr.CodeDuplicateName, "map '%s' already exists", name).
			WithMetadata("map", name)
	}
	m, err := NewMap(name, width, height, grid)
	if err != nil {
		return nil, err
	}
	s.maps[name] = m
	s.order = append(s.order, name)
	if s.active == "" {
		s.active = name
	}
	return m, nil
}

func (s *MapStore) GetMap(name string) (*Map, error) {
	m, ok := s.maps[name]
	if !ok {
		return nil, apperr.MapNotFound(name)
	}
	return m, nil
}

// MapNames - имена карт в порядке создания.
func (s *MapStore) MapNames() []string {
	return append([]string(nil), s.order...)
}

// Maps - карты в порядке создания.
func (s *MapStore) Maps() []*Map {
	out := make([]*Map, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.maps[name])
	}
	return out
}

func (s *MapStore) SetActive(name string) error {
	if _, ok := s.maps[name]; !ok {
		return apperr.MapNotFound(name)
	}
	s.active = name
	return nil
}

func (s *MapStore) ActiveName() string {
	return s.active
}

// Place кладет объект на карту. Проверка границ не делается: объекты
// за краем карты допустимы (заметки ГМ, подготовленные токены).
func (s *MapStore) Place(mapName string, obj Object) error {
	m, err := s.GetMap(mapName)
	if err != nil {
		return err
	}
	if obj == nil || obj.Base().ID == "" {
		return apperr.Invalid("object without id")
	}
	return m.add(obj)
}

func (s *MapStore) Remove(mapName, id string) (Object, error) {
	m, err := s.GetMap(mapName)
	if err != nil {
		return nil, err
	}
	obj, ok := m.remove(id)
	if !ok {
		return nil, apperr.ObjectNotFound(mapName, id)
	}
	return obj, nil
}

func (s *MapStore) Get(mapName, id string) (Object, error) {
	m, err := s.GetMap(mapName)
	if err != nil {
		return nil, err
	}
	obj, idx := m.Find(id)
	if idx < 0 {
		return nil, apperr.ObjectNotFound(mapName, id)
	}
	return obj, nil
}

// List - объекты карты в порядке размещения.
func (s *MapStore) List(mapName string) ([]Object, error) {
	m, err := s.GetMap(mapName)
	if err != nil {
		return nil, err
	}
	return append([]Object(nil), m.Objects...), nil
}

func (s *MapStore) Topmost(mapName string, x, y int) (Object, error) {
	m, err := s.GetMap(mapName)
	if err != nil {
		return nil, err
	}
	return m.Topmost(x, y), nil
}

// Move переносит объект в (x, y). Для группы считается дельта от якоря,
// и на ту же дельту сдвигаются все участники, которые еще есть на карте.
// Отсутствующие участники пропускаются и попадают в отчет.
func (s *MapStore) Move(mapName, id string, x, y int) (MoveReport, error) {
	var report MoveReport

	m, err := s.GetMap(mapName)
	if err != nil {
		return report, err
	}
	obj, idx := m.Find(id)
	if idx < 0 {
		return report, apperr.ObjectNotFound(mapName, id)
	}

	base := obj.Base()
	dx, dy := x-base.X, y-base.Y
	obj.translate(dx, dy)
	report.Moved = append(report.Moved, id)

	group, ok := obj.(*Group)
	if !ok {
		return report, nil
	}
	seen := map[string]bool{id: true}
	for _, memberID := range group.Members {
		if seen[memberID] {
			continue
		}
		seen[memberID] = true

		member, idx := m.Find(memberID)
		if idx < 0 {
			report.Skipped = append(report.Skipped, memberID)
			continue
		}
		member.translate(dx, dy)
		report.Moved = append(report.Moved, memberID)
	}
	if len(report.Skipped) > 0 {
		logger.Component("maps").WithFields(logrus.Fields{
			"map":     mapName,
			"group":   id,
			"skipped": report.Skipped,
		}).Warn("Group members missing, skipped on move")
	}
	return report, nil
}

// Reset заменяет все карты (загрузка снапшота).
func (s *MapStore) Reset(maps []*Map, active string) error {
	fresh := NewMapStore()
	for _, m := range maps {
		if _, ok := fresh.maps[m.Name]; ok {
			return apperr.New(apperr.CodeDuplicateName, "map '%s' appears twice", m.Name)
		}
		fresh.maps[m.Name] = m
		fresh.order = append(fresh.order, m.Name)
	}
	if active != "" {
		if _, ok := fresh.maps[active]; !ok {
			return apperr.MapNotFound(active)
		}
		fresh.active = active
	} else if len(fresh.order) > 0 {
		fresh.active = fresh.order[0]
	}
	*s = *fresh
	return nil
}
