package domain

// Snapshot - полное сериализуемое состояние сессии.
// Передается в full_state и пишется в хранилище сохранений.
type Snapshot struct {
	Entities  []*Entity `json:"entities"`
	Maps      []*Map    `json:"maps"`
	ActiveMap string    `json:"active_map,omitempty"`
	TurnOrder TurnOrder `json:"turn_order"`
	RulesetID string    `json:"ruleset_id,omitempty"`
}

// State - изменяемое состояние сессии: сущности, карты, инициатива.
// Одна копия живет у координатора, по одной у каждой реплики.
type State struct {
	Entities  *EntityRegistry
	Maps      *MapStore
	Turns     TurnOrder
	RulesetID string
}

func NewState(rulesetID string) *State {
	return &State{
		Entities:  NewEntityRegistry(),
		Maps:      NewMapStore(),
		RulesetID: rulesetID,
	}
}

// Snapshot делает глубокую копию состояния.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Entities:  make([]*Entity, 0, s.Entities.Len()),
		Maps:      make([]*Map, 0),
		ActiveMap: s.Maps.ActiveName(),
		TurnOrder: s.Turns.Clone(),
		RulesetID: s.RulesetID,
	}
	for _, e := range s.Entities.List() {
		snap.Entities = append(snap.Entities, e.Clone())
	}
	for _, m := range s.Maps.Maps() {
		snap.Maps = append(snap.Maps, m.Clone())
	}
	return snap
}

// Restore заменяет состояние снапшотом. При ошибке состояние не меняется.
func (s *State) Restore(snap Snapshot) error {
	entities := NewEntityRegistry()
	copies := make([]*Entity, 0, len(snap.Entities))
	for _, e := range snap.Entities {
		copies = append(copies, e.Clone())
	}
	if err := entities.Reset(copies); err != nil {
		return err
	}

	maps := NewMapStore()
	mapCopies := make([]*Map, 0, len(snap.Maps))
	for _, m := range snap.Maps {
		mapCopies = append(mapCopies, m.Clone())
	}
	if err := maps.Reset(mapCopies, snap.ActiveMap); err != nil {
		return err
	}

	s.Entities = entities
	s.Maps = maps
	s.Turns = snap.TurnOrder.Clone()
	s.RulesetID = snap.RulesetID
	return nil
}
