package domain

import (
	"sort"

	"github.com/hopper1357/VTT/internal/apperr"
)

// Combatant - участник инициативы. Initiative == nil, пока бросок не записан.
type Combatant struct {
	EntityID   string `json:"entity_id"`
	Initiative *int   `json:"initiative"`
}

// TurnOrder - трекер инициативы.
type TurnOrder struct {
	Combatants []Combatant `json:"combatants"`
}

func (t *TurnOrder) index(entityID string) int {
	for i, c := range t.Combatants {
		if c.EntityID == entityID {
			return i
		}
	}
	return -1
}

func (t *TurnOrder) Add(entityID string) error {
	if t.index(entityID) >= 0 {
		return apperr.New(apperr.CodeDuplicateName, "entity '%s' is already in the turn order", entityID)
	}
	t.Combatants = append(t.Combatants, Combatant{EntityID: entityID})
	return nil
}

func (t *TurnOrder) Set(entityID string, score int) error {
	i := t.index(entityID)
	if i < 0 {
		return apperr.New(apperr.CodeNotFound, "entity '%s' is not in the turn order", entityID)
	}
	t.Combatants[i].Initiative = &score
	return nil
}

func (t *TurnOrder) Clear() {
	t.Combatants = nil
}

// Order - участники с записанной инициативой, по убыванию.
// При равенстве сохраняется порядок добавления.
func (t *TurnOrder) Order() []Combatant {
	out := make([]Combatant, 0, len(t.Combatants))
	for _, c := range t.Combatants {
		if c.Initiative != nil {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].Initiative > *out[j].Initiative
	})
	return out
}

// Pending - участники без броска, в порядке добавления.
func (t *TurnOrder) Pending() []string {
	var out []string
	for _, c := range t.Combatants {
		if c.Initiative == nil {
			out = append(out, c.EntityID)
		}
	}
	return out
}

func (t TurnOrder) Clone() TurnOrder {
	c := TurnOrder{}
	if t.Combatants == nil {
		return c
	}
	c.Combatants = make([]Combatant, len(t.Combatants))
	for i, cb := range t.Combatants {
		c.Combatants[i] = Combatant{EntityID: cb.EntityID}
		if cb.Initiative != nil {
			v := *cb.Initiative
			c.Combatants[i].Initiative = &v
		}
	}
	return c
}
