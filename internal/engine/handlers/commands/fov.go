package commands

import (
	"fmt"

	"github.com/hopper1357/VTT/internal/apperr"
	"github.com/hopper1357/VTT/internal/engine/handlers"
	"github.com/hopper1357/VTT/internal/systems"
)

const usageFOV = "fov <map> <x> <y> <radius> | fov <map> <object-id>"

// FOVPayload - либо явная точка и радиус, либо объект-источник.
type FOVPayload struct {
	Map      string
	ObjectID string
	X        int
	Y        int
	Radius   int
}

func (p *FOVPayload) Bind(a handlers.Args) error {
	p.Map = a.Arg(0)
	switch a.Len() {
	case 2:
		p.ObjectID = a.Arg(1)
		return nil
	case 4:
		var err error
		if p.X, err = a.Int(1, "x"); err != nil {
			return err
		}
		if p.Y, err = a.Int(2, "y"); err != nil {
			return err
		}
		p.Radius, err = a.Int(3, "radius")
		return err
	}
	return apperr.Invalid("usage: %s", usageFOV)
}

func HandleFOV(ctx handlers.Context, _ handlers.Args, p FOVPayload) (handlers.Result, error) {
	m, err := ctx.State.Maps.GetMap(p.Map)
	if err != nil {
		return handlers.EmptyResult(), err
	}

	var (
		cells  systems.CellSet
		header string
	)
	if p.ObjectID != "" {
		obj, idx := m.Find(p.ObjectID)
		if idx < 0 {
			return handlers.EmptyResult(), apperr.ObjectNotFound(p.Map, p.ObjectID)
		}
		if obj.Base().LightRadius == nil {
			return handlers.Text("%s has no light_radius and sees nothing.", p.ObjectID), nil
		}
		if cells, err = systems.VisibleFrom(m, obj); err != nil {
			return handlers.EmptyResult(), err
		}
		header = fmt.Sprintf("%s sees %d cells", p.ObjectID, len(cells))
	} else {
		if cells, err = systems.VisibleCells(m, p.X, p.Y, p.Radius); err != nil {
			return handlers.EmptyResult(), err
		}
		header = fmt.Sprintf("(%d,%d) r=%d sees %d cells", p.X, p.Y, p.Radius, len(cells))
	}

	return handlers.Text("%s\n%s", header, renderMap(m, cells)), nil
}
