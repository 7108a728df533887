package commands

import (
	"fmt"
	"strings"

	"github.com/hopper1357/VTT/internal/domain"
	"github.com/hopper1357/VTT/internal/engine/handlers"
	"github.com/hopper1357/VTT/internal/systems"
	"github.com/hopper1357/VTT/pkg/geometry"
)

// Больше рисовать в консоль нет смысла.
const (
	maxRenderWidth  = 120
	maxRenderHeight = 80
)

// --- map create ---

const usageMapCreate = "map create <name> <width> <height> [grid=square|hex] [background=<asset>]"

type CreateMapPayload struct {
	Name       string
	Width      int
	Height     int
	Grid       domain.GridType
	Background string
}

func (p *CreateMapPayload) Bind(a handlers.Args) error {
	if err := a.Require(3, usageMapCreate); err != nil {
		return err
	}
	var err error
	p.Name = a.Arg(0)
	if p.Width, err = a.Int(1, "width"); err != nil {
		return err
	}
	if p.Height, err = a.Int(2, "height"); err != nil {
		return err
	}
	grid, _ := a.Opt("grid")
	if p.Grid, err = domain.ParseGridType(grid); err != nil {
		return err
	}
	p.Background, _ = a.Opt("background")
	return nil
}

func HandleCreateMap(ctx handlers.Context, args handlers.Args, p CreateMapPayload) (handlers.Result, error) {
	m, err := ctx.State.Maps.CreateMap(p.Name, p.Width, p.Height, p.Grid)
	if err != nil {
		return handlers.EmptyResult(), err
	}
	m.Background = p.Background

	args.Set("grid", p.Grid.String())
	return handlers.Mutated(args.Canonical(), "Created %s map '%s' (%dx%d).", p.Grid, p.Name, p.Width, p.Height), nil
}

// --- map list ---

func HandleListMaps(ctx handlers.Context) (handlers.Result, error) {
	maps := ctx.State.Maps.Maps()
	if len(maps) == 0 {
		return handlers.Text("No maps yet."), nil
	}
	active := ctx.State.Maps.ActiveName()

	var b strings.Builder
	b.WriteString("Maps:")
	for _, m := range maps {
		marker := " "
		if m.Name == active {
			marker = "*"
		}
		fmt.Fprintf(&b, "\n %s %s %dx%d %s, %d objects", marker, m.Name, m.Width, m.Height, m.Grid, len(m.Objects))
	}
	return handlers.Plain(b.String()), nil
}

// --- map show ---

func HandleShowMap(ctx handlers.Context, _ handlers.Args, p MapRefPayload) (handlers.Result, error) {
	m, err := ctx.State.Maps.GetMap(p.Map)
	if err != nil {
		return handlers.EmptyResult(), err
	}
	return handlers.Plain(renderMap(m, nil)), nil
}

// --- map use ---

func HandleUseMap(ctx handlers.Context, args handlers.Args, p MapRefPayload) (handlers.Result, error) {
	if err := ctx.State.Maps.SetActive(p.Map); err != nil {
		return handlers.EmptyResult(), err
	}
	return handlers.Mutated(args.Canonical(), "Active map is now '%s'.", p.Map), nil
}

// renderMap рисует верхние объекты клеток. visible != nil - вне поля зрения пусто.
// Нечетные ряды гекс-карты сдвинуты на полклетки (odd-r).
func renderMap(m *domain.Map, visible systems.CellSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%dx%d, %s)", m.Name, m.Width, m.Height, m.Grid)
	if m.Background != "" {
		fmt.Fprintf(&b, " background=%s", m.Background)
	}
	if m.Width > maxRenderWidth || m.Height > maxRenderHeight {
		b.WriteString("\n  (too large to render)")
		return b.String()
	}

	for y := 0; y < m.Height; y++ {
		b.WriteString("\n  ")
		if m.Grid == domain.GridHex && y&1 == 1 {
			b.WriteByte(' ')
		}
		for x := 0; x < m.Width; x++ {
			if x > 0 {
				b.WriteByte(' ')
			}
			p := geometry.Point{X: x, Y: y}
			switch {
			case visible != nil && !visible.Contains(p):
				b.WriteByte(' ')
			case m.Topmost(x, y) != nil:
				b.WriteString(m.Topmost(x, y).Base().Glyph)
			default:
				b.WriteByte('.')
			}
		}
	}
	return b.String()
}
