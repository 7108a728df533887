package commands

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hopper1357/VTT/internal/apperr"
	"github.com/hopper1357/VTT/internal/domain"
	"github.com/hopper1357/VTT/internal/engine/handlers"
	"github.com/hopper1357/VTT/pkg/geometry"
)

// objectOptions - общие опции всех размещаемых объектов.
type objectOptions struct {
	ID          string
	Layer       int
	Glyph       string
	Size        int
	Asset       string
	BlocksLight bool
	LightRadius *int
}

func (o *objectOptions) bind(a handlers.Args, defaultLayer int) error {
	var err error
	o.ID, _ = a.Opt("id")
	if o.Layer, err = a.OptInt("layer", defaultLayer); err != nil {
		return err
	}
	o.Glyph = domain.DefaultGlyph
	if g, ok := a.Opt("glyph"); ok {
		o.Glyph = g
	}
	if o.Size, err = a.OptInt("size", domain.DefaultSize); err != nil {
		return err
	}
	o.Asset, _ = a.Opt("asset")
	if o.BlocksLight, err = a.OptBool("blocks_light", false); err != nil {
		return err
	}
	if o.LightRadius, err = a.OptIntPtr("light_radius"); err != nil {
		return err
	}
	return nil
}

func (o objectOptions) validate() error {
	if utf8.RuneCountInString(o.Glyph) != 1 {
		return errors.New("glyph must be a single character")
	}
	if o.Size < 1 {
		return errors.New("size must be positive")
	}
	if o.LightRadius != nil && *o.LightRadius < 0 {
		return errors.New("light_radius must be non-negative")
	}
	return nil
}

func (o objectOptions) apply(b *domain.MapObject) {
	b.Layer = o.Layer
	b.Glyph = o.Glyph
	b.Size = o.Size
	b.AssetPath = o.Asset
	b.BlocksLight = o.BlocksLight
	b.LightRadius = o.LightRadius
}

// drawOptions - опции фигур и путей.
type drawOptions struct {
	StrokeColor string
	StrokeWidth int
	Opacity     float64
}

func (d *drawOptions) bind(a handlers.Args) error {
	var err error
	d.StrokeColor = domain.DefaultStrokeColor
	if c, ok := a.Opt("stroke_color"); ok {
		d.StrokeColor = c
	}
	if d.StrokeWidth, err = a.OptInt("stroke_width", domain.DefaultStrokeWidth); err != nil {
		return err
	}
	if d.Opacity, err = a.OptFloat("opacity", domain.DefaultOpacity); err != nil {
		return err
	}
	return nil
}

func (d drawOptions) validate() error {
	if d.StrokeWidth < 0 {
		return errors.New("stroke_width must be non-negative")
	}
	if d.Opacity < 0 || d.Opacity > 1 {
		return errors.New("opacity must be within [0, 1]")
	}
	return nil
}

func (d drawOptions) apply(dr *domain.Drawable) {
	dr.StrokeColor = d.StrokeColor
	dr.StrokeWidth = d.StrokeWidth
	dr.Opacity = d.Opacity
}

// parsePoint разбирает "x,y".
func parsePoint(s string) (geometry.Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return geometry.Point{}, apperr.Invalid("point must look like x,y, got '%s'", s)
	}
	x, errX := strconv.Atoi(strings.TrimSpace(xs))
	y, errY := strconv.Atoi(strings.TrimSpace(ys))
	if errX != nil || errY != nil {
		return geometry.Point{}, apperr.Invalid("point coordinates must be integers, got '%s'", s)
	}
	return geometry.Point{X: x, Y: y}, nil
}

// floorDiv - деление с округлением вниз (для отрицательных координат тоже).
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
