package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hopper1357/VTT/internal/apperr"
	"github.com/hopper1357/VTT/internal/domain"
	"github.com/hopper1357/VTT/internal/engine/handlers"
	"github.com/hopper1357/VTT/internal/systems"
	"github.com/hopper1357/VTT/pkg/geometry"
	"github.com/hopper1357/VTT/pkg/logger"
	"github.com/hopper1357/VTT/pkg/utils"
	"github.com/sirupsen/logrus"
)

// --- object place ---

const usageObjectPlace = "object place <map> <x> <y> [layer= glyph= size= asset= blocks_light= light_radius= id=]"

type PlaceObjectPayload struct {
	Map string
	X   int
	Y   int
	objectOptions
}

func (p *PlaceObjectPayload) Bind(a handlers.Args) error {
	if err := a.Require(3, usageObjectPlace); err != nil {
		return err
	}
	var err error
	p.Map = a.Arg(0)
	if p.X, err = a.Int(1, "x"); err != nil {
		return err
	}
	if p.Y, err = a.Int(2, "y"); err != nil {
		return err
	}
	return p.objectOptions.bind(a, 0)
}

func (p PlaceObjectPayload) Validate() error {
	return p.objectOptions.validate()
}

func HandlePlaceObject(ctx handlers.Context, args handlers.Args, p PlaceObjectPayload) (handlers.Result, error) {
	obj := domain.NewMapObject(ctx.ID(p.ID), p.X, p.Y, p.Layer)
	p.objectOptions.apply(obj)
	return place(ctx, args, p.Map, obj)
}

// --- token place ---

const usageTokenPlace = "token place <entity> <map> <x> <y> [owner=<user|all>] [layer= glyph= ... id=]"

type PlaceTokenPayload struct {
	Entity string
	Map    string
	X      int
	Y      int
	Owner  string
	objectOptions
}

func (p *PlaceTokenPayload) Bind(a handlers.Args) error {
	if err := a.Require(4, usageTokenPlace); err != nil {
		return err
	}
	var err error
	p.Entity = a.Arg(0)
	p.Map = a.Arg(1)
	if p.X, err = a.Int(2, "x"); err != nil {
		return err
	}
	if p.Y, err = a.Int(3, "y"); err != nil {
		return err
	}
	p.Owner, _ = a.Opt("owner")
	return p.objectOptions.bind(a, domain.DefaultTokenLayer)
}

func (p PlaceTokenPayload) Validate() error {
	return p.objectOptions.validate()
}

func HandlePlaceToken(ctx handlers.Context, args handlers.Args, p PlaceTokenPayload) (handlers.Result, error) {
	entity, err := ctx.State.Entities.Resolve(p.Entity)
	if err != nil {
		return handlers.EmptyResult(), err
	}
	owner, err := resolveOwner(ctx, p.Owner)
	if err != nil {
		return handlers.EmptyResult(), err
	}

	tok, err := domain.NewToken(ctx.ID(p.ID), entity.ID, p.X, p.Y)
	if err != nil {
		return handlers.EmptyResult(), err
	}
	p.objectOptions.apply(&tok.MapObject)
	tok.OwnerID = owner

	// В эффект идут ID, а не имена: реплика не знает участников
	args.Positional[0] = entity.ID
	if owner != "" {
		args.Set("owner", owner)
	}
	return place(ctx, args, p.Map, tok)
}

// resolveOwner переводит owner=<имя|id|all> в ID пользователя.
func resolveOwner(ctx handlers.Context, raw string) (string, error) {
	if raw == "" || strings.EqualFold(raw, domain.OwnerAllPlayers) {
		return strings.ToLower(raw), nil
	}
	if ctx.Users != nil {
		if u, ok := ctx.Users.Get(raw); ok {
			return u.ID, nil
		}
		if u, ok := ctx.Users.FindByName(raw); ok {
			return u.ID, nil
		}
	}
	// Реплика и офлайн-владельцы: ID принимается как есть
	if ctx.Replay || utils.IsID(raw) {
		return raw, nil
	}
	return "", apperr.New(apperr.CodeNotFound, "user '%s' not found", raw).WithMetadata("user", raw)
}

// --- shape place ---

const usageShapePlace = "shape place <circle|square|triangle|hexagon> <map> <x> <y> [fill_color= stroke_color= stroke_width= opacity= layer= ... id=]"

type PlaceShapePayload struct {
	Kind domain.ShapeType
	Map  string
	X    int
	Y    int
	Fill *string
	objectOptions
	drawOptions
}

func (p *PlaceShapePayload) Bind(a handlers.Args) error {
	if err := a.Require(4, usageShapePlace); err != nil {
		return err
	}
	var err error
	if p.Kind, err = domain.ParseShapeType(a.Arg(0)); err != nil {
		return err
	}
	p.Map = a.Arg(1)
	if p.X, err = a.Int(2, "x"); err != nil {
		return err
	}
	if p.Y, err = a.Int(3, "y"); err != nil {
		return err
	}
	if fill, ok := a.Opt("fill_color"); ok {
		p.Fill = &fill
	}
	if err = p.objectOptions.bind(a, 0); err != nil {
		return err
	}
	return p.drawOptions.bind(a)
}

func (p PlaceShapePayload) Validate() error {
	return errors.Join(p.objectOptions.validate(), p.drawOptions.validate())
}

func HandlePlaceShape(ctx handlers.Context, args handlers.Args, p PlaceShapePayload) (handlers.Result, error) {
	shape := domain.NewShape(ctx.ID(p.ID), p.Kind, p.X, p.Y, p.Layer)
	p.objectOptions.apply(&shape.MapObject)
	p.drawOptions.apply(&shape.Drawable)
	shape.FillColor = p.Fill

	args.Positional[0] = strings.ToLower(p.Kind.String())
	return place(ctx, args, p.Map, shape)
}

// --- draw path ---

const usageDrawPath = "draw path <map> <x,y> [<x,y>...] [stroke_color= stroke_width= opacity= layer= ... id=]"

type DrawPathPayload struct {
	Map    string
	Points []geometry.Point
	objectOptions
	drawOptions
}

func (p *DrawPathPayload) Bind(a handlers.Args) error {
	if err := a.Require(2, usageDrawPath); err != nil {
		return err
	}
	p.Map = a.Arg(0)
	for _, raw := range a.Positional[1:] {
		pt, err := parsePoint(raw)
		if err != nil {
			return err
		}
		p.Points = append(p.Points, pt)
	}
	if err := p.objectOptions.bind(a, 0); err != nil {
		return err
	}
	return p.drawOptions.bind(a)
}

func (p DrawPathPayload) Validate() error {
	return errors.Join(p.objectOptions.validate(), p.drawOptions.validate())
}

func HandleDrawPath(ctx handlers.Context, args handlers.Args, p DrawPathPayload) (handlers.Result, error) {
	path, err := domain.NewPath(ctx.ID(p.ID), p.Points, p.Layer)
	if err != nil {
		return handlers.EmptyResult(), err
	}
	p.objectOptions.apply(&path.MapObject)
	p.drawOptions.apply(&path.Drawable)
	return place(ctx, args, p.Map, path)
}

// --- group create ---

const usageGroupCreate = "group create <map> <object-id> [<object-id>...] [layer= glyph= id=]"

type CreateGroupPayload struct {
	Map     string
	Members []string
	objectOptions
}

func (p *CreateGroupPayload) Bind(a handlers.Args) error {
	if err := a.Require(2, usageGroupCreate); err != nil {
		return err
	}
	p.Map = a.Arg(0)
	p.Members = append([]string(nil), a.Positional[1:]...)
	return p.objectOptions.bind(a, 0)
}

func (p CreateGroupPayload) Validate() error {
	seen := make(map[string]bool, len(p.Members))
	for _, id := range p.Members {
		if seen[id] {
			return fmt.Errorf("object '%s' listed twice", id)
		}
		seen[id] = true
	}
	return p.objectOptions.validate()
}

// HandleCreateGroup - якорь группы: среднее (вниз) позиций участников.
func HandleCreateGroup(ctx handlers.Context, args handlers.Args, p CreateGroupPayload) (handlers.Result, error) {
	m, err := ctx.State.Maps.GetMap(p.Map)
	if err != nil {
		return handlers.EmptyResult(), err
	}
	// Ссылки группы слабые: отсутствующие участники пропускаются, но остаются в Members
	sumX, sumY, n := 0, 0, 0
	var skipped []string
	for _, id := range p.Members {
		member, idx := m.Find(id)
		if idx < 0 {
			skipped = append(skipped, id)
			continue
		}
		sumX += member.Base().X
		sumY += member.Base().Y
		n++
	}
	if n == 0 {
		return handlers.EmptyResult(), apperr.ObjectNotFound(p.Map, p.Members[0])
	}
	group := domain.NewGroup(ctx.ID(p.ID), floorDiv(sumX, n), floorDiv(sumY, n), p.Layer, p.Members)
	p.objectOptions.apply(&group.MapObject)

	res, err := place(ctx, args, p.Map, group)
	if err != nil {
		return res, err
	}
	if len(skipped) > 0 {
		res.Output += fmt.Sprintf(" Skipped missing members: %s.", strings.Join(skipped, ", "))
	}
	return res, nil
}

// place - общий финал всех команд размещения: кладем и формируем эффект.
func place(ctx handlers.Context, args handlers.Args, mapName string, obj domain.Object) (handlers.Result, error) {
	if err := ctx.State.Maps.Place(mapName, obj); err != nil {
		return handlers.EmptyResult(), err
	}
	b := obj.Base()
	args.Set("id", b.ID)

	logger.Log.WithFields(logrus.Fields{
		"component": "commands",
		"map":       mapName,
		"object_id": b.ID,
		"kind":      obj.Kind().String(),
		"replay":    ctx.Replay,
	}).Debug("Object placed")

	return handlers.Mutated(args.Canonical(), "Placed %s %s on '%s' at %s.", obj.Kind(), b.ID, mapName, b.Pos()), nil
}

// --- object move ---

const usageObjectMove = "object move <id> <map> <x> <y>"

type MoveObjectPayload struct {
	ID  string
	Map string
	X   int
	Y   int
}

func (p *MoveObjectPayload) Bind(a handlers.Args) error {
	if err := a.Require(4, usageObjectMove); err != nil {
		return err
	}
	var err error
	p.ID = a.Arg(0)
	p.Map = a.Arg(1)
	if p.X, err = a.Int(2, "x"); err != nil {
		return err
	}
	p.Y, err = a.Int(3, "y")
	return err
}

func HandleMoveObject(ctx handlers.Context, args handlers.Args, p MoveObjectPayload) (handlers.Result, error) {
	obj, err := ctx.State.Maps.Get(p.Map, p.ID)
	if err != nil {
		return handlers.EmptyResult(), err
	}
	// Права зависят от цели: свой токен игрок двигать может
	if err := ctx.Authorize(systems.KindMoveObject, obj); err != nil {
		return handlers.EmptyResult(), err
	}

	report, err := ctx.State.Maps.Move(p.Map, p.ID, p.X, p.Y)
	if err != nil {
		return handlers.EmptyResult(), err
	}

	msg := fmt.Sprintf("Moved %s to (%d,%d) on '%s'.", p.ID, p.X, p.Y, p.Map)
	if len(report.Skipped) > 0 {
		msg += fmt.Sprintf(" Skipped missing members: %s.", strings.Join(report.Skipped, ", "))
	}
	return handlers.Result{Output: msg, Effect: args.Canonical()}, nil
}

// --- object remove ---

const usageObjectRemove = "object remove <id> <map>"

type ObjectRefPayload struct {
	ID  string
	Map string
}

func (p *ObjectRefPayload) Bind(a handlers.Args) error {
	if err := a.Require(2, "object remove|show <id> <map>"); err != nil {
		return err
	}
	p.ID = a.Arg(0)
	p.Map = a.Arg(1)
	return nil
}

func HandleRemoveObject(ctx handlers.Context, args handlers.Args, p ObjectRefPayload) (handlers.Result, error) {
	obj, err := ctx.State.Maps.Remove(p.Map, p.ID)
	if err != nil {
		return handlers.EmptyResult(), err
	}
	return handlers.Mutated(args.Canonical(), "Removed %s %s from '%s'.", obj.Kind(), p.ID, p.Map), nil
}

// --- object list / show ---

type MapRefPayload struct {
	Map string
}

func (p *MapRefPayload) Bind(a handlers.Args) error {
	if err := a.Require(1, a.Verb+" <map>"); err != nil {
		return err
	}
	p.Map = a.Arg(0)
	return nil
}

func HandleListObjects(ctx handlers.Context, _ handlers.Args, p MapRefPayload) (handlers.Result, error) {
	objects, err := ctx.State.Maps.List(p.Map)
	if err != nil {
		return handlers.EmptyResult(), err
	}
	if len(objects) == 0 {
		return handlers.Text("Map '%s' has no objects.", p.Map), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Objects on '%s':", p.Map)
	for _, o := range objects {
		base := o.Base()
		fmt.Fprintf(&b, "\n  %s %-8s %s layer=%d glyph=%s", base.ID, o.Kind(), base.Pos(), base.Layer, base.Glyph)
	}
	return handlers.Plain(b.String()), nil
}

func HandleShowObject(ctx handlers.Context, _ handlers.Args, p ObjectRefPayload) (handlers.Result, error) {
	obj, err := ctx.State.Maps.Get(p.Map, p.ID)
	if err != nil {
		return handlers.EmptyResult(), err
	}
	return handlers.Plain(describeObject(obj)), nil
}

func describeObject(o domain.Object) string {
	b := o.Base()
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s at %s\n", o.Kind(), b.ID, b.Pos())
	fmt.Fprintf(&sb, "  layer=%d glyph=%s size=%d blocks_light=%t", b.Layer, b.Glyph, b.Size, b.BlocksLight)
	if b.LightRadius != nil {
		fmt.Fprintf(&sb, " light_radius=%d", *b.LightRadius)
	}
	if b.AssetPath != "" {
		fmt.Fprintf(&sb, " asset=%s", b.AssetPath)
	}

	switch v := o.(type) {
	case *domain.Token:
		owner := v.OwnerID
		if owner == "" {
			owner = "GM"
		}
		fmt.Fprintf(&sb, "\n  entity=%s owner=%s", v.EntityID, owner)
	case *domain.Shape:
		fill := "none"
		if v.FillColor != nil {
			fill = *v.FillColor
		}
		fmt.Fprintf(&sb, "\n  shape=%s fill=%s stroke=%s/%d opacity=%.2f", v.ShapeType, fill, v.StrokeColor, v.StrokeWidth, v.Opacity)
	case *domain.Path:
		pts := make([]string, len(v.Points))
		for i, p := range v.Points {
			pts[i] = p.String()
		}
		fmt.Fprintf(&sb, "\n  points=%s stroke=%s/%d opacity=%.2f", strings.Join(pts, " "), v.StrokeColor, v.StrokeWidth, v.Opacity)
	case *domain.Group:
		fmt.Fprintf(&sb, "\n  members=%s", strings.Join(v.Members, ", "))
	}
	return sb.String()
}
