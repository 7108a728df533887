package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hopper1357/VTT/internal/apperr"
	"github.com/hopper1357/VTT/internal/domain"
	"github.com/hopper1357/VTT/internal/engine/handlers"
)

// Опции, которые не являются атрибутами сущности.
var reservedEntityOptions = map[string]bool{"id": true, "type": true}

// --- create char ---

const usageCreateChar = "create char <name> [type=character|npc] [attr=value...] [id=]"

type CreateCharPayload struct {
	ID         string
	Name       string
	Type       string
	Attributes map[string]string
}

func (p *CreateCharPayload) Bind(a handlers.Args) error {
	if err := a.Require(1, usageCreateChar); err != nil {
		return err
	}
	p.ID, _ = a.Opt("id")
	p.Name = a.Arg(0)
	p.Type = domain.EntityTypeCharacter
	if t, ok := a.Opt("type"); ok {
		p.Type = strings.ToLower(t)
	}
	p.Attributes = map[string]string{domain.AttrName: p.Name}
	for k, v := range a.Options {
		if !reservedEntityOptions[k] && k != domain.AttrName {
			p.Attributes[k] = v
		}
	}
	return nil
}

func (p CreateCharPayload) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("name is empty")
	}
	return nil
}

func HandleCreateChar(ctx handlers.Context, args handlers.Args, p CreateCharPayload) (handlers.Result, error) {
	e, err := ctx.State.Entities.Create(ctx.ID(p.ID), p.Type, p.Attributes)
	if err != nil {
		return handlers.EmptyResult(), err
	}
	args.Set("id", e.ID)
	return handlers.Mutated(args.Canonical(), "Created %s '%s' (%s).", e.Type, e.Name(), e.ID), nil
}

// --- entity set ---

const usageEntitySet = "entity set <name|id> <attr>=<value>..."

type SetEntityPayload struct {
	Ref     string
	Changes map[string]string
}

func (p *SetEntityPayload) Bind(a handlers.Args) error {
	if err := a.Require(1, usageEntitySet); err != nil {
		return err
	}
	if len(a.Options) == 0 {
		return apperr.Invalid("usage: %s", usageEntitySet)
	}
	p.Ref = a.Arg(0)
	p.Changes = a.Options
	return nil
}

func (p SetEntityPayload) Validate() error {
	if name, ok := p.Changes[domain.AttrName]; ok && strings.TrimSpace(name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	return nil
}

func HandleSetEntity(ctx handlers.Context, args handlers.Args, p SetEntityPayload) (handlers.Result, error) {
	e, err := ctx.State.Entities.Resolve(p.Ref)
	if err != nil {
		return handlers.EmptyResult(), err
	}

	keys := make([]string, 0, len(p.Changes))
	for k := range p.Changes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Сначала проверяем переименование, чтобы не применить команду наполовину
	if name, ok := p.Changes[domain.AttrName]; ok {
		if other, found := ctx.State.Entities.FindByName(name); found && other.ID != e.ID {
			return handlers.EmptyResult(), apperr.New(apperr.CodeDuplicateName, "entity named '%s' already exists", name)
		}
	}

	changes := make([]string, 0, len(keys))
	for _, k := range keys {
		if err := ctx.State.Entities.Set(e.ID, k, p.Changes[k]); err != nil {
			return handlers.EmptyResult(), err
		}
		changes = append(changes, fmt.Sprintf("%s=%s", k, p.Changes[k]))
	}

	args.Positional[0] = e.ID
	return handlers.Mutated(args.Canonical(), "Updated '%s': %s.", e.Name(), strings.Join(changes, ", ")), nil
}

// --- entity show ---

type EntityRefPayload struct {
	Ref string
}

func (p *EntityRefPayload) Bind(a handlers.Args) error {
	if err := a.Require(1, a.Verb+" <name|id>"); err != nil {
		return err
	}
	p.Ref = a.Arg(0)
	return nil
}

func HandleShowEntity(ctx handlers.Context, _ handlers.Args, p EntityRefPayload) (handlers.Result, error) {
	e, err := ctx.State.Entities.Resolve(p.Ref)
	if err != nil {
		return handlers.EmptyResult(), err
	}
	return handlers.Plain(describeEntity(e)), nil
}

func describeEntity(e *domain.Entity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s '%s' (%s)", e.Type, e.Name(), e.ID)
	for _, k := range e.AttributeKeys() {
		if k == domain.AttrName {
			continue
		}
		fmt.Fprintf(&b, "\n  %s: %s", k, e.Attributes[k])
	}
	return b.String()
}
