package commands

import (
	"fmt"
	"strings"

	"github.com/hopper1357/VTT/internal/engine/handlers"
)

// --- turn add ---

func HandleTurnAdd(ctx handlers.Context, args handlers.Args, p EntityRefPayload) (handlers.Result, error) {
	e, err := ctx.State.Entities.Resolve(p.Ref)
	if err != nil {
		return handlers.EmptyResult(), err
	}
	if err := ctx.State.Turns.Add(e.ID); err != nil {
		return handlers.EmptyResult(), err
	}
	args.Positional[0] = e.ID
	return handlers.Mutated(args.Canonical(), "'%s' joins the turn order.", e.Name()), nil
}

// --- turn set ---

const usageTurnSet = "turn set <name|id> <score>"

type TurnSetPayload struct {
	Ref   string
	Score int
}

func (p *TurnSetPayload) Bind(a handlers.Args) error {
	if err := a.Require(2, usageTurnSet); err != nil {
		return err
	}
	var err error
	p.Ref = a.Arg(0)
	p.Score, err = a.Int(1, "score")
	return err
}

func HandleTurnSet(ctx handlers.Context, args handlers.Args, p TurnSetPayload) (handlers.Result, error) {
	e, err := ctx.State.Entities.Resolve(p.Ref)
	if err != nil {
		return handlers.EmptyResult(), err
	}
	if err := ctx.State.Turns.Set(e.ID, p.Score); err != nil {
		return handlers.EmptyResult(), err
	}
	args.Positional[0] = e.ID
	return handlers.Mutated(args.Canonical(), "'%s' rolled %d for initiative.", e.Name(), p.Score), nil
}

// --- turn clear ---

func HandleTurnClear(ctx handlers.Context, args handlers.Args) (handlers.Result, error) {
	ctx.State.Turns.Clear()
	return handlers.Mutated(args.Canonical(), "Turn order cleared."), nil
}

// --- turn show ---

func HandleTurnShow(ctx handlers.Context) (handlers.Result, error) {
	return handlers.Plain(describeTurns(ctx)), nil
}

func describeTurns(ctx handlers.Context) string {
	order := ctx.State.Turns.Order()
	pending := ctx.State.Turns.Pending()
	if len(order) == 0 && len(pending) == 0 {
		return "Turn order is empty."
	}

	name := func(id string) string {
		if e, ok := ctx.State.Entities.Get(id); ok && e.Name() != "" {
			return e.Name()
		}
		return id
	}

	var b strings.Builder
	b.WriteString("Turn order:")
	for i, c := range order {
		fmt.Fprintf(&b, "\n  %d. %s (%d)", i+1, name(c.EntityID), *c.Initiative)
	}
	if len(pending) > 0 {
		names := make([]string, len(pending))
		for i, id := range pending {
			names[i] = name(id)
		}
		fmt.Fprintf(&b, "\n  waiting for initiative: %s", strings.Join(names, ", "))
	}
	return b.String()
}

// --- ruleset ---

type RulesetPayload struct {
	ID string
}

func (p *RulesetPayload) Bind(a handlers.Args) error {
	if err := a.Require(1, "ruleset <id>"); err != nil {
		return err
	}
	p.ID = a.Arg(0)
	return nil
}

func HandleRuleset(ctx handlers.Context, args handlers.Args, p RulesetPayload) (handlers.Result, error) {
	ctx.State.RulesetID = p.ID
	return handlers.Mutated(args.Canonical(), "Ruleset is now '%s'.", p.ID), nil
}
