package commands

import (
	"fmt"
	"strings"

	"github.com/hopper1357/VTT/internal/apperr"
	"github.com/hopper1357/VTT/internal/engine/handlers"
)

// HandleStatus - сводка по сессии: правила, карты, сущности, инициатива.
func HandleStatus(ctx handlers.Context) (handlers.Result, error) {
	st := ctx.State

	var b strings.Builder
	ruleset := st.RulesetID
	if ruleset == "" {
		ruleset = "none"
	}
	fmt.Fprintf(&b, "Ruleset: %s\n", ruleset)

	active := st.Maps.ActiveName()
	if active == "" {
		active = "none"
	}
	fmt.Fprintf(&b, "Maps: %d (active: %s)\n", len(st.Maps.MapNames()), active)

	entities := st.Entities.List()
	fmt.Fprintf(&b, "Entities: %d", len(entities))
	for _, e := range entities {
		fmt.Fprintf(&b, "\n  %s '%s' (%s)", e.Type, e.Name(), e.ID)
	}

	b.WriteString("\n")
	b.WriteString(describeTurns(ctx))
	return handlers.Plain(b.String()), nil
}

// HandleUsers - кто подключен. Только на сервере.
func HandleUsers(ctx handlers.Context) (handlers.Result, error) {
	if ctx.Users == nil {
		return handlers.EmptyResult(), apperr.Invalid("user list is only known to the server")
	}
	users := ctx.Users.List()
	var b strings.Builder
	fmt.Fprintf(&b, "Connected users: %d", len(users))
	for _, u := range users {
		fmt.Fprintf(&b, "\n  %s (%s)", u.Username, u.Role)
	}
	return handlers.Plain(b.String()), nil
}

func HandleWhoAmI(ctx handlers.Context) (handlers.Result, error) {
	if ctx.Actor == nil {
		return handlers.EmptyResult(), apperr.Invalid("not connected")
	}
	return handlers.Text("You are %s (%s), id %s.", ctx.Actor.Username, ctx.Actor.Role, ctx.Actor.ID), nil
}
