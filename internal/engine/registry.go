package engine

import (
	h "github.com/hopper1357/VTT/internal/engine/handlers"
	"github.com/hopper1357/VTT/internal/engine/handlers/commands"
	"github.com/hopper1357/VTT/internal/systems"
)

// Command - запись закрытой таблицы команд.
type Command struct {
	Verb    string              // "object move", "help"
	Kind    systems.CommandKind // Для проверки прав
	Usage   string
	Handler h.HandlerFunc

	// ServerOnly - команда нуждается в данных, которых нет у реплики
	// (участники, хранилище). Клиент всегда отправляет ее на сервер.
	ServerOnly bool
}

func (e *Engine) registerHandlers() {
	// Чтение
	e.register(Command{Verb: "help", Kind: systems.KindRead, Usage: "help", Handler: h.WithEmptyPayload(e.handleHelp)})
	e.register(Command{Verb: "status", Kind: systems.KindRead, Usage: "status", Handler: h.WithEmptyPayload(commands.HandleStatus)})
	e.register(Command{Verb: "users", Kind: systems.KindRead, Usage: "users", Handler: h.WithEmptyPayload(commands.HandleUsers), ServerOnly: true})
	e.register(Command{Verb: "whoami", Kind: systems.KindRead, Usage: "whoami", Handler: h.WithEmptyPayload(commands.HandleWhoAmI), ServerOnly: true})
	e.register(Command{Verb: "map list", Kind: systems.KindRead, Usage: "map list", Handler: h.WithEmptyPayload(commands.HandleListMaps)})
	e.register(Command{Verb: "map show", Kind: systems.KindRead, Usage: "map show <name>", Handler: h.WithPayload(commands.HandleShowMap)})
	e.register(Command{Verb: "object list", Kind: systems.KindRead, Usage: "object list <map>", Handler: h.WithPayload(commands.HandleListObjects)})
	e.register(Command{Verb: "object show", Kind: systems.KindRead, Usage: "object show <id> <map>", Handler: h.WithPayload(commands.HandleShowObject)})
	e.register(Command{Verb: "entity show", Kind: systems.KindRead, Usage: "entity show <name|id>", Handler: h.WithPayload(commands.HandleShowEntity)})
	e.register(Command{Verb: "turn show", Kind: systems.KindRead, Usage: "turn show", Handler: h.WithEmptyPayload(commands.HandleTurnShow)})
	e.register(Command{Verb: "fov", Kind: systems.KindRead, Usage: "fov <map> <x> <y> <radius> | fov <map> <object-id>", Handler: h.WithPayload(commands.HandleFOV)})

	// Сущности
	e.register(Command{Verb: "create char", Kind: systems.KindCreateEntity, Usage: "create char <name> [attr=value...]", Handler: h.WithPayload(commands.HandleCreateChar)})
	e.register(Command{Verb: "entity set", Kind: systems.KindUpdateEntity, Usage: "entity set <name|id> <attr>=<value>...", Handler: h.WithPayload(commands.HandleSetEntity)})

	// Настройки сессии
	e.register(Command{Verb: "turn add", Kind: systems.KindConfigureSession, Usage: "turn add <name|id>", Handler: h.WithPayload(commands.HandleTurnAdd)})
	e.register(Command{Verb: "turn set", Kind: systems.KindConfigureSession, Usage: "turn set <name|id> <score>", Handler: h.WithPayload(commands.HandleTurnSet)})
	e.register(Command{Verb: "turn clear", Kind: systems.KindConfigureSession, Usage: "turn clear", Handler: commands.HandleTurnClear})
	e.register(Command{Verb: "ruleset", Kind: systems.KindConfigureSession, Usage: "ruleset <id>", Handler: h.WithPayload(commands.HandleRuleset)})
	e.register(Command{Verb: "map use", Kind: systems.KindConfigureSession, Usage: "map use <name>", Handler: h.WithPayload(commands.HandleUseMap)})

	// Карты и объекты
	e.register(Command{Verb: "map create", Kind: systems.KindCreateMap, Usage: "map create <name> <w> <h> [grid=square|hex] [background=]", Handler: h.WithPayload(commands.HandleCreateMap)})
	e.register(Command{Verb: "object place", Kind: systems.KindPlaceObject, Usage: "object place <map> <x> <y> [layer= glyph= size= blocks_light= light_radius=]", Handler: h.WithPayload(commands.HandlePlaceObject)})
	e.register(Command{Verb: "token place", Kind: systems.KindPlaceObject, Usage: "token place <entity> <map> <x> <y> [owner=<user|all>]", Handler: h.WithPayload(commands.HandlePlaceToken)})
	e.register(Command{Verb: "shape place", Kind: systems.KindPlaceObject, Usage: "shape place <kind> <map> <x> <y> [fill_color= stroke_color= stroke_width= opacity=]", Handler: h.WithPayload(commands.HandlePlaceShape)})
	e.register(Command{Verb: "draw path", Kind: systems.KindPlaceObject, Usage: "draw path <map> <x,y>... [stroke_width=]", Handler: h.WithPayload(commands.HandleDrawPath)})
	e.register(Command{Verb: "group create", Kind: systems.KindPlaceObject, Usage: "group create <map> <id>...", Handler: h.WithPayload(commands.HandleCreateGroup)})
	e.register(Command{Verb: "object move", Kind: systems.KindMoveObject, Usage: "object move <id> <map> <x> <y>", Handler: h.WithPayload(commands.HandleMoveObject)})
	e.register(Command{Verb: "object remove", Kind: systems.KindRemoveObject, Usage: "object remove <id> <map>", Handler: h.WithPayload(commands.HandleRemoveObject)})

	// Хранилище
	e.register(Command{Verb: "save", Kind: systems.KindPersistence, Usage: "save <name>", Handler: h.WithPayload(commands.HandleSave), ServerOnly: true})
	e.register(Command{Verb: "load", Kind: systems.KindPersistence, Usage: "load <name>", Handler: h.WithPayload(commands.HandleLoad), ServerOnly: true})
}

func (e *Engine) register(c Command) {
	e.commands[c.Verb] = c
	e.verbs = append(e.verbs, c.Verb)
}
