package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hopper1357/VTT/internal/apperr"
	"github.com/hopper1357/VTT/internal/domain"
	"github.com/hopper1357/VTT/internal/engine/handlers"
	"github.com/hopper1357/VTT/internal/systems"
	"github.com/hopper1357/VTT/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Engine - граница обработки команд: разбор, проверка прав, хендлер.
// Один и тот же Engine работает на сервере (каноническое состояние)
// и на клиенте (реплика). Не потокобезопасен: вызывающий сериализует доступ.
type Engine struct {
	state    *domain.State
	commands map[string]Command
	verbs    []string
	newID    func() string
}

// Option настраивает Engine.
type Option func(*Engine)

// WithIDGenerator подменяет генератор ID (тесты).
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

func New(state *domain.State, opts ...Option) *Engine {
	e := &Engine{
		state:    state,
		commands: make(map[string]Command),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.registerHandlers()
	sort.Strings(e.verbs)
	return e
}

func (e *Engine) State() *domain.State {
	return e.state
}

// Request - одна команда от конкретного участника.
type Request struct {
	Line  string
	Actor *domain.User            // Явная личность отправителя
	Users handlers.UserDirectory // nil на реплике
}

// Parse находит команду в таблице. Двухсловные глаголы ("object move")
// имеют приоритет над однословными.
func (e *Engine) Parse(line string) (Command, handlers.Args, error) {
	tokens, err := handlers.Tokenize(line)
	if err != nil {
		return Command{}, handlers.Args{}, err
	}
	if len(tokens) == 0 {
		return Command{}, handlers.Args{}, apperr.Invalid("empty command")
	}

	first := strings.ToLower(tokens[0])
	if len(tokens) > 1 {
		verb := first + " " + strings.ToLower(tokens[1])
		if c, ok := e.commands[verb]; ok {
			return c, handlers.NewArgs(verb, tokens[2:]), nil
		}
	}
	if c, ok := e.commands[first]; ok {
		return c, handlers.NewArgs(first, tokens[1:]), nil
	}
	return Command{}, handlers.Args{}, apperr.Invalid("unknown command '%s' (try 'help')", tokens[0])
}

// Execute выполняет команду от имени req.Actor. Ошибка означает, что
// состояние не изменилось.
func (e *Engine) Execute(req Request) (handlers.Result, error) {
	cmd, args, err := e.Parse(req.Line)
	if err != nil {
		return handlers.EmptyResult(), err
	}

	ctx := handlers.Context{
		State: e.state,
		Users: req.Users,
		Actor: req.Actor,
		NewID: e.newID,
	}

	// Для move права зависят от цели, их проверяет хендлер
	if cmd.Kind != systems.KindMoveObject {
		if err := ctx.Authorize(cmd.Kind, nil); err != nil {
			return handlers.EmptyResult(), err
		}
	}

	res, err := cmd.Handler(ctx, args)
	if err != nil {
		return handlers.EmptyResult(), err
	}

	if res.Effect != "" {
		logger.Log.WithFields(logrus.Fields{
			"component": "engine",
			"user":      actorName(req.Actor),
			"effect":    res.Effect,
		}).Info("Command applied")
	}
	return res, nil
}

// Replay применяет канонический эффект, полученный от сервера.
// Права не проверяются: их уже проверил сервер.
func (e *Engine) Replay(effect string) error {
	cmd, args, err := e.Parse(effect)
	if err != nil {
		return err
	}
	if cmd.ServerOnly {
		return apperr.Invalid("'%s' cannot be replayed on a replica", cmd.Verb)
	}
	ctx := handlers.Context{State: e.state, Replay: true, NewID: e.newID}
	if _, err := cmd.Handler(ctx, args); err != nil {
		return fmt.Errorf("replay %q: %w", effect, err)
	}
	return nil
}

// IsLocal - можно ли выполнить команду на реплике, не спрашивая сервер.
func (e *Engine) IsLocal(line string) bool {
	cmd, _, err := e.Parse(line)
	if err != nil {
		return false
	}
	return cmd.Kind == systems.KindRead && !cmd.ServerOnly
}

func (e *Engine) Snapshot() domain.Snapshot {
	return e.state.Snapshot()
}

// Restore заменяет состояние целиком (load, full_state).
func (e *Engine) Restore(snap domain.Snapshot) error {
	return e.state.Restore(snap)
}

func (e *Engine) handleHelp(_ handlers.Context) (handlers.Result, error) {
	var b strings.Builder
	b.WriteString("Commands:")
	for _, v := range e.verbs {
		fmt.Fprintf(&b, "\n  %s", e.commands[v].Usage)
	}
	return handlers.Plain(b.String()), nil
}

func actorName(u *domain.User) string {
	if u == nil {
		return "-"
	}
	return u.Username
}
