package commands

import (
	"strings"

	"github.com/hopper1357/VTT/internal/apperr"
	"github.com/hopper1357/VTT/internal/engine/handlers"
)

type SaveNamePayload struct {
	Name string
}

func (p *SaveNamePayload) Bind(a handlers.Args) error {
	if err := a.Require(1, a.Verb+" <name>"); err != nil {
		return err
	}
	p.Name = a.Arg(0)
	return nil
}

// Validate: имя сохранения становится именем файла или ключом в БД.
func (p SaveNamePayload) Validate() error {
	if strings.ContainsAny(p.Name, `/\:`) || strings.HasPrefix(p.Name, ".") {
		return apperr.Invalid("save name '%s' must not contain path separators", p.Name)
	}
	return nil
}

// HandleSave снимает снапшот сейчас, а запись делает координатор.
func HandleSave(ctx handlers.Context, _ handlers.Args, p SaveNamePayload) (handlers.Result, error) {
	return handlers.Result{
		Job: &handlers.Job{Kind: handlers.JobSave, Name: p.Name, Snapshot: ctx.State.Snapshot()},
	}, nil
}

// HandleLoad только ставит задачу: состояние заменит координатор, когда
// хранилище вернет снапшот, и разошлет всем full_state.
func HandleLoad(_ handlers.Context, _ handlers.Args, p SaveNamePayload) (handlers.Result, error) {
	return handlers.Result{
		Job: &handlers.Job{Kind: handlers.JobLoad, Name: p.Name},
	}, nil
}
