package handlers

import (
	"github.com/hopper1357/VTT/internal/domain"
	"github.com/hopper1357/VTT/internal/systems"
	"github.com/hopper1357/VTT/pkg/utils"
)

// UserDirectory - список участников. Есть только на сервере; на реплике nil.
// domain.UserRegistry неявно реализует этот интерфейс.
type UserDirectory interface {
	Get(id string) (*domain.User, bool)
	FindByName(name string) (*domain.User, bool)
	List() []*domain.User
}

// Context передает хендлеру состояние сессии и того, кто выполняет команду.
// Мы передаем ссылки, чтобы хендлер мог менять состояние (мутировать данные).
type Context struct {
	State *domain.State
	Users UserDirectory
	Actor *domain.User // Явная личность отправителя (nil на реплике)

	// Replay - повтор канонического эффекта на реплике. Права уже проверил сервер.
	Replay bool

	// NewID генерирует ID для новых объектов. По умолчанию uuid.
	NewID func() string
}

// Authorize проверяет права Actor. При Replay всегда разрешено.
func (c Context) Authorize(kind systems.CommandKind, target domain.Object) error {
	if c.Replay {
		return nil
	}
	return systems.Authorize(c.Actor, kind, target)
}

// ID возвращает запрошенный ID (из опции id=) или генерирует новый.
func (c Context) ID(requested string) string {
	if requested != "" {
		return requested
	}
	if c.NewID != nil {
		return c.NewID()
	}
	return utils.GenerateID()
}

// JobKind - тип работы с хранилищем.
type JobKind uint8

const (
	JobSave JobKind = iota + 1
	JobLoad
)

// Job - операция с хранилищем. Хендлер ее не выполняет: I/O делает
// координатор вне рабочего цикла, чтобы не держать остальных клиентов.
type Job struct {
	Kind     JobKind
	Name     string
	Snapshot domain.Snapshot // Для JobSave: снимок на момент команды
}

// Result - возвращает результат выполнения команды.
// Хендлер НЕ пишет в сеть напрямую, он возвращает данные.
type Result struct {
	Output string // Текст для отправителя
	Effect string // Каноническая команда для рассылки ("" - состояние не менялось)
	Job    *Job
}

// HandlerFunc - это контракт для любой команды.
type HandlerFunc func(ctx Context, args Args) (Result, error)

// EmptyResult - вспомогательная функция для пустого успешного ответа
func EmptyResult() Result {
	return Result{}
}

// Mutated - успешная мутация: вывод для отправителя и эффект для всех.
func Mutated(effect, format string, a ...any) Result {
	return Result{Output: sprintf(format, a...), Effect: effect}
}

// Text - ответ команды чтения.
func Text(format string, a ...any) Result {
	return Result{Output: sprintf(format, a...)}
}

// Plain - готовый текст без форматирования.
func Plain(s string) Result {
	return Result{Output: s}
}
