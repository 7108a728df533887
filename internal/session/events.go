package session

import (
	"github.com/hopper1357/VTT/internal/domain"
	"github.com/hopper1357/VTT/internal/engine"
	"github.com/hopper1357/VTT/internal/engine/handlers"
)

type eventKind uint8

const (
	evConnect eventKind = iota + 1
	evMessage
	evDisconnect
	evInspect
	evJobDone
)

// event - единица работы для рабочего цикла. Все изменения состояния
// сессии проходят через одну очередь событий.
type event struct {
	kind eventKind

	// evConnect
	conn  *Conn
	join  JoinRequest
	reply chan error

	// evMessage, evDisconnect
	clientID string
	raw      []byte
	reason   string

	// evInspect
	inspect  func(View)
	finished chan struct{}

	// evJobDone
	result *jobResult
}

// jobResult - итог работы с хранилищем, выполненной вне рабочего цикла.
type jobResult struct {
	clientID string
	job      handlers.Job
	snapshot domain.Snapshot
	err      error
}

// View - доступ на чтение к состоянию сессии изнутри рабочего цикла.
// Ссылки нельзя сохранять и использовать после возврата из Inspect.
type View struct {
	Engine  *engine.Engine
	Users   *domain.UserRegistry
	Seq     uint64
	Clients int
}
