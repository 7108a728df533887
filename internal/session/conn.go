package session

import (
	"sync/atomic"

	"github.com/hopper1357/VTT/internal/domain"
	"github.com/hopper1357/VTT/pkg/api"
)

// ConnState - состояние подключения. Disconnected - конечное.
type ConnState uint32

const (
	StateConnecting ConnState = iota + 1
	StateActive
	StateDisconnected
)

var connStateNames = map[ConnState]string{
	StateConnecting:   "CONNECTING",
	StateActive:       "ACTIVE",
	StateDisconnected: "DISCONNECTED",
}

func (s ConnState) String() string {
	if name, ok := connStateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// JoinRequest - то, что клиент сообщил при подключении.
type JoinRequest struct {
	Username string
	Role     string // GM | PLAYER, пусто - PLAYER
}

// Conn - одно подключение к сессии. Поля заполняет рабочий цикл
// до того, как Connect вернет управление, после этого они не меняются.
type Conn struct {
	ID   string
	User *domain.User

	outbound <-chan api.Envelope
	state    atomic.Uint32
}

func newConn(id string) *Conn {
	c := &Conn{ID: id}
	c.setState(StateConnecting)
	return c
}

// Outbound - очередь исходящих конвертов. Закрывается, когда клиента
// отключают (выход, переполнение очереди, остановка сервера).
func (c *Conn) Outbound() <-chan api.Envelope {
	return c.outbound
}

func (c *Conn) State() ConnState {
	return ConnState(c.state.Load())
}

func (c *Conn) setState(s ConnState) {
	c.state.Store(uint32(s))
}

// Info - кем сервер зарегистрировал клиента.
func (c *Conn) Info() api.SessionInfo {
	info := api.SessionInfo{ClientID: c.ID}
	if c.User != nil {
		info.UserID = c.User.ID
		info.Username = c.User.Username
		info.Role = string(c.User.Role)
	}
	return info
}
