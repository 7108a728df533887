package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hopper1357/VTT/pkg/api"
	"github.com/hopper1357/VTT/pkg/logger"
)

const writeWait = 10 * time.Second

// ErrClosed - соединение закрыто локально (Close).
var ErrClosed = errors.New("connection closed")

// Conn - подключение клиента к серверу сессии.
type Conn struct {
	ws        *websocket.Conn
	writeMu   sync.Mutex // gorilla допускает только одного писателя
	closeOnce sync.Once
	closed    chan struct{}
}

// Dial подключается к серверу. server - "host:port", "ws://host:port"
// или "http://host:port".
func Dial(ctx context.Context, server, username, role string) (*Conn, error) {
	u, err := wsURL(server)
	if err != nil {
		return nil, err
	}
	q := url.Values{"username": {username}}
	if role != "" {
		q.Set("role", role)
	}
	u.RawQuery = q.Encode()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}
	logger.Log.WithField("server", u.Host).Debug("Connected")
	return &Conn{ws: ws, closed: make(chan struct{})}, nil
}

func wsURL(server string) (*url.URL, error) {
	if !strings.Contains(server, "://") {
		server = "ws://" + server
	}
	u, err := url.Parse(server)
	if err != nil {
		return nil, fmt.Errorf("parse server address: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = "/ws"
	return u, nil
}

// Listen читает конверты сервера и передает их в out, пока соединение
// живо и ctx не отменен. Возвращает nil при отмене или локальном Close.
func (c *Conn) Listen(ctx context.Context, out chan<- Event) error {
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	for {
		var env api.Envelope
		if err := c.ws.ReadJSON(&env); err != nil {
			select {
			case <-c.closed:
				return nil
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return errors.New("server closed the connection")
			}
			return fmt.Errorf("read: %w", err)
		}

		select {
		case out <- Event{Kind: EventMessage, Envelope: env}:
		case <-ctx.Done():
			return nil
		}
	}
}

// SendCommand отправляет строку команды.
func (c *Conn) SendCommand(line string) error {
	return c.send(api.TypeCommand, line)
}

// SendChat отправляет реплику в общий чат.
func (c *Conn) SendChat(text string) error {
	return c.send(api.TypeChat, text)
}

func (c *Conn) send(t api.MessageType, text string) error {
	env, err := api.NewEnvelope(t, text)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteJSON(env)
}

// Close закрывает соединение. Безопасно вызывать несколько раз.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		close(c.closed)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}
