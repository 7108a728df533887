package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hopper1357/VTT/internal/apperr"
	"github.com/hopper1357/VTT/internal/session"
	"github.com/hopper1357/VTT/pkg/api"
	"github.com/hopper1357/VTT/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Настройки WebSocket
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024 // Команда - одна строка
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client - посредник между Websocket и координатором сессии
type Client struct {
	Session *session.Coordinator
	Conn    *websocket.Conn
	peer    *session.Conn
	log     *logrus.Entry
}

func NewClient(coord *session.Coordinator, conn *websocket.Conn) *Client {
	return &Client{
		Session: coord,
		Conn:    conn,
		log:     logger.Component("ws"),
	}
}

// join регистрирует участника. При отказе клиент получает error
// и кадр закрытия, соединение закрывается.
func (c *Client) join(ctx context.Context, req session.JoinRequest) bool {
	peer, err := c.Session.Connect(ctx, req)
	if err == nil {
		c.peer = peer
		c.log = c.log.WithFields(logrus.Fields{
			"client_id": peer.ID,
			"user":      peer.User.Username,
		})
		return true
	}

	c.log.WithField("username", req.Username).WithError(err).Warn("Handshake failed")
	if env, encErr := api.NewEnvelope(api.TypeError, api.ErrorPayload{
		Code:    string(apperr.CodeOf(err)),
		Message: err.Error(),
	}); encErr == nil {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.Conn.WriteJSON(env)
	}
	closeMsg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "join rejected")
	_ = c.Conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeWait))
	if err := c.Conn.Close(); err != nil {
		c.log.WithError(err).Debug("failed to close rejected websocket")
	}
	return false
}

// readPump читает сообщения клиента и передает их координатору.
func (c *Client) readPump() {
	defer func() {
		if err := c.Session.Disconnect(context.Background(), c.peer.ID); err != nil && !errors.Is(err, session.ErrStopped) {
			c.log.WithError(err).Warn("failed to disconnect client")
		}
		if err := c.Conn.Close(); err != nil {
			c.log.WithError(err).Debug("failed to close websocket connection")
		}
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.WithError(err).Warn("failed to set read deadline")
	}
	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.log.WithError(err).Warn("failed to set pong read deadline")
		}
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Error("WS read error")
			}
			return
		}
		if err := c.Session.Dispatch(context.Background(), c.peer.ID, raw); err != nil {
			c.log.WithError(err).Warn("Session is not accepting messages")
			return
		}
	}
}

// writePump отправляет конверты клиенту + Ping.
// Закрытие исходящей очереди означает, что координатор отключил клиента.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.Conn.Close(); err != nil {
			c.log.WithError(err).Debug("failed to close websocket connection in writePump")
		}
	}()

	outbound := c.peer.Outbound()
	for {
		select {
		case message, ok := <-outbound:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.WithError(err).Warn("failed to set write deadline")
			}
			if !ok {
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.log.WithError(err).Debug("write close message failed")
				}
				return
			}
			if err := c.Conn.WriteJSON(message); err != nil {
				c.log.WithError(err).Debug("write json message failed")
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.WithError(err).Warn("failed to set ping write deadline")
			}
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.WithError(err).Debug("ping failed")
				return
			}
		}
	}
}
