package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hopper1357/VTT/internal/apperr"
	"github.com/hopper1357/VTT/internal/domain"
	"github.com/hopper1357/VTT/internal/engine"
	"github.com/hopper1357/VTT/internal/engine/handlers"
	"github.com/hopper1357/VTT/pkg/api"
	"github.com/hopper1357/VTT/pkg/utils"
	"github.com/sirupsen/logrus"
)

func (c *Coordinator) handle(ev event) {
	switch ev.kind {
	case evConnect:
		c.handleConnect(ev)
	case evMessage:
		c.handleMessage(ev.clientID, ev.raw)
	case evDisconnect:
		c.disconnect(ev.clientID, ev.reason)
	case evInspect:
		ev.inspect(View{Engine: c.engine, Users: c.users, Seq: c.seq, Clients: len(c.conns)})
		close(ev.finished)
	case evJobDone:
		c.handleJobDone(ev.result)
	}
}

// --- CONNECT ---

func (c *Coordinator) handleConnect(ev event) {
	user, err := c.admit(ev.join)
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"username": ev.join.Username,
			"role":     ev.join.Role,
		}).WithError(err).Warn("Join rejected")
		ev.reply <- err
		return
	}

	conn := ev.conn
	conn.User = user
	conn.outbound = c.hub.Register(conn.ID)
	c.conns[conn.ID] = conn
	conn.setState(StateActive)

	// full_state кладем в очередь до ответа, чтобы он пришел первым
	c.sendFullState(conn)
	ev.reply <- nil

	c.log.WithFields(logrus.Fields{
		"client_id": conn.ID,
		"user":      user.Username,
		"role":      user.Role,
	}).Info("Client joined")

	c.broadcastChat(fmt.Sprintf("%s joined as %s.", user.Username, user.Role), "", conn.ID)
}

// admit проверяет имя и роль и регистрирует участника.
func (c *Coordinator) admit(req JoinRequest) (*domain.User, error) {
	name := strings.TrimSpace(req.Username)
	if name == "" {
		return nil, apperr.Invalid("username is required")
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}
	if role == domain.RolePlayer && c.cfg.AutoGM && !c.users.HasGM() {
		c.log.WithField("user", name).Info("No GM in session, promoting")
		role = domain.RoleGM
	}

	user := &domain.User{ID: utils.UserID(name), Username: name, Role: role}
	if err := c.users.Register(user); err != nil {
		if apperr.CodeOf(err) == apperr.CodeDuplicateName {
			return nil, apperr.New(apperr.CodeDuplicateName, "user '%s' is already connected", name)
		}
		return nil, err
	}
	return user, nil
}

// --- MESSAGE ---

func (c *Coordinator) handleMessage(clientID string, raw []byte) {
	conn, ok := c.conns[clientID]
	if !ok || conn.State() != StateActive {
		c.log.WithField("client_id", clientID).Debug("Message from inactive client dropped")
		return
	}

	var env api.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.reject(conn, "", apperr.Wrap(apperr.CodeMalformedMessage, err, "cannot decode message"))
		return
	}
	if err := env.Validate(); err != nil {
		c.reject(conn, "", apperr.Wrap(apperr.CodeMalformedMessage, err, "invalid message"))
		return
	}
	text, _ := env.Text()

	switch env.Type {
	case api.TypeChat:
		c.broadcastChat(fmt.Sprintf("%s: %s", conn.User.Username, text), conn.User.Username, "")
	case api.TypeCommand:
		c.execute(conn, text)
	}
}

// execute выполняет команду от имени отправителя.
func (c *Coordinator) execute(conn *Conn, line string) {
	res, err := c.engine.Execute(engine.Request{Line: line, Actor: conn.User, Users: c.users})
	if err != nil {
		c.reject(conn, line, err)
		return
	}

	if res.Effect != "" {
		c.publish(conn.User.Username, res.Effect)
	}
	if res.Output != "" && conn.State() == StateActive {
		c.sendText(conn, api.TypeOutput, res.Output)
	}
	if res.Job != nil && conn.State() == StateActive {
		c.startJob(conn, *res.Job)
	}
}

// publish рассылает эффект всем, включая отправителя.
func (c *Coordinator) publish(from, effect string) {
	c.seq++
	env, err := api.NewEnvelope(api.TypeCommand, effect)
	if err != nil {
		c.log.WithError(err).Error("Failed to encode effect")
		return
	}
	env.Seq = c.seq
	env.From = from

	for _, id := range c.hub.Broadcast(env, "") {
		c.disconnect(id, "send queue overflow")
	}

	if c.sink != nil {
		c.sink.Publish(api.EffectEvent{
			Seq:     c.seq,
			From:    from,
			Command: effect,
			At:      time.Now().UnixMilli(),
		})
	}
}

// reject - отказ только отправителю, одной строкой.
func (c *Coordinator) reject(conn *Conn, line string, err error) {
	code := apperr.CodeOf(err)
	c.log.WithFields(logrus.Fields{
		"client_id": conn.ID,
		"user":      conn.User.Username,
		"command":   line,
		"code":      code,
	}).Info("Command rejected: ", err)

	env, encErr := api.NewEnvelope(api.TypeError, api.ErrorPayload{
		Code:    string(code),
		Message: oneLine(err.Error()),
	})
	if encErr != nil {
		c.log.WithError(encErr).Error("Failed to encode error")
		return
	}
	c.send(conn, env)
}

// --- PERSISTENCE ---

// startJob выполняет I/O хранилища в отдельной горутине, чтобы рабочий
// цикл продолжал обслуживать остальных. Результат вернется событием.
func (c *Coordinator) startJob(conn *Conn, job handlers.Job) {
	if c.store == nil {
		c.reject(conn, job.Name, apperr.Invalid("persistence is disabled on this server"))
		return
	}

	ctx := c.runCtx
	c.jobs.Add(1)
	go func() {
		defer c.jobs.Done()

		res := &jobResult{clientID: conn.ID, job: job}
		switch job.Kind {
		case handlers.JobSave:
			res.err = c.store.Save(ctx, job.Name, job.Snapshot)
		case handlers.JobLoad:
			res.snapshot, res.err = c.store.Load(ctx, job.Name)
		}

		select {
		case c.events <- event{kind: evJobDone, result: res}:
		case <-c.done:
		}
	}()
}

func (c *Coordinator) handleJobDone(res *jobResult) {
	conn := c.conns[res.clientID]
	fields := logrus.Fields{"name": res.job.Name, "client_id": res.clientID}

	if res.err != nil {
		c.log.WithFields(fields).WithError(res.err).Warn("Persistence job failed")
		if conn != nil {
			c.reject(conn, res.job.Name, res.err)
		}
		return
	}

	switch res.job.Kind {
	case handlers.JobSave:
		c.log.WithFields(fields).Info("Session saved")
		if conn != nil {
			c.sendText(conn, api.TypeOutput, fmt.Sprintf("Saved session as '%s'.", res.job.Name))
		}

	case handlers.JobLoad:
		if err := c.engine.Restore(res.snapshot); err != nil {
			c.log.WithFields(fields).WithError(err).Error("Loaded snapshot rejected")
			if conn != nil {
				c.reject(conn, res.job.Name, err)
			}
			return
		}
		c.seq++
		c.log.WithFields(fields).WithField("seq", c.seq).Info("Session loaded, resyncing replicas")

		// Состояние заменено целиком: каждая реплика получает full_state
		for _, other := range c.activeConns() {
			c.sendFullState(other)
		}
		c.broadcastChat(fmt.Sprintf("Session '%s' loaded.", res.job.Name), "", "")
	}
}

// --- DISCONNECT ---

func (c *Coordinator) disconnect(clientID, reason string) {
	conn, ok := c.conns[clientID]
	if !ok {
		return
	}
	delete(c.conns, clientID)
	c.hub.Unregister(clientID)
	conn.setState(StateDisconnected)

	wasGM := conn.User.IsGM()
	c.users.Unregister(conn.User.ID)

	c.log.WithFields(logrus.Fields{
		"client_id": clientID,
		"user":      conn.User.Username,
		"reason":    reason,
	}).Info("Client disconnected")

	msg := fmt.Sprintf("%s left.", conn.User.Username)
	if wasGM {
		msg += " The GM seat is vacant."
	}
	c.broadcastChat(msg, "", "")
}

// --- OUTBOUND ---

func (c *Coordinator) sendFullState(conn *Conn) {
	state, err := json.Marshal(c.engine.Snapshot())
	if err != nil {
		c.log.WithError(err).Error("Failed to encode snapshot")
		return
	}
	env, err := api.NewEnvelope(api.TypeFullState, api.FullStatePayload{Session: conn.Info(), State: state})
	if err != nil {
		c.log.WithError(err).Error("Failed to encode full_state")
		return
	}
	env.Seq = c.seq
	c.send(conn, env)
}

func (c *Coordinator) sendText(conn *Conn, t api.MessageType, text string) {
	env, err := api.NewEnvelope(t, text)
	if err != nil {
		c.log.WithError(err).Error("Failed to encode message")
		return
	}
	c.send(conn, env)
}

// send - адресная доставка. Переполненная очередь означает отключение.
func (c *Coordinator) send(conn *Conn, env api.Envelope) {
	if !c.hub.SendTo(conn.ID, env) {
		c.disconnect(conn.ID, "send queue overflow")
	}
}

func (c *Coordinator) broadcastChat(text, from, except string) {
	env, err := api.NewEnvelope(api.TypeChat, text)
	if err != nil {
		c.log.WithError(err).Error("Failed to encode chat")
		return
	}
	env.From = from
	for _, id := range c.hub.Broadcast(env, except) {
		c.disconnect(id, "send queue overflow")
	}
}

func (c *Coordinator) activeConns() []*Conn {
	out := make([]*Conn, 0, len(c.conns))
	for _, conn := range c.conns {
		out = append(out, conn)
	}
	return out
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
