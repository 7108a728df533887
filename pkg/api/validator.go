package api

import (
	"errors"
	"fmt"
	"strings"
)

// Validator - интерфейс, который могут реализовать DTO
type Validator interface {
	Validate() error
}

// Validate проверяет конверт, пришедший от клиента.
// Клиент может слать только command и chat.
func (e Envelope) Validate() error {
	if !e.Type.Known() {
		return fmt.Errorf("unknown message type %q", e.Type)
	}
	if e.Type != TypeCommand && e.Type != TypeChat {
		return fmt.Errorf("clients cannot send %q messages", e.Type)
	}
	if len(e.Payload) == 0 {
		return errors.New("payload is required")
	}
	text, err := e.Text()
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("payload is empty")
	}
	return nil
}

func (p FullStatePayload) Validate() error {
	if p.Session.ClientID == "" {
		return errors.New("session.client_id is required")
	}
	if len(p.State) == 0 {
		return errors.New("state is required")
	}
	return nil
}
