package api

import (
	"encoding/json"
	"fmt"
)

// MessageType - тип конверта.
type MessageType string

const (
	// TypeFullState полный снапшот состояния. Сервер -> новый клиент (и после load).
	TypeFullState MessageType = "full_state"

	// TypeCommand текстовая команда.
	// Клиент -> сервер: то, что ввел пользователь.
	// Сервер -> все: каноническая форма успешно выполненной команды (эффект).
	TypeCommand MessageType = "command"

	// TypeChat строка для показа: вход/выход участников и реплики игроков.
	TypeChat MessageType = "chat"

	// TypeOutput ответ сервера на команду чтения. Только отправителю.
	TypeOutput MessageType = "output"

	// TypeError отказ в выполнении команды. Только отправителю.
	TypeError MessageType = "error"
)

var knownTypes = map[MessageType]bool{
	TypeFullState: true,
	TypeCommand:   true,
	TypeChat:      true,
	TypeOutput:    true,
	TypeError:     true,
}

// Known - известен ли тип протоколу.
func (t MessageType) Known() bool {
	return knownTypes[t]
}

// --- КОНВЕРТ ---

// Envelope это корневой объект всех сообщений в обе стороны.
type Envelope struct {
	// Type определяет формат Payload.
	Type MessageType `json:"type"`

	// Seq порядковый номер эффекта на сервере. Растет монотонно.
	// Заполняется для command (эффекты) и full_state (номер, на котором снят снапшот).
	// Реплика игнорирует эффекты с Seq <= своего.
	Seq uint64 `json:"seq,omitempty"`

	// From имя участника, от которого пришла команда или реплика.
	From string `json:"from,omitempty"`

	// Payload строка (command, chat, output), FullStatePayload или ErrorPayload.
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope упаковывает payload в конверт.
func NewEnvelope(t MessageType, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return Envelope{Type: t, Payload: raw}, nil
}

// Text достает строковый payload (command, chat, output).
func (e Envelope) Text() (string, error) {
	var s string
	if err := json.Unmarshal(e.Payload, &s); err != nil {
		return "", fmt.Errorf("%s payload is not a string: %w", e.Type, err)
	}
	return s, nil
}

// Decode распаковывает payload в структуру.
func (e Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// --- Payloads ---

// SessionInfo сообщает клиенту, кем его зарегистрировал сервер.
type SessionInfo struct {
	ClientID string `json:"client_id"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// FullStatePayload - payload для full_state.
type FullStatePayload struct {
	Session SessionInfo `json:"session"`

	// State сериализованный снапшот (сущности, карты с объектами, инициатива, правила).
	State json.RawMessage `json:"state"`
}

// ErrorPayload - payload для error. Message - одна строка для показа пользователю.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// EffectEvent - запись об успешно примененном эффекте для внешних наблюдателей
// (публикуется в Redis, если включен relay).
type EffectEvent struct {
	Seq     uint64 `json:"seq"`
	From    string `json:"from"`
	Command string `json:"command"`
	At      int64  `json:"at"` // Unix millis
}
