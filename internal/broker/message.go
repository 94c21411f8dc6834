// Package broker bridges the in-process event bus to an external message
// broker so that other processes (another CLI, the export worker) see the
// same events.
package broker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"lin/internal/eventbus"
)

// Message is the wire form of a bus event.
type Message struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload,omitempty"`
	// Origin identifies the process that published the event, so it can
	// ignore its own messages when they come back.
	Origin string    `json:"origin"`
	At     time.Time `json:"at"`
}

// NewMessage converts a bus event, encoding its payload as JSON.
func NewMessage(ev eventbus.Event, origin string) (Message, error) {
	msg := Message{
		ID:     uuid.NewString(),
		Name:   ev.Name,
		Origin: origin,
		At:     ev.At,
	}
	if msg.At.IsZero() {
		msg.At = time.Now()
	}
	if ev.Payload != nil {
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			return Message{}, fmt.Errorf("encode %s payload: %w", ev.Name, err)
		}
		msg.Payload = payload
	}
	return msg, nil
}

func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode broker message: %w", err)
	}
	if m.Name == "" {
		return Message{}, fmt.Errorf("decode broker message: missing event name")
	}
	return m, nil
}

// Event turns the message back into a remote bus event. The payload stays
// raw JSON; use DecodePayload to read it.
func (m Message) Event() eventbus.Event {
	return eventbus.Event{Name: m.Name, Payload: m.Payload, At: m.At, Remote: true}
}

// DecodePayload unmarshals the payload into v.
func (m Message) DecodePayload(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%s message has no payload", m.Name)
	}
	return json.Unmarshal(m.Payload, v)
}
