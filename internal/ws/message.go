package ws

import (
	"encoding/json"
	"fmt"
	"time"
)

// creates a message with a marshaled payload; a nil payload produces a
// message with no payload field
func NewMessage(msgType string, payload any) (*Message, error) {
	msg := &Message{
		Type:      msgType,
		Timestamp: time.Now(),
	}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
		}

		msg.Payload = data
	}

	return msg, nil
}

// decodes the message payload into dst
func (m *Message) UnmarshalPayload(dst any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%w: missing payload", ErrInvalidMessage)
	}

	if err := json.Unmarshal(m.Payload, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	return nil
}
