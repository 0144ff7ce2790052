package proto

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrUnknownEvent is returned for event names the relay does not handle.
	ErrUnknownEvent = errors.New("unknown event")
	// ErrMissingData is returned when an event arrives without a payload.
	ErrMissingData = errors.New("missing event data")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode parses and validates the payload of an inbound envelope. The returned
// value is one of *JoinRoomData, *SendMessageData, *DrawActionData or *CursorMoveData.
func Decode(env Envelope) (any, error) {
	var payload any
	switch env.Event {
	case EventJoinRoom:
		payload = &JoinRoomData{}
	case EventSendMessage:
		payload = &SendMessageData{}
	case EventDrawAction:
		payload = &DrawActionData{}
	case EventCursorMove:
		payload = &CursorMoveData{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}

	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, fmt.Errorf("%s: %w", env.Event, ErrMissingData)
	}
	if err := json.Unmarshal(env.Data, payload); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", env.Event, err)
	}
	if err := validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("%s: %w", env.Event, err)
	}
	return payload, nil
}
