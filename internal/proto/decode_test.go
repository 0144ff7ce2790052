package proto

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeValidEvents(t *testing.T) {
	tests := []struct {
		name  string
		env   Envelope
		check func(t *testing.T, v any)
	}{
		{
			name: "join-room",
			env:  Envelope{Event: EventJoinRoom, Data: json.RawMessage(`{"roomId":"r1","userName":"Alice"}`)},
			check: func(t *testing.T, v any) {
				join, ok := v.(*JoinRoomData)
				if !ok || join.RoomID != "r1" || join.UserName != "Alice" {
					t.Fatalf("unexpected payload: %#v", v)
				}
			},
		},
		{
			name: "send-message",
			env:  Envelope{Event: EventSendMessage, Data: json.RawMessage(`{"roomId":"r1","userName":"Alice","message":"@hi"}`)},
			check: func(t *testing.T, v any) {
				msg, ok := v.(*SendMessageData)
				if !ok || msg.Message != "@hi" {
					t.Fatalf("unexpected payload: %#v", v)
				}
			},
		},
		{
			name: "draw-action keeps raw data",
			env:  Envelope{Event: EventDrawAction, Data: json.RawMessage(`{"roomId":"r1","type":"line","data":{"points":[1,2,3]}}`)},
			check: func(t *testing.T, v any) {
				draw, ok := v.(*DrawActionData)
				if !ok || draw.Type != "line" || string(draw.Data) != `{"points":[1,2,3]}` {
					t.Fatalf("unexpected payload: %#v", v)
				}
			},
		},
		{
			name: "cursor-move at origin",
			env:  Envelope{Event: EventCursorMove, Data: json.RawMessage(`{"roomId":"r1","userId":"u1","name":"Alice","x":0,"y":0}`)},
			check: func(t *testing.T, v any) {
				cur, ok := v.(*CursorMoveData)
				if !ok || cur.X == nil || *cur.X != 0 || cur.Y == nil {
					t.Fatalf("unexpected payload: %#v", v)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Decode(tt.env)
			if err != nil {
				t.Fatalf("Decode() unexpected error: %v", err)
			}
			tt.check(t, v)
		})
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		env  Envelope
	}{
		{"join without user", Envelope{Event: EventJoinRoom, Data: json.RawMessage(`{"roomId":"r1"}`)}},
		{"join bare string", Envelope{Event: EventJoinRoom, Data: json.RawMessage(`"r1"`)}},
		{"message without text", Envelope{Event: EventSendMessage, Data: json.RawMessage(`{"roomId":"r1","userName":"A"}`)}},
		{"draw without type", Envelope{Event: EventDrawAction, Data: json.RawMessage(`{"roomId":"r1","data":{}}`)}},
		{"cursor without y", Envelope{Event: EventCursorMove, Data: json.RawMessage(`{"roomId":"r1","userId":"u","x":1}`)}},
		{"missing data", Envelope{Event: EventSendMessage}},
		{"null data", Envelope{Event: EventSendMessage, Data: json.RawMessage(`null`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.env); err == nil {
				t.Fatal("Decode() expected error, got nil")
			}
		})
	}
}

func TestDecodeUnknownEvent(t *testing.T) {
	_, err := Decode(Envelope{Event: "leave-room", Data: json.RawMessage(`{}`)})
	if !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("expected ErrUnknownEvent, got %v", err)
	}
}
