package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/mindora/relay-server/internal/assistant"
	"github.com/mindora/relay-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:3001/ws", "WebSocket address")
	user := flag.String("user", "tester", "display name to join with")
	room := flag.String("room", "general", "room id")
	text := flag.String("text", "hello from smoke test", "message text to send; start with @ to ask the assistant")
	token := flag.String("token", "", "identity token, if the relay requires one")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	url := *addr
	if *token != "" {
		url += "?token=" + *token
	}
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(event string, data any) error {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", event, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Envelope{Event: event, Data: payload}); err != nil {
			return fmt.Errorf("send %s: %w", event, err)
		}
		return nil
	}

	if err := send(proto.EventJoinRoom, proto.JoinRoomData{RoomID: *room, UserName: *user}); err != nil {
		return err
	}
	if err := send(proto.EventSendMessage, proto.SendMessageData{RoomID: *room, UserName: *user, Message: *text}); err != nil {
		return err
	}

	// Wait for our own message, plus the assistant reply for mentions.
	want := 1
	if assistant.IsMention(*text) {
		want = 2
	}
	for received := 0; received < want; {
		var env proto.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		fmt.Printf("event=%s data=%s\n", env.Event, env.Data)
		if env.Event == proto.EventReceiveMessage {
			received++
		}
	}
	return nil
}
