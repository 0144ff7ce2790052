package http

import (
	"github.com/mindora/relay-server/internal/core"
	"github.com/mindora/relay-server/internal/proto"
)

// commandFromPayload maps a decoded inbound payload to a hub command.
func commandFromPayload(payload any) *core.Command {
	switch p := payload.(type) {
	case *proto.JoinRoomData:
		return &core.Command{Kind: core.CommandJoinRoom, Room: p.RoomID, UserName: p.UserName}
	case *proto.SendMessageData:
		return &core.Command{Kind: core.CommandSendMessage, Room: p.RoomID, UserName: p.UserName, Text: p.Message}
	case *proto.DrawActionData:
		return &core.Command{
			Kind: core.CommandDrawAction,
			Room: p.RoomID,
			Draw: &core.DrawAction{Type: p.Type, Data: p.Data},
		}
	case *proto.CursorMoveData:
		return &core.Command{
			Kind: core.CommandCursorMove,
			Room: p.RoomID,
			Cursor: &core.CursorMove{
				UserID: p.UserID,
				Name:   p.Name,
				X:      *p.X,
				Y:      *p.Y,
			},
		}
	default:
		return nil
	}
}

func outboundFromEvent(ev *core.Event) proto.Outbound {
	switch ev.Kind {
	case core.EventOnlineUsers:
		return proto.Outbound{Event: proto.EventOnlineUsers, Data: onlineUsers(ev.Users)}
	case core.EventUserJoined:
		return proto.Outbound{Event: proto.EventUserJoined, Data: proto.UserJoined{UserName: ev.UserName}}
	case core.EventReceiveMessage:
		return proto.Outbound{Event: proto.EventReceiveMessage, Data: proto.ReceiveMessage{
			Sender: ev.Message.Sender,
			Text:   ev.Message.Text,
			Time:   ev.Message.Time,
		}}
	case core.EventDrawAction:
		out := proto.DrawAction{}
		if ev.Draw != nil {
			out = proto.DrawAction{Type: ev.Draw.Type, Data: ev.Draw.Data}
		}
		return proto.Outbound{Event: proto.EventDrawAction, Data: out}
	case core.EventCursorMove:
		out := proto.CursorMove{}
		if ev.Cursor != nil {
			out = proto.CursorMove{UserID: ev.Cursor.UserID, Name: ev.Cursor.Name, X: ev.Cursor.X, Y: ev.Cursor.Y}
		}
		return proto.Outbound{Event: proto.EventCursorMove, Data: out}
	case core.EventVoiceStatus:
		out := proto.VoiceStatus{}
		if ev.Voice != nil {
			out = proto.VoiceStatus{Active: ev.Voice.Active, Host: ev.Voice.Host, SessionID: ev.Voice.SessionID}
		}
		return proto.Outbound{Event: proto.EventVoiceStatus, Data: out}
	default:
		return proto.Outbound{Event: "unknown"}
	}
}

func onlineUsers(members []core.Member) []proto.OnlineUser {
	users := make([]proto.OnlineUser, 0, len(members))
	for _, m := range members {
		users = append(users, proto.OnlineUser{ID: m.ConnectionID, UserName: m.DisplayName})
	}
	return users
}
