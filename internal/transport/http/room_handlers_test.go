package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/mindora/relay-server/internal/callengine"
	"github.com/mindora/relay-server/internal/callengine/livekit"
	"github.com/mindora/relay-server/internal/core"
	"github.com/mindora/relay-server/internal/proto"
	"github.com/mindora/relay-server/internal/service/voice"
	"github.com/mindora/relay-server/internal/store/sqlite"
)

func newVoiceDeps(t *testing.T, engine callengine.Engine) Deps {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.Migrate)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	hub := core.NewHub()
	return Deps{Hub: hub, Voice: voice.New(st, engine, hub, nil)}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp.StatusCode
}

func TestOnlineUsersEndpoint(t *testing.T) {
	ts, _ := startTestServer(t, testConfig(), Deps{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var users []proto.OnlineUser
	if status := doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/api/rooms/r1/online", nil, &users); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if len(users) != 0 {
		t.Fatalf("empty room should list nobody, got %v", users)
	}

	conn := dial(t, ctx, wsURL(ts))
	send(t, ctx, conn, proto.EventJoinRoom, proto.JoinRoomData{RoomID: "r1", UserName: "Ana"})
	readEvent(t, ctx, conn, proto.EventOnlineUsers, nil)

	doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/api/rooms/r1/online", nil, &users)
	if len(users) != 1 || users[0].UserName != "Ana" || users[0].ID == "" {
		t.Fatalf("unexpected users: %+v", users)
	}
}

func TestVoiceLifecycleEndpoints(t *testing.T) {
	deps := newVoiceDeps(t, nil)
	ts, _ := startTestServer(t, testConfig(), deps)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, wsURL(ts))
	send(t, ctx, conn, proto.EventJoinRoom, proto.JoinRoomData{RoomID: "r1", UserName: "Ana"})
	readEvent(t, ctx, conn, proto.EventOnlineUsers, nil)

	base := ts.URL + "/api/rooms/r1/voice"

	var started VoiceSessionResponse
	if status := doJSON(t, ts.Client(), http.MethodPost, base+"/start", StartVoiceRequest{UserID: "ana"}, &started); status != http.StatusCreated {
		t.Fatalf("start status = %d", status)
	}
	if started.Host != "ana" || started.Status != "active" || started.SessionID == "" {
		t.Fatalf("unexpected session: %+v", started)
	}

	var announced proto.VoiceStatus
	readEvent(t, ctx, conn, proto.EventVoiceStatus, &announced)
	if !announced.Active || announced.Host != "ana" || announced.SessionID != started.SessionID {
		t.Fatalf("unexpected voice-status: %+v", announced)
	}

	var errResp ErrorResponse
	if status := doJSON(t, ts.Client(), http.MethodPost, base+"/start", StartVoiceRequest{UserID: "ben"}, &errResp); status != http.StatusConflict {
		t.Fatalf("second start status = %d", status)
	}

	var st proto.VoiceStatus
	if status := doJSON(t, ts.Client(), http.MethodGet, base, nil, &st); status != http.StatusOK || !st.Active {
		t.Fatalf("status endpoint: %d %+v", status, st)
	}

	var ended VoiceSessionResponse
	if status := doJSON(t, ts.Client(), http.MethodPost, base+"/end", nil, &ended); status != http.StatusOK {
		t.Fatalf("end status = %d", status)
	}
	if ended.Status != "ended" || ended.EndedAt == nil {
		t.Fatalf("unexpected ended session: %+v", ended)
	}
	readEvent(t, ctx, conn, proto.EventVoiceStatus, &announced)
	if announced.Active {
		t.Fatalf("expected inactive voice-status, got %+v", announced)
	}

	if status := doJSON(t, ts.Client(), http.MethodPost, base+"/end", nil, &errResp); status != http.StatusNotFound {
		t.Fatalf("second end status = %d", status)
	}
}

func TestVoiceStartRequiresHost(t *testing.T) {
	ts, _ := startTestServer(t, testConfig(), newVoiceDeps(t, nil))

	var errResp ErrorResponse
	if status := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/api/rooms/r1/voice/start", StartVoiceRequest{}, &errResp); status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
}

func TestVoiceTokenEndpoint(t *testing.T) {
	ts, _ := startTestServer(t, testConfig(), newVoiceDeps(t, nil))

	var errResp ErrorResponse
	if status := doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/api/rooms/r1/voice/token?identity=ana", nil, &errResp); status != http.StatusServiceUnavailable {
		t.Fatalf("disabled voice status = %d, want 503", status)
	}

	engine := livekit.New("devkey", "devsecret-devsecret-devsecret-devsecret", "ws://localhost:7880")
	ts, _ = startTestServer(t, testConfig(), newVoiceDeps(t, engine))

	var info callengine.JoinInfo
	if status := doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/api/rooms/r1/voice/token?identity=ana&name=Ana", nil, &info); status != http.StatusOK {
		t.Fatalf("token status = %d", status)
	}
	if info.Token == "" || info.RoomName != "mindora-r1" || info.URL != "ws://localhost:7880" {
		t.Fatalf("unexpected join info: %+v", info)
	}

	if status := doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/api/rooms/r1/voice/token", nil, &errResp); status != http.StatusBadRequest {
		t.Fatalf("missing identity status = %d, want 400", status)
	}
}

func TestVoiceHistoryEndpoint(t *testing.T) {
	ts, _ := startTestServer(t, testConfig(), newVoiceDeps(t, nil))
	base := ts.URL + "/api/rooms/r1/voice"

	var history []VoiceSessionResponse
	if status := doJSON(t, ts.Client(), http.MethodGet, base+"/history", nil, &history); status != http.StatusOK {
		t.Fatalf("empty history status = %d", status)
	}
	if len(history) != 0 {
		t.Fatalf("expected no sessions, got %+v", history)
	}

	var started VoiceSessionResponse
	if status := doJSON(t, ts.Client(), http.MethodPost, base+"/start", StartVoiceRequest{UserID: "ana"}, &started); status != http.StatusCreated {
		t.Fatalf("start status = %d", status)
	}
	if status := doJSON(t, ts.Client(), http.MethodPost, base+"/end", nil, nil); status != http.StatusOK {
		t.Fatalf("end status = %d", status)
	}

	if status := doJSON(t, ts.Client(), http.MethodGet, base+"/history?limit=5", nil, &history); status != http.StatusOK {
		t.Fatalf("history status = %d", status)
	}
	if len(history) != 1 || history[0].SessionID != started.SessionID || history[0].Status != "ended" || history[0].EndedAt == nil {
		t.Fatalf("unexpected history: %+v", history)
	}

	var errResp ErrorResponse
	if status := doJSON(t, ts.Client(), http.MethodGet, base+"/history?limit=lots", nil, &errResp); status != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d", status)
	}
}
