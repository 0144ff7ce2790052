package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// mustNoEvent fails if an event of kind arrives on ch within d.
func mustNoEvent(t *testing.T, ch <-chan *Event, kind EventKind, d time.Duration) {
	t.Helper()

	timer := time.NewTimer(d)
	defer timer.Stop()
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event %v: %+v", kind, ev)
			}
		case <-timer.C:
			return
		}
	}
}

func startHub(t *testing.T, opts ...Option) (*Hub, context.Context) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	hub := NewHub(opts...)
	go hub.Run(ctx)
	return hub, ctx
}

// joinAndWait registers c, joins room and waits for its own presence update.
func joinAndWait(t *testing.T, hub *Hub, c *Client, room, name string) {
	t.Helper()

	hub.RegisterClient(c)
	c.Commands <- &Command{Kind: CommandJoinRoom, Room: room, UserName: name}
	mustEvent(t, c.Events, EventOnlineUsers)
}

func memberNames(members []Member) []string {
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.DisplayName)
	}
	return names
}

// fakeMentions answers every observed text starting with "@" from a goroutine.
type fakeMentions struct {
	mu       sync.Mutex
	observed []string
	delay    time.Duration
	answer   string
}

func (f *fakeMentions) Observe(_ context.Context, room, text string, reply func(sender, text string)) bool {
	f.mu.Lock()
	f.observed = append(f.observed, room+":"+text)
	f.mu.Unlock()

	if len(text) == 0 || text[0] != '@' {
		return false
	}
	go func() {
		time.Sleep(f.delay)
		reply("Mindora AI", f.answer)
	}()
	return true
}

func (f *fakeMentions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.observed)
}
