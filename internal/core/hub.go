package core

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/mindora/relay-server/internal/metrics"
)

// ErrHubStopped is returned by calls made after Run has exited.
var ErrHubStopped = errors.New("hub stopped")

// Mentions inspects chat messages and may answer some of them later.
type Mentions interface {
	// Observe is called for every chat message after it has been broadcast. It
	// must not block; reply may be invoked later from another goroutine.
	Observe(ctx context.Context, room, text string, reply func(sender, text string)) bool
}

type inbound struct {
	client *Client
	cmd    *Command
}

type roomEvent struct {
	room  string
	event *Event
}

type memberQuery struct {
	room  string
	reply chan []Member
}

// Hub is the relay's event loop. A single goroutine (Run) owns the registry and
// the client set; everything else talks to it over channels.
type Hub struct {
	registry *Registry
	clients  map[string]*Client

	register   chan *Client
	unregister chan *Client
	inbox      chan inbound
	broadcasts chan roomEvent
	queries    chan memberQuery
	done       chan struct{}

	mentions Mentions
	metrics  *metrics.Metrics
	log      *zerolog.Logger
	now      func() time.Time
}

// Option customises a Hub.
type Option func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.log = logger
		}
	}
}

// WithMentions enables the assistant relay for chat messages.
func WithMentions(m Mentions) Option {
	return func(h *Hub) { h.mentions = m }
}

// WithMetrics records hub activity.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Hub) { h.metrics = m }
}

// WithClock overrides the time source used for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

// NewHub creates a new relay hub. Call Run to start it.
func NewHub(opts ...Option) *Hub {
	nop := zerolog.Nop()
	h := &Hub{
		registry:   NewRegistry(),
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbox:      make(chan inbound, 256),
		broadcasts: make(chan roomEvent, 64),
		queries:    make(chan memberQuery),
		done:       make(chan struct{}),
		log:        &nop,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run processes hub traffic until ctx is cancelled. On exit every client is
// dropped and its Events channel closed.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.handleRegister(ctx, c)
		case c := <-h.unregister:
			h.disconnect(c)
		case in := <-h.inbox:
			h.handleCommand(ctx, in.client, in.cmd)
		case re := <-h.broadcasts:
			h.broadcastToRoom(re.room, re.event)
		case q := <-h.queries:
			q.reply <- h.registry.Members(q.room)
		}
	}
}

// Done is closed once Run has returned and every client was dropped.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// RegisterClient attaches a client to the hub and starts forwarding its commands.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// UnregisterClient removes the client from every room. Unknown clients are ignored.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues an event for every member of room. Safe for any goroutine.
func (h *Hub) Broadcast(ctx context.Context, room string, ev *Event) error {
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}
	select {
	case h.broadcasts <- roomEvent{room: room, event: ev}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubStopped
	}
}

// Members returns the current members of room as seen by the hub goroutine.
func (h *Hub) Members(ctx context.Context, room string) ([]Member, error) {
	q := memberQuery{room: room, reply: make(chan []Member, 1)}
	select {
	case h.queries <- q:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		return nil, ErrHubStopped
	}
	select {
	case members := <-q.reply:
		return members, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) handleRegister(ctx context.Context, c *Client) {
	if _, exists := h.clients[c.ID]; exists {
		h.log.Warn().Str("client_id", c.ID).Msg("client already registered")
		return
	}
	h.clients[c.ID] = c
	h.metrics.ClientConnected()
	h.log.Debug().Str("client_id", c.ID).Msg("client registered")

	go h.pump(ctx, c)
}

// pump forwards one client's commands into the hub inbox, preserving their order.
func (h *Hub) pump(ctx context.Context, c *Client) {
	for {
		select {
		case cmd := <-c.Commands:
			if cmd == nil {
				continue
			}
			select {
			case h.inbox <- inbound{client: c, cmd: cmd}:
			case <-c.done:
				return
			case <-ctx.Done():
				return
			}
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) handleCommand(ctx context.Context, c *Client, cmd *Command) {
	// Commands can still be in flight after their client was dropped.
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	h.metrics.EventHandled(cmd.Kind.String())

	switch cmd.Kind {
	case CommandJoinRoom:
		h.join(c, cmd.Room, cmd.UserName)
	case CommandSendMessage:
		h.sendMessage(ctx, c, cmd)
	case CommandDrawAction:
		h.relayToOthers(cmd.Room, c.ID, &Event{Kind: EventDrawAction, Room: cmd.Room, Draw: cmd.Draw})
	case CommandCursorMove:
		h.relayToOthers(cmd.Room, c.ID, &Event{Kind: EventCursorMove, Room: cmd.Room, Cursor: cmd.Cursor})
	default:
		h.log.Warn().Str("client_id", c.ID).Int("kind", int(cmd.Kind)).Msg("unknown command")
	}
}

// join moves the client into room. Joining a second room leaves the first one.
func (h *Hub) join(c *Client, room, name string) {
	if current, ok := h.registry.RoomOf(c.ID); ok && current != room {
		for _, left := range h.registry.Unregister(c.ID) {
			h.publishPresence(left)
		}
		h.log.Debug().Str("client_id", c.ID).Str("from", current).Str("room", room).Msg("client switched rooms")
	}

	added := h.registry.Register(room, c.ID, name)
	h.metrics.SetRooms(h.registry.RoomCount())
	h.publishPresence(room)
	if added {
		h.relayToOthers(room, c.ID, &Event{Kind: EventUserJoined, Room: room, UserName: name})
		h.log.Info().Str("client_id", c.ID).Str("room", room).Str("user", name).Msg("user joined room")
	}
}

func (h *Hub) sendMessage(ctx context.Context, c *Client, cmd *Command) {
	h.broadcastToRoom(cmd.Room, &Event{
		Kind: EventReceiveMessage,
		Room: cmd.Room,
		Message: ChatMessage{
			Sender: cmd.UserName,
			Text:   cmd.Text,
			Time:   h.timestamp(),
		},
	})

	if h.mentions == nil {
		return
	}
	// Only members may ask the assistant on a room's behalf.
	if room, ok := h.registry.RoomOf(c.ID); !ok || room != cmd.Room {
		return
	}
	room := cmd.Room
	h.mentions.Observe(ctx, room, cmd.Text, func(sender, text string) {
		ev := &Event{
			Kind:    EventReceiveMessage,
			Room:    room,
			Message: ChatMessage{Sender: sender, Text: text, Time: h.timestamp()},
		}
		if err := h.Broadcast(ctx, room, ev); err != nil {
			h.log.Debug().Err(err).Str("room", room).Msg("assistant reply not delivered")
		}
	})
}

// disconnect drops the client and refreshes presence for the rooms it was in.
func (h *Hub) disconnect(c *Client) {
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	delete(h.clients, c.ID)
	close(c.done)
	close(c.Events)
	h.metrics.ClientDisconnected()

	rooms := h.registry.Unregister(c.ID)
	h.metrics.SetRooms(h.registry.RoomCount())
	for _, room := range rooms {
		h.publishPresence(room)
	}
	h.log.Debug().Str("client_id", c.ID).Strs("rooms", rooms).Msg("client disconnected")
}

func (h *Hub) publishPresence(room string) {
	members := h.registry.Members(room)
	if len(members) == 0 {
		return
	}
	h.broadcastToRoom(room, &Event{Kind: EventOnlineUsers, Room: room, Users: members})
}

// broadcastToRoom delivers ev to every member of room, the originator included.
func (h *Hub) broadcastToRoom(room string, ev *Event) {
	for _, m := range h.registry.Members(room) {
		h.deliver(m.ConnectionID, ev)
	}
}

// relayToOthers delivers ev to every member of room except origin.
func (h *Hub) relayToOthers(room, origin string, ev *Event) {
	for _, m := range h.registry.Members(room) {
		if m.ConnectionID == origin {
			continue
		}
		h.deliver(m.ConnectionID, ev)
	}
}

func (h *Hub) deliver(clientID string, ev *Event) {
	c, ok := h.clients[clientID]
	if !ok {
		return
	}
	select {
	case c.Events <- ev:
	default:
		// Drop if slow consumer.
		h.metrics.EventDropped()
		h.log.Debug().Str("client_id", clientID).Str("room", ev.Room).Msg("client buffer full, event dropped")
	}
}

func (h *Hub) timestamp() string {
	return h.now().Format("15:04")
}

func (h *Hub) shutdown() {
	for id, c := range h.clients {
		close(c.done)
		close(c.Events)
		delete(h.clients, id)
	}
	h.registry = NewRegistry()
	close(h.done)
}
