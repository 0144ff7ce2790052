package core

const (
	clientCommandBuffer = 16
	clientEventBuffer   = 64
)

// Client is one live connection as seen by the core layer. Display names are
// supplied per join and live in the registry, not here.
type Client struct {
	ID       string
	Commands chan *Command
	Events   chan *Event

	done chan struct{}
}

// NewClient constructs a client with initialized channels.
func NewClient(id string) *Client {
	return &Client{
		ID:       id,
		Commands: make(chan *Command, clientCommandBuffer),
		Events:   make(chan *Event, clientEventBuffer),
		done:     make(chan struct{}),
	}
}

// Done is closed once the hub has dropped the client.
func (c *Client) Done() <-chan struct{} {
	return c.done
}
