package relay

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

const (
	sendBuffer   = 64
	pingInterval = 15 * time.Second
)

// Client is one websocket connection known to the hub. room, name and
// playerKey are owned by the hub and guarded by its mutex.
type Client struct {
	ID   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	room      string
	name      string
	playerKey string
}

func newClient(h *Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
}

// ServeWS upgrades the request to a websocket and runs the connection
// until the peer goes away. It blocks for the lifetime of the
// connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.WithError(err).Warn("websocket accept failed")
		return
	}

	c := newClient(h, conn)
	h.register(c)
	defer h.unregister(c)

	ctx := r.Context()
	go c.writePump(ctx)
	c.readLoop(ctx)
}

// readLoop feeds inbound frames to the hub until the connection dies.
func (c *Client) readLoop(ctx context.Context) {
	defer c.conn.Close(websocket.StatusNormalClosure, "")
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		c.hub.handle(c, data)
	}
}

// writePump drains the send channel onto the wire and keeps the
// connection alive with pings. It exits when the channel is closed by
// unregister or the context ends.
func (c *Client) writePump(ctx context.Context) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		case <-ping.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
