package room

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/humanchat/chatroom/internal/model"
)

// Client is one live connection. Identity is attached at connect time
// from the trusted admission headers and never re-verified here.
type Client struct {
	ID                string
	Wallet            *string
	Username          *string
	ProfilePictureURL *string
	// IsPrivileged marks a service-to-service caller admitted by the
	// shared secret.
	IsPrivileged bool

	conn *websocket.Conn
	Hub  *Hub
	Send chan any
}

func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		ID:   uuid.NewString(),
		conn: conn,
		Send: make(chan any, 64),
	}
}

// reply queues an envelope for this sender only, dropping it if the
// client cannot keep up.
func (c *Client) reply(envelope any) {
	select {
	case c.Send <- envelope:
	default:
		log.Println("room: dropping reply - channel full or client slow")
	}
}

// ReadMessages pumps inbound frames to the hub until the connection
// drops. Frames from one connection reach the hub in receipt order.
func (c *Client) ReadMessages(ctx context.Context) {
	defer func() {
		c.Hub.Unregister <- c
		c.conn.CloseNow()
	}()

	for {
		msgType, raw, err := c.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure &&
				status != websocket.StatusGoingAway &&
				status != -1 {
				log.Printf("%v", err)
			}
			return
		}

		if msgType != websocket.MessageText {
			continue
		}

		c.Hub.Inbound <- Frame{Client: c, Inbound: model.DecodeInbound(raw)}
	}
}

// WriteMessages marshals queued envelopes onto the socket.
func (c *Client) WriteMessages(ctx context.Context) {
	for {
		select {
		case envelope, ok := <-c.Send:
			if !ok {
				c.conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}

			data, err := json.Marshal(envelope)
			if err != nil {
				slog.ErrorContext(ctx, "failed to encode envelope",
					"error", err,
					"client_id", c.ID)
				continue
			}

			writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			if err := c.conn.Write(writeCtx, websocket.MessageText, data); err != nil {
				slog.WarnContext(ctx, "failed to write to socket",
					"error", err,
					"client_id", c.ID)
			}
			cancel()

		case <-ctx.Done():
			c.conn.Close(websocket.StatusGoingAway, "context cancelled")
			return
		}
	}
}
