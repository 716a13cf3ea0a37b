// Package handler wires the room to HTTP.
package handler

import (
	"log"
	"net/http"

	"github.com/coder/websocket"

	"github.com/humanchat/chatroom/internal/auth"
	"github.com/humanchat/chatroom/internal/room"
)

// ServeWs upgrades the connection and registers the client with the hub.
// Identity comes from the trusted headers set by the admission
// middleware; it is not re-verified here.
func ServeWs(h *room.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Read identity before the upgrade consumes the request.
		wallet := r.Header.Get(auth.HeaderWallet)
		username := r.Header.Get(auth.HeaderUsername)
		privileged := r.Header.Get(auth.HeaderService) == "1"

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			log.Printf("failed to upgrade connection: %v", err)
			return
		}

		ctx := r.Context()

		c := room.NewClient(conn)
		c.IsPrivileged = privileged
		if wallet != "" {
			c.Wallet = &wallet
		}
		if username != "" {
			c.Username = &username
		}

		reg := room.Registration{
			Client: c,
			Done:   make(chan struct{}),
		}

		h.Register <- reg

		// Wait for registration to complete.
		<-reg.Done

		// Block on the read pump: the request context is canceled as soon
		// as this handler returns.
		go c.WriteMessages(ctx)
		c.ReadMessages(ctx)
	}
}
