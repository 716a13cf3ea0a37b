// Package room is the connection coordinator: the single authority for
// who is connected and what gets broadcast.
package room

import (
	"context"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/humanchat/chatroom/internal/chatlog"
	"github.com/humanchat/chatroom/internal/model"
	"github.com/humanchat/chatroom/internal/moderation"
	"github.com/humanchat/chatroom/internal/ratelimit"
	"github.com/humanchat/chatroom/internal/validation"
)

type sanitizer interface {
	Sanitize(s string) string
}

// Judge is the moderation decision surface the hub needs.
type Judge interface {
	Moderate(ctx context.Context, text string) moderation.Verdict
}

type Registration struct {
	Client *Client
	Done   chan struct{}
}

// Frame is one decoded client payload routed through the hub.
type Frame struct {
	Client  *Client
	Inbound model.Inbound
}

// Options carries the hub's policy knobs.
type Options struct {
	MaxMessageLength int
	// FailOpenBanCheck lets a message through when the ban ledger cannot
	// be read. Deliberate: chat availability over strict enforcement
	// during a store outage.
	FailOpenBanCheck bool
	// FailOpenRateLimit lets a message through when the limiter's store
	// call fails mid-check.
	FailOpenRateLimit bool
}

// Hub owns the live connection set and runs the per-message protocol.
// All state is touched only by the Run goroutine.
type Hub struct {
	log        *chatlog.Log
	limiter    *ratelimit.Fixed
	judge      Judge
	bans       *moderation.Bans
	violations *moderation.Violations
	sanitizer  sanitizer
	opts       Options

	clients    map[string]*Client
	Register   chan Registration
	Unregister chan *Client
	Inbound    chan Frame
	// Broadcast carries envelopes produced outside the Run goroutine,
	// notably by detached moderation pipelines.
	Broadcast chan any

	// lastTs keeps message timestamps monotonically non-decreasing
	// within the room.
	lastTs int64

	now func() time.Time
}

func NewHub(
	chatLog *chatlog.Log,
	limiter *ratelimit.Fixed,
	judge Judge,
	bans *moderation.Bans,
	violations *moderation.Violations,
	opts Options,
) *Hub {
	return &Hub{
		log:        chatLog,
		limiter:    limiter,
		judge:      judge,
		bans:       bans,
		violations: violations,
		sanitizer:  bluemonday.StrictPolicy(),
		opts:       opts,
		clients:    make(map[string]*Client),
		Register:   make(chan Registration),
		Unregister: make(chan *Client),
		Inbound:    make(chan Frame, 1024),
		Broadcast:  make(chan any, 1024),
		now:        time.Now,
	}
}

// Run manages registration, inbound frames and broadcasts until ctx is
// canceled. It is the only goroutine that reads or writes the clients
// map.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case reg := <-h.Register:
			client := reg.Client
			h.clients[client.ID] = client
			client.Hub = h
			close(reg.Done)

		case client := <-h.Unregister:
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
			}

		case frame := <-h.Inbound:
			h.handleFrame(ctx, frame)

		case envelope := <-h.Broadcast:
			h.broadcast(envelope)

		case <-ctx.Done():
			log.Printf("room: context cancelled: %v", ctx.Err())
			return
		}
	}
}

// broadcast fans an envelope out to every connection. Slow clients are
// skipped rather than allowed to stall the room.
func (h *Hub) broadcast(envelope any) {
	for _, client := range h.clients {
		select {
		case client.Send <- envelope:
		default:
			log.Println("room: skipping envelope - channel full or client slow")
		}
	}
}

// handleFrame runs the per-message gate pipeline: ban, validation, rate
// limit, then commit and optimistic broadcast. Gate failures are
// terminal for this one message only and reported to the sender alone.
func (h *Hub) handleFrame(ctx context.Context, frame Frame) {
	client := frame.Client

	switch frame.Inbound.Kind {
	case model.InboundIgnore:
		slog.DebugContext(ctx, "discarding unparseable frame", "client", client.ID)
		return
	case model.InboundLegacyCredential:
		client.reply(model.NewProtocolError("Per-message credentials are no longer accepted"))
		return
	case model.InboundChatMessage:
	default:
		return
	}

	// Ban gate.
	if client.Wallet != nil {
		status, err := h.bans.Status(ctx, *client.Wallet)
		switch {
		case err != nil && h.opts.FailOpenBanCheck:
			slog.WarnContext(ctx, "ban check failed, letting message through",
				"wallet", *client.Wallet, "error", err)
		case err != nil:
			slog.ErrorContext(ctx, "ban check failed, dropping message",
				"wallet", *client.Wallet, "error", err)
			return
		case status.IsBanned:
			client.reply(model.NewBannedError(
				moderation.FormatReason(status.Reason), status.IsTemporary, status.ExpiresAt))
			return
		}
	}

	// Validation gate.
	text := strings.TrimSpace(frame.Inbound.Chat.Text)
	if runes := []rune(text); len(runes) > h.opts.MaxMessageLength {
		text = string(runes[:h.opts.MaxMessageLength])
	}
	if text == "" {
		return
	}
	if reason := validation.Reason(text); reason != "" {
		client.reply(model.NewValidationError(reason, "Message contains prohibited content"))
		return
	}

	// Rate-limit gate. Identity falls back to a per-connection key for
	// anonymous senders.
	limitKey := "conn:" + client.ID
	if client.Wallet != nil {
		limitKey = *client.Wallet
	}
	result, err := h.limiter.Check(ctx, limitKey)
	if err != nil {
		if !h.opts.FailOpenRateLimit {
			slog.ErrorContext(ctx, "rate limit check failed, dropping message",
				"key", limitKey, "error", err)
			return
		}
		slog.WarnContext(ctx, "rate limit check failed, letting message through",
			"key", limitKey, "error", err)
	} else if !result.Allowed {
		client.reply(model.NewRateLimitError(result.Reset, result.Limit, result.Remaining))
		return
	}

	// Commit: persist, then broadcast before moderation completes.
	msg := model.ChatMessage{
		ID:                uuid.NewString(),
		ClientID:          frame.Inbound.Chat.ClientID,
		Text:              h.sanitizer.Sanitize(text),
		Wallet:            client.Wallet,
		Username:          client.Username,
		ProfilePictureURL: client.ProfilePictureURL,
		Ts:                h.nextTs(),
	}

	if err := h.log.Append(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "failed to persist message", "id", msg.ID, "error", err)
		return
	}

	h.broadcast(model.NewChatNew(msg))

	// Post-commit moderation runs detached: it must not block the sender
	// and has no cancellation once started.
	go h.moderate(context.WithoutCancel(ctx), msg)
}

// nextTs returns the receive timestamp, clamped to be non-decreasing.
func (h *Hub) nextTs() int64 {
	ts := h.now().UnixMilli()
	if ts < h.lastTs {
		ts = h.lastTs
	}
	h.lastTs = ts
	return ts
}

// moderate is the detached pipeline: judge, delete, retract, escalate,
// ban, notify. Each failure is logged and aborts only the remaining
// steps; nothing already broadcast is undone and no failure produces a
// ban.
func (h *Hub) moderate(ctx context.Context, msg model.ChatMessage) {
	verdict := h.judge.Moderate(ctx, msg.Text)
	if !verdict.Flagged {
		return
	}

	slog.InfoContext(ctx, "message flagged",
		"id", msg.ID, "reason", verdict.Reason, "categories", verdict.Categories)

	if err := h.log.Delete(ctx, msg.ID); err != nil {
		slog.ErrorContext(ctx, "failed to delete flagged message", "id", msg.ID, "error", err)
		return
	}
	h.Broadcast <- model.NewMessageDeleted(msg.ID)

	// Escalation needs a wallet to pin the record to; anonymous and
	// service senders stop at retraction.
	if msg.Wallet == nil {
		return
	}
	wallet := *msg.Wallet

	action, err := h.violations.Record(ctx, wallet)
	if err != nil {
		slog.ErrorContext(ctx, "failed to record violation", "wallet", wallet, "error", err)
		return
	}

	reason := moderation.FormatReason(verdict.Reason)

	switch action {
	case moderation.ActionWarning:
		h.Broadcast <- model.NewUserWarned(wallet, reason)

	case moderation.ActionTempBan:
		expiresAt, err := h.bans.ApplyTempBan(ctx, wallet, verdict.Reason)
		if err != nil {
			slog.ErrorContext(ctx, "failed to apply temp ban", "wallet", wallet, "error", err)
			return
		}
		h.Broadcast <- model.NewUserBanned(wallet, reason, true, &expiresAt)

	case moderation.ActionPermBan:
		if err := h.bans.ApplyPermBan(ctx, wallet, verdict.Reason); err != nil {
			slog.ErrorContext(ctx, "failed to apply perm ban", "wallet", wallet, "error", err)
			return
		}
		h.Broadcast <- model.NewUserBanned(wallet, reason, false, nil)
	}
}
