package model

import (
	"encoding/json"
	"time"
)

// Envelope type literals shared with the clients.
const (
	TypeChatMessage    = "chat:message"
	TypeChatNew        = "chat:new"
	TypeMessageDeleted = "chat:message:deleted"
	TypeUserWarned     = "chat:user:warned"
	TypeUserBanned     = "chat:user:banned"
	TypeErrValidation  = "error:validation"
	TypeErrRateLimit   = "error:rateLimit"
	TypeErrBanned      = "error:banned"
	TypeErrProtocol    = "error:protocol"
	TypeErrAuth        = "error:auth"
)

// Inbound is the decoded result of a client payload. Exactly one of the
// variant fields is meaningful, selected by Kind. Unknown or malformed
// payloads decode to InboundIgnore instead of an error so a stray frame
// can never take the connection down.
type Inbound struct {
	Kind InboundKind
	Chat InboundChat
}

type InboundKind int

const (
	// InboundIgnore covers malformed JSON, unknown types and non-chat
	// frames. The coordinator drops these silently.
	InboundIgnore InboundKind = iota
	InboundChatMessage
	// InboundLegacyCredential marks a chat frame still carrying a
	// per-message token field. Credentials are connection-scoped; these
	// frames get an explicit protocol error back.
	InboundLegacyCredential
)

type InboundChat struct {
	Text     string
	ClientID string
}

// DecodeInbound classifies a raw client payload into the closed variant
// set. It never returns an error.
func DecodeInbound(raw []byte) Inbound {
	var frame struct {
		Type     string          `json:"type"`
		Text     json.RawMessage `json:"text"`
		ClientID string          `json:"clientId"`
		Token    json.RawMessage `json:"token"`
	}
	if err := json.Unmarshal(raw, &frame); err != nil {
		return Inbound{Kind: InboundIgnore}
	}
	if frame.Type != TypeChatMessage {
		return Inbound{Kind: InboundIgnore}
	}

	if len(frame.Token) > 0 {
		return Inbound{Kind: InboundLegacyCredential}
	}

	var text string
	if err := json.Unmarshal(frame.Text, &text); err != nil {
		return Inbound{Kind: InboundIgnore}
	}

	return Inbound{
		Kind: InboundChatMessage,
		Chat: InboundChat{Text: text, ClientID: frame.ClientID},
	}
}

// Server→client envelopes. Each carries its own type literal so the
// client can render a targeted message; there is no generic catch-all.

type ChatNew struct {
	Type    string      `json:"type"`
	Message ChatMessage `json:"message"`
}

func NewChatNew(msg ChatMessage) ChatNew {
	return ChatNew{Type: TypeChatNew, Message: msg}
}

type MessageDeleted struct {
	Type      string `json:"type"`
	MessageID string `json:"messageId"`
}

func NewMessageDeleted(id string) MessageDeleted {
	return MessageDeleted{Type: TypeMessageDeleted, MessageID: id}
}

type UserWarned struct {
	Type   string `json:"type"`
	Wallet string `json:"wallet"`
	Reason string `json:"reason"`
}

func NewUserWarned(wallet, reason string) UserWarned {
	return UserWarned{Type: TypeUserWarned, Wallet: wallet, Reason: reason}
}

type UserBanned struct {
	Type        string `json:"type"`
	Wallet      string `json:"wallet"`
	Reason      string `json:"reason"`
	IsTemporary bool   `json:"isTemporary"`
	ExpiresAt   *int64 `json:"expiresAt,omitempty"`
}

func NewUserBanned(wallet, reason string, isTemporary bool, expiresAt *time.Time) UserBanned {
	e := UserBanned{
		Type:        TypeUserBanned,
		Wallet:      wallet,
		Reason:      reason,
		IsTemporary: isTemporary,
	}
	if expiresAt != nil {
		ms := expiresAt.UnixMilli()
		e.ExpiresAt = &ms
	}
	return e
}

type ValidationError struct {
	Type    string `json:"type"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func NewValidationError(reason, message string) ValidationError {
	return ValidationError{Type: TypeErrValidation, Reason: reason, Message: message}
}

type RateLimitError struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	RetryAt   int64  `json:"retryAt"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
}

func NewRateLimitError(retryAt time.Time, limit, remaining int) RateLimitError {
	return RateLimitError{
		Type:      TypeErrRateLimit,
		Message:   "Rate limit exceeded",
		RetryAt:   retryAt.UnixMilli(),
		Limit:     limit,
		Remaining: remaining,
	}
}

type BannedError struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsTemporary bool   `json:"isTemporary"`
	ExpiresAt   *int64 `json:"expiresAt,omitempty"`
	Reason      string `json:"reason"`
}

func NewBannedError(reason string, isTemporary bool, expiresAt *time.Time) BannedError {
	e := BannedError{
		Type:        TypeErrBanned,
		Message:     "You are banned from chat",
		IsTemporary: isTemporary,
		Reason:      reason,
	}
	if expiresAt != nil {
		ms := expiresAt.UnixMilli()
		e.ExpiresAt = &ms
	}
	return e
}

type ProtocolError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewProtocolError(message string) ProtocolError {
	return ProtocolError{Type: TypeErrProtocol, Message: message}
}

type AuthError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewAuthError(message string) AuthError {
	return AuthError{Type: TypeErrAuth, Message: message}
}
