package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantKind InboundKind
		wantText string
	}{
		{"chat_message", `{"type":"chat:message","text":"hello"}`, InboundChatMessage, "hello"},
		{"with_client_id", `{"type":"chat:message","text":"hi","clientId":"c-1"}`, InboundChatMessage, "hi"},
		{"legacy_credential", `{"type":"chat:message","text":"hi","token":"jwt-here"}`, InboundLegacyCredential, ""},
		{"unknown_type", `{"type":"presence:ping"}`, InboundIgnore, ""},
		{"missing_text", `{"type":"chat:message"}`, InboundIgnore, ""},
		{"non_string_text", `{"type":"chat:message","text":42}`, InboundIgnore, ""},
		{"malformed_json", `{"type":"chat:message`, InboundIgnore, ""},
		{"empty_payload", ``, InboundIgnore, ""},
		{"array_payload", `[1,2,3]`, InboundIgnore, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeInbound([]byte(tt.payload))
			if got.Kind != tt.wantKind {
				t.Fatalf("kind = %v, want %v", got.Kind, tt.wantKind)
			}
			if got.Kind == InboundChatMessage && got.Chat.Text != tt.wantText {
				t.Errorf("text = %q, want %q", got.Chat.Text, tt.wantText)
			}
		})
	}
}

func TestDecodeInboundClientID(t *testing.T) {
	got := DecodeInbound([]byte(`{"type":"chat:message","text":"hi","clientId":"c-1"}`))
	if got.Chat.ClientID != "c-1" {
		t.Errorf("clientId = %q, want %q", got.Chat.ClientID, "c-1")
	}
}

func TestEnvelopeTypes(t *testing.T) {
	// Every sender-facing envelope must carry its own distinct type
	// literal so the client can render a targeted message.
	expiry := time.Now().Add(time.Hour)

	envelopes := []struct {
		envelope any
		want     string
	}{
		{NewChatNew(ChatMessage{ID: "m1"}), TypeChatNew},
		{NewMessageDeleted("m1"), TypeMessageDeleted},
		{NewUserWarned("0xw", "spam"), TypeUserWarned},
		{NewUserBanned("0xw", "spam", true, &expiry), TypeUserBanned},
		{NewValidationError("links", "Links are not allowed"), TypeErrValidation},
		{NewRateLimitError(expiry, 5, 0), TypeErrRateLimit},
		{NewBannedError("spam", false, nil), TypeErrBanned},
		{NewProtocolError("nope"), TypeErrProtocol},
		{NewAuthError("nope"), TypeErrAuth},
	}

	seen := make(map[string]bool)
	for _, tt := range envelopes {
		raw, err := json.Marshal(tt.envelope)
		if err != nil {
			t.Fatalf("marshal %T: %+v", tt.envelope, err)
		}

		var decoded struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("unmarshal %T: %+v", tt.envelope, err)
		}
		if decoded.Type != tt.want {
			t.Errorf("%T type = %q, want %q", tt.envelope, decoded.Type, tt.want)
		}
		if seen[decoded.Type] {
			t.Errorf("duplicate type literal %q", decoded.Type)
		}
		seen[decoded.Type] = true
	}
}

func TestBannedErrorOmitsExpiryWhenPermanent(t *testing.T) {
	raw, err := json.Marshal(NewBannedError("spam", false, nil))
	if err != nil {
		t.Fatalf("marshal: %+v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %+v", err)
	}
	if _, ok := decoded["expiresAt"]; ok {
		t.Error("permanent ban error should omit expiresAt")
	}
}
