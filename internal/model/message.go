// Package model defines the chat message and the JSON wire envelopes.
package model

// ChatMessage is a single persisted chat message. Wallet is nil for the
// privileged service identity. Ts is the server receive time in unix
// milliseconds and determines message order within a room.
type ChatMessage struct {
	ID                string  `json:"id"`
	ClientID          string  `json:"clientId,omitempty"`
	Text              string  `json:"text"`
	Wallet            *string `json:"wallet"`
	Username          *string `json:"username"`
	ProfilePictureURL *string `json:"profilePictureUrl"`
	Ts                int64   `json:"ts"`
}
