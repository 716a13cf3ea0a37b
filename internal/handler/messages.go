package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/humanchat/chatroom/internal/chatlog"
	"github.com/humanchat/chatroom/internal/model"
)

type messagesResponse struct {
	Messages []model.ChatMessage `json:"messages"`
	HasMore  bool                `json:"hasMore"`
}

// ServeMessages returns chat history. Without parameters it returns the
// most recent defaultLimit messages; with ?before=<ts> it pages through
// older entries.
func ServeMessages(chatLog *chatlog.Log, defaultLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		ctx := r.Context()

		limit := defaultLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 || parsed > defaultLimit {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		var resp messagesResponse
		if raw := r.URL.Query().Get("before"); raw != "" {
			beforeTs, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				http.Error(w, "invalid before timestamp", http.StatusBadRequest)
				return
			}

			messages, hasMore, err := chatLog.Before(ctx, beforeTs, limit)
			if err != nil {
				log.Printf("[error] failed to load messages: %v", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			resp = messagesResponse{Messages: messages, HasMore: hasMore}
		} else {
			messages, err := chatLog.Recent(ctx, limit)
			if err != nil {
				log.Printf("[error] failed to load messages: %v", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			resp = messagesResponse{Messages: messages}
		}

		if resp.Messages == nil {
			resp.Messages = []model.ChatMessage{}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Printf("[error] failed to encode response: %v", err)
		}
	}
}
