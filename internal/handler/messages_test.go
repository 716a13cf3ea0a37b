package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/humanchat/chatroom/internal/chatlog"
	"github.com/humanchat/chatroom/internal/model"
	"github.com/humanchat/chatroom/internal/store"
)

func seedLog(t *testing.T, n int) *chatlog.Log {
	t.Helper()

	chatLog := chatlog.New(store.NewMemory(), "test")
	for i := 0; i < n; i++ {
		msg := model.ChatMessage{
			ID:   fmt.Sprintf("msg-%d", i),
			Text: fmt.Sprintf("message %d", i),
			Ts:   int64(1000 + i),
		}
		if err := chatLog.Append(context.Background(), msg); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	return chatLog
}

func TestServeMessages(t *testing.T) {
	handler := ServeMessages(seedLog(t, 80), 50)

	decode := func(t *testing.T, rec *httptest.ResponseRecorder) (msgs []model.ChatMessage, hasMore bool) {
		t.Helper()
		var resp struct {
			Messages []model.ChatMessage `json:"messages"`
			HasMore  bool                `json:"hasMore"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		return resp.Messages, resp.HasMore
	}

	t.Run("recent_without_params", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/messages", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		msgs, _ := decode(t, rec)
		if len(msgs) != 50 {
			t.Fatalf("got %d messages, want 50", len(msgs))
		}
		if msgs[0].ID != "msg-30" || msgs[49].ID != "msg-79" {
			t.Errorf("window = %s..%s, want msg-30..msg-79", msgs[0].ID, msgs[49].ID)
		}
	})

	t.Run("before_pages_older_entries", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/messages?before=1030&limit=20", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		msgs, hasMore := decode(t, rec)
		if len(msgs) != 20 {
			t.Fatalf("got %d messages, want 20", len(msgs))
		}
		if msgs[19].Ts != 1029 {
			t.Errorf("newest ts = %d, want 1029", msgs[19].Ts)
		}
		if !hasMore {
			t.Error("hasMore = false, want true")
		}
	})

	t.Run("before_reaches_start", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/messages?before=1005&limit=20", nil))

		msgs, hasMore := decode(t, rec)
		if len(msgs) != 5 {
			t.Fatalf("got %d messages, want 5", len(msgs))
		}
		if hasMore {
			t.Error("hasMore = true, want false")
		}
	})

	t.Run("empty_log_returns_empty_array", func(t *testing.T) {
		empty := ServeMessages(chatlog.New(store.NewMemory(), "test"), 50)
		rec := httptest.NewRecorder()
		empty(rec, httptest.NewRequest(http.MethodGet, "/messages", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		msgs, _ := decode(t, rec)
		if msgs == nil || len(msgs) != 0 {
			t.Errorf("messages = %v, want empty slice", msgs)
		}
	})

	t.Run("bad_requests", func(t *testing.T) {
		cases := []struct {
			name   string
			method string
			target string
			want   int
		}{
			{"post_rejected", http.MethodPost, "/messages", http.StatusMethodNotAllowed},
			{"limit_not_a_number", http.MethodGet, "/messages?limit=abc", http.StatusBadRequest},
			{"limit_zero", http.MethodGet, "/messages?limit=0", http.StatusBadRequest},
			{"limit_above_cap", http.MethodGet, "/messages?limit=51", http.StatusBadRequest},
			{"before_not_a_number", http.MethodGet, "/messages?before=yesterday", http.StatusBadRequest},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				rec := httptest.NewRecorder()
				handler(rec, httptest.NewRequest(tc.method, tc.target, nil))
				if rec.Code != tc.want {
					t.Errorf("status = %d, want %d", rec.Code, tc.want)
				}
			})
		}
	})
}
