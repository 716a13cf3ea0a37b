// Package chatlog is the append-only per-room message history: a list in
// the remote store plus a pointer to the most recent entry.
package chatlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/humanchat/chatroom/internal/model"
	"github.com/humanchat/chatroom/internal/store"
)

// ErrMessageNotFound is returned by Delete for an unknown message id.
var ErrMessageNotFound = errors.New("internal/chatlog: message not found")

// Log reads and writes one room's message history.
type Log struct {
	store store.Commander
	// prefix namespaces the keys, e.g. "mainnet:chat:messages".
	listKey string
	lastKey string
}

func New(st store.Commander, prefix string) *Log {
	return &Log{
		store:   st,
		listKey: fmt.Sprintf("%s:chat:messages", prefix),
		lastKey: fmt.Sprintf("%s:chat:last", prefix),
	}
}

// Append pushes msg onto the room list and rewrites the last-message
// pointer for cheap latest reads.
func (l *Log) Append(ctx context.Context, msg model.ChatMessage) error {
	if l.store == nil {
		return store.ErrUnavailable
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("internal/chatlog: failed to encode message %s: %w", msg.ID, err)
	}

	if err := l.store.RPush(ctx, l.listKey, string(raw)); err != nil {
		return fmt.Errorf("internal/chatlog: failed to append message %s: %w", msg.ID, err)
	}
	if err := l.store.Set(ctx, l.lastKey, string(raw)); err != nil {
		return fmt.Errorf("internal/chatlog: failed to update last pointer: %w", err)
	}

	return nil
}

// Recent returns the most recent limit messages in ascending ts order.
func (l *Log) Recent(ctx context.Context, limit int) ([]model.ChatMessage, error) {
	if l.store == nil {
		return nil, store.ErrUnavailable
	}

	items, err := l.store.LRange(ctx, l.listKey, int64(-limit), -1)
	if err != nil {
		return nil, fmt.Errorf("internal/chatlog: failed to read recent messages: %w", err)
	}
	return decodeMessages(items), nil
}

// Before returns up to limit messages strictly older than beforeTs in
// ascending order, and whether older entries remain beyond the page.
func (l *Log) Before(ctx context.Context, beforeTs int64, limit int) ([]model.ChatMessage, bool, error) {
	if l.store == nil {
		return nil, false, store.ErrUnavailable
	}

	items, err := l.store.LRange(ctx, l.listKey, 0, -1)
	if err != nil {
		return nil, false, fmt.Errorf("internal/chatlog: failed to read messages: %w", err)
	}

	var older []model.ChatMessage
	for _, msg := range decodeMessages(items) {
		if msg.Ts < beforeTs {
			older = append(older, msg)
		}
	}

	sort.Slice(older, func(i, j int) bool { return older[i].Ts > older[j].Ts })

	hasMore := len(older) > limit
	if len(older) > limit {
		older = older[:limit]
	}

	// Back to ascending for the client.
	for i, j := 0, len(older)-1; i < j; i, j = i+1, j-1 {
		older[i], older[j] = older[j], older[i]
	}

	return older, hasMore, nil
}

// Last returns the most recent message, or store.ErrNotFound if the log
// is empty.
func (l *Log) Last(ctx context.Context) (model.ChatMessage, error) {
	if l.store == nil {
		return model.ChatMessage{}, store.ErrUnavailable
	}

	raw, err := l.store.Get(ctx, l.lastKey)
	if err != nil {
		return model.ChatMessage{}, err
	}

	var msg model.ChatMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return model.ChatMessage{}, fmt.Errorf("internal/chatlog: failed to decode last message: %w", err)
	}
	return msg, nil
}

// Delete removes the message with the given id and recomputes the
// last-message pointer. The rewrite is a fetch, a DEL and a re-push of
// every surviving entry: O(n) and not atomic. Two deletes racing on the
// same list can drop each other's rewrite; acceptable while moderation
// deletions stay rare relative to message volume.
func (l *Log) Delete(ctx context.Context, id string) error {
	if l.store == nil {
		return store.ErrUnavailable
	}

	items, err := l.store.LRange(ctx, l.listKey, 0, -1)
	if err != nil {
		return fmt.Errorf("internal/chatlog: failed to read messages: %w", err)
	}

	var survivors []string
	found := false
	for _, item := range items {
		var msg model.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			// Keep undecodable entries rather than silently dropping them.
			survivors = append(survivors, item)
			continue
		}
		if msg.ID == id {
			found = true
			continue
		}
		survivors = append(survivors, item)
	}

	if !found {
		return ErrMessageNotFound
	}

	if err := l.store.Del(ctx, l.listKey); err != nil {
		return fmt.Errorf("internal/chatlog: failed to clear list for rewrite: %w", err)
	}
	if len(survivors) > 0 {
		if err := l.store.RPush(ctx, l.listKey, survivors...); err != nil {
			return fmt.Errorf("internal/chatlog: failed to rewrite list: %w", err)
		}
		if err := l.store.Set(ctx, l.lastKey, survivors[len(survivors)-1]); err != nil {
			return fmt.Errorf("internal/chatlog: failed to update last pointer: %w", err)
		}
	} else {
		if err := l.store.Del(ctx, l.lastKey); err != nil {
			return fmt.Errorf("internal/chatlog: failed to clear last pointer: %w", err)
		}
	}

	return nil
}

func decodeMessages(items []string) []model.ChatMessage {
	messages := make([]model.ChatMessage, 0, len(items))
	for _, item := range items {
		var msg model.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			slog.Warn("skipping undecodable chat log entry", "error", err)
			continue
		}
		messages = append(messages, msg)
	}
	return messages
}
