package moderation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/humanchat/chatroom/internal/store"
)

// BanStatus is the resolved ban state for a wallet.
type BanStatus struct {
	IsBanned    bool
	IsTemporary bool
	ExpiresAt   *time.Time
	Reason      string
}

type banRecord struct {
	Reason    string `json:"reason"`
	BannedAt  int64  `json:"bannedAt"`
	ExpiresAt int64  `json:"expiresAt,omitempty"`
}

// Bans is the per-wallet ban ledger in the remote store. Temporary bans
// carry a store-enforced expiry; permanent bans supersede and remove any
// temporary record.
type Bans struct {
	store    store.Commander
	duration time.Duration

	now func() time.Time
}

// NewBans builds the ledger. duration is the temporary ban length.
func NewBans(st store.Commander, duration time.Duration) *Bans {
	return &Bans{store: st, duration: duration, now: time.Now}
}

func tempBanKey(wallet string) string { return "user:tempban:" + wallet }
func permBanKey(wallet string) string { return "user:permban:" + wallet }

// ApplyTempBan writes a temporary ban record with the configured duration.
func (b *Bans) ApplyTempBan(ctx context.Context, wallet, reason string) (time.Time, error) {
	if b.store == nil {
		return time.Time{}, store.ErrUnavailable
	}

	now := b.now()
	expiresAt := now.Add(b.duration)
	record := banRecord{
		Reason:    reason,
		BannedAt:  now.UnixMilli(),
		ExpiresAt: expiresAt.UnixMilli(),
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return time.Time{}, fmt.Errorf("internal/moderation: failed to encode ban record: %w", err)
	}

	if err := b.store.SetEx(ctx, tempBanKey(wallet), string(raw), b.duration); err != nil {
		return time.Time{}, fmt.Errorf("internal/moderation: failed to apply temp ban: %w", err)
	}

	return expiresAt, nil
}

// ApplyPermBan writes a permanent ban record, then removes any temporary
// record for the same wallet. The two writes are independent calls; a
// crash between them leaves a redundant temp record that expires on its
// own.
func (b *Bans) ApplyPermBan(ctx context.Context, wallet, reason string) error {
	if b.store == nil {
		return store.ErrUnavailable
	}

	record := banRecord{
		Reason:   reason,
		BannedAt: b.now().UnixMilli(),
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("internal/moderation: failed to encode ban record: %w", err)
	}

	if err := b.store.Set(ctx, permBanKey(wallet), string(raw)); err != nil {
		return fmt.Errorf("internal/moderation: failed to apply perm ban: %w", err)
	}

	if err := b.store.Del(ctx, tempBanKey(wallet)); err != nil {
		return fmt.Errorf("internal/moderation: failed to clear superseded temp ban: %w", err)
	}

	return nil
}

// Status resolves the wallet's ban state, permanent first. A temporary
// record past its expiry is treated as absent and cleaned up in passing.
func (b *Bans) Status(ctx context.Context, wallet string) (BanStatus, error) {
	if b.store == nil {
		return BanStatus{}, store.ErrUnavailable
	}

	permRaw, err := b.store.Get(ctx, permBanKey(wallet))
	if err == nil {
		var record banRecord
		if err := json.Unmarshal([]byte(permRaw), &record); err != nil {
			return BanStatus{}, fmt.Errorf("internal/moderation: failed to decode perm ban: %w", err)
		}
		return BanStatus{IsBanned: true, Reason: record.Reason}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return BanStatus{}, err
	}

	tempRaw, err := b.store.Get(ctx, tempBanKey(wallet))
	if errors.Is(err, store.ErrNotFound) {
		return BanStatus{}, nil
	}
	if err != nil {
		return BanStatus{}, err
	}

	var record banRecord
	if err := json.Unmarshal([]byte(tempRaw), &record); err != nil {
		return BanStatus{}, fmt.Errorf("internal/moderation: failed to decode temp ban: %w", err)
	}

	expiresAt := time.UnixMilli(record.ExpiresAt)
	if record.ExpiresAt != 0 && b.now().After(expiresAt) {
		// Store expiry should have removed this already; clean up anyway.
		if err := b.store.Del(ctx, tempBanKey(wallet)); err != nil {
			return BanStatus{}, err
		}
		return BanStatus{}, nil
	}

	return BanStatus{
		IsBanned:    true,
		IsTemporary: true,
		ExpiresAt:   &expiresAt,
		Reason:      record.Reason,
	}, nil
}
