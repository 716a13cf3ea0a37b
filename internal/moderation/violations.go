package moderation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/humanchat/chatroom/internal/store"
)

// Action is the disciplinary step chosen for a new infraction.
type Action string

const (
	ActionWarning Action = "warning"
	ActionTempBan Action = "tempBan"
	ActionPermBan Action = "permBan"
)

// ViolationRecord holds a wallet's escalation counters. Counters never
// decrease; permBanned is terminal.
type ViolationRecord struct {
	Warnings      int   `json:"warnings"`
	TempBans      int   `json:"tempBans"`
	PermBanned    bool  `json:"permBanned"`
	LastViolation int64 `json:"lastViolation,omitempty"`
}

// Violations is the per-wallet escalation ledger. The transition
// function, with thresholds W (warnings) and T (temp bans):
//
//	permBanned                     -> permBan (no writes)
//	warnings >= W && tempBans >= T -> permBan
//	warnings >= W                  -> tempBan
//	otherwise                      -> warning
type Violations struct {
	store       store.Commander
	maxWarnings int
	maxTempBans int

	now func() time.Time
}

func NewViolations(st store.Commander, maxWarnings, maxTempBans int) *Violations {
	return &Violations{
		store:       st,
		maxWarnings: maxWarnings,
		maxTempBans: maxTempBans,
		now:         time.Now,
	}
}

func violationKey(wallet string) string { return "user:violations:" + wallet }

// Get returns the wallet's counters, zero-valued when absent.
func (v *Violations) Get(ctx context.Context, wallet string) (ViolationRecord, error) {
	if v.store == nil {
		return ViolationRecord{}, store.ErrUnavailable
	}

	raw, err := v.store.Get(ctx, violationKey(wallet))
	if errors.Is(err, store.ErrNotFound) {
		return ViolationRecord{}, nil
	}
	if err != nil {
		return ViolationRecord{}, err
	}

	var record ViolationRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return ViolationRecord{}, fmt.Errorf("internal/moderation: failed to decode violations: %w", err)
	}
	return record, nil
}

// Record applies one infraction to the wallet's ledger and returns the
// resulting action. A wallet already permanently banned short-circuits
// with no further writes.
func (v *Violations) Record(ctx context.Context, wallet string) (Action, error) {
	record, err := v.Get(ctx, wallet)
	if err != nil {
		return "", err
	}

	if record.PermBanned {
		return ActionPermBan, nil
	}

	var action Action
	switch {
	case record.Warnings >= v.maxWarnings && record.TempBans >= v.maxTempBans:
		record.PermBanned = true
		action = ActionPermBan
	case record.Warnings >= v.maxWarnings:
		record.TempBans++
		action = ActionTempBan
	default:
		record.Warnings++
		action = ActionWarning
	}
	record.LastViolation = v.now().UnixMilli()

	raw, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("internal/moderation: failed to encode violations: %w", err)
	}
	if err := v.store.Set(ctx, violationKey(wallet), string(raw)); err != nil {
		return "", fmt.Errorf("internal/moderation: failed to save violations: %w", err)
	}

	return action, nil
}
