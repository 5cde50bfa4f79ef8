package economy

import (
	"context"
	"fmt"
	"time"
)

// CooldownErr discriminates a grant result. Empty means the grant fired.
type CooldownErr string

const CooldownDenied CooldownErr = "COOLDOWN"

// Remaining is a decomposed duration for presentation. Positive leftovers
// round toward zero per unit; negative (already-eligible) inputs round the
// other way so an eligible action never shows a negative leftover.
type Remaining struct {
	Days         int64 `json:"days"`
	Hours        int64 `json:"hours"`
	Minutes      int64 `json:"minutes"`
	Seconds      int64 `json:"seconds"`
	Milliseconds int64 `json:"milliseconds"`
}

// DecomposeRemaining splits d into calendar-ish units. Floor toward zero for
// positive inputs, ceiling toward zero for negative ones.
func DecomposeRemaining(d time.Duration) Remaining {
	// Integer division truncates toward zero, which is floor for positive
	// leftovers and ceiling for negative ones.
	ms := d.Milliseconds()
	return Remaining{
		Days:         ms / 86_400_000,
		Hours:        ms / 3_600_000 % 24,
		Minutes:      ms / 60_000 % 60,
		Seconds:      ms / 1_000 % 60,
		Milliseconds: ms % 1_000,
	}
}

// GrantResult is the discriminated outcome of a timed grant. On denial the
// account snapshot is unchanged and Remaining carries the leftover cooldown.
type GrantResult struct {
	Err       CooldownErr `json:"err,omitempty"`
	Account   *Account    `json:"account"`
	Amount    int64       `json:"amount,omitempty"`
	Remaining *Remaining  `json:"remaining,omitempty"`
}

type grant struct {
	name     string
	field    Field
	lastAt   func(*Account) *time.Time
	timeout  time.Duration
	min, max int64
}

// Work pays a uniform random amount into the wallet, gated on the work timer.
func (s *Service) Work(ctx context.Context, userID, guildID string) (*GrantResult, error) {
	return s.runGrant(ctx, userID, guildID, grant{
		name:    "work",
		field:   FieldTimeoutWork,
		lastAt:  func(a *Account) *time.Time { return a.Timeouts.Work },
		timeout: s.opts.WorkTimeout,
		min:     s.opts.WorkMin,
		max:     s.opts.WorkMax,
	})
}

// Daily pays the daily grant into the wallet, gated on its own timer.
func (s *Service) Daily(ctx context.Context, userID, guildID string) (*GrantResult, error) {
	return s.runGrant(ctx, userID, guildID, grant{
		name:    "daily",
		field:   FieldTimeoutDaily,
		lastAt:  func(a *Account) *time.Time { return a.Timeouts.Daily },
		timeout: s.opts.DailyTimeout,
		min:     s.opts.DailyMin,
		max:     s.opts.DailyMax,
	})
}

func (s *Service) runGrant(ctx context.Context, userID, guildID string, g grant) (*GrantResult, error) {
	acc, err := s.Fetch(ctx, userID, guildID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if last := g.lastAt(acc); last != nil {
		elapsed := now.Sub(*last)
		if elapsed < g.timeout {
			left := DecomposeRemaining(g.timeout - elapsed)
			return &GrantResult{Err: CooldownDenied, Account: acc, Remaining: &left}, nil
		}
	}

	payout := s.randIn(g.min, g.max)
	k := key(userID, guildID)
	if err := s.store.SetField(ctx, k, g.field, now); err != nil {
		return nil, fmt.Errorf("%s stamp: %w", g.name, err)
	}
	if err := s.store.Increment(ctx, k, FieldWallet, payout); err != nil {
		return nil, fmt.Errorf("%s payout: %w", g.name, err)
	}

	updated, err := s.Fetch(ctx, userID, guildID)
	if err != nil {
		return nil, err
	}
	s.log.Info("grant paid", "grant", g.name, "user_id", userID, "guild_id", guildID, "amount", payout)
	return &GrantResult{Account: updated, Amount: payout}, nil
}
