package economy

import (
	"context"
	"fmt"
	"log/slog"
	mathrand "math/rand"
	"sync"
	"time"
)

// Options tunes the gated grants and the transfer behavior. Zero values fall
// back to the historical defaults.
type Options struct {
	WorkTimeout  time.Duration
	WorkMin      int64
	WorkMax      int64
	DailyTimeout time.Duration
	DailyMin     int64
	DailyMax     int64

	// SafeTransfers re-credits the source wallet when the credit half of a
	// transfer fails. The historical debit-then-credit behavior (no
	// compensation) is the default.
	SafeTransfers bool
}

func (o *Options) withDefaults() Options {
	out := Options{}
	if o != nil {
		out = *o
	}
	if out.WorkTimeout <= 0 {
		out.WorkTimeout = 5 * time.Hour
	}
	if out.WorkMax <= 0 {
		out.WorkMin, out.WorkMax = 50, 150
	}
	if out.DailyTimeout <= 0 {
		out.DailyTimeout = 20 * time.Hour
	}
	if out.DailyMax <= 0 {
		out.DailyMin, out.DailyMax = 150, 350
	}
	return out
}

// Service is the cooldown-gated action dispatcher over a storage adapter.
// Every action re-reads authoritative state; the only cross-call state held
// here is the read-only view cache maintained by Refresh.
type Service struct {
	store Storage
	log   *slog.Logger
	opts  Options

	mu   sync.Mutex
	rand *mathrand.Rand

	cache viewCache
}

func NewService(store Storage, logger *slog.Logger, opts *Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store: store,
		log:   logger,
		opts:  opts.withDefaults(),
		rand:  mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
	}
}

// randIn returns a uniform integer in [min, max].
func (s *Service) randIn(min, max int64) int64 {
	if max <= min {
		return min
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return min + s.rand.Int63n(max-min+1)
}

func key(userID, guildID string) Key {
	return Key{UserID: userID, GuildID: guildID}
}

// Fetch returns the account or (nil, ErrAccountNotFound). It never creates.
func (s *Service) Fetch(ctx context.Context, userID, guildID string) (*Account, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	acc, err := s.store.Get(ctx, key(userID, guildID))
	if err != nil {
		return nil, fmt.Errorf("fetch account: %w", err)
	}
	if acc == nil {
		return nil, ErrAccountNotFound
	}
	return acc, nil
}

// Ensure is the idempotent get-or-create access and the only path that
// creates accounts.
func (s *Service) Ensure(ctx context.Context, userID, guildID string) (*Account, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	k := key(userID, guildID)
	acc, err := s.store.Get(ctx, k)
	if err != nil {
		return nil, fmt.Errorf("ensure account: %w", err)
	}
	if acc != nil {
		return acc, nil
	}
	acc = NewAccount(userID, guildID)
	if err := s.store.Set(ctx, k, acc); err != nil {
		return nil, fmt.Errorf("ensure account: %w", err)
	}
	s.log.Info("account created", "user_id", userID, "guild_id", guildID)
	return acc, nil
}

// Delete removes the account record entirely.
func (s *Service) Delete(ctx context.Context, userID, guildID string) (*Account, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	acc, err := s.store.Delete(ctx, key(userID, guildID))
	if err != nil {
		return nil, fmt.Errorf("delete account: %w", err)
	}
	if acc == nil {
		return nil, ErrAccountNotFound
	}
	return acc, nil
}

// ResetAccount rewrites the record with all-default fields, keeping the key.
func (s *Service) ResetAccount(ctx context.Context, userID, guildID string) (*Account, error) {
	if _, err := s.Fetch(ctx, userID, guildID); err != nil {
		return nil, err
	}
	acc := NewAccount(userID, guildID)
	if err := s.store.Set(ctx, key(userID, guildID), acc); err != nil {
		return nil, fmt.Errorf("reset account: %w", err)
	}
	return acc, nil
}

// List returns a snapshot of accounts, optionally scoped to one guild.
// guildID "" lists the global scope.
func (s *Service) List(ctx context.Context, guildID string, all bool) ([]Account, error) {
	filter := ListFilter{}
	if !all {
		filter.GuildID = &guildID
	}
	accounts, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}
