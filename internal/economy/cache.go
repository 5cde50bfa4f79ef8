package economy

import (
	"context"
	"sync"
	"time"
)

// viewCache is the optional read-only projection the worker refreshes
// periodically. It is never consulted for balance-affecting decisions;
// mutating actions always re-read authoritative state.
type viewCache struct {
	mu          sync.RWMutex
	refreshedAt time.Time
	fabrics     map[Key]FabricView
	boards      map[string][]LeaderboardEntry // guildID -> ranked rows
	global      []LeaderboardEntry
}

// Refresh recomputes every cached fabric view and per-guild leaderboard from
// one full listing.
func (s *Service) Refresh(ctx context.Context) error {
	accounts, err := s.store.List(ctx, ListFilter{})
	if err != nil {
		return err
	}
	now := time.Now()

	fabrics := make(map[Key]FabricView, len(accounts))
	byGuild := make(map[string][]Account)
	for i := range accounts {
		a := accounts[i]
		fabrics[Key{UserID: a.UserID, GuildID: a.GuildID}] = DeriveFabric(&a, now)
		byGuild[a.GuildID] = append(byGuild[a.GuildID], a)
	}
	boards := make(map[string][]LeaderboardEntry, len(byGuild))
	for gid, accs := range byGuild {
		boards[gid] = Rank(accs, nil, 0)
	}
	global := Rank(accounts, nil, 0)

	s.cache.mu.Lock()
	s.cache.refreshedAt = now
	s.cache.fabrics = fabrics
	s.cache.boards = boards
	s.cache.global = global
	s.cache.mu.Unlock()

	s.log.Info("view cache refreshed", "accounts", len(accounts), "guilds", len(byGuild))
	return nil
}

// CachedLeaderboard serves the last refreshed ranking. ok is false when the
// cache has never been filled.
func (s *Service) CachedLeaderboard(guildID *string, limit int) ([]LeaderboardEntry, time.Time, bool) {
	s.cache.mu.RLock()
	defer s.cache.mu.RUnlock()
	if s.cache.refreshedAt.IsZero() {
		return nil, time.Time{}, false
	}
	rows := s.cache.global
	if guildID != nil {
		rows = s.cache.boards[*guildID]
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	out := append([]LeaderboardEntry(nil), rows...)
	return out, s.cache.refreshedAt, true
}

// CachedFabric serves the last refreshed fabric view for one account.
func (s *Service) CachedFabric(userID, guildID string) (FabricView, bool) {
	s.cache.mu.RLock()
	defer s.cache.mu.RUnlock()
	v, ok := s.cache.fabrics[Key{UserID: userID, GuildID: guildID}]
	return v, ok
}
