package economy

import (
	"context"
	"sort"
)

// LeaderboardEntry is one ranked row of an account snapshot.
type LeaderboardEntry struct {
	Pos     int64  `json:"pos"`
	UserID  string `json:"user_id"`
	GuildID string `json:"guild_id,omitempty"`
	Bank    int64  `json:"bank"`
	Wallet  int64  `json:"wallet"`
}

// Rank sorts a snapshot by bank descending, stable so ties keep their
// original relative order, assigns 1-based positions, and truncates to limit
// when positive. Pure; the input slice is not modified.
func Rank(accounts []Account, guildFilter *string, limit int) []LeaderboardEntry {
	snapshot := make([]Account, 0, len(accounts))
	for _, a := range accounts {
		if guildFilter != nil && a.GuildID != *guildFilter {
			continue
		}
		snapshot = append(snapshot, a)
	}
	sort.SliceStable(snapshot, func(i, j int) bool {
		return snapshot[i].Bank > snapshot[j].Bank
	})

	out := make([]LeaderboardEntry, 0, len(snapshot))
	for i, a := range snapshot {
		out = append(out, LeaderboardEntry{
			Pos:     int64(i) + 1,
			UserID:  a.UserID,
			GuildID: a.GuildID,
			Bank:    a.Bank,
			Wallet:  a.Wallet,
		})
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Leaderboard lists accounts through the adapter and ranks the snapshot.
// A nil guildID ranks across every scope.
func (s *Service) Leaderboard(ctx context.Context, guildID *string, limit int) ([]LeaderboardEntry, error) {
	accounts, err := s.store.List(ctx, ListFilter{GuildID: guildID})
	if err != nil {
		return nil, err
	}
	return Rank(accounts, nil, limit), nil
}
