package domain

import (
	"slices"
	"time"
)

type LeaderboardEntry struct {
	Username     string
	MessageCount int
	LastActive   time.Time
}

// SortLeaderboard orders entries by message count, most active first,
// ties broken by the most recent activity.
func SortLeaderboard(entries []LeaderboardEntry) {
	slices.SortStableFunc(entries, func(a, b LeaderboardEntry) int {
		if a.MessageCount != b.MessageCount {
			return b.MessageCount - a.MessageCount
		}
		return b.LastActive.Compare(a.LastActive)
	})
}
