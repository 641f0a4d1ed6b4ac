package main

import "sort"

const scoreMultiplier = 10000.0

// Score derives the ranking value for one player: answer accuracy divided by
// average answer time, scaled. A player with no answers or no recorded time
// yet scores zero instead of dividing by zero.
func Score(r PlayerResults) uint {
	answered := r.CorrectAnswerCount + r.WrongAnswerCount
	if answered == 0 || r.AverageAnswerTime == 0 {
		return 0
	}
	accuracy := float64(r.CorrectAnswerCount) / float64(answered)
	return uint(accuracy / float64(r.AverageAnswerTime) * scoreMultiplier)
}

// buildLeaderboard ranks results best first. Ties keep a stable name order so
// consecutive refreshes do not shuffle equal players.
func buildLeaderboard(results []PlayerResults) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(results))
	for _, r := range results {
		entries = append(entries, LeaderboardEntry{Username: r.Username, Score: Score(r)})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Username < entries[j].Username
	})
	return entries
}
