// Package ranking assigns display ranks to score-ordered leaderboard rows.
package ranking

// Assign applies competition ranking ("1224") to a sequence already ordered
// by score descending. Entries tied with the previous entry inherit its
// rank; the next distinct entry gets its own 1-based position, leaving gaps
// after tie blocks: scores [95,90,90,80] rank as [1,2,2,4].
func Assign(scores []float64) []int {
	ranks := make([]int, len(scores))
	for i := range scores {
		if i > 0 && scores[i] == scores[i-1] {
			ranks[i] = ranks[i-1]
			continue
		}
		ranks[i] = i + 1
	}
	return ranks
}

// AssignInts is Assign for integer score sequences.
func AssignInts(scores []int) []int {
	fs := make([]float64, len(scores))
	for i, s := range scores {
		fs[i] = float64(s)
	}
	return Assign(fs)
}

// Medal maps the podium ranks to their badge. Everything past bronze is
// just the number; the rank values themselves always follow Assign.
func Medal(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return ""
	}
}
