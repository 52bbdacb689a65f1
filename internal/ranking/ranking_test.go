package ranking_test

import (
	"testing"

	"cricket-trivia-service/internal/ranking"
)

func TestAssignGapRule(t *testing.T) {
	ranks := ranking.AssignInts([]int{95, 90, 90, 80})
	want := []int{1, 2, 2, 4}
	for i := range want {
		if ranks[i] != want[i] {
			t.Fatalf("ranks = %v, want %v", ranks, want)
		}
	}
}

func TestAssignTieBlockIsNotCompacted(t *testing.T) {
	// Three-way tie for second: positions 2,3,4 share rank 2 and the next
	// distinct score lands at rank 5, not 3.
	ranks := ranking.AssignInts([]int{100, 90, 90, 90, 80})
	want := []int{1, 2, 2, 2, 5}
	for i := range want {
		if ranks[i] != want[i] {
			t.Fatalf("ranks = %v, want %v", ranks, want)
		}
	}
}

func TestAssignAllTied(t *testing.T) {
	ranks := ranking.AssignInts([]int{50, 50, 50})
	for i, rank := range ranks {
		if rank != 1 {
			t.Fatalf("rank %d = %d, want 1", i, rank)
		}
	}
}

func TestAssignEmpty(t *testing.T) {
	if ranks := ranking.AssignInts(nil); len(ranks) != 0 {
		t.Fatalf("expected no ranks, got %v", ranks)
	}
}

func TestAssignFloats(t *testing.T) {
	ranks := ranking.Assign([]float64{88.5, 88.5, 72.25})
	want := []int{1, 1, 3}
	for i := range want {
		if ranks[i] != want[i] {
			t.Fatalf("ranks = %v, want %v", ranks, want)
		}
	}
}

func TestMedal(t *testing.T) {
	cases := map[int]string{1: "🥇", 2: "🥈", 3: "🥉", 4: "", 10: ""}
	for rank, want := range cases {
		if got := ranking.Medal(rank); got != want {
			t.Errorf("Medal(%d) = %q, want %q", rank, got, want)
		}
	}
}
