package backend

import (
	"sort"
	"testing"
)

func TestPriorityRankOrder(t *testing.T) {
	prev := -1
	for _, p := range Priorities() {
		r := PriorityRank(p)
		if r <= prev {
			t.Errorf("PriorityRank(%q) = %d, expected greater than %d", p, r, prev)
		}
		prev = r
	}
	if PriorityRank(PriorityImmediate) != 0 {
		t.Errorf("Immediate should rank 0, got %d", PriorityRank(PriorityImmediate))
	}
	if PriorityRank(PriorityRemember) != 9 {
		t.Errorf("Remember should rank 9, got %d", PriorityRank(PriorityRemember))
	}
}

func TestPriorityRankUnknown(t *testing.T) {
	for _, p := range []string{"", "Someday", "quick"} {
		if got := PriorityRank(p); got != UnknownPriorityRank {
			t.Errorf("PriorityRank(%q) = %d, want %d", p, got, UnknownPriorityRank)
		}
	}
}

// TestPriorityRankSortsLikeTable verifies the rank table drives a stable sort
func TestPriorityRankSortsLikeTable(t *testing.T) {
	items := []string{PriorityRemember, PriorityImmediate, PriorityQuick}
	sort.SliceStable(items, func(i, j int) bool { return PriorityRank(items[i]) < PriorityRank(items[j]) })

	want := []string{PriorityImmediate, PriorityQuick, PriorityRemember}
	for i := range want {
		if items[i] != want[i] {
			t.Fatalf("sorted = %v, want %v", items, want)
		}
	}
}

func TestMatchPriority(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{PriorityQuick, PriorityQuick, true},
		{"quick", PriorityQuick, true},
		{"  IMMEDIATE ", PriorityImmediate, true},
		{"1st priority", PriorityFirst, true},
		{"errand", PriorityErrand, true},
		{"urgent", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := MatchPriority(tt.input)
			if ok != tt.ok || got != tt.want {
				t.Errorf("MatchPriority(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestPrioritiesReturnsCopy(t *testing.T) {
	p := Priorities()
	p[0] = "mutated"
	if Priorities()[0] != PriorityImmediate {
		t.Error("Priorities() should return a copy")
	}
}
