package register

import "testing"

func TestRiskTableKnownCells(t *testing.T) {
	cases := []struct {
		likelihood, consequence int
		level                   Level
		rank                    int
	}{
		{1, 1, LevelLow, 1},
		{1, 5, LevelModerate, 12},
		{3, 3, LevelModerate, 14},
		{5, 3, LevelHigh, 20},
		{5, 5, LevelHigh, 25},
		{2, 3, LevelModerate, 11},
		{4, 1, LevelModerate, 7},
	}
	for _, tc := range cases {
		got := RiskTable.Classify(tc.likelihood, tc.consequence)
		if got.Level != tc.level || got.Rank != tc.rank {
			t.Errorf("risk (%d,%d): got %s/%d, want %s/%d",
				tc.likelihood, tc.consequence, got.Level, got.Rank, tc.level, tc.rank)
		}
	}
}

func TestRiskRanksAreABijection(t *testing.T) {
	seen := map[int]bool{}
	for a := 1; a <= 5; a++ {
		for b := 1; b <= 5; b++ {
			r := RiskTable.Classify(a, b)
			if r.Rank < 1 || r.Rank > 25 {
				t.Fatalf("rank out of range at (%d,%d): %d", a, b, r.Rank)
			}
			if seen[r.Rank] {
				t.Fatalf("duplicate rank %d at (%d,%d)", r.Rank, a, b)
			}
			seen[r.Rank] = true
		}
	}
	if len(seen) != 25 {
		t.Fatalf("expected 25 distinct ranks, got %d", len(seen))
	}
}

func TestTablesAreTotal(t *testing.T) {
	for _, table := range []*RatingTable{RiskTable, IssueTable, OpportunityTable} {
		for a := 1; a <= 5; a++ {
			for b := 1; b <= 5; b++ {
				r := table.Classify(a, b)
				switch r.Level {
				case LevelLow, LevelModerate, LevelHigh:
				default:
					t.Fatalf("missing level at (%d,%d)", a, b)
				}
				if r.Rank < 1 || r.Rank > 25 {
					t.Fatalf("rank out of range at (%d,%d): %d", a, b, r.Rank)
				}
			}
		}
	}
}

func TestClassifyClampsOutOfRangeInputs(t *testing.T) {
	low := RiskTable.Classify(0, -3)
	if want := RiskTable.Classify(1, 1); low != want {
		t.Errorf("below-range clamp: got %+v, want %+v", low, want)
	}
	high := RiskTable.Classify(9, 100)
	if want := RiskTable.Classify(5, 5); high != want {
		t.Errorf("above-range clamp: got %+v, want %+v", high, want)
	}
}

func TestIssueTableDependsOnlyOnConsequence(t *testing.T) {
	wantRanks := []int{8, 16, 20, 23, 25}
	wantLevels := []Level{LevelLow, LevelLow, LevelLow, LevelModerate, LevelModerate}
	for c := 1; c <= 5; c++ {
		r := IssueTable.Classify(1, c)
		if r.Rank != wantRanks[c-1] || r.Level != wantLevels[c-1] {
			t.Errorf("issue consequence %d: got %s/%d, want %s/%d",
				c, r.Level, r.Rank, wantLevels[c-1], wantRanks[c-1])
		}
		// Rows are identical; the likelihood input must not matter.
		for l := 2; l <= 5; l++ {
			if got := IssueTable.Classify(l, c); got != r {
				t.Errorf("issue (%d,%d) differs from (1,%d): %+v vs %+v", l, c, c, got, r)
			}
		}
	}
}

func TestOpportunityTableBands(t *testing.T) {
	cases := []struct {
		likelihood, impact int
		level              Level
	}{
		{1, 1, LevelLow},
		{2, 2, LevelLow},
		{1, 5, LevelModerate},
		{5, 1, LevelModerate},
		{3, 3, LevelModerate},
		{2, 5, LevelHigh},
		{5, 5, LevelHigh},
	}
	for _, tc := range cases {
		if got := OpportunityTable.Classify(tc.likelihood, tc.impact); got.Level != tc.level {
			t.Errorf("opportunity (%d,%d): got %s, want %s", tc.likelihood, tc.impact, got.Level, tc.level)
		}
	}
}

func TestDescriptorRatingUsesKindScorePair(t *testing.T) {
	risk, _ := DescriptorFor(KindRisk)
	if got := risk.RatingOf(3, 3, 0); got.Rank != 14 {
		t.Errorf("risk pair: got rank %d, want 14", got.Rank)
	}
	issue, _ := DescriptorFor(KindIssue)
	if got := issue.RatingOf(0, 4, 0); got.Rank != 23 {
		t.Errorf("issue pair: got rank %d, want 23", got.Rank)
	}
	opp, _ := DescriptorFor(KindOpportunity)
	if got := opp.RatingOf(2, 0, 5); got.Level != LevelHigh {
		t.Errorf("opportunity pair: got %s, want high", got.Level)
	}
}
