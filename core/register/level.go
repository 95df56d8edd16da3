package register

// Level is the severity band derived from an entity's ordinal scores. The
// UI renames opportunity bands (Good/Very Good/Excellent); the core only
// ever stores the canonical three.
type Level string

const (
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
)

// Rating pairs the severity band with the 1-25 rank used for trend ordering.
type Rating struct {
	Level Level `json:"level"`
	Rank  int   `json:"rank"`
}

// RatingTable is a fixed 5x5 lookup keyed by the two clamped scores. The
// rank assignment follows the historical ranking convention and is not
// derivable from a product of the scores; do not "simplify" these tables.
type RatingTable struct {
	levels [5][5]Level
	ranks  [5][5]int
}

// Classify is total: out-of-range inputs are clamped into [1,5], never
// rejected.
func (t *RatingTable) Classify(a, b int) Rating {
	a, b = ClampScore(a), ClampScore(b)
	return Rating{Level: t.levels[a-1][b-1], Rank: t.ranks[a-1][b-1]}
}

func ClampScore(v int) int {
	if v < 1 {
		return 1
	}
	if v > 5 {
		return 5
	}
	return v
}

// rankGrid assigns each of the 25 cells a unique rank; shared by the risk
// and opportunity tables. Rows are the first score (likelihood), columns the
// second (consequence or impact).
var rankGrid = [5][5]int{
	{1, 3, 5, 9, 12},
	{2, 4, 11, 15, 17},
	{6, 10, 14, 19, 21},
	{7, 13, 18, 22, 24},
	{8, 16, 20, 23, 25},
}

const (
	l = LevelLow
	m = LevelModerate
	h = LevelHigh
)

// RiskTable maps likelihood x consequence.
var RiskTable = &RatingTable{
	ranks: rankGrid,
	levels: [5][5]Level{
		{l, l, l, m, m},
		{l, l, m, m, h},
		{l, m, m, h, h},
		{m, m, h, h, h},
		{m, h, h, h, h},
	},
}

// OpportunityTable maps likelihood x impact. Same ranks as RiskTable, its
// own band grid: both scores <=2 is low, a 5 paired with at least a 2 is
// high, everything else (including the 1/5 corners) is moderate.
var OpportunityTable = &RatingTable{
	ranks: rankGrid,
	levels: [5][5]Level{
		{l, l, m, m, m},
		{l, l, m, m, h},
		{m, m, m, m, h},
		{m, m, m, m, h},
		{m, h, h, h, h},
	},
}

// IssueTable classifies by consequence alone: an issue has already
// happened, so likelihood is pinned at 5's rank row while the band split is
// deliberately coarser than risk's (consequence 1-3 low, 4-5 moderate).
// Every row is identical so the pinned first score cannot change the result.
var IssueTable = &RatingTable{
	ranks: [5][5]int{
		{8, 16, 20, 23, 25},
		{8, 16, 20, 23, 25},
		{8, 16, 20, 23, 25},
		{8, 16, 20, 23, 25},
		{8, 16, 20, 23, 25},
	},
	levels: [5][5]Level{
		{l, l, l, m, m},
		{l, l, l, m, m},
		{l, l, l, m, m},
		{l, l, l, m, m},
		{l, l, l, m, m},
	},
}
