package domain

// LevelThresholds maps levels to the cumulative XP required to reach them.
// Index i holds the threshold of level i+1.
var LevelThresholds = []int{0, 100, 250, 500, 800, 1200, 1700, 2300, 3000, 4000}

// MaxLevel is the highest reachable level.
func MaxLevel() int { return len(LevelThresholds) }

// Rank is display metadata for a level.
type Rank struct {
	Title string `json:"title"`
	Tier  string `json:"tier"`
	Color string `json:"color"`
}

var ranks = []Rank{
	{Title: "Rookie", Tier: "bronze", Color: "#cd7f32"},
	{Title: "Prospect", Tier: "bronze", Color: "#cd7f32"},
	{Title: "Contender", Tier: "silver", Color: "#c0c0c0"},
	{Title: "Competitor", Tier: "silver", Color: "#c0c0c0"},
	{Title: "Starter", Tier: "gold", Color: "#ffd700"},
	{Title: "Varsity", Tier: "gold", Color: "#ffd700"},
	{Title: "All-Star", Tier: "platinum", Color: "#5fb3b3"},
	{Title: "Captain", Tier: "platinum", Color: "#5fb3b3"},
	{Title: "Elite", Tier: "diamond", Color: "#7ec8e3"},
	{Title: "Champion", Tier: "legend", Color: "#9b59b6"},
}

// LevelForXP returns the highest 1-based level whose threshold is <= xp.
func LevelForXP(xp int) int {
	level := 1
	for i, t := range LevelThresholds {
		if xp >= t {
			level = i + 1
		}
	}
	return level
}

// LevelProgress returns how far xp is between its level's threshold and the
// next one, as a percentage in [0, 100]. At the max level it is 100.
func LevelProgress(xp int) float64 {
	level := LevelForXP(xp)
	if level >= MaxLevel() {
		return 100
	}
	cur := LevelThresholds[level-1]
	next := LevelThresholds[level]
	p := float64(xp-cur) / float64(next-cur) * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// RankFor returns the rank of level, clamped to the table.
func RankFor(level int) Rank {
	if level < 1 {
		level = 1
	}
	if level > len(ranks) {
		level = len(ranks)
	}
	return ranks[level-1]
}

// Progress is a user's XP position on the level table.
type Progress struct {
	XP            int     `json:"xp"`
	Level         int     `json:"level"`
	Rank          Rank    `json:"rank"`
	Percent       float64 `json:"percent"`
	NextThreshold int     `json:"nextThreshold"`
}

// ProgressFor derives the full progress view from xp.
func ProgressFor(xp int) Progress {
	level := LevelForXP(xp)
	next := LevelThresholds[len(LevelThresholds)-1]
	if level < MaxLevel() {
		next = LevelThresholds[level]
	}
	return Progress{
		XP:            xp,
		Level:         level,
		Rank:          RankFor(level),
		Percent:       LevelProgress(xp),
		NextThreshold: next,
	}
}
