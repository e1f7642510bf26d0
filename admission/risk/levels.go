package risk

// Level is the ordinal risk classification derived from a 0-100 score. Note
// that "elevated" sits between low and medium.
type Level int

const (
	LevelLow Level = iota
	LevelElevated
	LevelMedium
	LevelHigh
)

// Score thresholds for each level.
const (
	highFloor     = 80
	mediumFloor   = 60
	elevatedFloor = 40
)

func LevelFromScore(score int) Level {
	switch {
	case score >= highFloor:
		return LevelHigh
	case score >= mediumFloor:
		return LevelMedium
	case score >= elevatedFloor:
		return LevelElevated
	default:
		return LevelLow
	}
}

func (l Level) String() string {
	switch l {
	case LevelHigh:
		return "high"
	case LevelMedium:
		return "medium"
	case LevelElevated:
		return "elevated"
	default:
		return "low"
	}
}

// ParseLevel maps a stored level name back to its ordinal; unknown strings
// parse as low.
func ParseLevel(s string) Level {
	switch s {
	case "high":
		return LevelHigh
	case "medium":
		return LevelMedium
	case "elevated":
		return LevelElevated
	default:
		return LevelLow
	}
}
