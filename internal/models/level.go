package models

// XPPerLevelStep is the xp cost of completing level 1; level L costs L times this
const XPPerLevelStep = 500

// MaxPoints caps coins, xp and totalPoints. Level thresholds stay far from
// int overflow below it.
const MaxPoints = 1 << 40

// MaxLevel is the level reached at MaxPoints xp
var MaxLevel = LevelForXP(MaxPoints)

// LevelForXP derives the level from cumulative xp.
// Starting at level 1, each level L costs 500*L xp to complete.
func LevelForXP(xp int) int {
	level := 1
	remaining := clampPoints(xp)
	for remaining >= XPPerLevelStep*level {
		remaining -= XPPerLevelStep * level
		level++
	}
	return level
}

// LevelThreshold is the cumulative xp at which level is reached
func LevelThreshold(level int) int {
	if level <= 1 {
		return 0
	}
	level = clampLevel(level)
	return XPPerLevelStep * level * (level - 1) / 2
}

// XPForNextLevel returns the xp still needed to go from level to level+1
func XPForNextLevel(xp, level int) int {
	level = clampLevel(level)
	return XPPerLevelStep*level - (xp - LevelThreshold(level))
}

// LevelProgressPercent returns the filled share of the current level band, 0-100
func LevelProgressPercent(xp, level int) float64 {
	level = clampLevel(level)
	band := XPPerLevelStep * level
	if band <= 0 {
		return 0
	}
	return float64(xp-LevelThreshold(level)) / float64(band) * 100
}

func clampPoints(v int) int {
	switch {
	case v < 0:
		return 0
	case v > MaxPoints:
		return MaxPoints
	default:
		return v
	}
}

func clampLevel(level int) int {
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}
