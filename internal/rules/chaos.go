package rules

// Situation is the slice of match state the chaos triggers look at.
// Scores are from the offense's point of view.
type Situation struct {
	Quarter      int
	ClockSec     int
	BallOn       int
	SackStreak   int
	OffenseScore int
	DefenseScore int
}

const (
	lateHalfSec      = 120
	trailingLateSec  = 300
	midfield         = 50
	goalLineDanger   = 3
	turnoverProneMax = 20
)

// IsLateHalf reports the last two minutes of the second or fourth quarter.
func IsLateHalf(quarter, clockSec int) bool {
	return (quarter == 2 || quarter == 4) && clockSec <= lateHalfSec
}

// IsOwnTerritory reports whether the ball is on the offense's side of midfield.
func IsOwnTerritory(ballOn int) bool { return ballOn < midfield }

// IsGoalLineDanger reports an offense pinned at its own goal line.
func IsGoalLineDanger(ballOn int) bool { return ballOn <= goalLineDanger }

// IsTurnoverProne reports an offense backed up inside its own 20.
func IsTurnoverProne(ballOn int) bool { return ballOn <= turnoverProneMax }

// IsTrailingLate reports the offense behind in the fourth quarter with five minutes or less left.
func IsTrailingLate(s Situation) bool {
	if s.Quarter != 4 || s.ClockSec > trailingLateSec {
		return false
	}
	return s.OffenseScore < s.DefenseScore
}

// IsChaosRequired reports whether the play needs a d20 chaos roll.
// Conditions are OR'd; a play asks for chaos at most once.
func IsChaosRequired(s Situation, outcome OutcomeKey) bool {
	if outcome == Sack {
		switch {
		case IsOwnTerritory(s.BallOn),
			IsGoalLineDanger(s.BallOn),
			s.SackStreak >= 1,
			IsLateHalf(s.Quarter, s.ClockSec),
			IsTrailingLate(s):
			return true
		}
	}
	return IsTurnoverProne(s.BallOn)
}

// ChaosKey identifies a d20 chaos effect.
type ChaosKey string

const (
	ChaosTurnover      ChaosKey = "TURNOVER"
	ChaosNearTurnover  ChaosKey = "NEAR_TURNOVER"
	ChaosPenalty       ChaosKey = "PENALTY"
	ChaosHardHit       ChaosKey = "HARD_HIT"
	ChaosClean         ChaosKey = "CLEAN"
	ChaosMomentum      ChaosKey = "MOMENTUM"
	ChaosDefMistake    ChaosKey = "DEF_MISTAKE"
	ChaosAbsoluteChaos ChaosKey = "ABSOLUTE_CHAOS"
)

// ChaosEffect is one band of the d20 chaos table.
type ChaosEffect struct {
	Min   int      `json:"min"`
	Max   int      `json:"max"`
	Key   ChaosKey `json:"key"`
	Label string   `json:"label"`
}

var chaosTable = []ChaosEffect{
	{Min: 1, Max: 1, Key: ChaosTurnover, Label: "Turnover (fumble/INT)"},
	{Min: 2, Max: 3, Key: ChaosNearTurnover, Label: "Near turnover (offense recovers)"},
	{Min: 4, Max: 5, Key: ChaosPenalty, Label: "Penalty (usually holding)"},
	{Min: 6, Max: 8, Key: ChaosHardHit, Label: "No chaos (hard hit only)"},
	{Min: 9, Max: 15, Key: ChaosClean, Label: "Clean play"},
	{Min: 16, Max: 18, Key: ChaosMomentum, Label: "Momentum swing"},
	{Min: 19, Max: 19, Key: ChaosDefMistake, Label: "Defensive mistake / bonus"},
	{Min: 20, Max: 20, Key: ChaosAbsoluteChaos, Label: "Absolute chaos (huge swing)"},
}

// ChaosEffectForDie20 maps a d20 value to its chaos effect.
// Values outside 1..20 fall back to the CLEAN band.
func ChaosEffectForDie20(d20 int) ChaosEffect {
	for _, e := range chaosTable {
		if d20 >= e.Min && d20 <= e.Max {
			return e
		}
	}
	return chaosTable[4]
}

// ChaosTable returns a copy of the d20 bands in die order.
func ChaosTable() []ChaosEffect {
	out := make([]ChaosEffect, len(chaosTable))
	copy(out, chaosTable)
	return out
}
