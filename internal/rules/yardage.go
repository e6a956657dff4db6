package rules

// Field is the length of the field on the offense's 0..100 scale.
const Field = 100

// YardsFromTwoDice returns the yardage of a d10-driven play.
// d6=3 gives 3–5, d6=4 gives 10–15, d6=5 gives 21–30; any other d6 gives 0.
func YardsFromTwoDice(d6, d10 int) int {
	switch d6 {
	case 3:
		return 3 + d10/5
	case 4:
		return 10 + d10/2
	case 5:
		return 20 + d10
	default:
		return 0
	}
}

// SackYardLoss returns the (negative) yardage of a sack at ballOn.
// Losses grow with field position so no extra die is consumed.
func SackYardLoss(ballOn int) int {
	switch {
	case ballOn <= 10:
		return -3
	case ballOn <= 25:
		return -5
	case ballOn <= 50:
		return -6
	default:
		return -7
	}
}

// ClampYardsToFieldSpace limits yards so that ballOn+yards stays within [0, Field].
func ClampYardsToFieldSpace(ballOn, yards int) int {
	if maxForward := Field - ballOn; yards > maxForward {
		return maxForward
	}
	if maxBackward := -ballOn; yards < maxBackward {
		return maxBackward
	}
	return yards
}
