package match

import "github.com/MJE43/gridiron-dice/internal/rules"

// ApplyYards moves the ball by yards, clamped to the field, and recomputes goal-to-go.
func ApplyYards(s State, yards int) State {
	n := s.Clone()
	n.Game.BallOn = ClampBallOn(n.Game.BallOn + yards)
	n.Game.GoalToGo = IsGoalToGo(n.Game.BallOn)
	return n
}

// AdvanceDown charges gainedYards against the distance. Reaching the line
// awards a fresh first and ten; otherwise the down goes up, never past fourth.
// Inside the opponent's 10 the distance becomes the distance to the goal line.
func AdvanceDown(s State, gainedYards int) State {
	n := s.Clone()
	toGo := max(0, n.Game.ToGo-gainedYards)
	if toGo <= 0 {
		n.Game.Down = 1
		n.Game.ToGo = firstDownToGo
	} else {
		n.Game.Down = min(4, n.Game.Down+1)
		n.Game.ToGo = toGo
	}

	n.Game.GoalToGo = IsGoalToGo(n.Game.BallOn)
	if n.Game.GoalToGo {
		n.Game.ToGo = max(1, rules.Field-n.Game.BallOn)
	}
	return n
}

// AwardScore adds points to a team.
func AwardScore(s State, team TeamID, points int) State {
	n := s.Clone()
	t := n.Teams[team]
	t.Score += points
	n.Teams[team] = t
	return n
}

// ChangePossession hands the ball to the defense. Without a spot the field
// position is mirrored (100 - ballOn); with one the ball is placed there.
// The new offense starts first and ten with a clean sack streak.
func ChangePossession(s State, spot *int) State {
	n := s.Clone()
	ballOn := rules.Field - n.Game.BallOn
	if spot != nil {
		ballOn = *spot
	}
	n.Game.BallOn = ClampBallOn(ballOn)
	n.Game.Possession = n.Game.Possession.Opponent()
	n.Game.Down = 1
	n.Game.ToGo = firstDownToGo
	n.Game.GoalToGo = IsGoalToGo(n.Game.BallOn)

	n.Memory.SackStreak = 0
	n.Memory.LastPlay = &PlayMemo{Type: "POSSESSION_CHANGE"}
	n.Memory.LastOutcomeD6 = nil
	return n
}

// KickoffSpot is where the receiving team starts after a score.
func KickoffSpot() *int {
	spot := kickoffBallOn
	return &spot
}

// SetPossession gives the ball to team without moving it.
func SetPossession(s State, team TeamID) State {
	n := s.Clone()
	n.Game.Possession = team
	n.Game.Down = 1
	n.Game.ToGo = firstDownToGo
	n.Game.GoalToGo = IsGoalToGo(n.Game.BallOn)
	n.Memory.SackStreak = 0
	return n
}

// SetClock sets the game clock, floored at zero.
func SetClock(s State, clockSec int) State {
	n := s.Clone()
	n.Game.ClockSec = max(0, clockSec)
	return n
}

// RunClock takes seconds off the game clock. Negative values are ignored and
// the clock stops at zero; quarter rollover is left to the host.
func RunClock(s State, seconds int) State {
	n := s.Clone()
	n.Game.ClockSec = max(0, n.Game.ClockSec-max(0, seconds))
	return n
}

// RecordPlay remembers the latest play for narration.
func RecordPlay(s State, playType string, yards, d6 int) State {
	n := s.Clone()
	n.Memory.LastPlay = &PlayMemo{Type: playType, Yards: yards}
	n.Memory.LastOutcomeD6 = &d6
	return n
}

// SetSackStreak overwrites the consecutive-sack counter.
func SetSackStreak(s State, streak int) State {
	n := s.Clone()
	n.Memory.SackStreak = max(0, streak)
	return n
}

// AppendLog prepends a play-by-play line. The entry's id and timestamp come
// from src, keyed by the entry's 1-based sequence number in the match.
func AppendLog(s State, src EntrySource, text string) State {
	n := s.Clone()
	id, ts := src.NextEntry(len(n.Log) + 1)
	n.Log = append([]LogEntry{{ID: id, TS: ts, Text: text}}, n.Log...)
	return n
}
