package replay

import (
	"github.com/MJE43/gridiron-dice/internal/match"
	"github.com/MJE43/gridiron-dice/internal/play"
	"github.com/MJE43/gridiron-dice/internal/rules"
)

// Stats tracks match-level totals over a run.
type Stats struct {
	Plays      int                      `json:"plays"`
	Outcomes   map[rules.OutcomeKey]int `json:"outcomes"`
	Chaos      map[rules.ChaosKey]int   `json:"chaos"`
	Touchdowns map[match.TeamID]int     `json:"touchdowns"`
	Turnovers  map[match.TeamID]int     `json:"turnovers"`
	NetYards   map[match.TeamID]int     `json:"netYards"`

	LongestGain   int `json:"longestGain"`
	MaxSackStreak int `json:"maxSackStreak"`

	sackStreak int
}

// NewStats creates empty statistics.
func NewStats() *Stats {
	return &Stats{
		Outcomes:   make(map[rules.OutcomeKey]int),
		Chaos:      make(map[rules.ChaosKey]int),
		Touchdowns: make(map[match.TeamID]int),
		Turnovers:  make(map[match.TeamID]int),
		NetYards:   make(map[match.TeamID]int),
	}
}

// Record folds one resolved play into the totals. prior is the state the play
// was resolved against.
func (s *Stats) Record(prior match.State, dice play.Dice, res play.Result) {
	offense := prior.Offense()
	s.Plays++

	if outcome, err := rules.OutcomeForDie6(dice.D6); err == nil {
		s.Outcomes[outcome.Key]++
		// A six carries no yardage event; credit the distance it covered.
		if outcome.Key == rules.Touchdown {
			s.gain(offense, rules.Field-prior.Game.BallOn)
		}
	}

	sacked := false
	for _, e := range res.Events {
		switch e.Type {
		case play.EventSack:
			sacked = true
			s.NetYards[offense] += *e.Yards
		case play.EventShortGain, play.EventChainMover, play.EventBigPlay:
			s.gain(offense, *e.Yards)
		case play.EventTouchdown:
			s.Touchdowns[e.By]++
		case play.EventChaos:
			s.Chaos[e.Result]++
		case play.EventTurnover, play.EventTurnoverOnDowns:
			s.Turnovers[offense]++
		}
	}

	if sacked {
		s.sackStreak++
		s.MaxSackStreak = max(s.MaxSackStreak, s.sackStreak)
	} else {
		s.sackStreak = 0
	}
	if res.State.Offense() != offense {
		s.sackStreak = 0
	}
}

func (s *Stats) gain(team match.TeamID, yards int) {
	s.NetYards[team] += yards
	s.LongestGain = max(s.LongestGain, yards)
}
