package scripting

import (
	"errors"
	"fmt"

	"github.com/MJE43/gridiron-dice/internal/match"
	"github.com/MJE43/gridiron-dice/internal/play"
	"github.com/MJE43/gridiron-dice/internal/rules"
)

const (
	d6Sides  = 6
	d10Sides = 10
	d20Sides = 20
)

// Source feeds dice rolled by a script to the replay runner.
type Source struct {
	vm *VM
}

// NewSource compiles source into a fresh VM seeded with seed.
func NewSource(source string, seed int64) (*Source, error) {
	vm := NewVM(seed)
	if err := vm.Execute(source); err != nil {
		return nil, err
	}
	return &Source{vm: vm}, nil
}

// NextPlay rolls a d6, plus a d10 when the outcome needs one. The d20 is only
// rolled if the resolver asks for it. ok is false once the script has stopped.
func (s *Source) NextPlay(st match.State) (play.Dice, bool, error) {
	d6, err := s.roll("d6", d6Sides, st)
	if errors.Is(err, ErrStopped) {
		return play.Dice{}, false, nil
	}
	if err != nil {
		return play.Dice{}, false, err
	}
	dice := play.Dice{D6: d6}

	outcome, err := rules.OutcomeForDie6(d6)
	if err != nil {
		return play.Dice{}, false, err
	}
	if outcome.NeedsD10 {
		d10, err := s.roll("d10", d10Sides, st)
		if err != nil {
			return play.Dice{}, false, err
		}
		dice.D10 = play.Die(d10)
	}
	return dice, true, nil
}

// ChaosDie rolls the d20 for a play waiting on chaos.
func (s *Source) ChaosDie(st match.State) (int, error) {
	return s.roll("d20", d20Sides, st)
}

// Logs returns what the script printed.
func (s *Source) Logs() []LogEntry { return s.vm.GetLogs() }

func (s *Source) roll(name string, sides int, st match.State) (int, error) {
	v, err := s.vm.CallRoll(sides, gameView(st))
	if err != nil {
		return 0, err
	}
	if err := rules.ValidateDie(name, v, sides); err != nil {
		return 0, fmt.Errorf("script: %w", err)
	}
	return v, nil
}

// gameView is the read-only snapshot handed to roll().
func gameView(st match.State) map[string]any {
	g := st.Game
	return map[string]any{
		"quarter":      g.Quarter,
		"clockSec":     g.ClockSec,
		"ballOn":       g.BallOn,
		"down":         g.Down,
		"toGo":         g.ToGo,
		"goalToGo":     g.GoalToGo,
		"possession":   string(g.Possession),
		"offenseScore": st.Score(st.Offense()),
		"defenseScore": st.Score(st.Defense()),
		"sackStreak":   st.Memory.SackStreak,
	}
}
