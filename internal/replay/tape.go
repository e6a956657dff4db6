// Package replay drives a match from a feed of dice: a recorded YAML tape or
// a script. It owns the chaos round trip the resolver asks callers to make.
package replay

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MJE43/gridiron-dice/internal/match"
	"github.com/MJE43/gridiron-dice/internal/play"
	"github.com/MJE43/gridiron-dice/internal/rules"
)

// ErrNoChaosDie is returned when a tape play needs chaos but carries no d20.
var ErrNoChaosDie = errors.New("tape play needs a d20")

// Tape is a recorded sequence of plays with an optional starting position.
type Tape struct {
	Name  string     `yaml:"name,omitempty"`
	Start *Start     `yaml:"start,omitempty"`
	Plays []TapePlay `yaml:"plays"`
}

// Start overrides parts of the kickoff state. Unset fields keep their defaults.
type Start struct {
	UserTeam   string               `yaml:"user_team,omitempty"`
	NPCTeam    string               `yaml:"npc_team,omitempty"`
	BallOn     *int                 `yaml:"ball_on,omitempty"`
	Possession match.TeamID         `yaml:"possession,omitempty"`
	Down       *int                 `yaml:"down,omitempty"`
	ToGo       *int                 `yaml:"to_go,omitempty"`
	Quarter    *int                 `yaml:"quarter,omitempty"`
	ClockSec   *int                 `yaml:"clock_sec,omitempty"`
	Scores     map[match.TeamID]int `yaml:"scores,omitempty"`
}

// TapePlay is one line of a tape. RunClock is taken off the game clock after
// the play resolves.
type TapePlay struct {
	play.Dice `yaml:",inline"`
	RunClock  int `yaml:"run_clock,omitempty"`
}

// ParseTape decodes a YAML tape, rejecting unknown keys.
func ParseTape(r io.Reader) (*Tape, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var t Tape
	if err := dec.Decode(&t); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("tape is empty")
		}
		return nil, fmt.Errorf("decode tape: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadTape reads and parses the tape at path.
func LoadTape(path string) (*Tape, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := ParseTape(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Validate checks the start block. Dice are left to the resolver so a bad
// roll is reported against the play that carries it.
func (t *Tape) Validate() error {
	if len(t.Plays) == 0 {
		return fmt.Errorf("tape has no plays")
	}
	s := t.Start
	if s == nil {
		return nil
	}
	if s.Possession != "" && !s.Possession.Valid() {
		return fmt.Errorf("%w: start.possession %q", rules.ErrInvalidInput, s.Possession)
	}
	if s.BallOn != nil && (*s.BallOn < 0 || *s.BallOn > rules.Field) {
		return fmt.Errorf("%w: start.ball_on must be between 0 and %d, got %d", rules.ErrInvalidInput, rules.Field, *s.BallOn)
	}
	if s.Down != nil && (*s.Down < 1 || *s.Down > 4) {
		return fmt.Errorf("%w: start.down must be between 1 and 4, got %d", rules.ErrInvalidInput, *s.Down)
	}
	if s.ToGo != nil && *s.ToGo < 1 {
		return fmt.Errorf("%w: start.to_go must be positive, got %d", rules.ErrInvalidInput, *s.ToGo)
	}
	if s.Quarter != nil && (*s.Quarter < 1 || *s.Quarter > 4) {
		return fmt.Errorf("%w: start.quarter must be between 1 and 4, got %d", rules.ErrInvalidInput, *s.Quarter)
	}
	if s.ClockSec != nil && *s.ClockSec < 0 {
		return fmt.Errorf("%w: start.clock_sec must not be negative", rules.ErrInvalidInput)
	}
	for team, pts := range s.Scores {
		if !team.Valid() {
			return fmt.Errorf("%w: start.scores has unknown team %q", rules.ErrInvalidInput, team)
		}
		if pts < 0 {
			return fmt.Errorf("%w: start.scores.%s must not be negative", rules.ErrInvalidInput, team)
		}
	}
	return nil
}

// State builds the opening state of the tape on top of opts.
func (t *Tape) State(opts ...match.Option) match.State {
	s := t.Start
	if s == nil {
		return match.New(opts...)
	}

	opts = append(opts,
		match.WithTeamName(match.User, s.UserTeam),
		match.WithTeamName(match.NPC, s.NPCTeam),
	)
	g := match.New().Game
	if s.BallOn != nil {
		g.BallOn = *s.BallOn
	}
	if s.Possession != "" {
		g.Possession = s.Possession
	}
	if s.Down != nil {
		g.Down = *s.Down
	}
	if s.ToGo != nil {
		g.ToGo = *s.ToGo
	}
	if s.Quarter != nil {
		g.Quarter = *s.Quarter
	}
	if s.ClockSec != nil {
		g.ClockSec = *s.ClockSec
	}
	st := match.New(append(opts, match.WithGame(g))...)
	for _, team := range []match.TeamID{match.User, match.NPC} {
		if pts := s.Scores[team]; pts > 0 {
			st = match.AwardScore(st, team, pts)
		}
	}
	return st
}

// TapeSource plays a tape back one line at a time.
type TapeSource struct {
	plays []TapePlay
	next  int
}

// NewTapeSource starts at the first play of t.
func NewTapeSource(t *Tape) *TapeSource {
	return &TapeSource{plays: t.Plays}
}

// NextPlay returns the next line's dice without its d20, which is only handed
// over through ChaosDie.
func (s *TapeSource) NextPlay(match.State) (play.Dice, bool, error) {
	if s.next >= len(s.plays) {
		return play.Dice{}, false, nil
	}
	d := s.plays[s.next].Dice
	d.D20 = nil
	s.next++
	return d, true, nil
}

// ChaosDie returns the d20 of the line most recently handed out.
func (s *TapeSource) ChaosDie(match.State) (int, error) {
	cur := s.current()
	if cur == nil || cur.D20 == nil {
		return 0, fmt.Errorf("%w (play %d)", ErrNoChaosDie, s.next)
	}
	return *cur.D20, nil
}

// ClockAfterPlay reports the run_clock of the line most recently handed out.
func (s *TapeSource) ClockAfterPlay() int {
	if cur := s.current(); cur != nil {
		return cur.RunClock
	}
	return 0
}

func (s *TapeSource) current() *TapePlay {
	if s.next == 0 {
		return nil
	}
	return &s.plays[s.next-1]
}
