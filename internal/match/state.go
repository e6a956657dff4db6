// Package match defines the match state threaded through every play and the
// pure transitions over it. Transitions never mutate their input: each one
// clones the state and returns the modified copy.
package match

import (
	"maps"
	"slices"
	"time"

	"github.com/MJE43/gridiron-dice/internal/rules"
)

// Version is the state schema version stamped into new matches.
const Version = "0.1.0"

// TeamID identifies one of the two fixed teams.
type TeamID string

const (
	User TeamID = "USER"
	NPC  TeamID = "NPC"
)

// Opponent returns the other team.
func (id TeamID) Opponent() TeamID {
	if id == User {
		return NPC
	}
	return User
}

// Valid reports whether id is one of the two fixed teams.
func (id TeamID) Valid() bool { return id == User || id == NPC }

// Colors are a team's display colors.
type Colors struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// Team is one side of the match.
type Team struct {
	ID     TeamID `json:"id"`
	Name   string `json:"name"`
	Colors Colors `json:"colors"`
	Score  int    `json:"score"`
}

// Game is the scoreboard and down-and-distance. BallOn is measured from the
// offense's own goal line (0) to the opponent's (100).
type Game struct {
	Quarter    int    `json:"quarter"`
	ClockSec   int    `json:"clockSec"`
	BallOn     int    `json:"ballOn"`
	Possession TeamID `json:"possession"`
	Down       int    `json:"down"`
	ToGo       int    `json:"toGo"`
	GoalToGo   bool   `json:"goalToGo"`
	IsOver     bool   `json:"isOver"`
}

// PlayMemo describes the most recent play for narration.
type PlayMemo struct {
	Type  string `json:"type"`
	Yards int    `json:"yards"`
}

// Memory carries what the chaos triggers and narration remember between plays.
type Memory struct {
	LastPlay      *PlayMemo `json:"lastPlay"`
	SackStreak    int       `json:"sackStreak"`
	LastOutcomeD6 *int      `json:"lastOutcomeD6"`
}

// LogEntry is one play-by-play line.
type LogEntry struct {
	ID   string    `json:"id"`
	TS   time.Time `json:"ts"`
	Text string    `json:"text"`
}

// Meta holds bookkeeping that is not part of the game itself.
type Meta struct {
	Version string `json:"version"`
}

// State is the whole match. Treat values as immutable; use the transitions.
type State struct {
	Meta   Meta            `json:"meta"`
	Teams  map[TeamID]Team `json:"teams"`
	Game   Game            `json:"game"`
	Memory Memory          `json:"memory"`
	Log    []LogEntry      `json:"log"`
}

const (
	startQuarter  = 1
	quarterSec    = 15 * 60
	kickoffBallOn = 25
	firstDownToGo = 10
	goalToGoLine  = 90
)

// Option customises a new match.
type Option func(*State)

// WithTeamName renames a team.
func WithTeamName(id TeamID, name string) Option {
	return func(s *State) {
		if t, ok := s.Teams[id]; ok && name != "" {
			t.Name = name
			s.Teams[id] = t
		}
	}
}

// WithTeamColors recolours a team.
func WithTeamColors(id TeamID, colors Colors) Option {
	return func(s *State) {
		if t, ok := s.Teams[id]; ok {
			t.Colors = colors
			s.Teams[id] = t
		}
	}
}

// WithGame replaces the opening scoreboard, e.g. to set up a scenario.
// BallOn is clamped and GoalToGo recomputed; inside the 10 the distance is
// the distance to the goal line.
func WithGame(g Game) Option {
	return func(s *State) {
		g.BallOn = ClampBallOn(g.BallOn)
		g.GoalToGo = IsGoalToGo(g.BallOn)
		if g.GoalToGo {
			g.ToGo = max(1, rules.Field-g.BallOn)
		}
		s.Game = g
	}
}

// New creates the opening state: first quarter, 15:00 on the clock, USER ball
// first and ten at its own 25.
func New(opts ...Option) State {
	s := State{
		Meta: Meta{Version: Version},
		Teams: map[TeamID]Team{
			User: {ID: User, Name: "Chefs", Colors: Colors{Primary: "#C8102E", Secondary: "#FFFFFF"}},
			NPC:  {ID: NPC, Name: "NPC", Colors: Colors{Primary: "#2D6CDF", Secondary: "#E6E6E6"}},
		},
		Game: Game{
			Quarter:    startQuarter,
			ClockSec:   quarterSec,
			BallOn:     kickoffBallOn,
			Possession: User,
			Down:       1,
			ToGo:       firstDownToGo,
		},
		Log: []LogEntry{},
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Clone returns a deep copy.
func (s State) Clone() State {
	c := s
	c.Teams = maps.Clone(s.Teams)
	if s.Memory.LastPlay != nil {
		lp := *s.Memory.LastPlay
		c.Memory.LastPlay = &lp
	}
	if s.Memory.LastOutcomeD6 != nil {
		d6 := *s.Memory.LastOutcomeD6
		c.Memory.LastOutcomeD6 = &d6
	}
	c.Log = slices.Clone(s.Log)
	return c
}

// Offense returns the team with the ball.
func (s State) Offense() TeamID { return s.Game.Possession }

// Defense returns the team without the ball.
func (s State) Defense() TeamID { return s.Game.Possession.Opponent() }

// Score returns a team's score.
func (s State) Score(id TeamID) int { return s.Teams[id].Score }

// Situation projects the state onto what the chaos triggers need.
func (s State) Situation() rules.Situation {
	return rules.Situation{
		Quarter:      s.Game.Quarter,
		ClockSec:     s.Game.ClockSec,
		BallOn:       s.Game.BallOn,
		SackStreak:   s.Memory.SackStreak,
		OffenseScore: s.Score(s.Offense()),
		DefenseScore: s.Score(s.Defense()),
	}
}

// ClampBallOn keeps a field position within [0, 100].
func ClampBallOn(ballOn int) int {
	return max(0, min(rules.Field, ballOn))
}

// IsGoalToGo reports whether the offense is inside the opponent's 10.
func IsGoalToGo(ballOn int) bool { return ballOn >= goalToGoLine }
