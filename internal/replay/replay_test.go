package replay

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/gridiron-dice/internal/match"
	"github.com/MJE43/gridiron-dice/internal/play"
	"github.com/MJE43/gridiron-dice/internal/rules"
	"github.com/MJE43/gridiron-dice/internal/scripting"
)

func runTape(t *testing.T, src string) (Report, error) {
	t.Helper()
	tape, err := ParseTape(strings.NewReader(src))
	require.NoError(t, err)
	return Runner{}.Run(context.Background(), tape.State(), NewTapeSource(tape))
}

func TestOpeningDriveTape(t *testing.T) {
	tape, err := LoadTape("testdata/opening_drive.yaml")
	require.NoError(t, err)
	assert.Equal(t, "opening drive", tape.Name)

	rep, err := Runner{}.Run(context.Background(), tape.State(), NewTapeSource(tape))
	require.NoError(t, err)
	require.Len(t, rep.Steps, 5)

	// Only the sack at the 38 went through the chaos round trip.
	for i, step := range rep.Steps {
		assert.Equal(t, i == 1, step.Chaos, "step %d", step.N)
		assert.Equal(t, play.PhaseResolved, step.Result.Phase)
	}
	assert.Equal(t, []play.EventType{play.EventSack, play.EventChaos}, play.Types(rep.Steps[1].Result.Events))

	var lines []string
	for _, e := range rep.Steps[1].Log {
		lines = append(lines, e.Text)
	}
	assert.Equal(t, []string{"QB sacked for -6 yards.", "Chaos roll: Clean play"}, lines)
	assert.Len(t, rep.Final.Log, 6)

	g := rep.Final.Game
	assert.Equal(t, match.NPC, g.Possession)
	assert.Equal(t, 25, g.BallOn)
	assert.Equal(t, 2, g.Down)
	assert.Equal(t, 10, g.ToGo)
	assert.Equal(t, 870, g.ClockSec)
	assert.Equal(t, 6, rep.Final.Score(match.User))
	assert.Equal(t, 0, rep.Final.Score(match.NPC))

	st := rep.Stats
	assert.Equal(t, 5, st.Plays)
	assert.Equal(t, map[rules.OutcomeKey]int{
		rules.ChainMover: 1,
		rules.Sack:       1,
		rules.BigPlay:    1,
		rules.Touchdown:  1,
		rules.Stuffed:    1,
	}, st.Outcomes)
	assert.Equal(t, map[rules.ChaosKey]int{rules.ChaosClean: 1}, st.Chaos)
	assert.Equal(t, 1, st.Touchdowns[match.User])
	assert.Equal(t, 75, st.NetYards[match.User])
	assert.Equal(t, 38, st.LongestGain)
	assert.Equal(t, 1, st.MaxSackStreak)
	assert.Empty(t, st.Turnovers)
}

func TestStartOverrides(t *testing.T) {
	rep, err := runTape(t, `
start:
  ball_on: 40
  down: 4
  to_go: 5
  quarter: 4
  clock_sec: 200
  scores: {NPC: 7}
  user_team: Bolts
plays:
  - {d6: 3, d10: 2}
`)
	require.NoError(t, err)

	assert.Equal(t, "Bolts", rep.Final.Teams[match.User].Name)
	assert.Equal(t, match.NPC, rep.Final.Game.Possession)
	assert.Equal(t, 57, rep.Final.Game.BallOn)
	assert.Equal(t, 7, rep.Final.Score(match.NPC))
	assert.Equal(t, 1, rep.Stats.Turnovers[match.User])
	assert.Equal(t, []play.EventType{play.EventShortGain, play.EventTurnoverOnDowns}, play.Types(rep.Steps[0].Result.Events))
}

func TestGoalToGoStart(t *testing.T) {
	tape, err := ParseTape(strings.NewReader("start: {ball_on: 95}\nplays: [{d6: 2}]"))
	require.NoError(t, err)

	g := tape.State().Game
	assert.True(t, g.GoalToGo)
	assert.Equal(t, 5, g.ToGo)
}

func TestSackStreakHighWater(t *testing.T) {
	rep, err := runTape(t, `
plays:
  - {d6: 1, d20: 10}
  - {d6: 1, d20: 10}
  - {d6: 2, d20: 10}
  - {d6: 1, d20: 10}
`)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Stats.MaxSackStreak)
	assert.Equal(t, 4, rep.Stats.Chaos[rules.ChaosClean])
}

func TestMissingChaosDie(t *testing.T) {
	rep, err := runTape(t, `
start: {ball_on: 15}
plays:
  - {d6: 2}
  - {d6: 1}
`)
	require.ErrorIs(t, err, ErrNoChaosDie)
	assert.Contains(t, err.Error(), "play 1")
	assert.Empty(t, rep.Steps)
	assert.Equal(t, 15, rep.Final.Game.BallOn)
}

func TestInvalidDiceOnTape(t *testing.T) {
	rep, err := runTape(t, `
plays:
  - {d6: 2}
  - {d6: 9}
`)
	require.ErrorIs(t, err, rules.ErrInvalidInput)
	assert.Contains(t, err.Error(), "play 2")
	assert.Len(t, rep.Steps, 1)
}

func TestMaxPlaysAndOnStep(t *testing.T) {
	tape, err := ParseTape(strings.NewReader(`
plays:
  - {d6: 2}
  - {d6: 2}
  - {d6: 2}
`))
	require.NoError(t, err)

	var seen []int
	r := Runner{MaxPlays: 2, OnStep: func(s Step) { seen = append(seen, s.N) }}
	rep, err := r.Run(context.Background(), tape.State(), NewTapeSource(tape))
	require.NoError(t, err)
	assert.Len(t, rep.Steps, 2)
	assert.Equal(t, []int{1, 2}, seen)
}

func TestCancelledRun(t *testing.T) {
	tape, err := ParseTape(strings.NewReader("plays: [{d6: 2}]"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := Runner{}.Run(ctx, tape.State(), NewTapeSource(tape))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rep.Steps)
}

func TestParseTapeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"empty", "", "empty"},
		{"no plays", "name: x", "no plays"},
		{"unknown key", "plays: [{d6: 2, d12: 3}]", "d12"},
		{"bad possession", "start: {possession: AWAY}\nplays: [{d6: 2}]", "possession"},
		{"bad down", "start: {down: 5}\nplays: [{d6: 2}]", "down"},
		{"ball off the field", "start: {ball_on: 150}\nplays: [{d6: 2}]", "ball_on"},
		{"ball behind the goal line", "start: {ball_on: -1}\nplays: [{d6: 2}]", "ball_on"},
		{"bad score team", "start: {scores: {AWAY: 3}}\nplays: [{d6: 2}]", "unknown team"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTape(strings.NewReader(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestScriptedRunIsReproducible(t *testing.T) {
	const script = `
		function roll(sides, game) {
			return Math.floor(Math.random() * sides) + 1
		}
	`
	run := func() Report {
		src, err := scripting.NewSource(script, 7)
		require.NoError(t, err)
		rep, err := Runner{MaxPlays: 40}.Run(context.Background(), match.New(), src)
		require.NoError(t, err)
		return rep
	}

	a, b := run(), run()
	assert.Len(t, a.Steps, 40)
	if diff := cmp.Diff(a.Final, b.Final); diff != "" {
		t.Errorf("final state differs (-a +b):\n%s", diff)
	}
	assert.Equal(t, a.Stats, b.Stats)
}
