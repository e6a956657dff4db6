package replay

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/MJE43/gridiron-dice/internal/match"
	"github.com/MJE43/gridiron-dice/internal/play"
)

// Source feeds dice to a Runner. NextPlay returns ok=false when the feed is
// exhausted. ChaosDie is only called after NextPlay's dice asked for chaos.
type Source interface {
	NextPlay(st match.State) (dice play.Dice, ok bool, err error)
	ChaosDie(st match.State) (int, error)
}

// clockedSource is implemented by feeds that also say how much clock a play
// burned.
type clockedSource interface {
	ClockAfterPlay() int
}

// Step is one resolved play of a run.
type Step struct {
	N      int         `json:"n"`
	Dice   play.Dice   `json:"dice"`
	Chaos  bool        `json:"chaos"`
	Result play.Result `json:"result"`

	// Log holds the lines this play added, oldest first.
	Log []match.LogEntry `json:"log"`
}

// Report is the outcome of a run.
type Report struct {
	Final match.State `json:"final"`
	Steps []Step      `json:"steps"`
	Stats *Stats      `json:"stats"`
}

// Runner resolves plays from a Source until it runs dry, MaxPlays is reached
// or the context is cancelled.
type Runner struct {
	Resolver play.Resolver
	Logger   *zap.Logger
	MaxPlays int
	// OnStep, if set, is called after every resolved play.
	OnStep func(Step)
}

// Run plays src out from st. Every play is first resolved without a d20; when
// the resolver asks for chaos the same prior state is resolved again with the
// source's d20. On error the report holds everything resolved so far.
func (r Runner) Run(ctx context.Context, st match.State, src Source) (Report, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clocked, _ := src.(clockedSource)

	rep := Report{Final: st, Stats: NewStats()}
	for n := 1; r.MaxPlays <= 0 || n <= r.MaxPlays; n++ {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		dice, ok, err := src.NextPlay(st)
		if err != nil {
			return rep, fmt.Errorf("play %d: %w", n, err)
		}
		if !ok {
			break
		}

		res, err := r.Resolver.Resolve(st, dice)
		if err != nil {
			return rep, fmt.Errorf("play %d: %w", n, err)
		}

		chaos := res.ChaosPending()
		if chaos {
			d20, err := src.ChaosDie(st)
			if err != nil {
				return rep, fmt.Errorf("play %d: %w", n, err)
			}
			dice = dice.WithD20(d20)
			if res, err = r.Resolver.Resolve(st, dice); err != nil {
				return rep, fmt.Errorf("play %d: %w", n, err)
			}
		}

		rep.Stats.Record(st, dice, res)
		added := slices.Clone(res.State.Log[:len(res.State.Log)-len(st.Log)])
		slices.Reverse(added)
		st = res.State
		if clocked != nil {
			st = match.RunClock(st, clocked.ClockAfterPlay())
			res.State = st
		}

		step := Step{N: n, Dice: dice, Chaos: chaos, Result: res, Log: added}
		rep.Steps = append(rep.Steps, step)
		rep.Final = st
		if r.OnStep != nil {
			r.OnStep(step)
		}

		logger.Debug("play resolved",
			zap.Int("n", n),
			zap.Int("d6", dice.D6),
			zap.Bool("chaos", chaos),
			zap.Strings("events", eventNames(res.Events)),
			zap.Int("ball_on", st.Game.BallOn),
			zap.String("possession", string(st.Game.Possession)),
		)
	}

	logger.Info("run finished",
		zap.Int("plays", rep.Stats.Plays),
		zap.Int("user_score", rep.Final.Score(match.User)),
		zap.Int("npc_score", rep.Final.Score(match.NPC)),
	)
	return rep, nil
}

func eventNames(events []play.Event) []string {
	types := play.Types(events)
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
