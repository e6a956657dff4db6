// Package play resolves one play: it turns a match state plus dice into the
// next state and the ordered events the presentation layer reacts to.
//
// Chaos is a two-step protocol. When a play needs a d20 that was not supplied,
// Resolve returns a CHAOS_REQUIRED event and a provisional state with phase
// AWAITING_CHAOS_D20. The caller must then resolve the same prior state again
// with the same dice plus the d20. Nothing about the pending roll is kept in
// the state.
package play

import (
	"fmt"

	"github.com/MJE43/gridiron-dice/internal/match"
	"github.com/MJE43/gridiron-dice/internal/rules"
)

// Dice are the caller-supplied die faces for one play.
type Dice struct {
	D6  int  `json:"d6" yaml:"d6"`
	D10 *int `json:"d10,omitempty" yaml:"d10,omitempty"`
	D20 *int `json:"d20,omitempty" yaml:"d20,omitempty"`
}

// Die returns a pointer to v, for filling the optional dice.
func Die(v int) *int { return &v }

// WithD20 returns a copy of d carrying the chaos die.
func (d Dice) WithD20(d20 int) Dice {
	d.D20 = Die(d20)
	return d
}

// Phase tells the caller where the play stands.
type Phase string

const (
	PhaseAwaitingChaos Phase = "AWAITING_CHAOS_D20"
	PhaseResolved      Phase = "RESOLVED"
)

// Result is the outcome of one Resolve call.
type Result struct {
	State  match.State `json:"state"`
	Events []Event     `json:"events"`
	Phase  Phase       `json:"phase"`
}

// ChaosPending reports whether the caller still owes a d20.
func (r Result) ChaosPending() bool { return r.Phase == PhaseAwaitingChaos }

const (
	touchdownPoints = 6
	penaltyYards    = -10
	mistakeYards    = 10
)

// Resolver resolves plays, stamping log entries from Entries.
type Resolver struct {
	Entries match.EntrySource
}

// Resolve resolves with a sequence-stamped log, so identical inputs give
// identical results.
func Resolve(s match.State, dice Dice) (Result, error) {
	return Resolver{}.Resolve(s, dice)
}

// Resolve runs one play against s. s itself is never modified. All dice are
// validated before any transition runs; on error the zero Result is returned.
func (r Resolver) Resolve(s match.State, dice Dice) (Result, error) {
	outcome, err := validate(dice)
	if err != nil {
		return Result{}, err
	}

	p := &resolution{entries: r.entries(), state: s}

	if outcome.Key == rules.Touchdown {
		p.touchdown("TOUCHDOWN! Dice says six. No arguments.")
		return p.result(PhaseResolved), nil
	}

	ballOn := s.Game.BallOn
	var yards int
	switch outcome.Key {
	case rules.Sack:
		yards = rules.SackYardLoss(ballOn)
		p.state = match.SetSackStreak(p.state, p.state.Memory.SackStreak+1)
		p.emit(yardsEvent(EventSack, yards))
		p.log(fmt.Sprintf("QB sacked for %d yards.", yards))
	case rules.Stuffed:
		p.state = match.SetSackStreak(p.state, 0)
		p.emit(Event{Type: EventStuffed})
		p.log("Stuffed at the line. No gain.")
	default:
		yards = rules.ClampYardsToFieldSpace(ballOn, rules.YardsFromTwoDice(dice.D6, *dice.D10))
		p.state = match.SetSackStreak(p.state, 0)
		p.emit(yardsEvent(EventType(outcome.Key), yards))
		p.log(fmt.Sprintf("%s for %d yards.", outcome.Label, yards))
	}
	p.state = match.RecordPlay(p.state, string(outcome.Key), yards, dice.D6)
	p.state = match.ApplyYards(p.state, yards)

	if rules.IsChaosRequired(p.state.Situation(), outcome.Key) {
		if dice.D20 == nil {
			p.emit(Event{Type: EventChaosRequired})
			return p.result(PhaseAwaitingChaos), nil
		}
		if p.chaos(*dice.D20) {
			return p.result(PhaseResolved), nil
		}
	}

	if p.state.Game.BallOn >= rules.Field {
		p.touchdown("Touchdown! The drive finishes it.")
		return p.result(PhaseResolved), nil
	}

	p.state = match.AdvanceDown(p.state, yards)

	// Fourth down is never played out: a stalled drive goes straight to the defense.
	if p.state.Game.Down == 4 && p.state.Game.ToGo > 0 {
		p.emit(Event{Type: EventTurnoverOnDowns})
		p.log("Turnover on downs.")
		p.state = match.ChangePossession(p.state, nil)
	}
	return p.result(PhaseResolved), nil
}

func (r Resolver) entries() match.EntrySource {
	if r.Entries == nil {
		return match.SequenceSource{}
	}
	return r.Entries
}

func validate(dice Dice) (rules.Outcome, error) {
	outcome, err := rules.OutcomeForDie6(dice.D6)
	if err != nil {
		return rules.Outcome{}, err
	}
	if outcome.NeedsD10 {
		if dice.D10 == nil {
			return rules.Outcome{}, fmt.Errorf("%w: d10 is required for %s", rules.ErrMissingInput, outcome.Key)
		}
		if err := rules.ValidateD10(*dice.D10); err != nil {
			return rules.Outcome{}, err
		}
	}
	if dice.D20 != nil {
		if err := rules.ValidateD20(*dice.D20); err != nil {
			return rules.Outcome{}, err
		}
	}
	return outcome, nil
}

// resolution is the scratch space of a single Resolve call.
type resolution struct {
	entries match.EntrySource
	state   match.State
	events  []Event
}

func (p *resolution) emit(e Event) { p.events = append(p.events, e) }

func (p *resolution) log(text string) {
	p.state = match.AppendLog(p.state, p.entries, text)
}

func (p *resolution) result(phase Phase) Result {
	return Result{State: p.state, Events: p.events, Phase: phase}
}

// touchdown scores for the offense and kicks off to the other team.
func (p *resolution) touchdown(text string) {
	scorer := p.state.Offense()
	p.state = match.AwardScore(p.state, scorer, touchdownPoints)
	p.emit(Event{Type: EventTouchdown, By: scorer})
	p.log(text)
	p.state = match.ChangePossession(p.state, match.KickoffSpot())
}

// chaos applies the d20 effect and reports whether the play ended with it.
func (p *resolution) chaos(d20 int) bool {
	effect := rules.ChaosEffectForDie20(d20)
	p.emit(Event{Type: EventChaos, Result: effect.Key})
	p.log("Chaos roll: " + effect.Label)

	switch effect.Key {
	case rules.ChaosTurnover:
		p.emit(Event{Type: EventTurnover})
		p.log("Turnover! Defense takes over.")
		p.state = match.ChangePossession(p.state, nil)
		return true
	case rules.ChaosPenalty:
		p.state = match.ApplyYards(p.state, penaltyYards)
		p.log("Holding penalty. Ten yards back.")
	case rules.ChaosDefMistake:
		bonus := rules.ClampYardsToFieldSpace(p.state.Game.BallOn, mistakeYards)
		p.state = match.ApplyYards(p.state, bonus)
		p.log("Defensive mistake! Extra yards gained.")
	default:
		// TODO: ABSOLUTE_CHAOS and MOMENTUM are narrative only until a swing
		// magnitude is decided; NEAR_TURNOVER, HARD_HIT and CLEAN stay no-ops.
	}
	return false
}
