// Package rules holds the fixed dice tables of the football engine: the d6 play
// outcome table, d10 yardage formulas, sack losses, chaos triggers and the d20
// chaos table. Everything here is a pure function of primitive inputs.
package rules

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned when a die value is outside its valid range.
var ErrInvalidInput = errors.New("invalid input")

// ErrMissingInput is returned when a die required by the play category is absent.
var ErrMissingInput = errors.New("missing input")

// OutcomeKey identifies a d6 play outcome category.
type OutcomeKey string

const (
	Sack       OutcomeKey = "SACK"
	Stuffed    OutcomeKey = "STUFFED"
	ShortGain  OutcomeKey = "SHORT_GAIN"
	ChainMover OutcomeKey = "CHAIN_MOVER"
	BigPlay    OutcomeKey = "BIG_PLAY"
	Touchdown  OutcomeKey = "TOUCHDOWN"
)

const (
	d6Sides  = 6
	d10Sides = 10
	d20Sides = 20
)

// Outcome is one row of the d6 table.
type Outcome struct {
	Die      int        `json:"die"`
	Key      OutcomeKey `json:"key"`
	Label    string     `json:"label"`
	NeedsD10 bool       `json:"needs_d10"`
}

// d6 outcome table, indexed by die value - 1.
var outcomeTable = [d6Sides]Outcome{
	{Die: 1, Key: Sack, Label: "Sack"},
	{Die: 2, Key: Stuffed, Label: "Stuffed Run"},
	{Die: 3, Key: ShortGain, Label: "Short Gain", NeedsD10: true},
	{Die: 4, Key: ChainMover, Label: "First-Down-Type Play", NeedsD10: true},
	{Die: 5, Key: BigPlay, Label: "Big Play", NeedsD10: true},
	{Die: 6, Key: Touchdown, Label: "Touchdown"},
}

// OutcomeForDie6 maps a d6 value to its play outcome.
func OutcomeForDie6(d6 int) (Outcome, error) {
	if err := ValidateDie("d6", d6, d6Sides); err != nil {
		return Outcome{}, err
	}
	return outcomeTable[d6-1], nil
}

// OutcomeTable returns a copy of every d6 row in die order.
func OutcomeTable() []Outcome {
	out := make([]Outcome, len(outcomeTable))
	copy(out, outcomeTable[:])
	return out
}

// NeedsD10 reports whether the outcome's yardage comes from a d10.
func (k OutcomeKey) NeedsD10() bool {
	return k == ShortGain || k == ChainMover || k == BigPlay
}

// ValidateDie checks that value is a face of a die with the given number of sides.
func ValidateDie(name string, value, sides int) error {
	if value < 1 || value > sides {
		return fmt.Errorf("%w: %s must be between 1 and %d, got %d", ErrInvalidInput, name, sides, value)
	}
	return nil
}

// ValidateD10 checks a d10 value.
func ValidateD10(d10 int) error { return ValidateDie("d10", d10, d10Sides) }

// ValidateD20 checks a d20 value.
func ValidateD20(d20 int) error { return ValidateDie("d20", d20, d20Sides) }
