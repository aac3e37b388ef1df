package domain

import (
	"fmt"
	"strings"
)

// Option is one selectable choice of a Planning. Ordinal is its zero-based
// position inside the planning.
type Option struct {
	id         int64
	planningID int64
	text       string
	ordinal    int
}

func NewOption(planningID int64, text string, ordinal int) (*Option, error) {
	if planningID == 0 {
		return nil, ErrMissingPlanning
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyOptionText
	}
	if ordinal < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeOrdinal, ordinal)
	}
	return &Option{planningID: planningID, text: text, ordinal: ordinal}, nil
}

func RestoreOption(id, planningID int64, text string, ordinal int) (*Option, error) {
	o, err := NewOption(planningID, text, ordinal)
	if err != nil {
		return nil, err
	}
	if err := o.AssignID(id); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Option) ID() int64         { return o.id }
func (o *Option) PlanningID() int64 { return o.planningID }
func (o *Option) Text() string      { return o.text }
func (o *Option) Ordinal() int      { return o.ordinal }
func (o *Option) IsPersisted() bool { return o.id != 0 }

func (o *Option) AssignID(id int64) error {
	if o.IsPersisted() {
		return fmt.Errorf("%w: option %d", ErrAlreadyPersisted, o.id)
	}
	if id <= 0 {
		return fmt.Errorf("%w: invalid option id %d", ErrPrecondition, id)
	}
	o.id = id
	return nil
}

// ShortDescription renders the option with its number of voters.
func (o *Option) ShortDescription(voterCount int) string {
	return fmt.Sprintf("%s — %d participants", o.text, voterCount)
}

func (o *Option) Equal(other *Option) bool {
	if o == nil || other == nil {
		return o == other
	}
	return o.id == other.id &&
		o.planningID == other.planningID &&
		o.text == other.text &&
		o.ordinal == other.ordinal
}
