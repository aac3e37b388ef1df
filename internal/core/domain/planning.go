package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// InlineQueryPrefix prefixes the inline query used to publish a planning
// in another chat.
const InlineQueryPrefix = "planning_"

// Planning is a titled proposal owning a set of options. Id, owner and
// title never change once set; status only changes through the
// transitions accepted by CanTransition.
type Planning struct {
	id      int64
	ownerID int64
	title   string
	status  Status
}

// NewPlanning builds a planning that is not persisted yet.
func NewPlanning(ownerID int64, title string, status Status) (*Planning, error) {
	if ownerID == 0 {
		return nil, ErrMissingOwner
	}
	if strings.TrimSpace(title) == "" {
		return nil, ErrEmptyTitle
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStatus, status)
	}
	return &Planning{ownerID: ownerID, title: title, status: status}, nil
}

// RestorePlanning rebuilds a planning read from the store.
func RestorePlanning(id, ownerID int64, title string, status Status) (*Planning, error) {
	p, err := NewPlanning(ownerID, title, status)
	if err != nil {
		return nil, err
	}
	if err := p.AssignID(id); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Planning) ID() int64      { return p.id }
func (p *Planning) OwnerID() int64 { return p.ownerID }
func (p *Planning) Title() string  { return p.title }
func (p *Planning) Status() Status { return p.status }

// IsPersisted reports whether the store already assigned an id.
func (p *Planning) IsPersisted() bool { return p.id != 0 }

// AssignID records the id given by the store on first save.
func (p *Planning) AssignID(id int64) error {
	if p.IsPersisted() {
		return fmt.Errorf("%w: planning %d", ErrAlreadyPersisted, p.id)
	}
	if id <= 0 {
		return fmt.Errorf("%w: invalid planning id %d", ErrPrecondition, id)
	}
	p.id = id
	return nil
}

// ValidateTransition checks that the planning may move to status to.
func (p *Planning) ValidateTransition(to Status) error {
	if !CanTransition(p.status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.status, to)
	}
	return nil
}

// SetStatus applies a validated transition to the in-memory planning.
// Callers persist the change themselves.
func (p *Planning) SetStatus(to Status) error {
	if err := p.ValidateTransition(to); err != nil {
		return err
	}
	p.status = to
	return nil
}

// InlineQueryID is the inline query text that designates this planning.
func (p *Planning) InlineQueryID() string {
	return InlineQueryPrefix + strconv.FormatInt(p.id, 10)
}

// ParseInlineQueryID is the inverse of Planning.InlineQueryID.
func ParseInlineQueryID(query string) (int64, bool) {
	raw, ok := strings.CutPrefix(query, InlineQueryPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ShortDescription is a one-line rendering used by list views. position
// is zero-based.
func (p *Planning) ShortDescription(position int) string {
	return fmt.Sprintf("%d. %s — %s", position+1, p.title, p.status)
}

// FullDescription renders the planning with one line per option and a
// tally of distinct participants.
func FullDescription(p *Planning, optionLines []string, participants int) string {
	var b strings.Builder
	b.WriteString(p.title)
	b.WriteString("\n\n")
	for _, line := range optionLines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if len(optionLines) > 0 {
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%d participants so far. Planning %s.", participants, p.status)
	return b.String()
}
