package domain

import "fmt"

// Status is the lifecycle state of a Planning. The zero value is not a
// valid status.
type Status uint8

const (
	StatusUnderConstruction Status = iota + 1
	StatusOpened
	StatusClosed
)

// ParseStatus maps a stored status code back to a Status.
func ParseStatus(code string) (Status, error) {
	switch code {
	case "under_construction":
		return StatusUnderConstruction, nil
	case "opened":
		return StatusOpened, nil
	case "closed":
		return StatusClosed, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidStatus, code)
}

// Code is the representation used in storage.
func (s Status) Code() string {
	switch s {
	case StatusUnderConstruction:
		return "under_construction"
	case StatusOpened:
		return "opened"
	case StatusClosed:
		return "closed"
	}
	return ""
}

func (s Status) String() string {
	switch s {
	case StatusUnderConstruction:
		return "Under construction"
	case StatusOpened:
		return "Opened"
	case StatusClosed:
		return "Closed"
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

func (s Status) Valid() bool {
	switch s {
	case StatusUnderConstruction, StatusOpened, StatusClosed:
		return true
	}
	return false
}

// CanTransition reports whether a planning may move from one status to
// another. Only UnderConstruction -> Opened and Opened -> Closed are legal.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusUnderConstruction:
		return to == StatusOpened
	case StatusOpened:
		return to == StatusClosed
	case StatusClosed:
		return false
	}
	return false
}
