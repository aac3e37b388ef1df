package domain

// Voter is a participant identity supplied by the chat transport. The id
// is never generated by the store; names may change between votes.
type Voter struct {
	id        int64
	firstName string
	lastName  string
}

// NewVoter builds a voter. lastName is optional, an empty string means
// absent.
func NewVoter(id int64, firstName, lastName string) (*Voter, error) {
	if id == 0 {
		return nil, ErrMissingVoterID
	}
	if firstName == "" {
		return nil, ErrMissingFirstName
	}
	return &Voter{id: id, firstName: firstName, lastName: lastName}, nil
}

func (v *Voter) ID() int64         { return v.id }
func (v *Voter) FirstName() string { return v.firstName }
func (v *Voter) LastName() string  { return v.lastName }

func (v *Voter) DisplayName() string {
	if v.lastName == "" {
		return v.firstName
	}
	return v.firstName + " " + v.lastName
}

// Equal compares identities only.
func (v *Voter) Equal(other *Voter) bool {
	if v == nil || other == nil {
		return v == other
	}
	return v.id == other.id
}
