package models

// AirlineState is the membership state of an airline
type AirlineState string

const (
	AirlinePending    AirlineState = "pending"
	AirlineRegistered AirlineState = "registered"
)

// Airline represents a member (or candidate member) of the airline consortium
type Airline struct {
	Address Address
	Name    string
	State   AirlineState
	Funded  bool
	Votes   []Address // distinct voters while Pending, cleared on admission
}

// IsRegistered reports whether the airline has been admitted
func (a *Airline) IsRegistered() bool {
	return a != nil && a.State == AirlineRegistered
}

// CanOperate reports whether the airline may register and sell flights
func (a *Airline) CanOperate() bool {
	return a.IsRegistered() && a.Funded
}

// HasVoted reports whether voter already voted for this airline
func (a *Airline) HasVoted(voter Address) bool {
	for _, v := range a.Votes {
		if v == voter {
			return true
		}
	}
	return false
}
