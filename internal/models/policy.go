package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditMultiplier is applied to the premium when a flight is late due to the airline
var CreditMultiplier = decimal.RequireFromString("1.5")

// Policy is a passenger's insurance on one flight
type Policy struct {
	Passenger Address
	Flight    FlightKey
	Paid      decimal.Decimal
	Credit    decimal.Decimal // owed to the passenger, zero until credited and after payout
	Credited  bool            // set once when the payout is awarded
	BoughtAt  time.Time
}
