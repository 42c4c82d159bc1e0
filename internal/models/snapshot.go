package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is the persistent state of the surety system. Open status
// requests are ephemeral and not part of it.
type Snapshot struct {
	TakenAt     time.Time
	Owner       Address
	Operational bool
	Authorized  []Address
	Treasury    decimal.Decimal
	Airlines    []Airline
	Flights     []Flight
	Oracles     []Oracle
	Policies    []Policy
}
