package surety

import (
	"context"
	"sync"

	"flight_surety/internal/models"

	"github.com/shopspring/decimal"
)

// Wallets is an in-process Payer that keeps the balance received by each passenger
type Wallets struct {
	mu       sync.Mutex
	balances map[models.Address]decimal.Decimal
}

func NewWallets() *Wallets {
	return &Wallets{balances: make(map[models.Address]decimal.Decimal)}
}

func (w *Wallets) Transfer(ctx context.Context, to models.Address, amount decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[to] = w.balances[to].Add(amount)
	return nil
}

// Balance returns the total transferred to addr
func (w *Wallets) Balance(addr models.Address) decimal.Decimal {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[addr]
}
