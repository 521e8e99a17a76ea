package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Disabled is the Gateway used when no ledger node is configured.  Every
// call fails with ErrUnreachable, so wallet bookings are refused while
// plain bookings keep working.
type Disabled struct{}

var _ Gateway = Disabled{}

func (Disabled) Balance(context.Context, string) (*Balance, error) { return nil, ErrUnreachable }

func (Disabled) Unlock(context.Context, string, string, time.Duration) error { return ErrUnreachable }

func (Disabled) Burn(context.Context, string, string, decimal.Decimal) (*Receipt, error) {
	return nil, ErrUnreachable
}

func (Disabled) Transfer(context.Context, string, string, string, decimal.Decimal) (*Receipt, error) {
	return nil, ErrUnreachable
}

func (Disabled) ClaimGrant(context.Context, string, string) (*Receipt, error) {
	return nil, ErrUnreachable
}

func (Disabled) HasClaimedGrant(context.Context, string) (bool, error) { return false, ErrUnreachable }

func (Disabled) Stats(context.Context) (*Stats, error) { return nil, ErrUnreachable }

func (Disabled) ContractInfo(context.Context) (*ContractInfo, error) { return nil, ErrUnreachable }
