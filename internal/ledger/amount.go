package ledger

import (
	"fmt"
	"math/big"
	"regexp"

	"github.com/shopspring/decimal"
)

// Decimals is the fixed-point precision of the token.
const Decimals = 18

// MaxTransferAmount caps amounts accepted by the token endpoints.
var MaxTransferAmount = decimal.NewFromInt(1_000_000)

var addressRE = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// ValidAddress reports whether s is a 0x-prefixed 20-byte hex address.
func ValidAddress(s string) bool { return addressRE.MatchString(s) }

// ToBaseUnits converts a token amount to the integer the contract
// expects.  Negative amounts and amounts finer than 10^-18 are rejected.
func ToBaseUnits(amount decimal.Decimal) (*big.Int, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, amount)
	}
	shifted := amount.Shift(Decimals)
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidAmount, amount, Decimals)
	}
	return shifted.BigInt(), nil
}

// FromBaseUnits converts a contract integer back to a token amount.
func FromBaseUnits(v *big.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -Decimals)
}

// ValidateAmount checks the 0 < amount <= MaxTransferAmount rule of the
// token endpoints.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	if amount.GreaterThan(MaxTransferAmount) {
		return fmt.Errorf("%w: must not exceed %s", ErrInvalidAmount, MaxTransferAmount)
	}
	return nil
}

// Fee is the booking fee for a reservation of the given length:
// ratePerHour times the duration in hours, rounded up to a whole token.
func Fee(minutes int, ratePerHour decimal.Decimal) decimal.Decimal {
	return ratePerHour.Mul(decimal.NewFromInt(int64(minutes))).Div(decimal.NewFromInt(60)).Ceil()
}
