package ledger

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseUnits(t *testing.T) {
	v, err := ToBaseUnits(decimal.RequireFromString("1.5"))
	require.NoError(t, err)
	want, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.Equal(t, 0, v.Cmp(want))
	assert.Equal(t, "1.5", FromBaseUnits(v).String())

	_, err = ToBaseUnits(decimal.RequireFromString("0.0000000000000000001"))
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = ToBaseUnits(decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.True(t, FromBaseUnits(nil).IsZero())
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(decimal.NewFromInt(1)))
	assert.NoError(t, ValidateAmount(decimal.NewFromInt(1_000_000)))
	assert.ErrorIs(t, ValidateAmount(decimal.Zero), ErrInvalidAmount)
	assert.ErrorIs(t, ValidateAmount(decimal.NewFromInt(1_000_001)), ErrInvalidAmount)
}

func TestFee(t *testing.T) {
	rate := decimal.NewFromInt(10)
	assert.Equal(t, "20", Fee(120, rate).String())
	assert.Equal(t, "15", Fee(90, rate).String())
	assert.Equal(t, "9", Fee(50, rate).String())
	assert.Equal(t, "5", Fee(30, rate).String())
}

func TestValidAddress(t *testing.T) {
	assert.True(t, ValidAddress("0x1234567890123456789012345678901234567890"))
	assert.True(t, ValidAddress("0xABCDEFabcdef1234567890123456789012345678"))
	assert.False(t, ValidAddress("1234567890123456789012345678901234567890"))
	assert.False(t, ValidAddress("0x123"))
	assert.False(t, ValidAddress("0xZZ34567890123456789012345678901234567890"))
}
