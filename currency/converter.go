package currency

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount is returned when an amount is negative or does not
	// fit the settlement range.
	ErrInvalidAmount = errors.New("currency: invalid amount")
	// ErrInvalidRate is returned when a fee rate falls outside [0, 10000]
	// basis points or a conversion rate is zero.
	ErrInvalidRate = errors.New("currency: invalid rate")
)

// MaxFeeBps is the upper bound for fee rates expressed in basis points.
const MaxFeeBps = 10_000

// Converter translates between the demo fiat unit and settlement
// micro-units at a fixed rate. The rate is supplied explicitly at
// construction so tests and deployments pin their own fixture instead of
// relying on a package-level constant.
type Converter struct {
	microPerUsd decimal.Decimal
}

// NewConverter builds a converter from the number of settlement micro-units
// one USD buys. The demo deployment uses 10 (100,000 USD per whole
// settlement unit of 1,000,000 micro-units).
func NewConverter(microUnitsPerUsd int64) (*Converter, error) {
	if microUnitsPerUsd <= 0 {
		return nil, fmt.Errorf("%w: micro-units per USD must be positive", ErrInvalidRate)
	}
	return &Converter{microPerUsd: decimal.NewFromInt(microUnitsPerUsd)}, nil
}

// UsdToMicroUnit converts a USD figure to the integral micro-unit amount,
// rounding to the nearest whole micro-unit. Fixed-point arithmetic keeps the
// displayed figure and the on-wire figure in agreement.
func (c *Converter) UsdToMicroUnit(usd decimal.Decimal) (uint64, error) {
	if usd.IsNegative() {
		return 0, fmt.Errorf("%w: negative usd amount %s", ErrInvalidAmount, usd)
	}
	micro := usd.Mul(c.microPerUsd).Round(0)
	raw := micro.BigInt()
	if !raw.IsUint64() {
		return 0, fmt.Errorf("%w: %s micro-units exceeds settlement range", ErrInvalidAmount, micro)
	}
	return raw.Uint64(), nil
}

// MicroUnitToUsd is the inverse of UsdToMicroUnit. A round trip through both
// directions stays within one micro-unit of the original value.
func (c *Converter) MicroUnitToUsd(amount uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), 0).Div(c.microPerUsd)
}

// ComputeFee returns floor(amount * feeBps / 10000). The multiplication runs
// through big.Int so amounts near the uint64 ceiling cannot wrap.
func ComputeFee(amount uint64, feeBps uint32) (uint64, error) {
	if feeBps > MaxFeeBps {
		return 0, fmt.Errorf("%w: %d bps", ErrInvalidRate, feeBps)
	}
	fee := new(big.Int).SetUint64(amount)
	fee.Mul(fee, big.NewInt(int64(feeBps)))
	fee.Div(fee, big.NewInt(MaxFeeBps))
	// fee <= amount whenever feeBps <= 10000, so this cannot overflow.
	return fee.Uint64(), nil
}

// ComputeTotal returns the fee-inclusive amount a funder must transfer:
// amount + ComputeFee(amount, feeBps).
func ComputeTotal(amount uint64, feeBps uint32) (uint64, error) {
	fee, err := ComputeFee(amount, feeBps)
	if err != nil {
		return 0, err
	}
	if amount > math.MaxUint64-fee {
		return 0, fmt.Errorf("%w: total exceeds settlement range", ErrInvalidAmount)
	}
	return amount + fee, nil
}
