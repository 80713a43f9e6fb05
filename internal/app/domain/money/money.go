// Package money provides the fixed-point amount type used for every balance,
// price and rate computation. Amounts are stored as int64 multiples of
// 1e-8 units, the same smallest-unit convention the platform uses for
// on-chain currency.
package money

import (
	"fmt"
	"math"
	"math/big"
)

// Scale is the number of smallest units per whole unit.
const Scale = 100_000_000

// Amount is a fixed-point quantity of currency, shares or instrument units.
type Amount int64

// FromFloat converts a human-readable value into an Amount, rounding to the
// nearest smallest unit.
func FromFloat(v float64) Amount {
	return Amount(math.Round(v * Scale))
}

// FromUnits converts a whole-unit count into an Amount.
func FromUnits(n int64) Amount {
	return Amount(n * Scale)
}

// Float converts back to float64 for reporting and events.
func (a Amount) Float() float64 {
	return float64(a) / Scale
}

// Units returns the whole-unit part of the amount, truncated toward zero.
func (a Amount) Units() int64 {
	return int64(a) / Scale
}

// IsWhole reports whether the amount is an exact multiple of one unit.
func (a Amount) IsWhole() bool {
	return int64(a)%Scale == 0
}

// Mul multiplies two amounts, e.g. a unit price by a share count. The
// raw product of two scaled values can exceed int64, so it is computed
// at arbitrary precision before rescaling.
func (a Amount) Mul(b Amount) Amount {
	p := new(big.Int).Mul(big.NewInt(int64(a)), big.NewInt(int64(b)))
	p.Quo(p, big.NewInt(Scale))
	return Amount(p.Int64())
}

// MulInt scales the amount by an integer factor.
func (a Amount) MulInt(n int64) Amount {
	return Amount(int64(a) * n)
}

// DivInt divides the amount by an integer divisor, truncating toward zero.
func (a Amount) DivInt(n int64) Amount {
	if n == 0 {
		return 0
	}
	return Amount(int64(a) / n)
}

// Min returns the smaller of the two amounts.
func Min(a, b Amount) Amount {
	if a < b {
		return a
	}
	return b
}

// String renders the amount with up to eight decimal places.
func (a Amount) String() string {
	whole := int64(a) / Scale
	frac := int64(a) % Scale
	if frac < 0 {
		frac = -frac
	}
	if frac == 0 {
		return fmt.Sprintf("%d", whole)
	}
	s := fmt.Sprintf("%d.%08d", whole, frac)
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	return s
}
