package money

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConversions(t *testing.T) {
	require.Equal(t, Amount(5*Scale), FromFloat(5.0))
	require.Equal(t, Amount(Scale/2), FromFloat(0.5))
	require.Equal(t, Amount(3*Scale), FromUnits(3))
	require.InDelta(t, 2.5, FromFloat(2.5).Float(), 1e-12)
	require.Equal(t, int64(2), FromFloat(2.9).Units())
}

func TestIsWhole(t *testing.T) {
	require.True(t, FromUnits(7).IsWhole())
	require.False(t, FromFloat(7.1).IsWhole())
	require.True(t, Amount(0).IsWhole())
}

func TestMul(t *testing.T) {
	// 5 per share * 10 shares = 50
	require.Equal(t, FromUnits(50), FromFloat(5).Mul(FromUnits(10)))
	// fractional share count keeps fixed-point precision
	require.Equal(t, FromFloat(2.5), FromFloat(5).Mul(FromFloat(0.5)))
	// large products must not wrap: 1050 per unit * 2 units = 2100
	require.Equal(t, FromUnits(2100), FromUnits(1050).Mul(FromUnits(2)))
	require.Equal(t, FromUnits(1050), FromUnits(1050).Mul(FromUnits(1)))
	require.Equal(t, FromUnits(1_000_000_000), FromUnits(100_000).Mul(FromUnits(10_000)))
}

func TestMulIntDivInt(t *testing.T) {
	require.Equal(t, FromUnits(50), FromUnits(1000).MulInt(5).DivInt(100))
	require.Equal(t, FromUnits(200), FromUnits(1000).DivInt(5))
	require.Equal(t, Amount(0), FromUnits(1).DivInt(0))
}

func TestMin(t *testing.T) {
	require.Equal(t, FromUnits(1), Min(FromUnits(1), FromUnits(2)))
	require.Equal(t, FromUnits(1), Min(FromUnits(2), FromUnits(1)))
}

func TestString(t *testing.T) {
	require.Equal(t, "5", FromUnits(5).String())
	require.Equal(t, "0.5", FromFloat(0.5).String())
	require.Equal(t, "-1.25", FromFloat(-1.25).String())
}
