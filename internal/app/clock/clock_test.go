package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFakeAdvanceAndSet(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := NewFake(start)

	require.Equal(t, start, clk.Now())
	clk.Advance(48 * time.Hour)
	require.Equal(t, start.Add(48*time.Hour), clk.Now())

	later := start.AddDate(2, 0, 0)
	clk.Set(later)
	require.Equal(t, later, clk.Now())
}

func TestYearsBetween(t *testing.T) {
	from := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	require.Equal(t, int64(0), YearsBetween(from, time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, int64(1), YearsBetween(from, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, int64(5), YearsBetween(from, from.AddDate(5, 0, 0)))
	require.Equal(t, int64(-1), YearsBetween(from, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)))
}
