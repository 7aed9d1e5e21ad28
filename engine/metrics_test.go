package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// TestMaxDrawdown is SPEC_FULL.md §8 scenario 10f: portfolio_value sequence
// 100, 120, 90, 110, 80 yields max_drawdown = (120-80)/120*100 = 33.33...
func TestMaxDrawdown(t *testing.T) {
	values := []string{"100", "120", "90", "110", "80"}
	trades := make([]Trade, len(values))
	for i, v := range values {
		trades[i] = Trade{PortfolioValue: decimal.RequireFromString(v)}
	}

	dd := calculateMaxDrawdown(trades)
	expected := decimal.RequireFromString("120").Sub(decimal.RequireFromString("80")).
		Div(decimal.RequireFromString("120")).Mul(decimal.NewFromInt(100))
	require.True(t, dd.Equal(expected), "expected %s, got %s", expected, dd)
	require.True(t, dd.GreaterThan(decimal.RequireFromString("33.33")))
	require.True(t, dd.LessThan(decimal.RequireFromString("33.34")))
}

func TestMaxDrawdownEmpty(t *testing.T) {
	require.True(t, calculateMaxDrawdown(nil).IsZero())
}
