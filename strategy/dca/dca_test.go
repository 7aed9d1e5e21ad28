package dca

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vela-markets/backtestcore/candle"
)

func dailyCandleAt(t *testing.T, i int, close float64) candle.Candle {
	t.Helper()
	open := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
	c, err := candle.New(open, open.Add(24*time.Hour),
		decimal.NewFromFloat(close), decimal.NewFromFloat(close+1), decimal.NewFromFloat(close-1),
		decimal.NewFromFloat(close), decimal.NewFromInt(10), decimal.NewFromInt(1000), 5)
	require.NoError(t, err)
	return c
}

// TestRSIOversoldDoublesAmount is SPEC_FULL.md §8 scenario 10c: a steady
// decline pushes RSI(14) to oversold well before index 20; the trade at
// index 20 must use the oversold multiplier and carry an "RSI oversold"
// reason.
func TestRSIOversoldDoublesAmount(t *testing.T) {
	candles := make([]candle.Candle, 25)
	for i := range candles {
		candles[i] = dailyCandleAt(t, i, 200-5*float64(i)) // strictly declining, no gains
	}

	s := New()
	cfg := RSIBasedConfig(decimal.NewFromInt(10), Frequency{Unit: Daily, N: 1}, RSIConfig{
		Period:         14,
		OversoldThr:    30,
		OverboughtThr:  70,
		OversoldMult:   decimal.NewFromInt(2),
		OverboughtMult: decimal.NewFromFloat(0.5),
		NormalMult:     decimal.NewFromInt(1),
	})
	require.NoError(t, s.Initialize(map[string]any{"config": cfg}))

	var sigAt20 *decimal.Decimal
	var reasonAt20 string
	for i := 0; i <= 20; i++ {
		sig, err := s.Analyze(candles, i)
		require.NoError(t, err)
		if i == 20 {
			require.NotNil(t, sig, "expected a buy signal at index 20")
			sigAt20 = &sig.QuoteAmount
			reasonAt20 = s.LastReason()
		}
	}

	require.NotNil(t, sigAt20)
	require.True(t, sigAt20.Equal(decimal.NewFromInt(20)), "expected amount=20 (base 10 x oversold mult 2), got %s", sigAt20)
	require.True(t, strings.Contains(reasonAt20, "RSI oversold"))
}

// TestDipBuyingLadder is SPEC_FULL.md §8 scenario 10d.
func TestDipBuyingLadder(t *testing.T) {
	ref := decimal.NewFromInt(100)
	levels := []DipLevel{
		{DropPct: 5, AmountMult: decimal.NewFromFloat(1.5), MaxTriggers: 3},
		{DropPct: 10, AmountMult: decimal.NewFromFloat(2.5), MaxTriggers: 1},
	}

	s := New()
	cfg := DipBuyingConfig(decimal.NewFromInt(10), Frequency{Unit: Daily, N: 1}, levels, 1)
	cfg.ReferencePrice = &ref
	require.NoError(t, s.Initialize(map[string]any{"config": cfg}))

	closes := []float64{100, 94, 100, 89, 100, 94}
	candles := make([]candle.Candle, len(closes))
	for i, cl := range closes {
		candles[i] = dailyCandleAt(t, i, cl)
	}

	var amounts []decimal.Decimal
	for i := range candles {
		sig, err := s.Analyze(candles, i)
		require.NoError(t, err)
		if sig != nil {
			amounts = append(amounts, sig.QuoteAmount)
		}
	}

	require.Len(t, amounts, 3, "expected trades at the 94, 89 and second 94 closes only")
	require.True(t, amounts[0].Equal(decimal.NewFromInt(10).Mul(decimal.NewFromFloat(1.5))), "first 6%% dip uses level 1 (1.5x)")
	require.True(t, amounts[1].Equal(decimal.NewFromInt(10).Mul(decimal.NewFromFloat(2.5))), "11%% dip uses level 2 (2.5x)")
	require.True(t, amounts[2].Equal(decimal.NewFromInt(10).Mul(decimal.NewFromFloat(1.5))), "a third 6%% dip reuses level 1")
}

func TestSimpleConfigValidation(t *testing.T) {
	cfg := SimpleConfig(decimal.Zero, Frequency{Unit: Daily, N: 1})
	require.Error(t, cfg.Validate(), "base_amount must be positive")

	cfg = SimpleConfig(decimal.NewFromInt(10), Frequency{Unit: Daily, N: 1})
	require.NoError(t, cfg.Validate())
}
