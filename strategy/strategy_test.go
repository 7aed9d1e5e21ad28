package strategy_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vela-markets/backtestcore/strategy"
	"github.com/vela-markets/backtestcore/strategy/dca"
	"github.com/vela-markets/backtestcore/strategy/smacross"
)

// buildRegistry mirrors cmd/backtestd/main.go's registration of every
// known strategy under its canonical name.
func buildRegistry() *strategy.Registry {
	r := strategy.NewRegistry()
	r.Register("dca", func() strategy.Strategy { return dca.New() })
	r.Register("sma_crossover", func() strategy.Strategy { return smacross.New() })
	return r
}

// TestRegistryRoundTrip asserts SPEC_FULL.md §8 property 12: for every
// registered name, Registry.Get(name)().Metadata().ID == name.
func TestRegistryRoundTrip(t *testing.T) {
	r := buildRegistry()
	names := r.Names()
	require.Len(t, names, 2)

	for _, name := range names {
		s, ok := r.Get(name)
		require.True(t, ok, "registered name %q must resolve", name)
		require.Equal(t, name, s.Metadata().ID, "registry key must match the constructed strategy's metadata ID")
	}
}

func TestRegistryGetUnknownName(t *testing.T) {
	r := buildRegistry()
	_, ok := r.Get("does_not_exist")
	require.False(t, ok)
}
