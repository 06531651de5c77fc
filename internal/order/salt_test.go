package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/limitbot/internal/domain"
)

func TestNewSaltDistinctness(t *testing.T) {
	const n = 10_000
	seen := make(map[int64]struct{}, n)
	for i := 0; i < n; i++ {
		s := NewSalt()
		_, dup := seen[s]
		require.False(t, dup, "salt %d repeated at iteration %d", s, i)
		seen[s] = struct{}{}
	}
}

func TestNewSaltNonNegative(t *testing.T) {
	for i := 0; i < 100; i++ {
		assert.GreaterOrEqual(t, NewSalt(), int64(0))
	}
}

func TestBuildAssignsFreshSalts(t *testing.T) {
	intent := domain.MarketIntent{TokenID: testToken, Side: domain.SideBuy, Amount: "1"}
	a, err := Build(intent, testConfig())
	require.NoError(t, err)
	b, err := Build(intent, testConfig())
	require.NoError(t, err)
	assert.NotEqual(t, a.Salt, b.Salt)
}
