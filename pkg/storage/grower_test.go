package storage

import (
	"testing"

	"github.com/cartridgeio/cartridge/pkg/cartridgeerr"
	"github.com/stretchr/testify/require"
)

func TestPlanGrowthDoublesOnce(t *testing.T) {
	plan, err := PlanGrowth(100, 5, 10, 0)
	require.NoError(t, err)
	require.Equal(t, int64(200), plan.NewTotalBlocks)
	require.Equal(t, 1, plan.Doublings)
}

func TestPlanGrowthDoublesRepeatedly(t *testing.T) {
	plan, err := PlanGrowth(3, 0, 1000, 0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, plan.NewTotalBlocks-3, int64(1000))
	require.Greater(t, plan.Doublings, 1)
}

func TestPlanGrowthCappedByMax(t *testing.T) {
	_, err := PlanGrowth(100, 0, 1_000_000, 400)
	require.Error(t, err)
	require.Equal(t, cartridgeerr.OutOfSpace, cartridgeerr.Of(err))
}

func TestPlanGrowthClampsToMax(t *testing.T) {
	plan, err := PlanGrowth(100, 50, 250, 300)
	require.NoError(t, err)
	require.Equal(t, int64(300), plan.NewTotalBlocks)
}

func TestShouldGrow(t *testing.T) {
	require.True(t, ShouldGrow(100, 5, 10))
	require.False(t, ShouldGrow(100, 50, 10))
}
