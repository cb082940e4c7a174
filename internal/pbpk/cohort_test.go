package pbpk

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulateCohortEmpty(t *testing.T) {
	_, err := SimulateCohort(context.Background(), DefaultDrugParams(), nil, DefaultSimConfig(), CohortOptions{})
	assert.Error(t, err)
}

func TestSimulateCohortInvalidConfig(t *testing.T) {
	cfg := DefaultSimConfig()
	cfg.Dose = -1
	_, err := SimulateCohort(context.Background(), DefaultDrugParams(), []Physiology{DefaultPhysiology()}, cfg, CohortOptions{})
	assert.Error(t, err)
}

func TestSimulateCohortIdenticalSubjects(t *testing.T) {
	drug := DefaultDrugParams()
	cfg := DefaultSimConfig()
	cohort := []Physiology{DefaultPhysiology(), DefaultPhysiology(), DefaultPhysiology()}

	res, err := SimulateCohort(context.Background(), drug, cohort, cfg, CohortOptions{Workers: 2})
	require.NoError(t, err)

	require.Len(t, res.IndividualCurves, 3)
	require.Len(t, res.Time, cfg.NPoints)
	require.Len(t, res.MeanConcentration, cfg.NPoints)
	require.Len(t, res.CmaxDistribution, 3)
	require.Len(t, res.AUCDistribution, 3)
	require.Len(t, res.Metrics, 3)

	// Identical subjects collapse the band onto the mean with zero spread.
	for t0 := range res.Time {
		assert.InDelta(t, res.IndividualCurves[0][t0], res.MeanConcentration[t0], 1e-9)
		assert.InDelta(t, res.MeanConcentration[t0], res.CILower[t0], 1e-9)
		assert.InDelta(t, res.MeanConcentration[t0], res.CIUpper[t0], 1e-9)
		assert.InDelta(t, 0.0, res.StdConcentration[t0], 1e-9)
	}

	assert.Equal(t, res.CmaxDistribution[0], res.CmaxDistribution[1])
	assert.Equal(t, res.AUCDistribution[0], res.AUCDistribution[2])
}

func TestSimulateCohortPreservesSubjectOrder(t *testing.T) {
	drug := DefaultDrugParams()
	cfg := DefaultSimConfig()

	slow := DefaultPhysiology()
	slow.ActivityScore = 0.25
	fast := DefaultPhysiology()
	fast.ActivityScore = 2.5

	res, err := SimulateCohort(context.Background(), drug, []Physiology{slow, fast}, cfg, CohortOptions{})
	require.NoError(t, err)

	// The slow metabolizer in slot 0 accumulates more exposure.
	assert.Greater(t, res.AUCDistribution[0], res.AUCDistribution[1])
}

func TestSimulateCohortProgressCallback(t *testing.T) {
	var done atomic.Int64
	cohort := []Physiology{DefaultPhysiology(), DefaultPhysiology()}

	_, err := SimulateCohort(context.Background(), DefaultDrugParams(), cohort, DefaultSimConfig(), CohortOptions{
		OnProgress: func() { done.Add(1) },
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), done.Load())
}

func TestSimulateCohortCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cohort := make([]Physiology, 64)
	for i := range cohort {
		cohort[i] = DefaultPhysiology()
	}

	_, err := SimulateCohort(ctx, DefaultDrugParams(), cohort, DefaultSimConfig(), CohortOptions{Workers: 1})
	assert.ErrorIs(t, err, context.Canceled)
}
