package pbpk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateKpLiverClamped(t *testing.T) {
	// Very hydrophilic compounds clamp to the lower bound.
	low := estimateKpLiver(DrugParams{LogP: -5, Fu: 0.01})
	assert.Equal(t, 1.0, low)

	// Extremely lipophilic compounds clamp to the upper bound.
	high := estimateKpLiver(DrugParams{LogP: 8, Fu: 1.0})
	assert.Equal(t, 50.0, high)

	mid := estimateKpLiver(DefaultDrugParams())
	assert.Greater(t, mid, 1.0)
	assert.Less(t, mid, 50.0)
}

func TestSimConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SimConfig
		wantErr bool
	}{
		{name: "default ok", cfg: DefaultSimConfig(), wantErr: false},
		{name: "zero dose", cfg: SimConfig{Dose: 0, Route: RouteOral, TMax: 24, NPoints: 241}, wantErr: true},
		{name: "zero horizon", cfg: SimConfig{Dose: 100, Route: RouteOral, TMax: 0, NPoints: 241}, wantErr: true},
		{name: "single point grid", cfg: SimConfig{Dose: 100, Route: RouteOral, TMax: 24, NPoints: 1}, wantErr: true},
		{name: "bad route", cfg: SimConfig{Dose: 100, Route: "sublingual", TMax: 24, NPoints: 241}, wantErr: true},
		{name: "iv ok", cfg: SimConfig{Dose: 100, Route: RouteIV, TMax: 24, NPoints: 241}, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSolveOralCurveShape(t *testing.T) {
	m := NewModel(DefaultDrugParams(), DefaultPhysiology(), DefaultSimConfig())
	res, err := m.Solve()
	require.NoError(t, err)

	require.Len(t, res.Time, 241)
	require.Len(t, res.CPlasma, 241)
	assert.Equal(t, 0.0, res.Time[0])
	assert.Equal(t, 24.0, res.Time[240])

	// Oral dosing starts with nothing in plasma.
	assert.Equal(t, 0.0, res.CPlasma[0])

	for i, c := range res.CPlasma {
		assert.GreaterOrEqual(t, c, 0.0, "negative concentration at index %d", i)
	}

	// The curve rises to an interior peak and declines afterwards.
	assert.Greater(t, res.Metrics.Cmax, 0.0)
	assert.Greater(t, res.Metrics.Tmax, 0.0)
	assert.Less(t, res.Metrics.Tmax, 24.0)
	assert.Less(t, res.CPlasma[240], res.Metrics.Cmax)
	assert.Greater(t, res.Metrics.AUC, 0.0)
}

func TestSolveIVInitialConcentration(t *testing.T) {
	drug := DefaultDrugParams()
	phys := DefaultPhysiology()
	cfg := DefaultSimConfig()
	cfg.Route = RouteIV

	res, err := NewModel(drug, phys, cfg).Solve()
	require.NoError(t, err)

	// Dose / Vc in mg/L, reported as ng/mL.
	wantC0 := cfg.Dose / (drug.Vd * phys.BodyWeight) * 1000
	assert.InDelta(t, wantC0, res.CPlasma[0], 1e-9)
}

func TestSolveHalfLifeEstimated(t *testing.T) {
	res, err := NewModel(DefaultDrugParams(), DefaultPhysiology(), DefaultSimConfig()).Solve()
	require.NoError(t, err)

	require.NotNil(t, res.Metrics.THalf)
	assert.Greater(t, *res.Metrics.THalf, 0.0)
}

func TestSolveHigherClearanceLowersExposure(t *testing.T) {
	drug := DefaultDrugParams()
	cfg := DefaultSimConfig()

	slow := DefaultPhysiology()
	slow.ActivityScore = 0.25

	fast := DefaultPhysiology()
	fast.ActivityScore = 2.5

	slowRes, err := NewModel(drug, slow, cfg).Solve()
	require.NoError(t, err)
	fastRes, err := NewModel(drug, fast, cfg).Solve()
	require.NoError(t, err)

	assert.Greater(t, slowRes.Metrics.AUC, fastRes.Metrics.AUC)
}

func TestComputeMetricsKnownExponential(t *testing.T) {
	// A pure exponential decline with half-life 4 h starting at its peak.
	k := math.Ln2 / 4.0
	n := 101
	time := make([]float64, n)
	conc := make([]float64, n)
	for i := 0; i < n; i++ {
		time[i] = float64(i) * 0.1
		conc[i] = 1000 * math.Exp(-k*time[i])
	}

	m := computeMetrics(time, conc)
	assert.Equal(t, 1000.0, m.Cmax)
	assert.Equal(t, 0.0, m.Tmax)
	require.NotNil(t, m.THalf)
	assert.InDelta(t, 4.0, *m.THalf, 0.01)
}

func TestComputeMetricsNoTerminalPhase(t *testing.T) {
	// A monotonically rising curve has no terminal phase to regress.
	time := []float64{0, 1, 2, 3}
	conc := []float64{0, 10, 20, 30}

	m := computeMetrics(time, conc)
	assert.Equal(t, 30.0, m.Cmax)
	assert.Nil(t, m.THalf)
}
