package pbpk

import (
	"context"
	"errors"
	"runtime"

	"github.com/sourcegraph/conc/pool"
	"gonum.org/v1/gonum/stat"
)

// CohortResult aggregates a population simulation: the shared time grid,
// every subject's plasma curve, the population mean/sd curves, a 5th-95th
// percentile band and the per-subject Cmax/AUC distributions.
type CohortResult struct {
	Time              []float64   `json:"time"`
	IndividualCurves  [][]float64 `json:"individual_curves"`
	MeanConcentration []float64   `json:"mean_concentration"`
	StdConcentration  []float64   `json:"std_concentration"`
	CILower           []float64   `json:"ci_lower"`
	CIUpper           []float64   `json:"ci_upper"`
	CmaxDistribution  []float64   `json:"cmax_distribution"`
	AUCDistribution   []float64   `json:"auc_distribution"`
	Metrics           []PKMetrics `json:"pk_metrics_list"`
}

// CohortOptions tunes a cohort run. Zero values pick defaults.
type CohortOptions struct {
	// Workers caps the number of concurrent subject solves.
	// Defaults to 2x NumCPU.
	Workers int
	// OnProgress, when non-nil, is called once per completed subject.
	// It must be safe for concurrent use.
	OnProgress func()
}

// SimulateCohort solves the model for every subject concurrently and
// aggregates the population statistics. Subject order is preserved in all
// per-subject slices. The run stops early when ctx is cancelled.
func SimulateCohort(ctx context.Context, drug DrugParams, cohort []Physiology, cfg SimConfig, opts CohortOptions) (*CohortResult, error) {
	if len(cohort) == 0 {
		return nil, errors.New("empty cohort")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}

	nSubjects := len(cohort)
	curves := make([][]float64, nSubjects)
	metrics := make([]PKMetrics, nSubjects)

	p := pool.New().WithMaxGoroutines(workers).WithContext(ctx).WithCancelOnError()
	for i, phys := range cohort {
		p.Go(func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			res, err := NewModel(drug, phys, cfg).Solve()
			if err != nil {
				return err
			}
			curves[i] = res.CPlasma
			metrics[i] = res.Metrics
			if opts.OnProgress != nil {
				opts.OnProgress()
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	nPoints := cfg.NPoints
	h := cfg.TMax / float64(nPoints-1)
	time := make([]float64, nPoints)
	for i := range time {
		time[i] = float64(i) * h
	}
	time[nPoints-1] = cfg.TMax

	mean := make([]float64, nPoints)
	std := make([]float64, nPoints)
	ciLower := make([]float64, nPoints)
	ciUpper := make([]float64, nPoints)

	column := make([]float64, nSubjects)
	for t := 0; t < nPoints; t++ {
		for s := 0; s < nSubjects; s++ {
			column[s] = curves[s][t]
		}
		mean[t] = stat.Mean(column, nil)
		if nSubjects > 1 {
			std[t] = stat.PopStdDev(column, nil)
		}
		ciLower[t] = Percentile(column, 5)
		ciUpper[t] = Percentile(column, 95)
	}

	cmaxDist := make([]float64, nSubjects)
	aucDist := make([]float64, nSubjects)
	for i, m := range metrics {
		cmaxDist[i] = m.Cmax
		aucDist[i] = m.AUC
	}

	return &CohortResult{
		Time:              time,
		IndividualCurves:  curves,
		MeanConcentration: mean,
		StdConcentration:  std,
		CILower:           ciLower,
		CIUpper:           ciUpper,
		CmaxDistribution:  cmaxDist,
		AUCDistribution:   aucDist,
		Metrics:           metrics,
	}, nil
}
