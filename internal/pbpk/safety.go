package pbpk

import "errors"

// Safety severity labels used by the dashboard and reports.
const (
	SeverityDanger  = "danger"
	SeverityWarning = "warning"
	SeveritySafe    = "safe"
)

// SafetyMargin summarizes how a population Cmax distribution compares to a
// toxic concentration threshold.
type SafetyMargin struct {
	ToxicThreshold     float64 `json:"toxic_threshold"`
	NTotal             int     `json:"n_total"`
	NExceeding         int     `json:"n_exceeding_threshold"`
	PercentExceeding   float64 `json:"percentage_exceeding"`
	PercentSafe        float64 `json:"percentage_safe"`
	CmaxMax            float64 `json:"cmax_max"`
	Cmax95thPercentile float64 `json:"cmax_95th_percentile"`
	SafetyRatio        float64 `json:"safety_ratio"`
	Severity           string  `json:"severity"`
}

// ErrEmptyDistribution is returned when a safety analysis is requested for
// an empty Cmax distribution.
var ErrEmptyDistribution = errors.New("empty cmax distribution")

// AnalyzeSafety computes the safety margin of a Cmax distribution against a
// toxic threshold in ng/mL.
func AnalyzeSafety(cmaxDist []float64, toxicThreshold float64) (*SafetyMargin, error) {
	if len(cmaxDist) == 0 {
		return nil, ErrEmptyDistribution
	}
	if toxicThreshold <= 0 {
		return nil, errors.New("toxic threshold must be positive")
	}

	nTotal := len(cmaxDist)
	nExceeding := 0
	cmaxMax := cmaxDist[0]
	for _, c := range cmaxDist {
		if c > toxicThreshold {
			nExceeding++
		}
		if c > cmaxMax {
			cmaxMax = c
		}
	}

	pctExceeding := float64(nExceeding) / float64(nTotal) * 100
	p95 := Percentile(cmaxDist, 95)

	ratio := 0.0
	if p95 > 0 {
		ratio = toxicThreshold / p95
	}

	return &SafetyMargin{
		ToxicThreshold:     toxicThreshold,
		NTotal:             nTotal,
		NExceeding:         nExceeding,
		PercentExceeding:   pctExceeding,
		PercentSafe:        100 - pctExceeding,
		CmaxMax:            cmaxMax,
		Cmax95thPercentile: p95,
		SafetyRatio:        ratio,
		Severity:           ClassifySeverity(pctExceeding),
	}, nil
}

// ClassifySeverity maps the percentage of subjects exceeding the toxic
// threshold to an alert severity: >10 is danger, >5 is warning, anything
// else is safe.
func ClassifySeverity(percentExceeding float64) string {
	switch {
	case percentExceeding > 10:
		return SeverityDanger
	case percentExceeding > 5:
		return SeverityWarning
	default:
		return SeveritySafe
	}
}
