package population

import "gonum.org/v1/gonum/stat"

// RangeStats is a mean/sd/min/max summary of one numeric attribute.
type RangeStats struct {
	Mean float64 `json:"mean"`
	SD   float64 `json:"sd"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// GenderStats summarizes the cohort's gender split.
type GenderStats struct {
	Male      int     `json:"male"`
	Female    int     `json:"female"`
	MaleRatio float64 `json:"male_ratio"`
}

// Demographics groups the demographic summaries.
type Demographics struct {
	Age    RangeStats  `json:"age"`
	Weight RangeStats  `json:"weight"`
	Gender GenderStats `json:"gender"`
}

// Summary is the population-level report returned alongside the generated
// individuals.
type Summary struct {
	NSubjects               int            `json:"n_subjects"`
	Demographics            Demographics   `json:"demographics"`
	EthnicityDistribution   map[string]int `json:"ethnicity_distribution"`
	MetabolizerDistribution map[string]int `json:"metabolizer_distribution"`
	ActivityScore           RangeStats     `json:"activity_score"`
}

// Summarize computes the population summary for a cohort.
func Summarize(cohort []Individual) Summary {
	n := len(cohort)
	ages := make([]float64, n)
	weights := make([]float64, n)
	scores := make([]float64, n)
	males := 0

	ethCounts := make(map[string]int, len(Ethnicities()))
	for _, eth := range Ethnicities() {
		ethCounts[string(eth)] = 0
	}
	metCounts := make(map[string]int, len(MetabolizerStatuses()))
	for _, status := range MetabolizerStatuses() {
		metCounts[string(status)] = 0
	}

	for i, ind := range cohort {
		ages[i] = float64(ind.Age)
		weights[i] = ind.Weight
		scores[i] = ind.ActivityScore
		if ind.Gender == "M" {
			males++
		}
		ethCounts[string(ind.Ethnicity)]++
		metCounts[string(ind.Status)]++
	}

	maleRatio := 0.0
	if n > 0 {
		maleRatio = float64(males) / float64(n)
	}

	return Summary{
		NSubjects: n,
		Demographics: Demographics{
			Age:    rangeStats(ages),
			Weight: rangeStats(weights),
			Gender: GenderStats{Male: males, Female: n - males, MaleRatio: maleRatio},
		},
		EthnicityDistribution:   ethCounts,
		MetabolizerDistribution: metCounts,
		ActivityScore:           rangeStats(scores),
	}
}

func rangeStats(values []float64) RangeStats {
	if len(values) == 0 {
		return RangeStats{}
	}
	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	sd := 0.0
	if len(values) > 1 {
		sd = stat.PopStdDev(values, nil)
	}
	return RangeStats{
		Mean: stat.Mean(values, nil),
		SD:   sd,
		Min:  min,
		Max:  max,
	}
}
