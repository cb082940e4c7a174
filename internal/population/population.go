// Package population generates virtual subject cohorts with demographic,
// anthropometric and pharmacogenomic variability via Monte Carlo sampling.
// Genotypes are drawn under Hardy-Weinberg equilibrium from per-ethnicity
// allele frequency tables and translated into CYP activity scores that scale
// each subject's intrinsic hepatic clearance.
package population

import (
	"fmt"
	"strings"

	"go-pbpk-popsim/internal/pbpk"
)

// Ethnicity is a population ancestry group with its own allele frequencies.
type Ethnicity string

const (
	EastAsian         Ethnicity = "East Asian"
	European          Ethnicity = "European"
	African           Ethnicity = "African"
	Latino            Ethnicity = "Latino"
	CentralSouthAsian Ethnicity = "Central/South Asian"
)

// Ethnicities lists every supported ancestry group.
func Ethnicities() []Ethnicity {
	return []Ethnicity{EastAsian, European, African, Latino, CentralSouthAsian}
}

// MetabolizerStatus is a categorical phenotype derived from the combined CYP
// activity score.
type MetabolizerStatus string

const (
	PoorMetabolizer         MetabolizerStatus = "Poor Metabolizer (PM)"
	IntermediateMetabolizer MetabolizerStatus = "Intermediate Metabolizer (IM)"
	NormalMetabolizer       MetabolizerStatus = "Normal Metabolizer (NM)"
	UltraRapidMetabolizer   MetabolizerStatus = "Ultra-rapid Metabolizer (UM)"
)

// MetabolizerStatuses lists the phenotypes in order of increasing activity.
func MetabolizerStatuses() []MetabolizerStatus {
	return []MetabolizerStatus{PoorMetabolizer, IntermediateMetabolizer, NormalMetabolizer, UltraRapidMetabolizer}
}

// Code returns the short phenotype code (PM, IM, NM, UM).
func (m MetabolizerStatus) Code() string {
	open := strings.IndexByte(string(m), '(')
	if open < 0 || open+3 > len(m) {
		return string(m)
	}
	return strings.TrimSuffix(string(m)[open+1:], ")")
}

// ClassifyMetabolizer maps a combined activity score to a phenotype.
func ClassifyMetabolizer(activityScore float64) MetabolizerStatus {
	switch {
	case activityScore <= 0.25:
		return PoorMetabolizer
	case activityScore <= 1.0:
		return IntermediateMetabolizer
	case activityScore <= 2.0:
		return NormalMetabolizer
	default:
		return UltraRapidMetabolizer
	}
}

// Genotype is a diplotype: two star alleles in canonical (sorted) order.
type Genotype [2]string

// String renders the diplotype as "*1/*2".
func (g Genotype) String() string { return g[0] + "/" + g[1] }

// Individual is one virtual subject. The JSON shape matches the dashboard
// and run-simulation wire contract.
type Individual struct {
	ID            int             `json:"id"`
	Age           int             `json:"age"`
	Gender        string          `json:"gender"` // "M" or "F"
	Weight        float64         `json:"weight"` // kg
	Height        float64         `json:"height"` // cm
	BMI           float64         `json:"bmi"`
	Ethnicity     Ethnicity       `json:"ethnicity"`
	Metabolizer   string          `json:"metabolizer"` // short code
	ActivityScore float64         `json:"activity_score"`
	CYP2C19       string          `json:"cyp2c19"`
	CYP3A4        string          `json:"cyp3a4"`
	PhysParams    pbpk.Physiology `json:"phys_params"`

	// Status is the long phenotype label backing the short Metabolizer code.
	Status MetabolizerStatus `json:"-"`
}

// Params configures a population generation run.
type Params struct {
	NSubjects     int
	EthnicityDist map[Ethnicity]float64
	AgeMin        int
	AgeMax        int
	GenderRatio   float64 // male fraction in [0,1]
	WeightMean    float64 // kg
	WeightSD      float64 // kg
	BaseCLint     float64 // L/h
	Seed          uint64  // 0 draws a random seed
}

// DefaultParams is a 1000-subject adult cohort with a three-way ethnicity
// mix matching the prototype defaults.
func DefaultParams() Params {
	return Params{
		NSubjects: 1000,
		EthnicityDist: map[Ethnicity]float64{
			EastAsian: 0.34,
			European:  0.33,
			African:   0.33,
		},
		AgeMin:      18,
		AgeMax:      65,
		GenderRatio: 0.5,
		WeightMean:  70,
		WeightSD:    15,
		BaseCLint:   10,
	}
}

// Validate checks generation parameters.
func (p Params) Validate() error {
	if p.NSubjects <= 0 {
		return fmt.Errorf("n_subjects must be positive, got %d", p.NSubjects)
	}
	if p.AgeMin > p.AgeMax {
		return fmt.Errorf("age range inverted: %d > %d", p.AgeMin, p.AgeMax)
	}
	if p.GenderRatio < 0 || p.GenderRatio > 1 {
		return fmt.Errorf("gender ratio must be in [0,1], got %g", p.GenderRatio)
	}
	if p.WeightMean <= 0 {
		return fmt.Errorf("weight mean must be positive, got %g", p.WeightMean)
	}
	total := 0.0
	for _, w := range p.EthnicityDist {
		if w < 0 {
			return fmt.Errorf("negative ethnicity weight %g", w)
		}
		total += w
	}
	if len(p.EthnicityDist) > 0 && total <= 0 {
		return fmt.Errorf("ethnicity weights sum to zero")
	}
	return nil
}
