package population

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed alleles.yaml
var allelesYAML []byte

// referenceData holds the pharmacogenomic lookup tables shipped with the
// binary: per-ethnicity CYP allele frequencies and per-allele activity
// scores.
type referenceData struct {
	AlleleFrequencies map[string]map[string]map[string]float64 `yaml:"allele_frequencies"`
	ActivityScores    map[string]map[string]float64            `yaml:"activity_scores"`
}

var (
	refOnce sync.Once
	refData referenceData
	refErr  error
)

func loadReferenceData() (referenceData, error) {
	refOnce.Do(func() {
		refErr = yaml.Unmarshal(allelesYAML, &refData)
		if refErr != nil {
			refErr = fmt.Errorf("parse embedded allele tables: %w", refErr)
		}
	})
	return refData, refErr
}

// fallbackEthnicity is used when an ethnicity has no frequency table.
const fallbackEthnicity = "East Asian"

// alleleFrequencies returns the allele frequency table for one ethnicity and
// gene. Missing ethnicities fall back to East Asian; missing genes return a
// wild-type-only table.
func alleleFrequencies(eth Ethnicity, gene string) map[string]float64 {
	data, err := loadReferenceData()
	if err != nil {
		return map[string]float64{"*1": 1.0}
	}

	name := string(eth)
	if _, ok := data.AlleleFrequencies[name]; !ok {
		name = fallbackEthnicity
	}
	freqs, ok := data.AlleleFrequencies[name][gene]
	if !ok || len(freqs) == 0 {
		return map[string]float64{"*1": 1.0}
	}
	return freqs
}

// activityScore returns the activity score of one allele, defaulting to 1.0
// (normal function) for unknown genes or alleles.
func activityScore(gene, allele string) float64 {
	data, err := loadReferenceData()
	if err != nil {
		return 1.0
	}
	scores, ok := data.ActivityScores[gene]
	if !ok {
		return 1.0
	}
	score, ok := scores[allele]
	if !ok {
		return 1.0
	}
	return score
}
