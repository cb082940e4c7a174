package population

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlleleFrequenciesKnownTable(t *testing.T) {
	freqs := alleleFrequencies(EastAsian, "CYP2C19")
	require.NotEmpty(t, freqs)

	total := 0.0
	for _, f := range freqs {
		total += f
	}
	assert.InDelta(t, 1.0, total, 0.02)
}

func TestAlleleFrequenciesUnknownEthnicityFallsBack(t *testing.T) {
	assert.Equal(t, alleleFrequencies(EastAsian, "CYP2C19"), alleleFrequencies(Ethnicity("Martian"), "CYP2C19"))
}

func TestAlleleFrequenciesUnknownGeneWildType(t *testing.T) {
	assert.Equal(t, map[string]float64{"*1": 1.0}, alleleFrequencies(European, "CYP9Z9"))
}

func TestActivityScores(t *testing.T) {
	assert.Equal(t, 1.0, activityScore("CYP2C19", "*1"))
	assert.Equal(t, 0.0, activityScore("CYP2C19", "*2"))
	assert.Equal(t, 1.25, activityScore("CYP2C19", "*17"))
	assert.Equal(t, 0.5, activityScore("CYP3A4", "*22"))

	// Unknown genes or alleles default to normal function.
	assert.Equal(t, 1.0, activityScore("CYP9Z9", "*1"))
	assert.Equal(t, 1.0, activityScore("CYP2C19", "*999"))
}
