package population

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	cohort := []Individual{
		{Age: 20, Gender: "M", Weight: 60, ActivityScore: 1.0, Ethnicity: European, Status: NormalMetabolizer},
		{Age: 40, Gender: "F", Weight: 80, ActivityScore: 2.0, Ethnicity: European, Status: NormalMetabolizer},
		{Age: 60, Gender: "F", Weight: 70, ActivityScore: 0.2, Ethnicity: African, Status: PoorMetabolizer},
	}

	s := Summarize(cohort)

	assert.Equal(t, 3, s.NSubjects)
	assert.InDelta(t, 40.0, s.Demographics.Age.Mean, 1e-9)
	assert.Equal(t, 20.0, s.Demographics.Age.Min)
	assert.Equal(t, 60.0, s.Demographics.Age.Max)
	assert.InDelta(t, 70.0, s.Demographics.Weight.Mean, 1e-9)
	assert.Equal(t, 1, s.Demographics.Gender.Male)
	assert.Equal(t, 2, s.Demographics.Gender.Female)
	assert.InDelta(t, 1.0/3.0, s.Demographics.Gender.MaleRatio, 1e-9)

	assert.Equal(t, 2, s.EthnicityDistribution[string(European)])
	assert.Equal(t, 1, s.EthnicityDistribution[string(African)])
	assert.Equal(t, 0, s.EthnicityDistribution[string(EastAsian)])

	assert.Equal(t, 2, s.MetabolizerDistribution[string(NormalMetabolizer)])
	assert.Equal(t, 1, s.MetabolizerDistribution[string(PoorMetabolizer)])
	assert.Equal(t, 0, s.MetabolizerDistribution[string(UltraRapidMetabolizer)])
}

func TestSummarizeEmptyCohort(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, 0, s.NSubjects)
	assert.Equal(t, 0.0, s.Demographics.Gender.MaleRatio)
	require.NotNil(t, s.EthnicityDistribution)
	require.NotNil(t, s.MetabolizerDistribution)
}
