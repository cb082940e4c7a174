package population

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDeterministicWithSeed(t *testing.T) {
	params := DefaultParams()
	params.NSubjects = 50
	params.Seed = 42

	g1, err := NewGenerator(params)
	require.NoError(t, err)
	g2, err := NewGenerator(params)
	require.NoError(t, err)

	assert.Equal(t, g1.Generate(), g2.Generate())
}

func TestGenerateBounds(t *testing.T) {
	params := DefaultParams()
	params.NSubjects = 200
	params.AgeMin = 30
	params.AgeMax = 50
	params.Seed = 7

	g, err := NewGenerator(params)
	require.NoError(t, err)
	cohort := g.Generate()
	require.Len(t, cohort, 200)

	for _, ind := range cohort {
		assert.GreaterOrEqual(t, ind.Age, 30)
		assert.LessOrEqual(t, ind.Age, 50)
		assert.GreaterOrEqual(t, ind.Weight, 40.0)
		assert.LessOrEqual(t, ind.Weight, 150.0)
		assert.GreaterOrEqual(t, ind.Height, 140.0)
		assert.LessOrEqual(t, ind.Height, 200.0)
		assert.Contains(t, []string{"M", "F"}, ind.Gender)
		assert.Greater(t, ind.ActivityScore, 0.0)
		assert.Greater(t, ind.PhysParams.CLint, 0.0)
		assert.Greater(t, ind.PhysParams.QLiver, 0.0)
		assert.InDelta(t, 0.047*ind.PhysParams.BodyWeight, ind.PhysParams.VPlasma, 1e-9)
		assert.InDelta(t, 0.025*ind.PhysParams.BodyWeight, ind.PhysParams.VLiver, 1e-9)
	}

	// IDs are sequential from 1.
	assert.Equal(t, 1, cohort[0].ID)
	assert.Equal(t, 200, cohort[199].ID)
}

func TestGenerateGenderRatioExtremes(t *testing.T) {
	params := DefaultParams()
	params.NSubjects = 40
	params.Seed = 3

	params.GenderRatio = 1.0
	g, err := NewGenerator(params)
	require.NoError(t, err)
	for _, ind := range g.Generate() {
		assert.Equal(t, "M", ind.Gender)
	}

	params.GenderRatio = 0.0
	g, err = NewGenerator(params)
	require.NoError(t, err)
	for _, ind := range g.Generate() {
		assert.Equal(t, "F", ind.Gender)
	}
}

func TestGenerateSingleEthnicity(t *testing.T) {
	params := DefaultParams()
	params.NSubjects = 30
	params.Seed = 11
	params.EthnicityDist = map[Ethnicity]float64{African: 1.0}

	g, err := NewGenerator(params)
	require.NoError(t, err)
	for _, ind := range g.Generate() {
		assert.Equal(t, African, ind.Ethnicity)
	}
}

func TestGenerateGenotypeShape(t *testing.T) {
	params := DefaultParams()
	params.NSubjects = 100
	params.Seed = 19

	g, err := NewGenerator(params)
	require.NoError(t, err)
	for _, ind := range g.Generate() {
		assert.Regexp(t, `^\*\w+/\*\w+$`, ind.CYP2C19)
		assert.Regexp(t, `^\*\w+/\*\w+$`, ind.CYP3A4)
		assert.Equal(t, ind.Status.Code(), ind.Metabolizer)
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{name: "zero subjects", mutate: func(p *Params) { p.NSubjects = 0 }},
		{name: "inverted age range", mutate: func(p *Params) { p.AgeMin = 70; p.AgeMax = 20 }},
		{name: "gender ratio over one", mutate: func(p *Params) { p.GenderRatio = 1.5 }},
		{name: "negative gender ratio", mutate: func(p *Params) { p.GenderRatio = -0.1 }},
		{name: "zero weight mean", mutate: func(p *Params) { p.WeightMean = 0 }},
		{name: "negative ethnicity weight", mutate: func(p *Params) {
			p.EthnicityDist = map[Ethnicity]float64{European: -1}
		}},
		{name: "all-zero ethnicity weights", mutate: func(p *Params) {
			p.EthnicityDist = map[Ethnicity]float64{European: 0, African: 0}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := DefaultParams()
			tt.mutate(&params)
			_, err := NewGenerator(params)
			assert.Error(t, err)
		})
	}
}

func TestClassifyMetabolizer(t *testing.T) {
	tests := []struct {
		score float64
		want  MetabolizerStatus
	}{
		{score: 0, want: PoorMetabolizer},
		{score: 0.25, want: PoorMetabolizer},
		{score: 0.26, want: IntermediateMetabolizer},
		{score: 1.0, want: IntermediateMetabolizer},
		{score: 1.5, want: NormalMetabolizer},
		{score: 2.0, want: NormalMetabolizer},
		{score: 2.01, want: UltraRapidMetabolizer},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyMetabolizer(tt.score), "score %g", tt.score)
	}
}

func TestMetabolizerStatusCode(t *testing.T) {
	assert.Equal(t, "PM", PoorMetabolizer.Code())
	assert.Equal(t, "IM", IntermediateMetabolizer.Code())
	assert.Equal(t, "NM", NormalMetabolizer.Code())
	assert.Equal(t, "UM", UltraRapidMetabolizer.Code())
}

func TestGenotypeString(t *testing.T) {
	assert.Equal(t, "*1/*2", Genotype{"*1", "*2"}.String())
}
