package population

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"go-pbpk-popsim/internal/pbpk"
)

// Generator produces virtual cohorts from a fixed parameter set. A Generator
// is not safe for concurrent use; create one per request.
type Generator struct {
	params Params
	rng    *rand.Rand
}

// NewGenerator validates params and seeds the sampler. A zero seed draws a
// random one, so repeated runs produce different cohorts unless pinned.
func NewGenerator(params Params) (*Generator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(params.EthnicityDist) == 0 {
		params.EthnicityDist = DefaultParams().EthnicityDist
	}

	seed := params.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Generator{
		params: params,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}, nil
}

// Generate samples the full cohort.
func (g *Generator) Generate() []Individual {
	cohort := make([]Individual, 0, g.params.NSubjects)
	for i := 0; i < g.params.NSubjects; i++ {
		cohort = append(cohort, g.sampleIndividual(i+1))
	}
	return cohort
}

func (g *Generator) sampleIndividual(id int) Individual {
	eth := g.sampleEthnicity()

	gender := "F"
	if g.rng.Float64() < g.params.GenderRatio {
		gender = "M"
	}
	age := g.params.AgeMin
	if g.params.AgeMax > g.params.AgeMin {
		age += g.rng.IntN(g.params.AgeMax - g.params.AgeMin + 1)
	}

	weight, height, bmi := g.sampleAnthropometrics(gender, age)

	cyp2c19 := g.sampleGenotype("CYP2C19", eth)
	cyp3a4 := g.sampleGenotype("CYP3A4", eth)

	as2c19 := activityScore("CYP2C19", cyp2c19[0]) + activityScore("CYP2C19", cyp2c19[1])
	as3a4 := activityScore("CYP3A4", cyp3a4[0]) + activityScore("CYP3A4", cyp3a4[1])
	combined := math.Sqrt(as2c19 * as3a4)

	status := ClassifyMetabolizer(combined)

	return Individual{
		ID:            id,
		Age:           age,
		Gender:        gender,
		Weight:        round1(weight),
		Height:        round1(height),
		BMI:           round1(bmi),
		Ethnicity:     eth,
		Metabolizer:   status.Code(),
		ActivityScore: round2(combined),
		CYP2C19:       cyp2c19.String(),
		CYP3A4:        cyp3a4.String(),
		PhysParams:    g.samplePhysiology(weight, age, combined),
		Status:        status,
	}
}

func (g *Generator) sampleEthnicity() Ethnicity {
	// Deterministic iteration order so a fixed seed yields a fixed cohort.
	keys := make([]Ethnicity, 0, len(g.params.EthnicityDist))
	total := 0.0
	for eth, w := range g.params.EthnicityDist {
		if w > 0 {
			keys = append(keys, eth)
			total += w
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	if len(keys) == 0 || total <= 0 {
		return EastAsian
	}

	u := g.rng.Float64() * total
	acc := 0.0
	for _, eth := range keys {
		acc += g.params.EthnicityDist[eth]
		if u < acc {
			return eth
		}
	}
	return keys[len(keys)-1]
}

// sampleAnthropometrics draws weight, height and BMI for one subject.
// Males run roughly 10% heavier, weight drifts up 0.5%/year after 40, and
// both measurements are clamped to plausible adult ranges.
func (g *Generator) sampleAnthropometrics(gender string, age int) (weight, height, bmi float64) {
	weightAdj := 0.9
	heightMean, heightSD := 162.0, 6.0
	if gender == "M" {
		weightAdj = 1.1
		heightMean, heightSD = 175.0, 7.0
	}

	ageFactor := 1.0 + 0.005*math.Max(0, float64(age-40))

	weight = distuv.Normal{
		Mu:    g.params.WeightMean * weightAdj * ageFactor,
		Sigma: g.params.WeightSD,
		Src:   g.rng,
	}.Rand()
	weight = clamp(weight, 40, 150)

	height = distuv.Normal{Mu: heightMean, Sigma: heightSD, Src: g.rng}.Rand()
	height = clamp(height, 140, 200)

	bmi = weight / math.Pow(height/100, 2)
	return weight, height, bmi
}

// sampleGenotype draws two alleles independently (Hardy-Weinberg) and sorts
// them so *1/*2 and *2/*1 collapse to one canonical diplotype.
func (g *Generator) sampleGenotype(gene string, eth Ethnicity) Genotype {
	freqs := alleleFrequencies(eth, gene)

	alleles := make([]string, 0, len(freqs))
	total := 0.0
	for a, f := range freqs {
		alleles = append(alleles, a)
		total += f
	}
	sort.Strings(alleles)

	draw := func() string {
		u := g.rng.Float64() * total
		acc := 0.0
		for _, a := range alleles {
			acc += freqs[a]
			if u < acc {
				return a
			}
		}
		return alleles[len(alleles)-1]
	}

	a1, a2 := draw(), draw()
	if a2 < a1 {
		a1, a2 = a2, a1
	}
	return Genotype{a1, a2}
}

// samplePhysiology scales organ volumes and flows from body weight and age
// and applies the genetic activity score plus a lognormal inter-individual
// variability (CV ~30%) to intrinsic clearance.
func (g *Generator) samplePhysiology(weight float64, age int, activityScore float64) pbpk.Physiology {
	weightRatio := weight / 70.0

	ageFactor := 1.0 - 0.1*math.Max(0, float64(age-60)/20)
	qLiver := 90 * math.Pow(weightRatio, 0.75) * ageFactor

	variability := distuv.LogNormal{Mu: 0, Sigma: 0.3, Src: g.rng}.Rand()
	clInt := g.params.BaseCLint * activityScore * variability

	return pbpk.Physiology{
		BodyWeight:    weight,
		VPlasma:       0.047 * weight,
		VLiver:        0.025 * weight,
		QLiver:        qLiver,
		CLint:         clInt,
		CLRenal:       0,
		ActivityScore: activityScore,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
