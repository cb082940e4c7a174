package report

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-pbpk-popsim/internal/pbpk"
	"go-pbpk-popsim/internal/population"
)

func TestGeneratePDF(t *testing.T) {
	drug := pbpk.DefaultDrugParams()
	cfg := pbpk.DefaultSimConfig()
	cohort := []pbpk.Physiology{pbpk.DefaultPhysiology(), pbpk.DefaultPhysiology()}

	result, err := pbpk.SimulateCohort(context.Background(), drug, cohort, cfg, pbpk.CohortOptions{})
	require.NoError(t, err)

	safety, err := pbpk.AnalyzeSafety(result.CmaxDistribution, 1000)
	require.NoError(t, err)

	blob, err := GeneratePDF(RunReport{
		Drug:    drug,
		Config:  cfg,
		Summary: population.Summarize(nil),
		Result:  result,
		Safety:  safety,
	})
	require.NoError(t, err)
	require.NotEmpty(t, blob)
	assert.True(t, bytes.HasPrefix(blob, []byte("%PDF")), "output is not a PDF")
}

func TestGeneratePDFRequiresResult(t *testing.T) {
	_, err := GeneratePDF(RunReport{})
	assert.Error(t, err)
}
