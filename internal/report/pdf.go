// Package report renders simulation run reports as PDF documents.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"go-pbpk-popsim/internal/pbpk"
	"go-pbpk-popsim/internal/population"
)

const (
	pageWidth    = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 20.0
	contentWidth = pageWidth - marginLeft - marginRight
)

// RunReport bundles everything one simulation report needs.
type RunReport struct {
	Drug    pbpk.DrugParams
	Config  pbpk.SimConfig
	Summary population.Summary
	Result  *pbpk.CohortResult
	Safety  *pbpk.SafetyMargin
}

type renderer struct {
	pdf *fpdf.Fpdf
	rep RunReport
}

// GeneratePDF renders a run report into PDF bytes.
func GeneratePDF(rep RunReport) ([]byte, error) {
	if rep.Result == nil {
		return nil, fmt.Errorf("report requires a simulation result")
	}

	r := &renderer{
		pdf: fpdf.New("P", "mm", "A4", ""),
		rep: rep,
	}
	r.pdf.SetMargins(marginLeft, marginTop, marginRight)
	r.pdf.SetAutoPageBreak(true, marginBottom)

	r.addTitle()
	r.addDrugSection()
	r.addPopulationSection()
	r.addResultsSection()
	r.addCurveChart()
	r.addFooter()

	var buf bytes.Buffer
	if err := r.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *renderer) addTitle() {
	r.pdf.AddPage()

	r.pdf.SetFont("Arial", "B", 20)
	r.pdf.SetTextColor(0, 51, 102)
	r.pdf.CellFormat(contentWidth, 12, "Population PK Simulation Report", "", 1, "C", false, 0, "")

	r.pdf.SetFont("Arial", "I", 10)
	r.pdf.SetTextColor(100, 100, 100)
	r.pdf.CellFormat(contentWidth, 6, fmt.Sprintf("Generated: %s", time.Now().UTC().Format("2 January 2006 15:04 UTC")), "", 1, "C", false, 0, "")
	r.pdf.Ln(4)
}

func (r *renderer) addDrugSection() {
	r.drawSectionHeader("Drug Parameters")

	name := r.rep.Drug.Name
	if name == "" {
		name = "Unnamed compound"
	}
	rows := [][]string{
		{"Drug", name},
		{"Dose", fmt.Sprintf("%.1f mg (%s)", r.rep.Config.Dose, r.rep.Config.Route)},
		{"LogP", fmt.Sprintf("%.2f", r.rep.Drug.LogP)},
		{"Fraction unbound", fmt.Sprintf("%.3f", r.rep.Drug.Fu)},
		{"Volume of distribution", fmt.Sprintf("%.2f L/kg", r.rep.Drug.Vd)},
		{"Absorption rate", fmt.Sprintf("%.2f 1/h", r.rep.Drug.Ka)},
		{"Bioavailability", fmt.Sprintf("%.0f%%", r.rep.Drug.F*100)},
	}
	r.drawKeyValueTable(rows)
	r.pdf.Ln(4)
}

func (r *renderer) addPopulationSection() {
	r.drawSectionHeader("Virtual Population")

	s := r.rep.Summary
	rows := [][]string{
		{"Subjects", fmt.Sprintf("%d", s.NSubjects)},
		{"Age", fmt.Sprintf("%.1f +/- %.1f years (%.0f-%.0f)", s.Demographics.Age.Mean, s.Demographics.Age.SD, s.Demographics.Age.Min, s.Demographics.Age.Max)},
		{"Weight", fmt.Sprintf("%.1f +/- %.1f kg", s.Demographics.Weight.Mean, s.Demographics.Weight.SD)},
		{"Gender", fmt.Sprintf("%d male / %d female", s.Demographics.Gender.Male, s.Demographics.Gender.Female)},
		{"Activity score", fmt.Sprintf("%.2f +/- %.2f", s.ActivityScore.Mean, s.ActivityScore.SD)},
	}
	for _, status := range population.MetabolizerStatuses() {
		if n := s.MetabolizerDistribution[string(status)]; n > 0 {
			rows = append(rows, []string{string(status), fmt.Sprintf("%d", n)})
		}
	}
	r.drawKeyValueTable(rows)
	r.pdf.Ln(4)
}

func (r *renderer) addResultsSection() {
	r.drawSectionHeader("Pharmacokinetic Results")

	res := r.rep.Result
	rows := [][]string{
		{"Cmax (median)", fmt.Sprintf("%.1f ng/mL", pbpk.Percentile(res.CmaxDistribution, 50))},
		{"Cmax (95th percentile)", fmt.Sprintf("%.1f ng/mL", pbpk.Percentile(res.CmaxDistribution, 95))},
		{"AUC (median)", fmt.Sprintf("%.1f ng*h/mL", pbpk.Percentile(res.AUCDistribution, 50))},
	}

	if s := r.rep.Safety; s != nil {
		rows = append(rows,
			[]string{"Toxic threshold", fmt.Sprintf("%.1f ng/mL", s.ToxicThreshold)},
			[]string{"Subjects above threshold", fmt.Sprintf("%d of %d (%.1f%%)", s.NExceeding, s.NTotal, s.PercentExceeding)},
			[]string{"Severity", s.Severity},
		)
	}
	r.drawKeyValueTable(rows)
	r.pdf.Ln(4)
}

// addCurveChart draws the mean concentration curve with the 5th-95th
// percentile band as a simple line plot.
func (r *renderer) addCurveChart() {
	res := r.rep.Result
	if len(res.Time) < 2 {
		return
	}

	r.drawSectionHeader("Mean Plasma Concentration")

	const chartH = 60.0
	chartW := contentWidth
	x0 := marginLeft
	y0 := r.pdf.GetY() + chartH

	maxC := 0.0
	for _, c := range res.CIUpper {
		if c > maxC {
			maxC = c
		}
	}
	if maxC <= 0 {
		maxC = 1
	}
	tMax := res.Time[len(res.Time)-1]

	toXY := func(t, c float64) (float64, float64) {
		return x0 + t/tMax*chartW, y0 - c/maxC*chartH
	}

	// Axes.
	r.pdf.SetDrawColor(120, 120, 120)
	r.pdf.Line(x0, y0, x0+chartW, y0)
	r.pdf.Line(x0, y0, x0, y0-chartH)

	// Percentile band.
	r.pdf.SetDrawColor(170, 200, 230)
	for i := 1; i < len(res.Time); i++ {
		px, py := toXY(res.Time[i-1], res.CIUpper[i-1])
		cx, cy := toXY(res.Time[i], res.CIUpper[i])
		r.pdf.Line(px, py, cx, cy)
		px, py = toXY(res.Time[i-1], res.CILower[i-1])
		cx, cy = toXY(res.Time[i], res.CILower[i])
		r.pdf.Line(px, py, cx, cy)
	}

	// Mean curve.
	r.pdf.SetDrawColor(0, 51, 102)
	r.pdf.SetLineWidth(0.4)
	for i := 1; i < len(res.Time); i++ {
		px, py := toXY(res.Time[i-1], res.MeanConcentration[i-1])
		cx, cy := toXY(res.Time[i], res.MeanConcentration[i])
		r.pdf.Line(px, py, cx, cy)
	}
	r.pdf.SetLineWidth(0.2)

	r.pdf.SetY(y0 + 2)
	r.pdf.SetFont("Arial", "", 8)
	r.pdf.SetTextColor(100, 100, 100)
	r.pdf.CellFormat(contentWidth, 4, fmt.Sprintf("0 to %.0f h, peak axis %.0f ng/mL. Band: 5th-95th percentile.", tMax, maxC), "", 1, "L", false, 0, "")
	r.pdf.Ln(2)
}

func (r *renderer) addFooter() {
	r.pdf.Ln(6)
	r.pdf.SetFont("Arial", "I", 8)
	r.pdf.SetTextColor(128, 128, 128)
	r.pdf.MultiCell(contentWidth, 4,
		"Simulated results from a physiologically based pharmacokinetic model with a virtual population. "+
			"Not clinical dosing guidance.", "", "C", false)
}

func (r *renderer) drawSectionHeader(title string) {
	r.pdf.SetFont("Arial", "B", 13)
	r.pdf.SetTextColor(0, 51, 102)
	r.pdf.CellFormat(contentWidth, 8, title, "", 1, "L", false, 0, "")
	r.pdf.SetDrawColor(0, 51, 102)
	r.pdf.Line(marginLeft, r.pdf.GetY(), marginLeft+contentWidth, r.pdf.GetY())
	r.pdf.Ln(3)
}

func (r *renderer) drawKeyValueTable(rows [][]string) {
	r.pdf.SetFont("Arial", "", 9)
	for _, row := range rows {
		r.pdf.SetTextColor(80, 80, 80)
		r.pdf.CellFormat(60, 5, row[0], "", 0, "L", false, 0, "")
		r.pdf.SetTextColor(30, 30, 30)
		r.pdf.CellFormat(contentWidth-60, 5, row[1], "", 1, "L", false, 0, "")
	}
}
