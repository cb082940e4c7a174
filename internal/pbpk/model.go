// Package pbpk implements a three-compartment physiologically based
// pharmacokinetic model (gut, central/plasma, liver) with first-order oral
// absorption, hepatic metabolism and optional renal clearance.
package pbpk

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// DrugParams describes the compound under simulation.
type DrugParams struct {
	Name string  `json:"name"`
	LogP float64 `json:"log_p"` // octanol/water partition coefficient
	Fu   float64 `json:"f_u"`   // fraction unbound in plasma
	Vd   float64 `json:"v_d"`   // distribution volume, L/kg
	Ka   float64 `json:"k_a"`   // absorption rate constant, 1/h
	F    float64 `json:"f"`     // oral bioavailability
	MW   float64 `json:"mw"`    // molecular weight, g/mol
}

// DefaultDrugParams returns a generic neutral lipophilic compound.
func DefaultDrugParams() DrugParams {
	return DrugParams{Name: "Generic Drug", LogP: 2.0, Fu: 0.1, Vd: 1.0, Ka: 1.0, F: 0.8, MW: 300.0}
}

// Physiology holds the subject-level physiological parameters the model
// depends on. Values are produced by the population generator but can be
// constructed directly for single-subject runs.
type Physiology struct {
	BodyWeight    float64 `json:"body_weight"`    // kg
	VPlasma       float64 `json:"v_plasma"`       // plasma volume, L
	VLiver        float64 `json:"v_liver"`        // liver volume, L
	QLiver        float64 `json:"q_liver"`        // hepatic blood flow, L/h
	CLint         float64 `json:"cl_int"`         // intrinsic hepatic clearance, L/h
	CLRenal       float64 `json:"cl_renal"`       // renal clearance, L/h
	ActivityScore float64 `json:"activity_score"` // CYP activity multiplier
}

// DefaultPhysiology returns a 70 kg reference subject.
func DefaultPhysiology() Physiology {
	return Physiology{BodyWeight: 70, VPlasma: 3.0, VLiver: 1.5, QLiver: 90, CLint: 10, CLRenal: 0, ActivityScore: 1.0}
}

// Route of administration.
const (
	RouteOral = "oral"
	RouteIV   = "iv"
)

// SimConfig controls the simulated dosing regimen and time grid.
type SimConfig struct {
	Dose    float64 `json:"dose"`     // mg
	Route   string  `json:"route"`    // "oral" or "iv"
	TMax    float64 `json:"t_max"`    // simulation horizon, h
	NPoints int     `json:"n_points"` // time grid size
}

// DefaultSimConfig is a single 100 mg oral dose followed for 24 hours at
// 6-minute resolution.
func DefaultSimConfig() SimConfig {
	return SimConfig{Dose: 100, Route: RouteOral, TMax: 24, NPoints: 241}
}

// Validate checks that a simulation configuration is solvable.
func (c SimConfig) Validate() error {
	if c.Dose <= 0 {
		return fmt.Errorf("dose must be positive, got %g", c.Dose)
	}
	if c.TMax <= 0 {
		return fmt.Errorf("t_max must be positive, got %g", c.TMax)
	}
	if c.NPoints < 2 {
		return fmt.Errorf("n_points must be at least 2, got %d", c.NPoints)
	}
	if c.Route != RouteOral && c.Route != RouteIV {
		return fmt.Errorf("unknown route %q", c.Route)
	}
	return nil
}

// PKMetrics are the summary pharmacokinetic parameters of one concentration
// curve. THalf is nil when the terminal phase is too short to regress.
type PKMetrics struct {
	Cmax  float64  `json:"cmax"`   // ng/mL
	Tmax  float64  `json:"tmax"`   // h
	AUC   float64  `json:"auc"`    // ng*h/mL
	THalf *float64 `json:"t_half"` // h
}

// Result is a single-subject model solution. Concentrations are in ng/mL.
type Result struct {
	Time    []float64 `json:"time"`
	CPlasma []float64 `json:"c_plasma"`
	CLiver  []float64 `json:"c_liver"`
	Metrics PKMetrics `json:"pk_metrics"`
}

// Model couples drug, physiology and regimen for one subject.
type Model struct {
	Drug DrugParams
	Phys Physiology
	Cfg  SimConfig

	kpLiver float64
}

// NewModel builds a model and precomputes the liver/plasma partition
// coefficient from lipophilicity (simplified Poulin-Theil).
func NewModel(drug DrugParams, phys Physiology, cfg SimConfig) *Model {
	return &Model{Drug: drug, Phys: phys, Cfg: cfg, kpLiver: estimateKpLiver(drug)}
}

// KpLiver returns the estimated liver/plasma partition coefficient.
func (m *Model) KpLiver() float64 { return m.kpLiver }

// estimateKpLiver estimates the liver partition coefficient from LogP and the
// unbound fraction, clamped to [1, 50].
func estimateKpLiver(drug DrugParams) float64 {
	kp := 0.5 + 0.5*math.Pow(10, 0.7*drug.LogP-0.3)*drug.Fu
	return math.Max(1.0, math.Min(kp, 50.0))
}

// odeParams is the flattened parameter set used by the derivative function.
type odeParams struct {
	ka, f, vc, vLiver, qLiver, clInt, clRenal, fu, kp float64
}

// state: [0] drug amount in gut (mg), [1] plasma conc (mg/L), [2] liver conc (mg/L).
func derivatives(y [3]float64, p odeParams) [3]float64 {
	aGut, cPlasma, cLiver := y[0], y[1], y[2]

	dGut := -p.ka * aGut

	absorption := p.ka * aGut * p.f / p.vc
	liverUptake := (p.qLiver / p.vc) * cPlasma
	liverReturn := (p.qLiver / p.vc) * (cLiver / p.kp)
	renal := (p.clRenal / p.vc) * cPlasma
	dPlasma := absorption - liverUptake + liverReturn - renal

	hepUptake := (p.qLiver / p.vLiver) * cPlasma
	hepReturn := (p.qLiver / p.vLiver) * (cLiver / p.kp)
	metabolism := (p.clInt * p.fu / p.vLiver) * cLiver
	dLiver := hepUptake - hepReturn - metabolism

	return [3]float64{dGut, dPlasma, dLiver}
}

// Solve integrates the model over the configured time grid with a fixed-step
// fourth-order Runge-Kutta scheme and derives PK metrics from the plasma
// curve.
func (m *Model) Solve() (*Result, error) {
	if err := m.Cfg.Validate(); err != nil {
		return nil, err
	}

	vCentral := m.Drug.Vd * m.Phys.BodyWeight
	if vCentral <= 0 {
		return nil, fmt.Errorf("central volume must be positive (v_d=%g, body_weight=%g)", m.Drug.Vd, m.Phys.BodyWeight)
	}

	p := odeParams{
		ka:      m.Drug.Ka,
		f:       m.Drug.F,
		vc:      vCentral,
		vLiver:  m.Phys.VLiver,
		qLiver:  m.Phys.QLiver,
		clInt:   m.Phys.CLint * m.Phys.ActivityScore,
		clRenal: m.Phys.CLRenal,
		fu:      m.Drug.Fu,
		kp:      m.kpLiver,
	}

	n := m.Cfg.NPoints
	h := m.Cfg.TMax / float64(n-1)

	var y [3]float64
	if m.Cfg.Route == RouteIV {
		y = [3]float64{0, m.Cfg.Dose / vCentral, 0}
	} else {
		y = [3]float64{m.Cfg.Dose, 0, 0}
	}

	time := make([]float64, n)
	cPlasma := make([]float64, n)
	cLiver := make([]float64, n)

	for i := 0; i < n; i++ {
		time[i] = float64(i) * h
		// mg/L * 1000 = ng/mL
		cPlasma[i] = math.Max(0, y[1]) * 1000
		cLiver[i] = math.Max(0, y[2]) * 1000
		if i == n-1 {
			break
		}
		y = rk4Step(y, h, p)
	}
	time[n-1] = m.Cfg.TMax

	return &Result{
		Time:    time,
		CPlasma: cPlasma,
		CLiver:  cLiver,
		Metrics: computeMetrics(time, cPlasma),
	}, nil
}

func rk4Step(y [3]float64, h float64, p odeParams) [3]float64 {
	k1 := derivatives(y, p)
	k2 := derivatives(add(y, scale(k1, h/2)), p)
	k3 := derivatives(add(y, scale(k2, h/2)), p)
	k4 := derivatives(add(y, scale(k3, h)), p)

	var out [3]float64
	for i := range out {
		out[i] = y[i] + h/6*(k1[i]+2*k2[i]+2*k3[i]+k4[i])
	}
	return out
}

func add(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

func scale(a [3]float64, s float64) [3]float64 {
	return [3]float64{a[0] * s, a[1] * s, a[2] * s}
}

// computeMetrics derives Cmax, Tmax, AUC and the terminal half-life from one
// plasma concentration curve. The half-life comes from a log-linear
// regression over the terminal phase (points after Tmax still above 10% of
// Cmax); it is omitted when fewer than three such points exist or the
// regression slope is non-negative.
func computeMetrics(time, cPlasma []float64) PKMetrics {
	cmaxIdx := 0
	for i, c := range cPlasma {
		if c > cPlasma[cmaxIdx] {
			cmaxIdx = i
		}
	}
	cmax := cPlasma[cmaxIdx]
	tmax := time[cmaxIdx]

	auc := integrate.Trapezoidal(time, cPlasma)

	var tTerminal, logC []float64
	for i := range time {
		if time[i] > tmax && cPlasma[i] > 0.1*cmax {
			tTerminal = append(tTerminal, time[i])
			logC = append(logC, math.Log(cPlasma[i]+1e-10))
		}
	}

	metrics := PKMetrics{Cmax: cmax, Tmax: tmax, AUC: auc}
	if len(tTerminal) > 2 {
		_, slope := stat.LinearRegression(tTerminal, logC, nil, false)
		if slope < 0 {
			tHalf := -math.Ln2 / slope
			metrics.THalf = &tHalf
		}
	}
	return metrics
}
