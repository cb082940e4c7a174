package http

import (
	"encoding/json"
	nethttp "net/http"
	"strconv"
	"strings"
	"time"

	"go-pbpk-popsim/internal/config"
	"go-pbpk-popsim/internal/connectors/pubchem"
	"go-pbpk-popsim/internal/connectors/runstore"
	"go-pbpk-popsim/internal/connectors/studyarchive"
	"go-pbpk-popsim/internal/pbpk"
	"go-pbpk-popsim/internal/population"
	"go-pbpk-popsim/internal/scenario"
)

type generatePopulationRequest struct {
	NSubjects   int      `json:"n_subjects"`
	EthAsian    float64  `json:"eth_asian"`
	EthEuropean float64  `json:"eth_european"`
	EthAfrican  float64  `json:"eth_african"`
	AgeMin      int      `json:"age_min"`
	AgeMax      int      `json:"age_max"`
	GenderRatio *float64 `json:"gender_ratio"` // percent male; 0 means all female
	WeightMean  float64  `json:"weight_mean"`
	WeightSD    float64  `json:"weight_sd"`
	BaseCLint   float64  `json:"base_clint"`
	Seed        uint64   `json:"seed"`
}

type runSimulationRequest struct {
	DrugName       string                  `json:"drug_name"`
	LogP           float64                 `json:"log_p"`
	Fu             float64                 `json:"f_u"`
	Vd             float64                 `json:"v_d"`
	Ka             float64                 `json:"k_a"`
	Dose           float64                 `json:"dose"`
	Bioavail       float64                 `json:"bioavail"`
	Route          string                  `json:"route"`
	ToxicThreshold float64                 `json:"toxic_threshold"`
	Population     []population.Individual `json:"population"`
}

type safetyAnalysisRequest struct {
	CmaxDistribution []float64 `json:"cmax_distribution"`
	ToxicThreshold   float64   `json:"toxic_threshold"`
}

func writeAPIError(w nethttp.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{
		"success": false,
		"error":   msg,
	})
}

func generatePopulationHandler(cfg config.Config) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			writeAPIError(w, nethttp.StatusMethodNotAllowed, "POST required")
			return
		}

		var req generatePopulationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeAPIError(w, nethttp.StatusBadRequest, "invalid JSON body")
			return
		}

		params := population.DefaultParams()
		if req.NSubjects > 0 {
			params.NSubjects = req.NSubjects
		}
		if cfg.MaxSubjects > 0 && params.NSubjects > cfg.MaxSubjects {
			params.NSubjects = cfg.MaxSubjects
		}
		if req.AgeMin > 0 {
			params.AgeMin = req.AgeMin
		}
		if req.AgeMax > 0 {
			params.AgeMax = req.AgeMax
		}
		if req.GenderRatio != nil {
			params.GenderRatio = *req.GenderRatio / 100.0
		}
		if req.WeightMean > 0 {
			params.WeightMean = req.WeightMean
		}
		if req.WeightSD > 0 {
			params.WeightSD = req.WeightSD
		}
		if req.BaseCLint > 0 {
			params.BaseCLint = req.BaseCLint
		}
		params.Seed = req.Seed

		// Ethnicity weights arrive as percentages; an all-zero mix keeps the
		// defaults.
		if total := req.EthAsian + req.EthEuropean + req.EthAfrican; total > 0 {
			params.EthnicityDist = map[population.Ethnicity]float64{
				population.EastAsian: req.EthAsian / total,
				population.European:  req.EthEuropean / total,
				population.African:   req.EthAfrican / total,
			}
		}

		gen, err := population.NewGenerator(params)
		if err != nil {
			writeAPIError(w, nethttp.StatusBadRequest, err.Error())
			return
		}

		cohort := gen.Generate()
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"success":     true,
			"individuals": cohort,
			"summary":     population.Summarize(cohort),
		})
	}
}

func runSimulationHandler(cfg config.Config, runs *runstore.Store, archive *studyarchive.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			writeAPIError(w, nethttp.StatusMethodNotAllowed, "POST required")
			return
		}

		var req runSimulationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeAPIError(w, nethttp.StatusBadRequest, "invalid JSON body")
			return
		}
		if len(req.Population) == 0 {
			writeAPIError(w, nethttp.StatusBadRequest, "generate a population first")
			return
		}

		drug := pbpk.DrugParams{
			Name: strings.TrimSpace(req.DrugName),
			LogP: req.LogP,
			Fu:   req.Fu,
			Vd:   req.Vd,
			Ka:   req.Ka,
			F:    req.Bioavail,
		}
		if drug.Fu <= 0 {
			drug.Fu = 0.1
		}
		if drug.Vd <= 0 {
			drug.Vd = 1.0
		}
		if drug.Ka <= 0 {
			drug.Ka = 1.0
		}
		if drug.F <= 0 {
			drug.F = 0.8
		}

		simCfg := pbpk.SimConfig{
			Dose:    req.Dose,
			Route:   pbpk.RouteOral,
			TMax:    cfg.SimTMaxHours,
			NPoints: cfg.SimPoints,
		}
		if simCfg.Dose <= 0 {
			simCfg.Dose = 100
		}
		if strings.EqualFold(strings.TrimSpace(req.Route), string(pbpk.RouteIV)) {
			simCfg.Route = pbpk.RouteIV
		}

		cohort := make([]pbpk.Physiology, len(req.Population))
		for i, ind := range req.Population {
			cohort[i] = ind.PhysParams
		}

		start := time.Now()
		result, err := pbpk.SimulateCohort(r.Context(), drug, cohort, simCfg, pbpk.CohortOptions{Workers: cfg.SimWorkers})
		if err != nil {
			recordSimulationRun("error", time.Since(start).Seconds())
			writeAPIError(w, nethttp.StatusInternalServerError, "simulation failed: "+err.Error())
			return
		}
		recordSimulationRun("ok", time.Since(start).Seconds())

		threshold := req.ToxicThreshold
		if threshold <= 0 {
			threshold = cfg.DefaultToxicThreshold
		}
		safety, safetyErr := pbpk.AnalyzeSafety(result.CmaxDistribution, threshold)

		curves := result.IndividualCurves
		maxCurves := cfg.MaxCurvesReturned
		if maxCurves > 0 && len(curves) > maxCurves {
			curves = curves[:maxCurves]
		}

		persistRun(r, runs, archive, req, simCfg, result, safety)

		payload := map[string]any{
			"success":            true,
			"time":               result.Time,
			"mean_concentration": result.MeanConcentration,
			"std_concentration":  result.StdConcentration,
			"ci_lower":           result.CILower,
			"ci_upper":           result.CIUpper,
			"individual_curves":  curves,
			"cmax_distribution":  result.CmaxDistribution,
			"auc_distribution":   result.AUCDistribution,
		}
		if safetyErr == nil {
			payload["safety"] = safety
		}
		writeJSON(w, nethttp.StatusOK, payload)
	}
}

// persistRun saves the run to local history and the shared archive. Both are
// best effort; a storage failure never fails the simulation response.
func persistRun(r *nethttp.Request, runs *runstore.Store, archive *studyarchive.Store, req runSimulationRequest, simCfg pbpk.SimConfig, result *pbpk.CohortResult, safety *pbpk.SafetyMargin) {
	name := strings.TrimSpace(req.DrugName)
	if name == "" {
		name = "unnamed"
	}
	severity := ""
	if safety != nil {
		severity = safety.Severity
	}
	cmaxP50 := pbpk.Percentile(result.CmaxDistribution, 50)
	cmaxP95 := pbpk.Percentile(result.CmaxDistribution, 95)
	aucMean := 0.0
	for _, v := range result.AUCDistribution {
		aucMean += v
	}
	aucMean /= float64(len(result.AUCDistribution))

	if runs != nil {
		paramsJSON, _ := json.Marshal(map[string]any{
			"drug_name": name,
			"log_p":     req.LogP,
			"f_u":       req.Fu,
			"v_d":       req.Vd,
			"k_a":       req.Ka,
			"dose":      simCfg.Dose,
			"bioavail":  req.Bioavail,
			"route":     simCfg.Route,
		})
		resultJSON, _ := json.Marshal(map[string]any{
			"cmax_distribution": result.CmaxDistribution,
			"auc_distribution":  result.AUCDistribution,
		})
		start := time.Now()
		_, err := runs.SaveRun(r.Context(), runstore.Run{
			RunSummary: runstore.RunSummary{
				DrugName:  name,
				NSubjects: len(req.Population),
				CmaxP50:   cmaxP50,
				CmaxP95:   cmaxP95,
				AUCMean:   aucMean,
				Severity:  severity,
			},
			ParamsJSON: string(paramsJSON),
			ResultJSON: string(resultJSON),
		})
		recordDBQuery("runstore", "SaveRun", time.Since(start).Seconds(), err)
	}

	if archive != nil {
		start := time.Now()
		_, err := archive.ArchiveRun(r.Context(), studyarchive.ArchivedRun{
			DrugName:  name,
			NSubjects: len(req.Population),
			DoseMG:    simCfg.Dose,
			CmaxP50:   cmaxP50,
			CmaxP95:   cmaxP95,
			AUCMean:   aucMean,
			Severity:  severity,
		})
		recordDBQuery("archive", "ArchiveRun", time.Since(start).Seconds(), err)
	}
}

func fetchPubChemHandler(client *pubchem.Client, runs *runstore.Store, cacheTTL time.Duration) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if client == nil || !client.Enabled() {
			writeAPIError(w, nethttp.StatusServiceUnavailable, "pubchem integration disabled (set APP_PUBCHEM_ENABLED=true)")
			return
		}

		name := strings.TrimSpace(r.URL.Query().Get("drug_name"))
		if name == "" {
			writeAPIError(w, nethttp.StatusBadRequest, "drug_name query parameter required")
			return
		}

		if runs != nil {
			start := time.Now()
			cached, err := runs.GetCachedCompound(r.Context(), name, cacheTTL)
			recordDBQuery("runstore", "GetCachedCompound", time.Since(start).Seconds(), nil)
			if err == nil {
				var payload map[string]any
				if json.Unmarshal([]byte(cached.Payload), &payload) == nil {
					payload["cached"] = true
					writeJSON(w, nethttp.StatusOK, payload)
					return
				}
			}
		}

		start := time.Now()
		props, err := client.FetchCompound(r.Context(), name)
		recordExternalProbe("pubchem", "FetchCompound", time.Since(start).Seconds(), err)
		if err != nil {
			writeAPIError(w, nethttp.StatusBadGateway, "pubchem lookup failed")
			return
		}

		payload := map[string]any{
			"success": true,
			"found":   props.Found,
		}
		if props.Found {
			payload["mw"] = props.MW
			payload["iupac_name"] = props.IUPACName
			if props.HasLogP {
				payload["log_p"] = props.LogP
			}
		}

		if runs != nil {
			if blob, err := json.Marshal(payload); err == nil {
				start := time.Now()
				putErr := runs.PutCachedCompound(r.Context(), name, string(blob))
				recordDBQuery("runstore", "PutCachedCompound", time.Since(start).Seconds(), putErr)
			}
		}

		writeJSON(w, nethttp.StatusOK, payload)
	}
}

func safetyAnalysisHandler(defaultThreshold float64) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			writeAPIError(w, nethttp.StatusMethodNotAllowed, "POST required")
			return
		}

		var req safetyAnalysisRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeAPIError(w, nethttp.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.ToxicThreshold <= 0 {
			req.ToxicThreshold = defaultThreshold
		}

		margin, err := pbpk.AnalyzeSafety(req.CmaxDistribution, req.ToxicThreshold)
		if err != nil {
			writeAPIError(w, nethttp.StatusBadRequest, err.Error())
			return
		}

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"success": true,
			"safety":  margin,
		})
	}
}

func scenariosHandler() nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		presets, err := scenario.Presets()
		if err != nil {
			writeAPIError(w, nethttp.StatusInternalServerError, "failed to load presets")
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{"count": len(presets)},
			"data": presets,
		})
	}
}

func parseLimit(r *nethttp.Request, def int) int {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	if v > 500 {
		return 500
	}
	return v
}
