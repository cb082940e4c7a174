package http

import (
	"encoding/json"
	"errors"
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
	"go-pbpk-popsim/internal/report"
)

func runListHandler(runs *runstore.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if runs == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"error": "run history disabled (set APP_RUN_STORE_SQLITE_PATH)",
			})
			return
		}

		limit := parseLimit(r, 50)
		start := time.Now()
		items, err := runs.ListRuns(r.Context(), limit)
		recordDBQuery("runstore", "ListRuns", time.Since(start).Seconds(), err)
		if err != nil {
			writeJSON(w, nethttp.StatusInternalServerError, map[string]any{
				"error": "failed to list runs",
			})
			return
		}

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{
				"limit": limit,
				"count": len(items),
			},
			"data": items,
		})
	}
}

func runDetailHandler(runs *runstore.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if runs == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"error": "run history disabled (set APP_RUN_STORE_SQLITE_PATH)",
			})
			return
		}

		idRaw := strings.TrimPrefix(r.URL.Path, "/api/v1/runs/")
		id, err := strconv.ParseInt(strings.TrimSpace(idRaw), 10, 64)
		if err != nil || id <= 0 {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{
				"error": "invalid run id",
			})
			return
		}

		start := time.Now()
		run, err := runs.GetRun(r.Context(), id)
		recordDBQuery("runstore", "GetRun", time.Since(start).Seconds(), err)
		if errors.Is(err, runstore.ErrNotFound) {
			writeJSON(w, nethttp.StatusNotFound, map[string]any{
				"error": "run not found",
			})
			return
		}
		if err != nil {
			writeJSON(w, nethttp.StatusInternalServerError, map[string]any{
				"error": "failed to fetch run",
			})
			return
		}

		// Params and result are stored as JSON blobs; expand them inline.
		var params, result any
		_ = json.Unmarshal([]byte(run.ParamsJSON), &params)
		_ = json.Unmarshal([]byte(run.ResultJSON), &result)

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"data": map[string]any{
				"run":    run.RunSummary,
				"params": params,
				"result": result,
			},
		})
	}
}

func archiveSummaryHandler(archive *studyarchive.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if archive == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"error": "study archive disabled (set APP_ARCHIVE_DB_ENABLED=true)",
			})
			return
		}

		limit := parseLimit(r, 50)
		start := time.Now()
		items, err := archive.SummaryByDrug(r.Context(), limit)
		recordDBQuery("archive", "SummaryByDrug", time.Since(start).Seconds(), err)
		if err != nil {
			writeJSON(w, nethttp.StatusInternalServerError, map[string]any{
				"error": "failed to summarize archive",
			})
			return
		}

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{
				"limit": limit,
				"count": len(items),
			},
			"data": items,
		})
	}
}

func archiveRecentHandler(archive *studyarchive.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if archive == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"error": "study archive disabled (set APP_ARCHIVE_DB_ENABLED=true)",
			})
			return
		}

		limit := parseLimit(r, 50)
		start := time.Now()
		items, err := archive.ListRecent(r.Context(), limit)
		recordDBQuery("archive", "ListRecent", time.Since(start).Seconds(), err)
		if err != nil {
			writeJSON(w, nethttp.StatusInternalServerError, map[string]any{
				"error": "failed to list archived runs",
			})
			return
		}

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{
				"limit": limit,
				"count": len(items),
			},
			"data": items,
		})
	}
}

func servicesStatusHandler(runs *runstore.Store, archive *studyarchive.Store, client *pubchem.Client) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		out := map[string]any{
			"run_store": map[string]any{
				"enabled": runs != nil,
			},
			"pubchem": map[string]any{
				"enabled": client != nil && client.Enabled(),
			},
		}

		archiveStatus := map[string]any{
			"enabled": archive != nil,
		}
		if archive != nil {
			start := time.Now()
			stats, err := archive.ServiceStats(r.Context())
			recordDBQuery("archive", "ServiceStats", time.Since(start).Seconds(), err)
			if err != nil {
				archiveStatus["reachable"] = false
				archiveStatus["error"] = err.Error()
			} else {
				archiveStatus["reachable"] = true
				archiveStatus["stats"] = stats
			}
		}
		out["archive"] = archiveStatus

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"data": out,
		})
	}
}

// simulationPDFHandler re-runs the simulation described by the request body
// and streams a PDF report.
func simulationPDFHandler(cfg config.Config) nethttp.HandlerFunc {
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

		cohort := make([]pbpk.Physiology, len(req.Population))
		for i := range req.Population {
			cohort[i] = req.Population[i].PhysParams
			// Status is not part of the wire format; rebuild it for the
			// metabolizer breakdown.
			req.Population[i].Status = population.ClassifyMetabolizer(req.Population[i].ActivityScore)
		}

		result, err := pbpk.SimulateCohort(r.Context(), drug, cohort, simCfg, pbpk.CohortOptions{Workers: cfg.SimWorkers})
		if err != nil {
			writeAPIError(w, nethttp.StatusInternalServerError, "simulation failed: "+err.Error())
			return
		}

		threshold := req.ToxicThreshold
		if threshold <= 0 {
			threshold = cfg.DefaultToxicThreshold
		}
		safety, _ := pbpk.AnalyzeSafety(result.CmaxDistribution, threshold)

		blob, err := report.GeneratePDF(report.RunReport{
			Drug:    drug,
			Config:  simCfg,
			Summary: population.Summarize(req.Population),
			Result:  result,
			Safety:  safety,
		})
		if err != nil {
			writeAPIError(w, nethttp.StatusInternalServerError, "failed to render report")
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="simulation-report.pdf"`)
		w.WriteHeader(nethttp.StatusOK)
		_, _ = w.Write(blob)
	}
}
