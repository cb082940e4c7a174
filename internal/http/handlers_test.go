package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go-pbpk-popsim/internal/config"
	"go-pbpk-popsim/internal/connectors/runstore"
	"go-pbpk-popsim/internal/population"
)

func testConfig() config.Config {
	return config.Config{
		MaxSubjects:           1000,
		SimTMaxHours:          24,
		SimPoints:             61,
		SimWorkers:            2,
		MaxCurvesReturned:     3,
		DefaultToxicThreshold: 1000,
	}
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return payload
}

func TestGeneratePopulationHandler(t *testing.T) {
	h := generatePopulationHandler(testConfig())

	body := []byte(`{"n_subjects": 20, "seed": 42, "gender_ratio": 50}`)
	req := httptest.NewRequest(http.MethodPost, "/api/generate-population", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	payload := decodeBody(t, rr)
	if payload["success"] != true {
		t.Fatalf("expected success=true, got %v", payload["success"])
	}
	individuals, ok := payload["individuals"].([]any)
	if !ok || len(individuals) != 20 {
		t.Fatalf("expected 20 individuals, got %v", payload["individuals"])
	}
	summary, ok := payload["summary"].(map[string]any)
	if !ok || summary["n_subjects"] != float64(20) {
		t.Fatalf("unexpected summary: %v", payload["summary"])
	}
}

func TestGeneratePopulationHandler_CapsAtMaxSubjects(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSubjects = 10
	h := generatePopulationHandler(cfg)

	body := []byte(`{"n_subjects": 500, "seed": 1}`)
	req := httptest.NewRequest(http.MethodPost, "/api/generate-population", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	payload := decodeBody(t, rr)
	if individuals := payload["individuals"].([]any); len(individuals) != 10 {
		t.Fatalf("expected cohort capped at 10, got %d", len(individuals))
	}
}

func TestGeneratePopulationHandler_ZeroGenderRatio(t *testing.T) {
	h := generatePopulationHandler(testConfig())

	body := []byte(`{"n_subjects": 100, "seed": 9, "gender_ratio": 0}`)
	req := httptest.NewRequest(http.MethodPost, "/api/generate-population", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	payload := decodeBody(t, rr)
	summary := payload["summary"].(map[string]any)
	gender := summary["demographics"].(map[string]any)["gender"].(map[string]any)
	if gender["male"] != float64(0) {
		t.Fatalf("expected all-female cohort, got %v males", gender["male"])
	}
	if gender["female"] != float64(100) {
		t.Fatalf("expected 100 females, got %v", gender["female"])
	}
}

func TestGeneratePopulationHandler_SingleEthnicity(t *testing.T) {
	h := generatePopulationHandler(testConfig())

	body := []byte(`{"n_subjects": 50, "seed": 3, "eth_african": 100}`)
	req := httptest.NewRequest(http.MethodPost, "/api/generate-population", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	payload := decodeBody(t, rr)
	summary := payload["summary"].(map[string]any)
	dist := summary["ethnicity_distribution"].(map[string]any)
	if dist["African"] != float64(50) {
		t.Fatalf("expected 50 African subjects, got %v (distribution %v)", dist["African"], dist)
	}
}

func TestGeneratePopulationHandler_ZeroEthnicityMixKeepsDefaults(t *testing.T) {
	h := generatePopulationHandler(testConfig())

	body := []byte(`{"n_subjects": 300, "seed": 7, "eth_asian": 0, "eth_european": 0, "eth_african": 0}`)
	req := httptest.NewRequest(http.MethodPost, "/api/generate-population", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	payload := decodeBody(t, rr)
	summary := payload["summary"].(map[string]any)
	dist := summary["ethnicity_distribution"].(map[string]any)
	nonZero := 0
	for _, n := range dist {
		if n.(float64) > 0 {
			nonZero++
		}
	}
	if nonZero < 2 {
		t.Fatalf("expected the default ethnicity mix, got %v", dist)
	}
}

func TestGeneratePopulationHandler_BadJSON(t *testing.T) {
	h := generatePopulationHandler(testConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/generate-population", bytes.NewReader([]byte("not json")))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestGeneratePopulationHandler_MethodNotAllowed(t *testing.T) {
	h := generatePopulationHandler(testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/generate-population", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, rr.Code)
	}
}

func TestRunSimulationHandler_EmptyPopulation(t *testing.T) {
	h := runSimulationHandler(testConfig(), nil, nil)

	body := []byte(`{"drug_name": "Omeprazole", "dose": 20, "population": []}`)
	req := httptest.NewRequest(http.MethodPost, "/api/run-simulation", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
	payload := decodeBody(t, rr)
	if payload["success"] != false {
		t.Fatalf("expected success=false, got %v", payload["success"])
	}
	if payload["error"] != "generate a population first" {
		t.Fatalf("unexpected error message: %v", payload["error"])
	}
}

func TestRunSimulationHandler_EndToEnd(t *testing.T) {
	cfg := testConfig()
	h := runSimulationHandler(cfg, nil, nil)

	params := population.DefaultParams()
	params.NSubjects = 5
	params.Seed = 42
	gen, err := population.NewGenerator(params)
	if err != nil {
		t.Fatalf("failed to create generator: %v", err)
	}
	cohort := gen.Generate()

	body, err := json.Marshal(map[string]any{
		"drug_name":       "Omeprazole",
		"log_p":           2.23,
		"f_u":             0.05,
		"v_d":             0.3,
		"k_a":             1.5,
		"dose":            20.0,
		"bioavail":        0.4,
		"toxic_threshold": 2000.0,
		"population":      cohort,
	})
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/run-simulation", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	payload := decodeBody(t, rr)
	if payload["success"] != true {
		t.Fatalf("expected success=true, got %v", payload["success"])
	}
	times := payload["time"].([]any)
	if len(times) != cfg.SimPoints {
		t.Fatalf("expected %d time points, got %d", cfg.SimPoints, len(times))
	}
	cmax := payload["cmax_distribution"].([]any)
	if len(cmax) != 5 {
		t.Fatalf("expected 5 cmax samples, got %d", len(cmax))
	}
	curves := payload["individual_curves"].([]any)
	if len(curves) != cfg.MaxCurvesReturned {
		t.Fatalf("expected %d returned curves, got %d", cfg.MaxCurvesReturned, len(curves))
	}
	if _, ok := payload["safety"]; !ok {
		t.Fatalf("expected safety block in response")
	}
}

func TestSafetyAnalysisHandler(t *testing.T) {
	h := safetyAnalysisHandler(1000)

	body := []byte(`{"cmax_distribution": [100, 200, 1500], "toxic_threshold": 1000}`)
	req := httptest.NewRequest(http.MethodPost, "/api/safety-analysis", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	payload := decodeBody(t, rr)
	safety, ok := payload["safety"].(map[string]any)
	if !ok {
		t.Fatalf("expected safety object, got %v", payload["safety"])
	}
	if safety["n_exceeding_threshold"] != float64(1) {
		t.Fatalf("expected 1 subject above threshold, got %v", safety["n_exceeding_threshold"])
	}
}

func TestSafetyAnalysisHandler_EmptyDistribution(t *testing.T) {
	h := safetyAnalysisHandler(1000)

	body := []byte(`{"cmax_distribution": []}`)
	req := httptest.NewRequest(http.MethodPost, "/api/safety-analysis", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestScenariosHandler(t *testing.T) {
	h := scenariosHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/scenarios", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	payload := decodeBody(t, rr)
	data, ok := payload["data"].([]any)
	if !ok || len(data) == 0 {
		t.Fatalf("expected non-empty preset list, got %v", payload["data"])
	}
}

func TestRunListHandler_StoreDisabled(t *testing.T) {
	h := runListHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rr.Code)
	}
	payload := decodeBody(t, rr)
	if payload["error"] == nil {
		t.Fatalf("expected error field in response")
	}
}

func TestRunDetailHandler_InvalidID(t *testing.T) {
	store, err := runstore.NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	h := runDetailHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/not-a-number", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestRunDetailHandler_NotFound(t *testing.T) {
	store, err := runstore.NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	h := runDetailHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/999", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}

func TestFetchPubChemHandler_Disabled(t *testing.T) {
	h := fetchPubChemHandler(nil, nil, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/fetch-pubchem?drug_name=caffeine", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rr.Code)
	}
}

func TestArchiveSummaryHandler_Disabled(t *testing.T) {
	h := archiveSummaryHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/archive/summary", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rr.Code)
	}
}

func TestDashboardHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	dashboardHandler(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("PBPK")) {
		t.Fatalf("dashboard body missing expected content")
	}
}

func TestDashboardHandler_UnknownPath(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rr := httptest.NewRecorder()
	dashboardHandler(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}
