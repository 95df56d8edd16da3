package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"saker-rro/config"
	"saker-rro/core/register"
	"saker-rro/core/store"
	"saker-rro/core/utils"
)

func setupServerEnv(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := &config.AppConfig{
		DBDriver:   store.DriverSQLite,
		DBPath:     filepath.Join(t.TempDir(), "api.db"),
		ListenAddr: "127.0.0.1:0",
	}
	logger := utils.NewLogger()
	db, err := store.NewDB(cfg, logger)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.ApplyMigrations(context.Background(), db, logger); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	svc := register.NewService(db,
		store.NewRegistersStore(),
		store.NewStepsStore(),
		store.NewVersionsStore(),
		store.NewAuditStore(),
		store.NewCategoriesStore(),
		logger,
	)
	ts := httptest.NewServer(NewServer(cfg, svc, logger).Routes())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestRiskLifecycleOverHTTP(t *testing.T) {
	ts := setupServerEnv(t)

	// Create.
	resp, created := doJSON(t, http.MethodPost, ts.URL+"/api/risks", map[string]any{
		"title":       "single supplier dependency",
		"likelihood":  4,
		"consequence": 5,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status %d", resp.StatusCode)
	}
	id := created["id"].(string)
	rating := created["rating"].(map[string]any)
	if rating["level"] != "high" {
		t.Errorf("create rating: %+v", rating)
	}
	if created["status"] != "open" {
		t.Errorf("default status: %v", created["status"])
	}

	// Score change without rationale is rejected with the rule names.
	resp, body := doJSON(t, http.MethodPatch, ts.URL+"/api/risks/"+id, map[string]any{
		"likelihood": 2,
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("ungated patch: status %d", resp.StatusCode)
	}
	rules, _ := body["rules"].([]any)
	if len(rules) != 1 || rules[0] != register.ReasonLikelihood {
		t.Errorf("rules: %v", body["rules"])
	}

	// Same change with rationale succeeds.
	resp, body = doJSON(t, http.MethodPatch, ts.URL+"/api/risks/"+id, map[string]any{
		"likelihood":             2,
		"likelihoodChangeReason": "secondary supplier onboarded",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch with reason: status %d (%v)", resp.StatusCode, body)
	}

	// History now holds two entity versions.
	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/risks/"+id+"/history", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history: status %d", resp.StatusCode)
	}
	items, _ := body["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("history events: got %d, want 2", len(items))
	}

	// Audit log shows created + updated.
	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/risks/"+id+"/audit-log", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("audit-log: status %d", resp.StatusCode)
	}
	entries, _ := body["items"].([]any)
	if len(entries) != 2 {
		t.Fatalf("audit entries: got %d, want 2", len(entries))
	}
	last := entries[1].(map[string]any)
	if last["action"] != store.AuditActionUpdated {
		t.Errorf("last audit action: %v", last["action"])
	}

	// Waterfall has the original and the updated point.
	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/risks/"+id+"/waterfall", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("waterfall: status %d", resp.StatusCode)
	}
	actual, _ := body["actual"].([]any)
	if len(actual) != 2 {
		t.Fatalf("actual points: got %d, want 2", len(actual))
	}
	first := actual[0].(map[string]any)
	if first["isOriginal"] != true {
		t.Errorf("first actual point: %+v", first)
	}
}

func TestStepRoutesOverHTTP(t *testing.T) {
	ts := setupServerEnv(t)

	_, created := doJSON(t, http.MethodPost, ts.URL+"/api/opportunities", map[string]any{
		"title":      "process automation",
		"likelihood": 3,
		"impact":     4,
	})
	id := created["id"].(string)
	base := ts.URL + "/api/opportunities/" + id + "/steps"

	var stepIDs []string
	for i := 0; i < 3; i++ {
		resp, step := doJSON(t, http.MethodPost, base, map[string]any{
			"action":             fmt.Sprintf("phase %d", i+1),
			"expectedLikelihood": 4,
			"expectedImpact":     4,
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create step %d: status %d", i, resp.StatusCode)
		}
		stepIDs = append(stepIDs, step["id"].(string))
	}

	// Reorder: last first, foreign ids skipped.
	resp, body := doJSON(t, http.MethodPut, base+"/order", map[string]any{
		"ids": []string{stepIDs[2], "foreign", stepIDs[0], stepIDs[1]},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reorder: status %d", resp.StatusCode)
	}
	items, _ := body["items"].([]any)
	if len(items) != 3 {
		t.Fatalf("reorder items: %d", len(items))
	}
	if items[0].(map[string]any)["action"] != "phase 3" {
		t.Errorf("reorder head: %+v", items[0])
	}

	// Complete once, then conflict.
	resp, _ = doJSON(t, http.MethodPost, base+"/"+stepIDs[0]+"/complete", map[string]any{
		"actualLikelihood": 5,
		"actualImpact":     4,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("complete: status %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPost, base+"/"+stepIDs[0]+"/complete", map[string]any{
		"actualLikelihood": 1,
		"actualImpact":     1,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second complete: status %d, want 409", resp.StatusCode)
	}
}

func TestUnknownRoutesAndIDs(t *testing.T) {
	ts := setupServerEnv(t)

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/risks/no-such-id", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown id: status %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/hazards", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown register: status %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz: status %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/metrics", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics: status %d", resp.StatusCode)
	}
}
