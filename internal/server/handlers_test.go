package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cjamtp/rulegraph/internal/config"
	"github.com/cjamtp/rulegraph/internal/graph"
	"github.com/cjamtp/rulegraph/internal/repository"
	"github.com/cjamtp/rulegraph/internal/schema"
)

func newTestServer() (*graph.MemoryClient, http.Handler) {
	mem := graph.NewMemoryClient()
	validator := schema.NewValidator(config.SchemaConfig{
		RuleCategories:   config.DefaultRuleCategories,
		ObligationLevels: config.DefaultObligationLevels,
	})
	repo := repository.New(mem, validator)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := NewRouter(logger, RouterDependencies{
		Health: GraphHealthService{Client: mem},
		API:    NewAPIHandlers(logger, repo),
	})
	return mem, router
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func sampleStoredRule(id string) graph.Record {
	return graph.Record{
		"rule_id":          id,
		"name":             "Income Validation",
		"description":      "Customer income must be greater than zero",
		"category":         "validation",
		"obligation_level": "mandatory",
		"data_elements":    []any{"income"},
		"conditions":       []any{"income <= 0"},
		"actions":          []any{"reject application"},
		"exceptions":       []any{},
		"thresholds":       []any{},
		"validation_logic": "income > 0",
		"source_reference": "policy-7",
		"effective_date":   "2025-01-01",
		"related_rules":    []any{},
		"created_at":       "2025-01-01",
		"updated_at":       "2025-01-01",
	}
}

func TestCreateRule_ReturnsNormalizedRule(t *testing.T) {
	mem, handler := newTestServer()

	rec := doJSON(t, handler, http.MethodPost, "/rules", map[string]any{
		"name":            "Income Validation",
		"description":     "Customer income must be greater than zero",
		"category":        "VALIDATION",
		"obligationLevel": "Mandatory",
		"dataElements":    []string{"income"},
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeBody[ruleResponse](t, rec)
	if !strings.HasPrefix(resp.RuleID, "R-") {
		t.Errorf("expected generated rule id, got %q", resp.RuleID)
	}
	if resp.Category != "validation" || resp.ObligationLevel != "mandatory" {
		t.Errorf("expected normalized enums, got %q/%q", resp.Category, resp.ObligationLevel)
	}
	if resp.Conditions == nil || resp.RelatedRules == nil {
		t.Error("list fields must serialize as empty arrays, not null")
	}
	if resp.CreatedAt == "" || resp.UpdatedAt == "" {
		t.Error("expected server-assigned timestamps")
	}

	calls := mem.ExecCalls()
	if len(calls) != 1 {
		t.Fatalf("expected a single write, got %d", len(calls))
	}
	if calls[0].Params["category"] != "validation" {
		t.Errorf("expected normalized category parameter, got %v", calls[0].Params["category"])
	}
}

func TestCreateRule_InvalidCategoryIsRejected(t *testing.T) {
	mem, handler := newTestServer()

	rec := doJSON(t, handler, http.MethodPost, "/rules", map[string]any{
		"name":            "Income Validation",
		"description":     "Customer income must be greater than zero",
		"category":        "bogus",
		"obligationLevel": "mandatory",
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(mem.ExecCalls()) != 0 {
		t.Error("invalid rule must not reach the store")
	}

	body := decodeBody[map[string]string](t, rec)
	if !strings.Contains(body["error"], "bogus") {
		t.Errorf("error should name the offending value, got %q", body["error"])
	}
}

func TestCreateRule_UnknownFieldIsRejected(t *testing.T) {
	_, handler := newTestServer()

	rec := doJSON(t, handler, http.MethodPost, "/rules", map[string]any{
		"name":        "x",
		"description": "y",
		"unexpected":  true,
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
}

func TestGetRule_Found(t *testing.T) {
	mem, handler := newTestServer()
	mem.PushResult([]graph.Record{sampleStoredRule("R-1")})

	rec := doJSON(t, handler, http.MethodGet, "/rules/R-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeBody[ruleResponse](t, rec)
	if resp.RuleID != "R-1" {
		t.Errorf("unexpected rule id %q", resp.RuleID)
	}
	if resp.EffectiveDate != "2025-01-01" {
		t.Errorf("unexpected effective date %q", resp.EffectiveDate)
	}
	if len(resp.DataElements) != 1 || resp.DataElements[0] != "income" {
		t.Errorf("unexpected data elements %v", resp.DataElements)
	}
}

func TestGetRule_NotFound(t *testing.T) {
	_, handler := newTestServer()

	rec := doJSON(t, handler, http.MethodGet, "/rules/R-missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListRules_FilterParamsReachTheQuery(t *testing.T) {
	mem, handler := newTestServer()
	mem.PushResult([]graph.Record{sampleStoredRule("R-1"), sampleStoredRule("R-2")})

	rec := doJSON(t, handler, http.MethodGet, "/rules?category=VALIDATION&effectiveDateFrom=2025-01-01", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeBody[ruleListResponse](t, rec)
	if resp.Total != 2 || len(resp.Items) != 2 {
		t.Fatalf("expected two rules, got total=%d items=%d", resp.Total, len(resp.Items))
	}

	calls := mem.FetchCalls()
	if len(calls) != 1 {
		t.Fatalf("expected a single query, got %d", len(calls))
	}
	if calls[0].Params["category"] != "validation" {
		t.Errorf("expected normalized category param, got %v", calls[0].Params["category"])
	}
	if calls[0].Params["effectiveFrom"] != "2025-01-01" {
		t.Errorf("expected date param, got %v", calls[0].Params["effectiveFrom"])
	}
}

func TestListRules_EmptyCatalog(t *testing.T) {
	_, handler := newTestServer()

	rec := doJSON(t, handler, http.MethodGet, "/rules", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	resp := decodeBody[ruleListResponse](t, rec)
	if resp.Items == nil || resp.Total != 0 {
		t.Errorf("expected empty items array, got %+v", resp)
	}
}

func TestListRules_InvalidDateParam(t *testing.T) {
	_, handler := newTestServer()

	rec := doJSON(t, handler, http.MethodGet, "/rules?effectiveDateFrom=01/01/2025", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUpdateRule_PartialPatch(t *testing.T) {
	mem, handler := newTestServer()
	// Existence check, then re-read after the write.
	mem.PushResult([]graph.Record{sampleStoredRule("R-1")})
	updated := sampleStoredRule("R-1")
	updated["description"] = "Income must be positive and verified"
	mem.PushResult([]graph.Record{updated})

	rec := doJSON(t, handler, http.MethodPatch, "/rules/R-1", map[string]any{
		"description": "Income must be positive and verified",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeBody[ruleResponse](t, rec)
	if resp.Description != "Income must be positive and verified" {
		t.Errorf("unexpected description %q", resp.Description)
	}
	if resp.Name != "Income Validation" {
		t.Errorf("untouched fields must survive the patch, got name %q", resp.Name)
	}

	calls := mem.ExecCalls()
	if len(calls) != 1 {
		t.Fatalf("expected a single write, got %d", len(calls))
	}
	if strings.Contains(calls[0].Query, "IN_CATEGORY") {
		t.Error("category edges must not be rebuilt when category is absent")
	}
}

func TestUpdateRule_NotFound(t *testing.T) {
	_, handler := newTestServer()

	rec := doJSON(t, handler, http.MethodPatch, "/rules/R-missing", map[string]any{
		"description": "anything",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRules_MethodNotAllowed(t *testing.T) {
	_, handler := newTestServer()

	rec := doJSON(t, handler, http.MethodDelete, "/rules", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); !strings.Contains(allow, http.MethodPost) {
		t.Errorf("Allow header should list POST, got %q", allow)
	}
}

func TestUpsertElement(t *testing.T) {
	mem, handler := newTestServer()

	rec := doJSON(t, handler, http.MethodPost, "/elements", map[string]any{
		"elementId": "income",
		"name":      "Customer Income",
		"dataType":  "decimal",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeBody[statusResponse](t, rec)
	if resp.Status != "ok" || resp.ID != "income" {
		t.Errorf("unexpected response %+v", resp)
	}
	if len(mem.ExecCalls()) != 1 {
		t.Fatalf("expected a single write, got %d", len(mem.ExecCalls()))
	}
}

func TestUpsertElement_MissingID(t *testing.T) {
	_, handler := newTestServer()

	rec := doJSON(t, handler, http.MethodPost, "/elements", map[string]any{
		"name": "Customer Income",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetElement_NotFound(t *testing.T) {
	_, handler := newTestServer()

	rec := doJSON(t, handler, http.MethodGet, "/elements/unknown", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRulesForElement(t *testing.T) {
	mem, handler := newTestServer()
	mem.PushResult([]graph.Record{sampleStoredRule("R-1")})

	rec := doJSON(t, handler, http.MethodGet, "/elements/income/rules", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeBody[ruleListResponse](t, rec)
	if resp.Total != 1 || resp.Items[0].RuleID != "R-1" {
		t.Fatalf("unexpected response %+v", resp)
	}

	calls := mem.FetchCalls()
	if len(calls) != 1 {
		t.Fatalf("expected a single query, got %d", len(calls))
	}
	if calls[0].Params["elementId"] != "income" {
		t.Errorf("expected elementId param, got %v", calls[0].Params)
	}
}

func TestHealthz(t *testing.T) {
	mem, handler := newTestServer()

	rec := doJSON(t, handler, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	mem.WithConnectivityError(graph.ErrServiceUnavailable)
	rec = doJSON(t, handler, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when the graph is unreachable, got %d", rec.Code)
	}

	body := decodeBody[map[string]any](t, rec)
	if body["status"] != "degraded" {
		t.Errorf("expected degraded status, got %v", body["status"])
	}
}
