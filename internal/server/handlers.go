package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cjamtp/rulegraph/internal/domain"
	"github.com/cjamtp/rulegraph/internal/graph"
	"github.com/cjamtp/rulegraph/internal/repository"
	"github.com/cjamtp/rulegraph/internal/schema"
)

const dateLayout = "2006-01-02"

// APIHandlers exposes HTTP handlers for the rule catalog API.
type APIHandlers struct {
	logger *slog.Logger
	repo   *repository.Repository
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, repo *repository.Repository) *APIHandlers {
	return &APIHandlers{
		logger: logger,
		repo:   repo,
	}
}

func (h *APIHandlers) handleRules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createRule(w, r)
	case http.MethodGet:
		h.listRules(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *APIHandlers) handleRuleByID(w http.ResponseWriter, r *http.Request) {
	ruleID := strings.TrimPrefix(r.URL.Path, "/rules/")
	ruleID = strings.Trim(ruleID, "/")
	if ruleID == "" {
		writeError(w, http.StatusBadRequest, "rule ID is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getRule(w, r, ruleID)
	case http.MethodPatch:
		h.updateRule(w, r, ruleID)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPatch)
	}
}

func (h *APIHandlers) handleElements(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.upsertElement(w, r)
	case http.MethodGet:
		h.listElements(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *APIHandlers) handleElementByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/elements/"), "/")
	if rest == "" {
		writeError(w, http.StatusBadRequest, "element ID is required")
		return
	}

	if elementID, ok := strings.CutSuffix(rest, "/rules"); ok {
		h.rulesForElement(w, r, strings.Trim(elementID, "/"))
		return
	}
	h.getElement(w, r, rest)
}

func (h *APIHandlers) createRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	rule, err := req.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.repo.CreateRule(r.Context(), rule)
	if err != nil {
		h.writeRepositoryError(w, err, "create rule")
		return
	}

	respondJSON(w, http.StatusCreated, toRuleResponse(created))
}

func (h *APIHandlers) listRules(w http.ResponseWriter, r *http.Request) {
	filter, err := parseRuleFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rules, err := h.repo.ListRules(r.Context(), filter)
	if err != nil {
		h.writeRepositoryError(w, err, "list rules")
		return
	}

	respondJSON(w, http.StatusOK, toRuleListResponse(rules))
}

func (h *APIHandlers) getRule(w http.ResponseWriter, r *http.Request, ruleID string) {
	rule, err := h.repo.GetRule(r.Context(), ruleID)
	if err != nil {
		h.writeRepositoryError(w, err, "get rule")
		return
	}
	if rule == nil {
		writeError(w, http.StatusNotFound, "rule not found")
		return
	}
	respondJSON(w, http.StatusOK, toRuleResponse(*rule))
}

func (h *APIHandlers) updateRule(w http.ResponseWriter, r *http.Request, ruleID string) {
	var req ruleUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	update, err := req.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.repo.UpdateRule(r.Context(), ruleID, update)
	if err != nil {
		h.writeRepositoryError(w, err, "update rule")
		return
	}

	respondJSON(w, http.StatusOK, toRuleResponse(updated))
}

func (h *APIHandlers) upsertElement(w http.ResponseWriter, r *http.Request) {
	var req elementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	element := req.toDomain()
	if err := h.repo.UpsertDataElement(r.Context(), element); err != nil {
		h.writeRepositoryError(w, err, "upsert data element")
		return
	}

	respondJSON(w, http.StatusOK, statusResponse{Status: "ok", ID: element.ElementID})
}

func (h *APIHandlers) listElements(w http.ResponseWriter, r *http.Request) {
	elements, err := h.repo.ListDataElements(r.Context())
	if err != nil {
		h.writeRepositoryError(w, err, "list data elements")
		return
	}

	items := make([]elementResponse, 0, len(elements))
	for _, element := range elements {
		items = append(items, toElementResponse(element))
	}
	respondJSON(w, http.StatusOK, elementListResponse{Items: items, Total: len(items)})
}

func (h *APIHandlers) getElement(w http.ResponseWriter, r *http.Request, elementID string) {
	element, err := h.repo.GetDataElement(r.Context(), elementID)
	if err != nil {
		h.writeRepositoryError(w, err, "get data element")
		return
	}
	if element == nil {
		writeError(w, http.StatusNotFound, "data element not found")
		return
	}
	respondJSON(w, http.StatusOK, toElementResponse(*element))
}

func (h *APIHandlers) rulesForElement(w http.ResponseWriter, r *http.Request, elementID string) {
	if elementID == "" {
		writeError(w, http.StatusBadRequest, "element ID is required")
		return
	}

	rules, err := h.repo.RulesForElement(r.Context(), elementID)
	if err != nil {
		h.writeRepositoryError(w, err, "rules for element")
		return
	}
	respondJSON(w, http.StatusOK, toRuleListResponse(rules))
}

func (h *APIHandlers) writeRepositoryError(w http.ResponseWriter, err error, op string) {
	var enumErr *schema.InvalidEnumError
	switch {
	case errors.As(err, &enumErr),
		errors.Is(err, schema.ErrRequiredField),
		errors.Is(err, repository.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrRuleNotFound), errors.Is(err, repository.ErrElementNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, graph.ErrServiceUnavailable),
		errors.Is(err, graph.ErrAuthentication),
		errors.Is(err, graph.ErrVerification):
		h.logger.Error(op+" failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "graph database unavailable")
	default:
		h.logger.Error(op+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, op+" failed")
	}
}

func parseRuleFilter(r *http.Request) (domain.RuleFilter, error) {
	q := r.URL.Query()
	filter := domain.RuleFilter{
		RuleID:          q.Get("ruleId"),
		Name:            q.Get("name"),
		Category:        q.Get("category"),
		ObligationLevel: q.Get("obligationLevel"),
		DataElement:     q.Get("dataElement"),
		SearchText:      q.Get("searchText"),
		RelatedToRuleID: q.Get("relatedToRuleId"),
	}

	if v := q.Get("effectiveDateFrom"); v != "" {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			return domain.RuleFilter{}, errors.New("invalid effectiveDateFrom")
		}
		filter.EffectiveDateFrom = &d
	}
	if v := q.Get("effectiveDateTo"); v != "" {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			return domain.RuleFilter{}, errors.New("invalid effectiveDateTo")
		}
		filter.EffectiveDateTo = &d
	}

	return filter, nil
}

// --- Request/response shapes ---

type ruleRequest struct {
	RuleID          string   `json:"ruleId"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Category        string   `json:"category"`
	ObligationLevel string   `json:"obligationLevel"`
	DataElements    []string `json:"dataElements"`
	Conditions      []string `json:"conditions"`
	Actions         []string `json:"actions"`
	Exceptions      []string `json:"exceptions"`
	Thresholds      []string `json:"thresholds"`
	ValidationLogic string   `json:"validationLogic"`
	SourceReference string   `json:"sourceReference"`
	EffectiveDate   string   `json:"effectiveDate"`
	RelatedRules    []string `json:"relatedRules"`
}

func (req ruleRequest) toDomain() (domain.Rule, error) {
	rule := domain.Rule{
		RuleID:          req.RuleID,
		Name:            req.Name,
		Description:     req.Description,
		Category:        req.Category,
		ObligationLevel: req.ObligationLevel,
		DataElements:    req.DataElements,
		Conditions:      req.Conditions,
		Actions:         req.Actions,
		Exceptions:      req.Exceptions,
		Thresholds:      req.Thresholds,
		ValidationLogic: req.ValidationLogic,
		SourceReference: req.SourceReference,
		RelatedRules:    req.RelatedRules,
	}
	if req.EffectiveDate != "" {
		d, err := time.Parse(dateLayout, req.EffectiveDate)
		if err != nil {
			return domain.Rule{}, errors.New("invalid effectiveDate")
		}
		rule.EffectiveDate = &d
	}
	return rule, nil
}

type ruleUpdateRequest struct {
	Name            *string  `json:"name"`
	Description     *string  `json:"description"`
	Category        *string  `json:"category"`
	ObligationLevel *string  `json:"obligationLevel"`
	DataElements    []string `json:"dataElements"`
	Conditions      []string `json:"conditions"`
	Actions         []string `json:"actions"`
	Exceptions      []string `json:"exceptions"`
	Thresholds      []string `json:"thresholds"`
	ValidationLogic *string  `json:"validationLogic"`
	SourceReference *string  `json:"sourceReference"`
	EffectiveDate   *string  `json:"effectiveDate"`
	RelatedRules    []string `json:"relatedRules"`
}

func (req ruleUpdateRequest) toDomain() (domain.RuleUpdate, error) {
	update := domain.RuleUpdate{
		Name:            req.Name,
		Description:     req.Description,
		Category:        req.Category,
		ObligationLevel: req.ObligationLevel,
		DataElements:    req.DataElements,
		Conditions:      req.Conditions,
		Actions:         req.Actions,
		Exceptions:      req.Exceptions,
		Thresholds:      req.Thresholds,
		ValidationLogic: req.ValidationLogic,
		SourceReference: req.SourceReference,
		RelatedRules:    req.RelatedRules,
	}
	if req.EffectiveDate != nil {
		d, err := time.Parse(dateLayout, *req.EffectiveDate)
		if err != nil {
			return domain.RuleUpdate{}, errors.New("invalid effectiveDate")
		}
		update.EffectiveDate = &d
	}
	return update, nil
}

type ruleResponse struct {
	RuleID          string   `json:"ruleId"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Category        string   `json:"category"`
	ObligationLevel string   `json:"obligationLevel"`
	DataElements    []string `json:"dataElements"`
	Conditions      []string `json:"conditions"`
	Actions         []string `json:"actions"`
	Exceptions      []string `json:"exceptions"`
	Thresholds      []string `json:"thresholds"`
	ValidationLogic string   `json:"validationLogic,omitempty"`
	SourceReference string   `json:"sourceReference,omitempty"`
	EffectiveDate   string   `json:"effectiveDate,omitempty"`
	RelatedRules    []string `json:"relatedRules"`
	CreatedAt       string   `json:"createdAt,omitempty"`
	UpdatedAt       string   `json:"updatedAt,omitempty"`
}

func toRuleResponse(rule domain.Rule) ruleResponse {
	return ruleResponse{
		RuleID:          rule.RuleID,
		Name:            rule.Name,
		Description:     rule.Description,
		Category:        rule.Category,
		ObligationLevel: rule.ObligationLevel,
		DataElements:    emptyIfNil(rule.DataElements),
		Conditions:      emptyIfNil(rule.Conditions),
		Actions:         emptyIfNil(rule.Actions),
		Exceptions:      emptyIfNil(rule.Exceptions),
		Thresholds:      emptyIfNil(rule.Thresholds),
		ValidationLogic: rule.ValidationLogic,
		SourceReference: rule.SourceReference,
		EffectiveDate:   formatDatePtr(rule.EffectiveDate),
		RelatedRules:    emptyIfNil(rule.RelatedRules),
		CreatedAt:       formatDatePtr(rule.CreatedAt),
		UpdatedAt:       formatDatePtr(rule.UpdatedAt),
	}
}

type ruleListResponse struct {
	Items []ruleResponse `json:"items"`
	Total int            `json:"total"`
}

func toRuleListResponse(rules []domain.Rule) ruleListResponse {
	items := make([]ruleResponse, 0, len(rules))
	for _, rule := range rules {
		items = append(items, toRuleResponse(rule))
	}
	return ruleListResponse{Items: items, Total: len(items)}
}

type elementRequest struct {
	ElementID   string `json:"elementId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	DataType    string `json:"dataType"`
	Domain      string `json:"domain"`
}

func (req elementRequest) toDomain() domain.DataElement {
	return domain.DataElement{
		ElementID:   req.ElementID,
		Name:        req.Name,
		Description: req.Description,
		DataType:    req.DataType,
		Domain:      req.Domain,
	}
}

type elementResponse struct {
	ElementID   string `json:"elementId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	DataType    string `json:"dataType,omitempty"`
	Domain      string `json:"domain,omitempty"`
}

func toElementResponse(element domain.DataElement) elementResponse {
	return elementResponse{
		ElementID:   element.ElementID,
		Name:        element.Name,
		Description: element.Description,
		DataType:    element.DataType,
		Domain:      element.Domain,
	}
}

type elementListResponse struct {
	Items []elementResponse `json:"items"`
	Total int               `json:"total"`
}

type statusResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// --- Helpers ---

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func formatDatePtr(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
