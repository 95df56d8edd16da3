package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"saker-rro/core/register"
	"saker-rro/core/store"
	"saker-rro/core/utils"
)

// RegistersHandler serves the three register kinds through one set of
// routes; the {register} path segment selects the descriptor.
type RegistersHandler struct {
	svc       *register.Service
	listLimit int
	logger    *utils.Logger
}

func NewRegistersHandler(svc *register.Service, listLimit int, logger *utils.Logger) *RegistersHandler {
	return &RegistersHandler{svc: svc, listLimit: listLimit, logger: logger}
}

func (h *RegistersHandler) descriptor(w http.ResponseWriter, r *http.Request) (*register.Descriptor, bool) {
	d, ok := register.DescriptorForPath(urlParam(r, "register"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "unknown register"})
	}
	return d, ok
}

type entityCreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	OwnerName   string `json:"ownerName"`
	CategoryID  string `json:"categoryId"`
	Status      string `json:"status"`
	Likelihood  int    `json:"likelihood"`
	Consequence int    `json:"consequence"`
	Impact      int    `json:"impact"`
}

type entityUpdateRequest struct {
	Title       register.Opt[string] `json:"title"`
	Description register.Opt[string] `json:"description"`
	OwnerName   register.Opt[string] `json:"ownerName"`
	CategoryID  register.Opt[string] `json:"categoryId"`
	Status      register.Opt[string] `json:"status"`
	Likelihood  register.Opt[int]    `json:"likelihood"`
	Consequence register.Opt[int]    `json:"consequence"`
	Impact      register.Opt[int]    `json:"impact"`

	LikelihoodChangeReason  string `json:"likelihoodChangeReason"`
	ConsequenceChangeReason string `json:"consequenceChangeReason"`
	ImpactChangeReason      string `json:"impactChangeReason"`
	StatusChangeRationale   string `json:"statusChangeRationale"`
}

func (req *entityUpdateRequest) reasons() map[string]string {
	return map[string]string{
		register.ReasonLikelihood:  req.LikelihoodChangeReason,
		register.ReasonConsequence: req.ConsequenceChangeReason,
		register.ReasonImpact:      req.ImpactChangeReason,
		register.ReasonStatus:      req.StatusChangeRationale,
	}
}

func (h *RegistersHandler) Create(w http.ResponseWriter, r *http.Request) {
	d, ok := h.descriptor(w, r)
	if !ok {
		return
	}
	var req entityCreateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	view, err := h.svc.CreateEntity(r.Context(), d, register.CreateEntityInput{
		Title:       req.Title,
		Description: req.Description,
		OwnerName:   req.OwnerName,
		CategoryID:  req.CategoryID,
		Status:      req.Status,
		Likelihood:  req.Likelihood,
		Consequence: req.Consequence,
		Impact:      req.Impact,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *RegistersHandler) List(w http.ResponseWriter, r *http.Request) {
	d, ok := h.descriptor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := store.EntityFilter{
		Status:     strings.TrimSpace(q.Get("status")),
		CategoryID: strings.TrimSpace(q.Get("categoryId")),
		Search:     strings.TrimSpace(q.Get("search")),
		Limit:      h.listLimit,
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 && (h.listLimit == 0 || v <= h.listLimit) {
		filter.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		filter.Offset = v
	}
	items, err := h.svc.ListEntities(r.Context(), d, filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *RegistersHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, ok := h.descriptor(w, r)
	if !ok {
		return
	}
	view, err := h.svc.GetEntity(r.Context(), d, urlParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *RegistersHandler) Update(w http.ResponseWriter, r *http.Request) {
	d, ok := h.descriptor(w, r)
	if !ok {
		return
	}
	var req entityUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	view, err := h.svc.UpdateEntity(r.Context(), d, urlParam(r, "id"), register.UpdateEntityInput{
		Title:       req.Title,
		Description: req.Description,
		OwnerName:   req.OwnerName,
		CategoryID:  req.CategoryID,
		Status:      req.Status,
		Likelihood:  req.Likelihood,
		Consequence: req.Consequence,
		Impact:      req.Impact,
		Reasons:     req.reasons(),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *RegistersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	d, ok := h.descriptor(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteEntity(r.Context(), d, urlParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (h *RegistersHandler) History(w http.ResponseWriter, r *http.Request) {
	d, ok := h.descriptor(w, r)
	if !ok {
		return
	}
	id := urlParam(r, "id")
	if raw := strings.TrimSpace(r.URL.Query().Get("at")); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid 'at' timestamp"})
			return
		}
		event, err := h.svc.HistoryAt(r.Context(), d, id, at)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, event)
		return
	}
	events, err := h.svc.History(r.Context(), d, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": events})
}

func (h *RegistersHandler) Waterfall(w http.ResponseWriter, r *http.Request) {
	d, ok := h.descriptor(w, r)
	if !ok {
		return
	}
	wf, err := h.svc.Waterfall(r.Context(), d, urlParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

func (h *RegistersHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	d, ok := h.descriptor(w, r)
	if !ok {
		return
	}
	limit := 0
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	items, err := h.svc.AuditLog(r.Context(), d, urlParam(r, "id"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
