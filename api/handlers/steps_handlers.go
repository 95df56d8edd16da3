package handlers

import (
	"net/http"
	"time"

	"saker-rro/core/register"
	"saker-rro/core/utils"
)

// StepsHandler serves treatment steps nested under a register entity:
// mitigations for risks, resolutions for issues, action plans for
// opportunities. The routes are uniform; only the noun differs.
type StepsHandler struct {
	svc    *register.Service
	logger *utils.Logger
}

func NewStepsHandler(svc *register.Service, logger *utils.Logger) *StepsHandler {
	return &StepsHandler{svc: svc, logger: logger}
}

func (h *StepsHandler) descriptor(w http.ResponseWriter, r *http.Request) (*register.Descriptor, bool) {
	d, ok := register.DescriptorForPath(urlParam(r, "register"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "unknown register"})
	}
	return d, ok
}

type stepCreateRequest struct {
	Action              string     `json:"action"`
	EstStartAt          *time.Time `json:"estStartAt"`
	EstEndAt            *time.Time `json:"estEndAt"`
	ExpectedLikelihood  int        `json:"expectedLikelihood"`
	ExpectedConsequence int        `json:"expectedConsequence"`
	ExpectedImpact      int        `json:"expectedImpact"`
}

type stepUpdateRequest struct {
	Action              register.Opt[string]    `json:"action"`
	EstStartAt          register.Opt[time.Time] `json:"estStartAt"`
	EstEndAt            register.Opt[time.Time] `json:"estEndAt"`
	ExpectedLikelihood  register.Opt[int]       `json:"expectedLikelihood"`
	ExpectedConsequence register.Opt[int]       `json:"expectedConsequence"`
	ExpectedImpact      register.Opt[int]       `json:"expectedImpact"`
	ActualLikelihood    register.Opt[int]       `json:"actualLikelihood"`
	ActualConsequence   register.Opt[int]       `json:"actualConsequence"`
	ActualImpact        register.Opt[int]       `json:"actualImpact"`
	ActualCompletedAt   register.Opt[time.Time] `json:"actualCompletedAt"`
}

type stepCompleteRequest struct {
	ActualLikelihood  int        `json:"actualLikelihood"`
	ActualConsequence int        `json:"actualConsequence"`
	ActualImpact      int        `json:"actualImpact"`
	CompletedAt       *time.Time `json:"completedAt"`
}

type stepOrderRequest struct {
	IDs []string `json:"ids"`
}

func (h *StepsHandler) Create(w http.ResponseWriter, r *http.Request) {
	d, ok := h.descriptor(w, r)
	if !ok {
		return
	}
	var req stepCreateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	view, err := h.svc.CreateStep(r.Context(), d, urlParam(r, "id"), register.CreateStepInput{
		Action:         req.Action,
		EstStartAt:     req.EstStartAt,
		EstEndAt:       req.EstEndAt,
		ExpLikelihood:  req.ExpectedLikelihood,
		ExpConsequence: req.ExpectedConsequence,
		ExpImpact:      req.ExpectedImpact,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *StepsHandler) List(w http.ResponseWriter, r *http.Request) {
	d, ok := h.descriptor(w, r)
	if !ok {
		return
	}
	items, err := h.svc.ListSteps(r.Context(), d, urlParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *StepsHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, ok := h.descriptor(w, r)
	if !ok {
		return
	}
	view, err := h.svc.GetStep(r.Context(), d, urlParam(r, "id"), urlParam(r, "step_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *StepsHandler) Update(w http.ResponseWriter, r *http.Request) {
	d, ok := h.descriptor(w, r)
	if !ok {
		return
	}
	var req stepUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	view, err := h.svc.UpdateStep(r.Context(), d, urlParam(r, "id"), urlParam(r, "step_id"), register.UpdateStepInput{
		Action:            req.Action,
		EstStartAt:        req.EstStartAt,
		EstEndAt:          req.EstEndAt,
		ExpLikelihood:     req.ExpectedLikelihood,
		ExpConsequence:    req.ExpectedConsequence,
		ExpImpact:         req.ExpectedImpact,
		ActLikelihood:     req.ActualLikelihood,
		ActConsequence:    req.ActualConsequence,
		ActImpact:         req.ActualImpact,
		ActualCompletedAt: req.ActualCompletedAt,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *StepsHandler) Complete(w http.ResponseWriter, r *http.Request) {
	d, ok := h.descriptor(w, r)
	if !ok {
		return
	}
	var req stepCompleteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	view, err := h.svc.CompleteStep(r.Context(), d, urlParam(r, "id"), urlParam(r, "step_id"), register.CompleteStepInput{
		ActLikelihood:  req.ActualLikelihood,
		ActConsequence: req.ActualConsequence,
		ActImpact:      req.ActualImpact,
		CompletedAt:    req.CompletedAt,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *StepsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	d, ok := h.descriptor(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteStep(r.Context(), d, urlParam(r, "id"), urlParam(r, "step_id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// Reorder applies a full replacement ordering. Ids that do not belong to
// this owner are skipped rather than rejected.
func (h *StepsHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	d, ok := h.descriptor(w, r)
	if !ok {
		return
	}
	var req stepOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	items, err := h.svc.ReorderSteps(r.Context(), d, urlParam(r, "id"), req.IDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
