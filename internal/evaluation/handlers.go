package evaluation

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-discount/internal/common"
	"github.com/noah-isme/backend-discount/internal/discount"
	"github.com/noah-isme/backend-discount/internal/function"
	"github.com/noah-isme/backend-discount/internal/obs"
	"github.com/noah-isme/backend-discount/internal/store"
)

// Handler exposes the evaluation endpoints.
type Handler struct {
	Svc *Service
}

// RunFixed evaluates the posted function input with the fixed-rule engine.
func (h *Handler) RunFixed(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	run, err := h.Svc.RunFixed(r.Context(), in)
	writeRun(w, r, run, err)
}

// RunTiered evaluates the posted function input with the tiered engine.
func (h *Handler) RunTiered(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	run, err := h.Svc.RunTiered(r.Context(), in)
	writeRun(w, r, run, err)
}

// RunStored evaluates the posted function input with the stored configuration of the
// discount named in the path.
func (h *Handler) RunStored(w http.ResponseWriter, r *http.Request) {
	discountID := strings.TrimSpace(chi.URLParam(r, "discountID"))
	if discountID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "discount id is required", nil)
		return
	}
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	run, err := h.Svc.RunStored(r.Context(), discountID, in)
	writeRun(w, r, run, err)
}

// FixedRule returns the active fixed rule.
func (h *Handler) FixedRule(w http.ResponseWriter, _ *http.Request) {
	if h.Svc == nil || h.Svc.Fixed == nil {
		common.WriteError(w, mapError(ErrNotConfigured))
		return
	}
	common.Data(w, http.StatusOK, h.Svc.Fixed.Rule())
}

func decodeInput(w http.ResponseWriter, r *http.Request) (function.Input, bool) {
	in, err := function.DecodeInput(r.Body)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid function input", err.Error())
		return function.Input{}, false
	}
	return in, true
}

func writeRun(w http.ResponseWriter, r *http.Request, run Run, err error) {
	if run.ID != "" {
		w.Header().Set("X-Evaluation-ID", run.ID)
		obs.Annotate(r.Context(), "evaluation_id", run.ID)
		obs.Annotate(r.Context(), "engine", run.Engine)
	}
	if err != nil {
		common.WriteError(w, mapError(err))
		return
	}
	common.JSON(w, http.StatusOK, run.Result)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, discount.ErrInvalidConfiguration), errors.Is(err, discount.ErrInvalidDiscountSchedule):
		appErr := common.NewAppError("EVALUATION_ABORTED", "discount evaluation aborted", http.StatusUnprocessableEntity, err)
		appErr.Details = err.Error()
		return appErr
	case errors.Is(err, store.ErrNotFound):
		return common.NewAppError("NOT_FOUND", "discount configuration not found", http.StatusNotFound, err)
	case errors.Is(err, store.ErrInvalidID):
		return common.NewAppError("BAD_REQUEST", "discount id is required", http.StatusBadRequest, err)
	case errors.Is(err, store.ErrUnavailable):
		return common.NewAppError("STORE_UNAVAILABLE", "discount configuration store unavailable", http.StatusServiceUnavailable, err)
	case errors.Is(err, ErrNotConfigured):
		return common.NewAppError("NOT_CONFIGURED", "discount service not configured", http.StatusServiceUnavailable, err)
	default:
		return common.NewAppError("INTERNAL", "internal server error", http.StatusInternalServerError, err)
	}
}
