package evaluation

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-discount/internal/common"
	"github.com/noah-isme/backend-discount/internal/discount"
)

// AdminHandler manages stored tiered configurations.
type AdminHandler struct {
	Svc *Service
}

// PutConfiguration validates the body as a tiered configuration and stores it.
func (h *AdminHandler) PutConfiguration(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "discountID"))
	if id == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "discount id is required", nil)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	cfg, err := h.Svc.PutConfiguration(r.Context(), id, string(body))
	if err != nil {
		if errors.Is(err, discount.ErrInvalidConfiguration) {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid discount configuration", err.Error())
			return
		}
		common.WriteError(w, mapError(err))
		return
	}
	common.Data(w, http.StatusOK, cfg)
}

// GetConfiguration returns the stored configuration.
func (h *AdminHandler) GetConfiguration(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Svc.GetConfiguration(r.Context(), chi.URLParam(r, "discountID"))
	if err != nil {
		common.WriteError(w, mapError(err))
		return
	}
	common.Data(w, http.StatusOK, cfg)
}

// DeleteConfiguration removes the stored configuration.
func (h *AdminHandler) DeleteConfiguration(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.DeleteConfiguration(r.Context(), chi.URLParam(r, "discountID")); err != nil {
		common.WriteError(w, mapError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
