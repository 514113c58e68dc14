package recipes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/platemind/entitlements/core"
	"github.com/platemind/entitlements/pkg/entitlement"
)

// RouterOptions configures the recipes module.
type RouterOptions struct {
	Gate      AccessGate
	Generator Generator
	History   HistoryReader
}

// Router creates the recipes router. Generation is gated on entitlement;
// history is read-only and never gated, so saved recipes stay browsable
// after trial expiry.
func Router(opts RouterOptions) chi.Router {
	if opts.Gate == nil {
		panic("recipes: AccessGate is required")
	}
	if opts.Generator == nil {
		panic("recipes: Generator is required")
	}
	if opts.History == nil {
		panic("recipes: HistoryReader is required")
	}

	h := &handlers{opts: opts}

	r := chi.NewRouter()
	r.Post("/generate", h.generate)
	r.Get("/history/{user_id}", h.history)
	return r
}

type handlers struct {
	opts RouterOptions
}

type generateRequest struct {
	UserID uuid.UUID `json:"user_id"`
	Prompt string    `json:"prompt"`
}

func (h *handlers) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == uuid.Nil || req.Prompt == "" {
		core.Render(w, r, core.JSONError(core.ErrBadRequest))
		return
	}

	if err := h.opts.Gate.CheckAccess(r.Context(), req.UserID); err != nil {
		core.Render(w, r, gateResponse(err))
		return
	}

	recipe, err := h.opts.Generator.Generate(r.Context(), req.UserID, req.Prompt)
	if err != nil {
		core.Render(w, r, core.JSONError(err))
		return
	}
	core.Render(w, r, core.JSON(recipe))
}

func (h *handlers) history(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		core.Render(w, r, core.JSONError(core.ErrBadRequest))
		return
	}

	items, err := h.opts.History.History(r.Context(), userID, 50)
	if err != nil {
		core.Render(w, r, core.JSONError(err))
		return
	}
	core.Render(w, r, core.JSON(items))
}

// gateResponse renders the gate rejection: a distinct upgrade_required
// code at 402, never conflated with authentication or validation
// failures, with a flag telling the client history stays accessible.
func gateResponse(err error) core.Response {
	var upgrade *entitlement.UpgradeRequiredError
	if errors.As(err, &upgrade) {
		return core.JSONErrorDetail(http.StatusPaymentRequired, "upgrade_required",
			"trial expired and no active subscription", map[string]any{
				"trial_days_left":    upgrade.TrialDaysLeft,
				"history_accessible": true,
			})
	}
	if errors.Is(err, entitlement.ErrRecordNotFound) {
		return core.JSONErrorDetail(http.StatusNotFound, "user_not_found", "user is not registered", nil)
	}
	return core.JSONError(err)
}
