package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/platemind/entitlements/core"
	"github.com/platemind/entitlements/pkg/billing"
	"github.com/platemind/entitlements/pkg/entitlement"
)

// Router returns the HTTP surface of the subscription service, meant to be
// mounted under /subscription.
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/register/{user_id}", s.handleRegister)
	r.Get("/status/{user_id}", s.handleStatus)
	r.Post("/create-checkout", s.handleCreateCheckout)
	r.Get("/checkout/status/{session_id}", s.handleCheckoutStatus)
	r.Post("/cancel/{user_id}", s.handleCancel)
	r.Post("/reactivate/{user_id}", s.handleReactivate)
	r.Post("/create-billing-portal", s.handleBillingPortal)
	r.Post("/webhook", s.handleWebhook)

	return r
}

func (s *Service) handleRegister(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		core.Render(w, r, core.JSONError(core.ErrBadRequest))
		return
	}

	rec, err := s.Register(r.Context(), userID)
	if err != nil {
		core.Render(w, r, errorResponse(err))
		return
	}
	core.Render(w, r, core.JSONWithStatus(http.StatusCreated, rec))
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		core.Render(w, r, core.JSONError(core.ErrBadRequest))
		return
	}

	snapshot, err := s.Status(r.Context(), userID)
	if err != nil {
		core.Render(w, r, errorResponse(err))
		return
	}
	core.Render(w, r, core.JSON(snapshot))
}

type createCheckoutRequest struct {
	UserID             uuid.UUID `json:"user_id"`
	OriginURL          string    `json:"origin_url"`
	AutoRenewRequested bool      `json:"auto_renew_requested"`
}

func (s *Service) handleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req createCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == uuid.Nil || req.OriginURL == "" {
		core.Render(w, r, core.JSONError(core.ErrBadRequest))
		return
	}

	intent, err := s.CreateCheckout(r.Context(), req.UserID, req.OriginURL, req.AutoRenewRequested)
	if err != nil {
		core.Render(w, r, errorResponse(err))
		return
	}
	core.Render(w, r, core.JSON(intent))
}

func (s *Service) handleCheckoutStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.CheckoutStatus(r.Context(), chi.URLParam(r, "session_id"))
	if err != nil {
		core.Render(w, r, errorResponse(err))
		return
	}
	core.Render(w, r, core.JSON(map[string]any{"status": status}))
}

func (s *Service) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.handleLifecycle(w, r, s.Cancel)
}

func (s *Service) handleReactivate(w http.ResponseWriter, r *http.Request) {
	s.handleLifecycle(w, r, s.Reactivate)
}

func (s *Service) handleLifecycle(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, userID uuid.UUID) (*StatusSnapshot, error)) {
	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		core.Render(w, r, core.JSONError(core.ErrBadRequest))
		return
	}

	snapshot, err := action(r.Context(), userID)
	if err != nil {
		core.Render(w, r, errorResponse(err))
		return
	}
	core.Render(w, r, core.JSON(snapshot))
}

type billingPortalRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

func (s *Service) handleBillingPortal(w http.ResponseWriter, r *http.Request) {
	var req billingPortalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == uuid.Nil {
		core.Render(w, r, core.JSONError(core.ErrBadRequest))
		return
	}

	link, err := s.BillingPortal(r.Context(), req.UserID)
	if err != nil {
		core.Render(w, r, errorResponse(err))
		return
	}
	core.Render(w, r, core.JSON(link))
}

// handleWebhook always answers 200 once the payload is signature-verified
// and either newly processed or already processed, so the provider stops
// redelivering. 400 means the delivery itself is defective (bad signature
// or a payload without an event ID); any other error keeps the ledger
// entry unprocessed and lets redelivery retry.
func (s *Service) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		core.Render(w, r, core.JSONError(core.ErrBadRequest))
		return
	}

	err = s.HandleWebhook(r.Context(), payload, r.Header.Get("Paddle-Signature"))
	switch {
	case err == nil:
		core.Render(w, r, core.JSON(map[string]any{"received": true}))
	case errors.Is(err, billing.ErrSignatureVerification):
		core.Render(w, r, core.JSONErrorDetail(http.StatusBadRequest, "invalid_signature", "webhook signature verification failed", nil))
	case errors.Is(err, ErrMissingEventID):
		core.Render(w, r, core.JSONErrorDetail(http.StatusBadRequest, "missing_event_id", "webhook payload carries no event id", nil))
	default:
		core.Render(w, r, core.JSONError(err))
	}
}

// errorResponse maps service errors onto the HTTP error taxonomy.
// Configuration and eligibility errors carry actionable codes; provider
// and persistence failures stay generic while full detail is logged
// server-side.
func errorResponse(err error) core.Response {
	switch {
	case errors.Is(err, entitlement.ErrRecordNotFound):
		return core.JSONErrorDetail(http.StatusNotFound, "user_not_found", "user is not registered", nil)
	case errors.Is(err, entitlement.ErrSessionNotFound):
		return core.JSONErrorDetail(http.StatusNotFound, "session_not_found", "unknown checkout session", nil)
	case errors.Is(err, ErrAlreadySubscribed):
		return core.JSONErrorDetail(http.StatusConflict, "already_subscribed", "an active subscription already exists", nil)
	case errors.Is(err, ErrNoSubscription):
		return core.JSONErrorDetail(http.StatusBadRequest, "no_subscription", "no subscription exists for this user", nil)
	case errors.Is(err, ErrPriceNotConfigured):
		return core.JSONErrorDetail(http.StatusServiceUnavailable, "price_not_configured", "subscription price is not configured", nil)
	case errors.Is(err, billing.ErrNotConfigured):
		return core.JSONErrorDetail(http.StatusServiceUnavailable, "provider_not_configured", "payment provider is not configured", nil)
	case errors.Is(err, billing.ErrProvider):
		return core.JSONErrorDetail(http.StatusBadGateway, "provider_error", "payment provider is unavailable, try again later", nil)
	default:
		return core.JSONError(err)
	}
}
