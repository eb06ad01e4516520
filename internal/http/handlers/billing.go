package handlers

import (
	"net/http"
	"strings"

	"vidiai/internal/domain"
)

type creditRequest struct {
	OwnerID string `json:"owner_id"`
	Amount  int    `json:"amount"`
	Reason  string `json:"reason"`
}

var creditReasons = map[string]bool{
	domain.ReasonPurchase: true,
	domain.ReasonBonus:    true,
	domain.ReasonAdmin:    true,
}

// BillingCredits is called by the payment side after a purchase settles. A
// bonus without an amount grants the catalog's subscription bonus.
func (a *App) BillingCredits(w http.ResponseWriter, r *http.Request) {
	var req creditRequest
	if err := a.decode(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.OwnerID = strings.TrimSpace(req.OwnerID)
	if req.OwnerID == "" {
		a.fail(w, r, domain.NewValidationError("owner_id", "owner_id required"))
		return
	}
	if req.Reason == "" {
		req.Reason = domain.ReasonPurchase
	}
	if !creditReasons[req.Reason] {
		a.fail(w, r, domain.NewValidationError("reason", "must be purchase, bonus or admin"))
		return
	}
	if req.Reason == domain.ReasonBonus && req.Amount == 0 && a.Pricing != nil {
		req.Amount = a.Pricing.SubscriptionBonus()
	}
	if req.Amount <= 0 {
		a.fail(w, r, domain.NewValidationError("amount", "must be positive"))
		return
	}
	balance, err := a.Ledger.Credit(r.Context(), req.OwnerID, req.Amount, req.Reason)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.logger().Info().Str("owner_id", req.OwnerID).Int("amount", req.Amount).Str("reason", req.Reason).Msg("http: credits granted")
	a.json(w, http.StatusOK, map[string]any{"owner_id": req.OwnerID, "balance": balance})
}

// AdminStats returns the dashboard counters.
func (a *App) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.Stats.Summary(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, stats)
}
