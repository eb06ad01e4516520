package handlers

import (
	"net/http"

	"vidiai/internal/pricing"
)

type templateView struct {
	pricing.Template
	Cost int `json:"cost"`
}

// Templates lists the showcase presets with their price.
func (a *App) Templates(w http.ResponseWriter, r *http.Request) {
	templates := a.Pricing.Templates()
	out := make([]templateView, 0, len(templates))
	for _, t := range templates {
		out = append(out, templateView{Template: t, Cost: a.Pricing.TemplateCost(t.ID)})
	}
	a.json(w, http.StatusOK, map[string]any{"items": out})
}

// CreditPacks lists the purchasable bundles.
func (a *App) CreditPacks(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"items":          a.Pricing.CreditPacks(),
		"signup_credits": a.Pricing.SignupCredits(),
	})
}
