package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"vidiai/internal/dispatch"
	"vidiai/internal/domain"
	"vidiai/internal/middleware"
)

type submitResponse struct {
	Job     jobView `json:"job"`
	Balance int     `json:"balance"`
}

// CreateGeneration submits one request. A second submit from the same UI
// session while the first is in flight gets 409.
func (a *App) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	owner := a.currentUserID(r)
	if owner == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req domain.GenerationRequest
	if err := a.decode(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	a.submitGuarded(w, r, func(ctx context.Context) (*domain.Job, error) {
		return a.Jobs.Submit(ctx, dispatch.Submission{
			OwnerID: owner,
			Country: middleware.CountryFromContext(ctx),
			Request: req,
		})
	})
}

type templateGenerationRequest struct {
	MediaURL string `json:"media_url"`
}

// CreateTemplateGeneration animates the caller's photo with a showcase template.
func (a *App) CreateTemplateGeneration(w http.ResponseWriter, r *http.Request) {
	owner := a.currentUserID(r)
	if owner == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	templateID := chi.URLParam(r, "template_id")
	var req templateGenerationRequest
	if err := a.decode(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.MediaURL) == "" {
		a.fail(w, r, domain.NewValidationError("media_url", "a photo is required"))
		return
	}
	a.submitGuarded(w, r, func(ctx context.Context) (*domain.Job, error) {
		return a.Jobs.SubmitTemplate(ctx, owner, middleware.CountryFromContext(ctx), templateID, req.MediaURL)
	})
}

func (a *App) submitGuarded(w http.ResponseWriter, r *http.Request, submit func(context.Context) (*domain.Job, error)) {
	ctx := r.Context()
	if a.Guard != nil {
		release, err := a.Guard.Acquire(ctx, middleware.SessionKey(ctx))
		if err != nil {
			if !errors.Is(err, domain.ErrSubmitInFlight) {
				a.logger().Error().Err(err).Msg("http: submit guard unavailable")
				a.error(w, http.StatusServiceUnavailable, "unavailable", "try again")
				return
			}
			a.fail(w, r, err)
			return
		}
		defer release()
	}
	job, err := submit(ctx)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	balance, err := a.Ledger.Balance(ctx, job.OwnerID)
	if err != nil {
		a.logger().Warn().Err(err).Str("job_id", job.ID).Msg("http: balance after submit")
	}
	a.json(w, http.StatusAccepted, submitResponse{Job: viewJob(job), Balance: balance})
}

// ListGenerations checks the caller's unfinished jobs and returns all of them
// newest first.
func (a *App) ListGenerations(w http.ResponseWriter, r *http.Request) {
	owner := a.currentUserID(r)
	if owner == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	jobs, err := a.Checker.Refresh(r.Context(), owner)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": viewJobs(jobs)})
}

// GetGeneration returns one of the caller's jobs, checking it first when it is
// still processing.
func (a *App) GetGeneration(w http.ResponseWriter, r *http.Request) {
	owner := a.currentUserID(r)
	if owner == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	job, err := a.History.Get(r.Context(), chi.URLParam(r, "job_id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if job.OwnerID != owner {
		a.fail(w, r, domain.ErrForbidden)
		return
	}
	if !job.Status.IsTerminal() {
		checked, err := a.Checker.Check(r.Context(), job)
		if err != nil {
			a.logger().Warn().Err(err).Str("job_id", job.ID).Msg("http: status check failed")
		} else {
			job = checked
		}
	}
	a.json(w, http.StatusOK, viewJob(job))
}

// DeleteGeneration hard-deletes one of the caller's jobs.
func (a *App) DeleteGeneration(w http.ResponseWriter, r *http.Request) {
	owner := a.currentUserID(r)
	if owner == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	if err := a.History.Delete(r.Context(), chi.URLParam(r, "job_id"), owner); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
