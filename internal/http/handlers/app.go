package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"vidiai/internal/dispatch"
	"vidiai/internal/domain"
	"vidiai/internal/guard"
	"vidiai/internal/infra"
	"vidiai/internal/middleware"
	"vidiai/internal/pricing"
	"vidiai/internal/storage"
)

// Submitter creates jobs. *dispatch.Dispatcher implements it.
type Submitter interface {
	Submit(ctx context.Context, sub dispatch.Submission) (*domain.Job, error)
	SubmitTemplate(ctx context.Context, ownerID, country, templateID, mediaURL string) (*domain.Job, error)
}

// StatusChecker refreshes non-terminal jobs. *poller.Poller implements it.
type StatusChecker interface {
	Check(ctx context.Context, job *domain.Job) (*domain.Job, error)
	Refresh(ctx context.Context, ownerID string) ([]domain.Job, error)
}

// App carries the dependencies of every handler.
type App struct {
	Jobs    Submitter
	Checker StatusChecker
	History domain.HistoryStore
	Ledger  domain.BalanceLedger
	Stats   domain.StatsRepository
	Pricing *pricing.Table
	Blobs   storage.BlobStore
	Guard   guard.Guard
	Logger  *infra.Logger

	JWTSecret      string
	JWTTTL         time.Duration
	VerifyInitData InitDataVerifier
	UploadMaxBytes int64
}

var discardLogger = infra.Logger(zerolog.New(io.Discard))

// logger never writes to a; handlers call it concurrently.
func (a *App) logger() *infra.Logger {
	if a.Logger == nil {
		return &discardLogger
	}
	return a.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]errorPayload{"error": {Code: errCode, Message: message}})
}

// fail maps a domain error onto its HTTP status and error code.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		a.json(w, http.StatusUnprocessableEntity, map[string]errorPayload{"error": {
			Code: "validation_error", Message: verr.Message, Field: verr.Field,
		}})
		return
	}
	var perr *domain.ProviderError
	switch {
	case errors.Is(err, domain.ErrInsufficientCredits):
		a.error(w, http.StatusPaymentRequired, "insufficient_credits", "not enough credits")
	case errors.Is(err, domain.ErrProviderOutOfCredits):
		a.error(w, http.StatusServiceUnavailable, "provider_out_of_credits", "generation is temporarily unavailable")
	case errors.Is(err, domain.ErrSubmitInFlight):
		a.error(w, http.StatusConflict, "submit_in_flight", "a generation is already being submitted")
	case errors.Is(err, domain.ErrTransientNetwork):
		a.error(w, http.StatusBadGateway, "provider_unreachable", "provider unreachable, try again")
	case errors.As(err, &perr):
		a.error(w, http.StatusBadGateway, "provider_failure", perr.Message)
	case errors.Is(err, domain.ErrProviderFailure):
		a.error(w, http.StatusBadGateway, "provider_failure", domain.GenericFailureMessage)
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidAmount):
		a.error(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
	case errors.Is(err, domain.ErrNoRoute):
		a.error(w, http.StatusUnprocessableEntity, "unsupported_request", "no model handles this request")
	case errors.Is(err, domain.ErrForbidden):
		a.error(w, http.StatusForbidden, "forbidden", "not your job")
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "not found")
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
	default:
		a.logger().Error().Err(err).Str("path", r.URL.Path).Str("request_id", middleware.RequestIDFromContext(r.Context())).Msg("http: unhandled error")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

func (a *App) decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
