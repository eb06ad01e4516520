package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidiai/internal/adapter/memory"
	"vidiai/internal/dispatch"
	"vidiai/internal/domain"
	"vidiai/internal/guard"
	"vidiai/internal/middleware"
	"vidiai/internal/pricing"
)

const testSecret = "test-secret"

type fakeSubmitter struct {
	history *memory.History
	ledger  *memory.Ledger
	cost    int
	err     error
	calls   int
	last    dispatch.Submission
}

func (f *fakeSubmitter) Submit(ctx context.Context, sub dispatch.Submission) (*domain.Job, error) {
	f.calls++
	f.last = sub
	if f.err != nil {
		return nil, f.err
	}
	if _, err := f.ledger.Debit(ctx, sub.OwnerID, f.cost, domain.ReasonGeneration); err != nil {
		return nil, err
	}
	now := time.Now()
	job := &domain.Job{
		ID:          fmt.Sprintf("job-%d", f.calls),
		Ref:         domain.JobRef{Provider: domain.ProviderVideoText, ExternalID: fmt.Sprintf("task-%d", f.calls)},
		OwnerID:     sub.OwnerID,
		Kind:        sub.Request.Kind,
		ModelID:     sub.Request.ModelID,
		Prompt:      sub.Request.Prompt,
		Country:     sub.Country,
		Status:      domain.JobStatusProcessing,
		CostCharged: f.cost,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := f.history.Record(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (f *fakeSubmitter) SubmitTemplate(ctx context.Context, ownerID, country, templateID, mediaURL string) (*domain.Job, error) {
	return f.Submit(ctx, dispatch.Submission{
		OwnerID: ownerID,
		Country: country,
		Request: domain.GenerationRequest{Kind: domain.KindVideo, TemplateID: templateID, MediaInputs: []string{mediaURL}},
	})
}

// fakeChecker completes every job it sees.
type fakeChecker struct {
	history *memory.History
	checked int
	err     error
}

func (f *fakeChecker) Check(ctx context.Context, job *domain.Job) (*domain.Job, error) {
	f.checked++
	if f.err != nil {
		return job, f.err
	}
	if _, err := f.history.Update(ctx, job.ID, domain.StatusResult{Status: domain.JobStatusSucceeded, ResultURL: "https://cdn/" + job.ID + ".mp4"}); err != nil {
		return job, err
	}
	return f.history.Get(ctx, job.ID)
}

func (f *fakeChecker) Refresh(ctx context.Context, ownerID string) ([]domain.Job, error) {
	return f.history.List(ctx, ownerID)
}

type fakeBlobs struct {
	names []string
	err   error
}

func (f *fakeBlobs) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.names = append(f.names, name)
	return "https://files.example/uploads/" + name, nil
}

type fixture struct {
	app     *App
	history *memory.History
	ledger  *memory.Ledger
	jobs    *fakeSubmitter
	checker *fakeChecker
	blobs   *fakeBlobs
	guard   *guard.Memory
}

func newFixture() *fixture {
	history := memory.NewHistory()
	ledger := memory.NewLedger(100)
	f := &fixture{
		history: history,
		ledger:  ledger,
		jobs:    &fakeSubmitter{history: history, ledger: ledger, cost: 30},
		checker: &fakeChecker{history: history},
		blobs:   &fakeBlobs{},
		guard:   guard.NewMemory(time.Minute),
	}
	f.app = &App{
		Jobs:      f.jobs,
		Checker:   f.checker,
		History:   history,
		Ledger:    ledger,
		Stats:     memory.Stats{History: history, Ledger: ledger},
		Pricing:   pricing.Default(),
		Blobs:     f.blobs,
		Guard:     f.guard,
		JWTSecret: testSecret,
		JWTTTL:    time.Hour,
		VerifyInitData: func(raw string) (TelegramUser, error) {
			if raw != "good" {
				return TelegramUser{}, errors.New("bad hash")
			}
			return TelegramUser{ID: 42, Username: "alice"}, nil
		},
	}
	return f
}

func asOwner(r *http.Request, owner string) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), owner))
}

func withParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, rec)
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, "error envelope missing: %s", rec.Body.String())
	code, _ := errObj["code"].(string)
	return code
}

func TestFailMapsDomainErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"insufficient", domain.ErrInsufficientCredits, http.StatusPaymentRequired, "insufficient_credits"},
		{"provider out of credits", fmt.Errorf("kie: %w", domain.ErrProviderOutOfCredits), http.StatusServiceUnavailable, "provider_out_of_credits"},
		{"validation", domain.NewValidationError("lyrics", "lyrics required"), http.StatusUnprocessableEntity, "validation_error"},
		{"transient", fmt.Errorf("dial: %w", domain.ErrTransientNetwork), http.StatusBadGateway, "provider_unreachable"},
		{"provider failure", domain.NewProviderError("content policy violation"), http.StatusBadGateway, "provider_failure"},
		{"in flight", domain.ErrSubmitInFlight, http.StatusConflict, "submit_in_flight"},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"not found", domain.ErrNotFound, http.StatusNotFound, "not_found"},
		{"no route", domain.ErrNoRoute, http.StatusUnprocessableEntity, "unsupported_request"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	app := &App{}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			app.fail(rec, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, errorCode(t, rec))
		})
	}
}

func TestFailKeepsProviderMessageAndField(t *testing.T) {
	app := &App{}

	rec := httptest.NewRecorder()
	app.fail(rec, httptest.NewRequest(http.MethodGet, "/", nil), fmt.Errorf("dispatch: %w", domain.NewProviderError("prompt rejected")))
	errObj := decodeBody(t, rec)["error"].(map[string]any)
	assert.Equal(t, "prompt rejected", errObj["message"])

	rec = httptest.NewRecorder()
	app.fail(rec, httptest.NewRequest(http.MethodGet, "/", nil), domain.NewValidationError("lyrics", "lyrics required"))
	errObj = decodeBody(t, rec)["error"].(map[string]any)
	assert.Equal(t, "lyrics", errObj["field"])
}

func TestSessionIssuesTokenAndOpensAccount(t *testing.T) {
	f := newFixture()
	rec := httptest.NewRecorder()
	f.app.Session(rec, httptest.NewRequest(http.MethodPost, "/v1/session", jsonBody(t, map[string]string{"init_data": "good"})))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "tg:42", resp.OwnerID)
	assert.Equal(t, "alice", resp.Username)
	assert.Equal(t, 100, resp.Balance)

	claims, err := middleware.VerifyJWT(testSecret, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "tg:42", claims.Subject)
	assert.Equal(t, int64(42), claims.TelegramID)
}

func TestSessionRejectsBadInitData(t *testing.T) {
	f := newFixture()

	rec := httptest.NewRecorder()
	f.app.Session(rec, httptest.NewRequest(http.MethodPost, "/v1/session", jsonBody(t, map[string]string{"init_data": "forged"})))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	f.app.Session(rec, httptest.NewRequest(http.MethodPost, "/v1/session", jsonBody(t, map[string]string{"init_data": " "})))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateGenerationDebitsAndReturnsBalance(t *testing.T) {
	f := newFixture()
	body := jsonBody(t, domain.GenerationRequest{
		Kind:    domain.KindVideo,
		ModelID: domain.ModelFastTextToVideo,
		Prompt:  "a cat surfing",
		Options: domain.Options{Duration: 10, AspectRatio: "9:16"},
	})
	req := asOwner(httptest.NewRequest(http.MethodPost, "/v1/generations", body), "tg:1")
	req = req.WithContext(context.WithValue(req.Context(), middleware.CountryKey, "ID"))
	rec := httptest.NewRecorder()

	f.app.CreateGeneration(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var resp submitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 70, resp.Balance)
	assert.Equal(t, "processing", resp.Job.Status)
	assert.Equal(t, "video_text", resp.Job.Provider)
	assert.Equal(t, "ID", f.jobs.last.Country)
	assert.Equal(t, domain.ModelFastTextToVideo, f.jobs.last.Request.ModelID)
}

func TestCreateGenerationRejectsSecondSubmitInFlight(t *testing.T) {
	f := newFixture()
	release, err := f.guard.Acquire(context.Background(), "tg:1")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	body := jsonBody(t, domain.GenerationRequest{Kind: domain.KindMusic, ModelID: domain.ModelMusic, Prompt: "lofi"})
	f.app.CreateGeneration(rec, asOwner(httptest.NewRequest(http.MethodPost, "/v1/generations", body), "tg:1"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "submit_in_flight", errorCode(t, rec))
	assert.Zero(t, f.jobs.calls)

	release()
	rec = httptest.NewRecorder()
	body = jsonBody(t, domain.GenerationRequest{Kind: domain.KindMusic, ModelID: domain.ModelMusic, Prompt: "lofi"})
	f.app.CreateGeneration(rec, asOwner(httptest.NewRequest(http.MethodPost, "/v1/generations", body), "tg:1"))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestCreateGenerationInsufficientCredits(t *testing.T) {
	f := newFixture()
	f.jobs.cost = 500
	rec := httptest.NewRecorder()
	body := jsonBody(t, domain.GenerationRequest{Kind: domain.KindVideo, ModelID: domain.ModelReferenceVideo, Prompt: "x"})
	f.app.CreateGeneration(rec, asOwner(httptest.NewRequest(http.MethodPost, "/v1/generations", body), "tg:1"))

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	balance, err := f.ledger.Balance(context.Background(), "tg:1")
	require.NoError(t, err)
	assert.Equal(t, 100, balance)
}

func TestCreateGenerationRequiresOwner(t *testing.T) {
	f := newFixture()
	rec := httptest.NewRecorder()
	f.app.CreateGeneration(rec, httptest.NewRequest(http.MethodPost, "/v1/generations", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateTemplateGenerationNeedsMedia(t *testing.T) {
	f := newFixture()
	req := asOwner(httptest.NewRequest(http.MethodPost, "/v1/templates/2/generations", jsonBody(t, map[string]string{"media_url": ""})), "tg:1")
	rec := httptest.NewRecorder()
	f.app.CreateTemplateGeneration(rec, withParam(req, "template_id", "2"))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Zero(t, f.jobs.calls)

	req = asOwner(httptest.NewRequest(http.MethodPost, "/v1/templates/2/generations", jsonBody(t, map[string]string{"media_url": "https://files/p.jpg"})), "tg:1")
	rec = httptest.NewRecorder()
	f.app.CreateTemplateGeneration(rec, withParam(req, "template_id", "2"))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, "2", f.jobs.last.Request.TemplateID)
	assert.Equal(t, []string{"https://files/p.jpg"}, f.jobs.last.Request.MediaInputs)
}

func TestGetGenerationChecksProcessingJob(t *testing.T) {
	f := newFixture()
	job, err := f.jobs.Submit(context.Background(), dispatch.Submission{OwnerID: "tg:1", Request: domain.GenerationRequest{Kind: domain.KindVideo}})
	require.NoError(t, err)

	req := asOwner(httptest.NewRequest(http.MethodGet, "/v1/generations/"+job.ID, nil), "tg:1")
	rec := httptest.NewRecorder()
	f.app.GetGeneration(rec, withParam(req, "job_id", job.ID))

	require.Equal(t, http.StatusOK, rec.Code)
	var view jobView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "succeeded", view.Status)
	assert.Equal(t, "https://cdn/"+job.ID+".mp4", view.ResultURL)
	assert.Equal(t, 1, f.checker.checked)

	// terminal jobs are served without another check
	rec = httptest.NewRecorder()
	f.app.GetGeneration(rec, withParam(req, "job_id", job.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.checker.checked)
}

func TestGetGenerationServesStoredJobWhenCheckFails(t *testing.T) {
	f := newFixture()
	f.checker.err = fmt.Errorf("poller: %w", domain.ErrTransientNetwork)
	job, err := f.jobs.Submit(context.Background(), dispatch.Submission{OwnerID: "tg:1", Request: domain.GenerationRequest{Kind: domain.KindVideo}})
	require.NoError(t, err)

	req := asOwner(httptest.NewRequest(http.MethodGet, "/", nil), "tg:1")
	rec := httptest.NewRecorder()
	f.app.GetGeneration(rec, withParam(req, "job_id", job.ID))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "processing", decodeBody(t, rec)["status"])
}

func TestGetGenerationForbiddenForOtherOwner(t *testing.T) {
	f := newFixture()
	job, err := f.jobs.Submit(context.Background(), dispatch.Submission{OwnerID: "tg:1", Request: domain.GenerationRequest{Kind: domain.KindVideo}})
	require.NoError(t, err)

	req := asOwner(httptest.NewRequest(http.MethodGet, "/", nil), "tg:2")
	rec := httptest.NewRecorder()
	f.app.GetGeneration(rec, withParam(req, "job_id", job.ID))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, f.checker.checked)
}

func TestDeleteGenerationOwnerChecked(t *testing.T) {
	f := newFixture()
	job, err := f.jobs.Submit(context.Background(), dispatch.Submission{OwnerID: "tg:1", Request: domain.GenerationRequest{Kind: domain.KindImage}})
	require.NoError(t, err)

	req := asOwner(httptest.NewRequest(http.MethodDelete, "/", nil), "tg:2")
	rec := httptest.NewRecorder()
	f.app.DeleteGeneration(rec, withParam(req, "job_id", job.ID))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	_, err = f.history.Get(context.Background(), job.ID)
	require.NoError(t, err, "job must survive a foreign delete")

	req = asOwner(httptest.NewRequest(http.MethodDelete, "/", nil), "tg:1")
	rec = httptest.NewRecorder()
	f.app.DeleteGeneration(rec, withParam(req, "job_id", job.ID))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, err = f.history.Get(context.Background(), job.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	rec = httptest.NewRecorder()
	f.app.DeleteGeneration(rec, withParam(req, "job_id", job.ID))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListGenerationsNewestFirst(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := f.jobs.Submit(ctx, dispatch.Submission{OwnerID: "tg:1", Request: domain.GenerationRequest{Kind: domain.KindImage}})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}
	_, err := f.jobs.Submit(ctx, dispatch.Submission{OwnerID: "tg:2", Request: domain.GenerationRequest{Kind: domain.KindImage}})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	f.app.ListGenerations(rec, asOwner(httptest.NewRequest(http.MethodGet, "/v1/generations", nil), "tg:1"))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Items []jobView `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "job-2", resp.Items[0].ID)
	assert.Equal(t, "job-1", resp.Items[1].ID)
	assert.NotNil(t, resp.Items[0].MediaInputs)
}

func multipartPhoto(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, "me.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

func TestUploadStoresPhoto(t *testing.T) {
	f := newFixture()
	body, contentType := multipartPhoto(t, "photo", pngBytes)
	req := asOwner(httptest.NewRequest(http.MethodPost, "/v1/uploads", body), "tg:1")
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	f.app.Upload(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody(t, rec)
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, "https://files.example/uploads/me.png", resp["fileUrl"])
}

func TestUploadRejects(t *testing.T) {
	t.Run("non media", func(t *testing.T) {
		f := newFixture()
		body, contentType := multipartPhoto(t, "photo", []byte("just some text"))
		req := asOwner(httptest.NewRequest(http.MethodPost, "/v1/uploads", body), "tg:1")
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		f.app.Upload(rec, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
		assert.Empty(t, f.blobs.names)
	})
	t.Run("wrong field", func(t *testing.T) {
		f := newFixture()
		body, contentType := multipartPhoto(t, "file", pngBytes)
		req := asOwner(httptest.NewRequest(http.MethodPost, "/v1/uploads", body), "tg:1")
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		f.app.Upload(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("too large", func(t *testing.T) {
		f := newFixture()
		f.app.UploadMaxBytes = 16
		body, contentType := multipartPhoto(t, "photo", pngBytes)
		req := asOwner(httptest.NewRequest(http.MethodPost, "/v1/uploads", body), "tg:1")
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		f.app.Upload(rec, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
	t.Run("store failure", func(t *testing.T) {
		f := newFixture()
		f.blobs.err = errors.New("bucket gone")
		body, contentType := multipartPhoto(t, "photo", pngBytes)
		req := asOwner(httptest.NewRequest(http.MethodPost, "/v1/uploads", body), "tg:1")
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		f.app.Upload(rec, req)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "upload_failed", errorCode(t, rec))
	})
}

func TestBalanceIncludesEntries(t *testing.T) {
	f := newFixture()
	_, err := f.ledger.Debit(context.Background(), "tg:1", 30, domain.ReasonGeneration)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	f.app.Balance(rec, asOwner(httptest.NewRequest(http.MethodGet, "/v1/me/balance", nil), "tg:1"))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Balance int                  `json:"balance"`
		Entries []domain.LedgerEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 70, resp.Balance)
	require.NotEmpty(t, resp.Entries)
	assert.Equal(t, domain.ReasonGeneration, resp.Entries[0].Reason)
	assert.Equal(t, -30, resp.Entries[0].Delta)
}

func TestBillingCredits(t *testing.T) {
	f := newFixture()

	rec := httptest.NewRecorder()
	f.app.BillingCredits(rec, httptest.NewRequest(http.MethodPost, "/v1/billing/credits", jsonBody(t, map[string]any{"owner_id": "tg:9", "amount": 250})))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 350, decodeBody(t, rec)["balance"])

	rec = httptest.NewRecorder()
	f.app.BillingCredits(rec, httptest.NewRequest(http.MethodPost, "/v1/billing/credits", jsonBody(t, map[string]any{"owner_id": "tg:9", "amount": 0})))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	f.app.BillingCredits(rec, httptest.NewRequest(http.MethodPost, "/v1/billing/credits", jsonBody(t, map[string]any{"owner_id": "tg:9", "amount": 5, "reason": "refund"})))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestBillingBonusDefaultsToSubscriptionBonus(t *testing.T) {
	f := newFixture()
	bonus := f.app.Pricing.SubscriptionBonus()
	require.Positive(t, bonus)

	rec := httptest.NewRecorder()
	f.app.BillingCredits(rec, httptest.NewRequest(http.MethodPost, "/v1/billing/credits", jsonBody(t, map[string]any{"owner_id": "tg:9", "reason": "bonus"})))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 100+bonus, decodeBody(t, rec)["balance"])

	rec = httptest.NewRecorder()
	f.app.BillingCredits(rec, httptest.NewRequest(http.MethodPost, "/v1/billing/credits", jsonBody(t, map[string]any{"owner_id": "tg:9", "reason": "purchase"})))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestLoggerDefaultIsNotStoredOnApp(t *testing.T) {
	app := &App{}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.logger().Info().Msg("concurrent")
		}()
	}
	wg.Wait()
	assert.Nil(t, app.Logger)
	assert.NotNil(t, app.logger())
}

func TestAdminStats(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.ledger.Credit(ctx, "tg:1", 100, domain.ReasonPurchase)
	require.NoError(t, err)
	_, err = f.jobs.Submit(ctx, dispatch.Submission{OwnerID: "tg:2", Request: domain.GenerationRequest{Kind: domain.KindMusic}})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	f.app.AdminStats(rec, httptest.NewRequest(http.MethodGet, "/v1/admin/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var stats domain.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.EqualValues(t, 2, stats.TotalUsers)
	assert.EqualValues(t, 1, stats.PaidUsers)
	assert.EqualValues(t, 1, stats.Active24h)
	assert.EqualValues(t, 1, stats.JobsByStatus["processing"])
}

func TestCatalog(t *testing.T) {
	f := newFixture()

	rec := httptest.NewRecorder()
	f.app.Templates(rec, httptest.NewRequest(http.MethodGet, "/v1/templates", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var templates struct {
		Items []templateView `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &templates))
	require.NotEmpty(t, templates.Items)
	for _, item := range templates.Items {
		assert.Equal(t, f.app.Pricing.TemplateCost(item.ID), item.Cost, item.ID)
	}

	rec = httptest.NewRecorder()
	f.app.CreditPacks(rec, httptest.NewRequest(http.MethodGet, "/v1/credit-packs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, f.app.Pricing.SignupCredits(), decodeBody(t, rec)["signup_credits"])
}

func TestOpenAPIDocumentIsJSON(t *testing.T) {
	app := &App{}
	rec := httptest.NewRecorder()
	app.OpenAPIJSON(rec, httptest.NewRequest(http.MethodGet, "/v1/openapi.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decodeBody(t, rec)
	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, paths, "/v1/generations")
}

func TestOpenAPIDocsUsesDocumentTitle(t *testing.T) {
	app := &App{}
	rec := httptest.NewRecorder()
	app.OpenAPIDocs(rec, httptest.NewRequest(http.MethodGet, "/v1/docs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>vidiai API</title>")
	assert.Contains(t, rec.Body.String(), `spec-url="/v1/openapi.json"`)
}
