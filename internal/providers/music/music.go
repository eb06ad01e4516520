// Package music adapts the kie.ai Suno endpoints.
package music

import (
	"context"
	"math/rand/v2"
	"strings"

	"vidiai/internal/domain"
	"vidiai/internal/providers"
	"vidiai/internal/providers/kie"
)

const (
	pathGenerate = "/api/v1/generate"
	pathRecord   = "/api/v1/generate/record-info"

	model = "V4_5"
)

// Coin picks the vocal gender when the caller asks for a random one. It
// returns true for male.
type Coin func() bool

// RandomCoin flips a fair coin.
func RandomCoin() bool { return rand.IntN(2) == 0 }

type task struct {
	Prompt       string `json:"prompt"`
	Style        string `json:"style,omitempty"`
	Title        string `json:"title,omitempty"`
	CustomMode   bool   `json:"customMode"`
	Instrumental bool   `json:"instrumental"`
	Model        string `json:"model"`
	VocalGender  string `json:"vocalGender,omitempty"`
	CallBackURL  string `json:"callBackUrl"`
}

type record struct {
	TaskID   string `json:"taskId"`
	Status   string `json:"status"`
	Response *struct {
		SunoData []struct {
			ID       string `json:"id"`
			AudioURL string `json:"audioUrl"`
		} `json:"sunoData"`
	} `json:"response"`
	ErrorCode    any    `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

func (r record) result() domain.StatusResult {
	var urls []string
	if r.Response != nil {
		for _, take := range r.Response.SunoData {
			urls = append(urls, take.AudioURL)
		}
	}
	// FIRST_SUCCESS and TEXT_SUCCESS are intermediate and stay processing.
	return kie.Result(kie.NormalizeState(r.Status, nil), urls, r.ErrorMessage)
}

// Adapter generates songs.
type Adapter struct {
	client *kie.Client
	coin   Coin
}

// NewAdapter wires the adapter to a kie client. A nil coin uses RandomCoin.
func NewAdapter(client *kie.Client, coin Coin) *Adapter {
	if coin == nil {
		coin = RandomCoin
	}
	return &Adapter{client: client, coin: coin}
}

func (a *Adapter) Provider() domain.Provider { return domain.ProviderMusic }

func (a *Adapter) Validate(req domain.GenerationRequest) error {
	if err := providers.RequireMedia(req, 0, 0, "music"); err != nil {
		return err
	}
	opts := req.Options
	if opts.VocalGender != "" {
		if err := providers.RequireOneOf("vocal_gender", opts.VocalGender, domain.VocalMale, domain.VocalFemale, domain.VocalRandom); err != nil {
			return err
		}
	}
	if !opts.CustomMode {
		return providers.RequirePrompt(req)
	}
	if strings.TrimSpace(opts.Title) == "" {
		return domain.NewValidationError("title", "title is required in custom mode")
	}
	if strings.TrimSpace(opts.Style) == "" {
		return domain.NewValidationError("style", "style is required in custom mode")
	}
	if !opts.Instrumental && strings.TrimSpace(opts.Lyrics) == "" {
		return domain.NewValidationError("lyrics", "lyrics are required unless instrumental")
	}
	return nil
}

func (a *Adapter) Submit(ctx context.Context, req domain.GenerationRequest) (string, error) {
	if err := a.Validate(req); err != nil {
		return "", err
	}
	opts := req.Options
	t := task{
		Prompt:       req.Prompt,
		CustomMode:   opts.CustomMode,
		Instrumental: opts.Instrumental,
		Model:        model,
		CallBackURL:  a.client.CallbackURL(),
	}
	if opts.CustomMode {
		t.Title = opts.Title
		t.Style = opts.Style
		// In custom mode the prompt field carries the lyrics.
		t.Prompt = opts.Lyrics
	}
	if !opts.Instrumental {
		t.VocalGender = a.vocalGender(opts.VocalGender)
	}
	return a.client.CreateTask(ctx, pathGenerate, t)
}

func (a *Adapter) Status(ctx context.Context, externalID string) (domain.StatusResult, error) {
	var rec record
	if err := a.client.Record(ctx, pathRecord, externalID, &rec); err != nil {
		return domain.StatusResult{}, err
	}
	return rec.result(), nil
}

func (a *Adapter) vocalGender(v string) string {
	switch v {
	case domain.VocalMale:
		return "m"
	case domain.VocalFemale:
		return "f"
	case domain.VocalRandom:
		if a.coin() {
			return "m"
		}
		return "f"
	}
	return ""
}

var _ providers.Adapter = (*Adapter)(nil)
