// Package video holds the three video adapters: text-only, single image
// animation and multi-reference generation.
package video

import (
	"context"
	"strconv"

	"vidiai/internal/domain"
	"vidiai/internal/providers"
	"vidiai/internal/providers/kie"
)

const (
	textModel     = "kling-2.6/text-to-video"
	defaultAspect = "16:9"
)

var (
	klingDurations = []string{"5", "10"}
	textAspects    = []string{"16:9", "9:16", "1:1"}
)

type textInput struct {
	Prompt      string `json:"prompt"`
	Duration    string `json:"duration"`
	AspectRatio string `json:"aspect_ratio"`
	Sound       bool   `json:"sound"`
}

// TextAdapter generates video from a prompt only.
type TextAdapter struct {
	client *kie.Client
}

// NewTextAdapter wires the adapter to a kie client.
func NewTextAdapter(client *kie.Client) *TextAdapter {
	return &TextAdapter{client: client}
}

func (a *TextAdapter) Provider() domain.Provider { return domain.ProviderVideoText }

func (a *TextAdapter) Validate(req domain.GenerationRequest) error {
	if err := providers.RequireMethod(req, domain.MethodText); err != nil {
		return err
	}
	if err := providers.RequirePrompt(req); err != nil {
		return err
	}
	if err := providers.RequireMedia(req, 0, 0, "text-to-video"); err != nil {
		return err
	}
	if err := providers.RequireOneOf("duration", strconv.Itoa(req.Options.Duration), klingDurations...); err != nil {
		return err
	}
	return providers.RequireOneOf("aspect_ratio", providers.ResolveAspect(req.Options.AspectRatio, defaultAspect), textAspects...)
}

func (a *TextAdapter) Submit(ctx context.Context, req domain.GenerationRequest) (string, error) {
	if err := a.Validate(req); err != nil {
		return "", err
	}
	return a.client.SubmitMarket(ctx, textModel, textInput{
		Prompt:      req.Prompt,
		Duration:    strconv.Itoa(req.Options.Duration),
		AspectRatio: providers.ResolveAspect(req.Options.AspectRatio, defaultAspect),
		Sound:       soundEnabled(req.Options),
	})
}

func (a *TextAdapter) Status(ctx context.Context, externalID string) (domain.StatusResult, error) {
	return a.client.MarketStatus(ctx, externalID)
}

func soundEnabled(opts domain.Options) bool {
	if opts.Sound == nil {
		return true
	}
	return *opts.Sound
}

var _ providers.Adapter = (*TextAdapter)(nil)
