// Package image adapts the kie.ai market image models for the three image
// tiers.
package image

import (
	"context"
	"strings"

	"vidiai/internal/domain"
	"vidiai/internal/providers"
	"vidiai/internal/providers/kie"
)

const defaultSize = "1:1"

type tier struct {
	model string
	edit  bool
}

var tiers = map[string]tier{
	domain.ModelImageStandard: {model: "google/nano-banana"},
	domain.ModelImagePro:      {model: "bytedance/seedream-v4-text-to-image"},
	domain.ModelImageEdit:     {model: "google/nano-banana-edit", edit: true},
}

var (
	formats = []string{domain.FormatPNG, domain.FormatJPEG}
	sizes   = []string{"1:1", "9:16", "16:9", "3:4", "4:3", "3:2", "2:3", "5:4", "4:5", "21:9"}
)

type input struct {
	Prompt       string   `json:"prompt"`
	ImageURLs    []string `json:"image_urls,omitempty"`
	OutputFormat string   `json:"output_format"`
	ImageSize    string   `json:"image_size"`
}

// Adapter generates and edits still images.
type Adapter struct {
	client *kie.Client
}

// NewAdapter wires the adapter to a kie client.
func NewAdapter(client *kie.Client) *Adapter {
	return &Adapter{client: client}
}

func (a *Adapter) Provider() domain.Provider { return domain.ProviderImage }

func (a *Adapter) Validate(req domain.GenerationRequest) error {
	t, ok := tiers[req.ModelID]
	if !ok {
		return domain.NewValidationError("model_id", "unsupported image model %q", req.ModelID)
	}
	if err := providers.RequirePrompt(req); err != nil {
		return err
	}
	if t.edit {
		if err := providers.RequireMethod(req, domain.MethodImage); err != nil {
			return err
		}
		if err := providers.RequireMedia(req, 1, domain.MaxMediaInputs, "image editing"); err != nil {
			return err
		}
	} else {
		if err := providers.RequireMethod(req, domain.MethodText); err != nil {
			return err
		}
		if err := providers.RequireMedia(req, 0, 0, "text-to-image"); err != nil {
			return err
		}
	}
	if err := providers.RequireOneOf("output_format", outputFormat(req.Options), formats...); err != nil {
		return err
	}
	return providers.RequireOneOf("aspect_ratio", providers.ResolveAspect(req.Options.AspectRatio, defaultSize), sizes...)
}

func (a *Adapter) Submit(ctx context.Context, req domain.GenerationRequest) (string, error) {
	if err := a.Validate(req); err != nil {
		return "", err
	}
	t := tiers[req.ModelID]
	in := input{
		Prompt:       req.Prompt,
		OutputFormat: outputFormat(req.Options),
		ImageSize:    providers.ResolveAspect(req.Options.AspectRatio, defaultSize),
	}
	if t.edit {
		in.ImageURLs = append([]string(nil), req.MediaInputs...)
	}
	return a.client.SubmitMarket(ctx, t.model, in)
}

func (a *Adapter) Status(ctx context.Context, externalID string) (domain.StatusResult, error) {
	return a.client.MarketStatus(ctx, externalID)
}

func outputFormat(opts domain.Options) string {
	f := strings.ToLower(strings.TrimSpace(opts.OutputFormat))
	if f == "" {
		return domain.FormatPNG
	}
	return f
}

var _ providers.Adapter = (*Adapter)(nil)
