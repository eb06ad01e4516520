package video

import (
	"context"
	"fmt"
	"strconv"

	"vidiai/internal/domain"
	"vidiai/internal/providers"
	"vidiai/internal/providers/kie"
)

// imageModel describes how one catalog model shapes its source image field.
type imageModel struct {
	name      string
	listField bool
	sound     bool
}

var imageModels = map[string]imageModel{
	domain.ModelImageToVideo:         {name: "kling-2.6/image-to-video", listField: true, sound: true},
	domain.ModelStandardImageToVideo: {name: "kling/v2-1-standard"},
}

type imageInput struct {
	Prompt    string   `json:"prompt"`
	ImageURL  string   `json:"image_url,omitempty"`
	ImageURLs []string `json:"image_urls,omitempty"`
	Duration  string   `json:"duration"`
	Sound     *bool    `json:"sound,omitempty"`
}

// ImageAdapter animates a single source image.
type ImageAdapter struct {
	client *kie.Client
}

// NewImageAdapter wires the adapter to a kie client.
func NewImageAdapter(client *kie.Client) *ImageAdapter {
	return &ImageAdapter{client: client}
}

func (a *ImageAdapter) Provider() domain.Provider { return domain.ProviderVideoImage }

func (a *ImageAdapter) Validate(req domain.GenerationRequest) error {
	if _, ok := imageModels[req.ModelID]; !ok {
		return domain.NewValidationError("model_id", "unsupported image-to-video model %q", req.ModelID)
	}
	if err := providers.RequireMethod(req, domain.MethodAnimate); err != nil {
		return err
	}
	if err := providers.RequirePrompt(req); err != nil {
		return err
	}
	if err := providers.RequireMedia(req, 1, 1, "image-to-video"); err != nil {
		return err
	}
	return providers.RequireOneOf("duration", strconv.Itoa(req.Options.Duration), klingDurations...)
}

func (a *ImageAdapter) Submit(ctx context.Context, req domain.GenerationRequest) (string, error) {
	if err := a.Validate(req); err != nil {
		return "", err
	}
	model := imageModels[req.ModelID]
	input := imageInput{
		Prompt:   req.Prompt,
		Duration: strconv.Itoa(req.Options.Duration),
	}
	if model.listField {
		input.ImageURLs = []string{req.MediaInputs[0]}
	} else {
		input.ImageURL = req.MediaInputs[0]
	}
	if model.sound {
		sound := soundEnabled(req.Options)
		input.Sound = &sound
	}
	id, err := a.client.SubmitMarket(ctx, model.name, input)
	if err != nil {
		return "", fmt.Errorf("video: %s: %w", req.ModelID, err)
	}
	return id, nil
}

func (a *ImageAdapter) Status(ctx context.Context, externalID string) (domain.StatusResult, error) {
	return a.client.MarketStatus(ctx, externalID)
}

var _ providers.Adapter = (*ImageAdapter)(nil)
