package video

import (
	"context"

	"vidiai/internal/domain"
	"vidiai/internal/providers"
	"vidiai/internal/providers/kie"
)

const (
	pathVeoGenerate = "/api/v1/veo/generate"
	pathVeoRecord   = "/api/v1/veo/record-info"

	referenceModel = "veo3_fast"

	generationText       = "TEXT_2_VIDEO"
	generationReferences = "REFERENCE_2_VIDEO"
	generationFrames     = "FIRST_AND_LAST_FRAMES_2_VIDEO"
)

var referenceAspects = []string{"16:9", "9:16"}

type veoTask struct {
	Prompt         string   `json:"prompt"`
	ImageURLs      []string `json:"imageUrls,omitempty"`
	Model          string   `json:"model"`
	AspectRatio    string   `json:"aspectRatio"`
	GenerationType string   `json:"generationType"`
	CallBackURL    string   `json:"callBackUrl,omitempty"`
}

// veoRecord is the veo record-info data object.
type veoRecord struct {
	TaskID      string `json:"taskId"`
	SuccessFlag *int   `json:"successFlag"`
	Response    *struct {
		ResultURLs []string `json:"resultUrls"`
	} `json:"response"`
	ErrorCode    any    `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

func (r veoRecord) result() domain.StatusResult {
	var urls []string
	if r.Response != nil {
		urls = r.Response.ResultURLs
	}
	return kie.Result(kie.NormalizeState("", r.SuccessFlag), urls, r.ErrorMessage)
}

// ReferenceAdapter generates video from style references, a start/end frame
// pair, or text through the veo endpoint.
type ReferenceAdapter struct {
	client *kie.Client
}

// NewReferenceAdapter wires the adapter to a kie client.
func NewReferenceAdapter(client *kie.Client) *ReferenceAdapter {
	return &ReferenceAdapter{client: client}
}

func (a *ReferenceAdapter) Provider() domain.Provider { return domain.ProviderVideoReference }

func (a *ReferenceAdapter) Validate(req domain.GenerationRequest) error {
	if err := providers.RequireMethod(req, domain.MethodReferences, domain.MethodFrames, domain.MethodText); err != nil {
		return err
	}
	if err := providers.RequirePrompt(req); err != nil {
		return err
	}
	var err error
	switch req.Options.Method {
	case domain.MethodReferences:
		err = providers.RequireMedia(req, 1, domain.MaxMediaInputs, "reference video")
	case domain.MethodFrames:
		err = providers.RequireMedia(req, 2, 2, "start and end frame video")
	default:
		err = providers.RequireMedia(req, 0, 0, "text video")
	}
	if err != nil {
		return err
	}
	return providers.RequireOneOf("aspect_ratio", providers.ResolveAspect(req.Options.AspectRatio, defaultAspect), referenceAspects...)
}

func (a *ReferenceAdapter) Submit(ctx context.Context, req domain.GenerationRequest) (string, error) {
	if err := a.Validate(req); err != nil {
		return "", err
	}
	task := veoTask{
		Prompt:      req.Prompt,
		Model:       referenceModel,
		AspectRatio: providers.ResolveAspect(req.Options.AspectRatio, defaultAspect),
		CallBackURL: a.client.CallbackURL(),
	}
	switch req.Options.Method {
	case domain.MethodReferences:
		task.GenerationType = generationReferences
		task.ImageURLs = append([]string(nil), req.MediaInputs...)
	case domain.MethodFrames:
		task.GenerationType = generationFrames
		task.ImageURLs = []string{req.MediaInputs[0], req.MediaInputs[1]}
	default:
		task.GenerationType = generationText
	}
	return a.client.CreateTask(ctx, pathVeoGenerate, task)
}

func (a *ReferenceAdapter) Status(ctx context.Context, externalID string) (domain.StatusResult, error) {
	var rec veoRecord
	if err := a.client.Record(ctx, pathVeoRecord, externalID, &rec); err != nil {
		return domain.StatusResult{}, err
	}
	return rec.result(), nil
}

var _ providers.Adapter = (*ReferenceAdapter)(nil)
