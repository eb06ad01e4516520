package image

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidiai/internal/domain"
	"vidiai/internal/providers/kie"
	"vidiai/internal/providers/kie/kietest"
)

func imageReq(model string, method domain.Method, media ...string) domain.GenerationRequest {
	return domain.GenerationRequest{
		Kind:        domain.KindImage,
		ModelID:     model,
		Prompt:      "lighthouse at dusk",
		MediaInputs: media,
		Options:     domain.Options{Method: method, AspectRatio: domain.AspectAuto},
	}
}

func TestSubmitTiers(t *testing.T) {
	srv := kietest.New(t)
	srv.Respond(kie.PathCreateTask, http.StatusOK, kietest.Task("img-1"))
	a := NewAdapter(srv.Client(t))
	ctx := context.Background()

	_, err := a.Submit(ctx, imageReq(domain.ModelImageStandard, domain.MethodText))
	require.NoError(t, err)
	body := srv.Last().Body
	assert.Equal(t, "google/nano-banana", body["model"])
	in := body["input"].(map[string]any)
	assert.Equal(t, "png", in["output_format"])
	assert.Equal(t, "1:1", in["image_size"])
	assert.NotContains(t, in, "image_urls")

	pro := imageReq(domain.ModelImagePro, domain.MethodText)
	pro.Options.OutputFormat = "JPEG"
	pro.Options.AspectRatio = "16:9"
	_, err = a.Submit(ctx, pro)
	require.NoError(t, err)
	body = srv.Last().Body
	assert.Equal(t, "bytedance/seedream-v4-text-to-image", body["model"])
	in = body["input"].(map[string]any)
	assert.Equal(t, "jpeg", in["output_format"])
	assert.Equal(t, "16:9", in["image_size"])

	_, err = a.Submit(ctx, imageReq(domain.ModelImageEdit, domain.MethodImage, "https://x/src.png"))
	require.NoError(t, err)
	body = srv.Last().Body
	assert.Equal(t, "google/nano-banana-edit", body["model"])
	assert.Equal(t, []any{"https://x/src.png"}, body["input"].(map[string]any)["image_urls"])
}

func TestValidate(t *testing.T) {
	a := NewAdapter(nil)
	cases := []struct {
		name  string
		req   domain.GenerationRequest
		field string
	}{
		{"edit without image", imageReq(domain.ModelImageEdit, domain.MethodImage), "media_inputs"},
		{"standard with image", imageReq(domain.ModelImageStandard, domain.MethodText, "https://x/a.png"), "media_inputs"},
		{"unknown model", imageReq("image-ultra", domain.MethodText), "model_id"},
		{"bad format", func() domain.GenerationRequest {
			r := imageReq(domain.ModelImageStandard, domain.MethodText)
			r.Options.OutputFormat = "gif"
			return r
		}(), "output_format"},
		{"bad size", func() domain.GenerationRequest {
			r := imageReq(domain.ModelImagePro, domain.MethodText)
			r.Options.AspectRatio = "7:1"
			return r
		}(), "aspect_ratio"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var verr *domain.ValidationError
			err := a.Validate(tc.req)
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestStatusSingleImage(t *testing.T) {
	srv := kietest.New(t)
	srv.Respond(kie.PathRecordInfo, http.StatusOK, kietest.Data(map[string]any{
		"taskId":     "img-1",
		"state":      "success",
		"resultJson": `{"resultUrls":["https://cdn/out.png"]}`,
	}))
	res, err := NewAdapter(srv.Client(t)).Status(context.Background(), "img-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusSucceeded, res.Status)
	assert.Equal(t, "https://cdn/out.png", res.ResultURL)
	assert.Empty(t, res.AlternateResultURL)
}
