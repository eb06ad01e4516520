package handlers

import (
	"time"

	"vidiai/internal/domain"
)

// jobView is the client representation of a job.
type jobView struct {
	ID                 string     `json:"id"`
	Provider           string     `json:"provider"`
	ExternalID         string     `json:"external_id"`
	Kind               string     `json:"kind"`
	ModelID            string     `json:"model_id"`
	Prompt             string     `json:"prompt"`
	Title              string     `json:"title,omitempty"`
	SourceMediaURL     string     `json:"source_media_url,omitempty"`
	MediaInputs        []string   `json:"media_inputs"`
	AspectRatio        string     `json:"aspect_ratio,omitempty"`
	Duration           int        `json:"duration,omitempty"`
	Status             string     `json:"status"`
	ResultURL          string     `json:"result_url,omitempty"`
	AlternateResultURL string     `json:"alternate_result_url,omitempty"`
	ErrorDescription   string     `json:"error_description,omitempty"`
	Cost               int        `json:"cost"`
	Refunded           bool       `json:"refunded"`
	CreatedAt          time.Time  `json:"created_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

func viewJob(j *domain.Job) jobView {
	media := j.MediaInputs
	if media == nil {
		media = []string{}
	}
	return jobView{
		ID:                 j.ID,
		Provider:           string(j.Ref.Provider),
		ExternalID:         j.Ref.ExternalID,
		Kind:               string(j.Kind),
		ModelID:            j.ModelID,
		Prompt:             j.Prompt,
		Title:              j.Title,
		SourceMediaURL:     j.SourceMediaURL,
		MediaInputs:        media,
		AspectRatio:        j.AspectRatio,
		Duration:           j.Duration,
		Status:             string(j.Status),
		ResultURL:          j.ResultURL,
		AlternateResultURL: j.AlternateResultURL,
		ErrorDescription:   j.ErrorDescription,
		Cost:               j.CostCharged,
		Refunded:           j.Refunded,
		CreatedAt:          j.CreatedAt,
		CompletedAt:        j.CompletedAt,
	}
}

func viewJobs(jobs []domain.Job) []jobView {
	out := make([]jobView, 0, len(jobs))
	for i := range jobs {
		out = append(out, viewJob(&jobs[i]))
	}
	return out
}
