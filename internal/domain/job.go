package domain

import (
	"fmt"
	"time"
)

// Provider identifies the adapter family that owns a job's external id.
type Provider string

const (
	ProviderVideoText      Provider = "video_text"
	ProviderVideoImage     Provider = "video_image"
	ProviderVideoReference Provider = "video_reference"
	ProviderImage          Provider = "image"
	ProviderMusic          Provider = "music"

	// DefaultProvider owns ids that were stored without a provider tag.
	DefaultProvider = ProviderVideoImage
)

// Providers lists every known provider family.
func Providers() []Provider {
	return []Provider{ProviderVideoText, ProviderVideoImage, ProviderVideoReference, ProviderImage, ProviderMusic}
}

// ParseProvider validates a stored provider value.
func ParseProvider(s string) (Provider, error) {
	for _, p := range Providers() {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
}

// JobRef is the structured routing identifier of a submitted job.
type JobRef struct {
	Provider   Provider `json:"provider"`
	ExternalID string   `json:"external_id"`
}

// LegacyRef wraps an untagged external id.
func LegacyRef(externalID string) JobRef {
	return JobRef{Provider: DefaultProvider, ExternalID: externalID}
}

// ParseJobRef rebuilds a stored ref. An empty provider is a legacy untagged
// id; any other value must name a known provider.
func ParseJobRef(provider, externalID string) (JobRef, error) {
	if provider == "" {
		return LegacyRef(externalID), nil
	}
	p, err := ParseProvider(provider)
	if err != nil {
		return JobRef{}, err
	}
	return JobRef{Provider: p, ExternalID: externalID}, nil
}

func (r JobRef) String() string {
	return string(r.Provider) + "/" + r.ExternalID
}

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusSucceeded  JobStatus = "succeeded"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether no further transitions may occur.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// CanTransition reports whether from -> to is an allowed lifecycle step.
func CanTransition(from, to JobStatus) bool {
	return from == JobStatusProcessing && to.IsTerminal()
}

// GenericFailureMessage is used when a provider fails without a message.
const GenericFailureMessage = "generation failed"

// StatusResult is the normalized shape every adapter's status parser returns.
type StatusResult struct {
	Status             JobStatus
	ResultURL          string
	AlternateResultURL string
	ErrorDescription   string
}

// Job is the durable record of one submitted request.
type Job struct {
	ID                 string
	Ref                JobRef
	OwnerID            string
	Kind               ContentKind
	ModelID            string
	Prompt             string
	Title              string
	SourceMediaURL     string
	MediaInputs        []string
	AspectRatio        string
	Duration           int
	Country            string
	Status             JobStatus
	ResultURL          string
	AlternateResultURL string
	ErrorDescription   string
	CostCharged        int
	Refunded           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
	CompletedAt        *time.Time
}

// Apply moves the job to the terminal state carried by res. It returns false
// and leaves the job untouched when the transition is not allowed.
func (j *Job) Apply(res StatusResult, now time.Time) bool {
	if !CanTransition(j.Status, res.Status) {
		return false
	}
	j.Status = res.Status
	switch res.Status {
	case JobStatusSucceeded:
		j.ResultURL = res.ResultURL
		j.AlternateResultURL = res.AlternateResultURL
	case JobStatusFailed:
		j.ErrorDescription = res.ErrorDescription
		if j.ErrorDescription == "" {
			j.ErrorDescription = GenericFailureMessage
		}
	}
	j.UpdatedAt = now
	completed := now
	j.CompletedAt = &completed
	return true
}
