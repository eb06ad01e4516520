package kie

import (
	"encoding/json"
	"strings"

	"vidiai/internal/domain"
)

var successStates = map[string]struct{}{
	"success":   {},
	"succeeded": {},
	"completed": {},
	"complete":  {},
}

var failureStates = map[string]struct{}{
	"fail":                  {},
	"failed":                {},
	"error":                 {},
	"create_task_failed":    {},
	"generate_audio_failed": {},
	"callback_exception":    {},
	"sensitive_word_error":  {},
}

// Success flag values reported by the veo and image record endpoints.
const (
	FlagGenerating     = 0
	FlagSuccess        = 1
	FlagFailed         = 2
	FlagGenerateFailed = 3
)

// NormalizeState maps a provider state string and optional success flag to a
// job status. Anything unrecognized stays processing.
func NormalizeState(state string, successFlag *int) domain.JobStatus {
	if successFlag != nil {
		switch *successFlag {
		case FlagSuccess:
			return domain.JobStatusSucceeded
		case FlagFailed, FlagGenerateFailed:
			return domain.JobStatusFailed
		}
	}
	s := strings.ToLower(strings.TrimSpace(state))
	if _, ok := successStates[s]; ok {
		return domain.JobStatusSucceeded
	}
	if _, ok := failureStates[s]; ok {
		return domain.JobStatusFailed
	}
	return domain.JobStatusProcessing
}

// SplitResults returns the primary and alternate result from an ordered list.
func SplitResults(urls []string) (string, string) {
	var clean []string
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			clean = append(clean, u)
		}
	}
	switch len(clean) {
	case 0:
		return "", ""
	case 1:
		return clean[0], ""
	default:
		return clean[0], clean[1]
	}
}

// FailureText returns the first non-empty provider message or the generic
// fallback.
func FailureText(messages ...string) string {
	if msg := firstNonEmpty(messages...); msg != "" {
		return msg
	}
	return domain.GenericFailureMessage
}

// Result builds a normalized status result.
func Result(status domain.JobStatus, urls []string, failure ...string) domain.StatusResult {
	res := domain.StatusResult{Status: status}
	switch status {
	case domain.JobStatusSucceeded:
		res.ResultURL, res.AlternateResultURL = SplitResults(urls)
	case domain.JobStatusFailed:
		res.ErrorDescription = FailureText(failure...)
	}
	return res
}

// ResultURLs decodes a result field that may be a JSON array of URLs, a bare
// URL string, or a string containing a JSON-encoded object with resultUrls.
func ResultURLs(raw json.RawMessage) []string {
	raw = json.RawMessage(strings.TrimSpace(string(raw)))
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var obj struct {
		ResultURLs []string `json:"resultUrls"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && len(obj.ResultURLs) > 0 {
		return obj.ResultURLs
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
		return ResultURLs(json.RawMessage(s))
	}
	return []string{s}
}
