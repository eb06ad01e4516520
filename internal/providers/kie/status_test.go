package kie

import (
	"encoding/json"
	"testing"

	"vidiai/internal/domain"
)

func intPtr(v int) *int { return &v }

func TestNormalizeState(t *testing.T) {
	tests := []struct {
		state string
		flag  *int
		want  domain.JobStatus
	}{
		{state: "success", want: domain.JobStatusSucceeded},
		{state: "completed", want: domain.JobStatusSucceeded},
		{state: "SUCCESS", want: domain.JobStatusSucceeded},
		{state: "fail", want: domain.JobStatusFailed},
		{state: "GENERATE_AUDIO_FAILED", want: domain.JobStatusFailed},
		{state: "waiting", want: domain.JobStatusProcessing},
		{state: "queuing", want: domain.JobStatusProcessing},
		{state: "brand_new_state", want: domain.JobStatusProcessing},
		{state: "", flag: intPtr(1), want: domain.JobStatusSucceeded},
		{state: "", flag: intPtr(0), want: domain.JobStatusProcessing},
		{state: "", flag: intPtr(2), want: domain.JobStatusFailed},
		{state: "", flag: intPtr(3), want: domain.JobStatusFailed},
		{state: "", want: domain.JobStatusProcessing},
	}
	for _, tc := range tests {
		if got := NormalizeState(tc.state, tc.flag); got != tc.want {
			t.Fatalf("NormalizeState(%q, %v) = %q, want %q", tc.state, tc.flag, got, tc.want)
		}
	}
}

func TestResultURLs(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "array", raw: `["a","b"]`, want: []string{"a", "b"}},
		{name: "bare url", raw: `"https://cdn/x.mp4"`, want: []string{"https://cdn/x.mp4"}},
		{name: "nested json string", raw: `"{\"resultUrls\":[\"https://cdn/y.mp4\"]}"`, want: []string{"https://cdn/y.mp4"}},
		{name: "object", raw: `{"resultUrls":["z"]}`, want: []string{"z"}},
		{name: "null", raw: `null`, want: nil},
		{name: "empty string", raw: `""`, want: nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ResultURLs(json.RawMessage(tc.raw))
			if len(got) != len(tc.want) {
				t.Fatalf("ResultURLs(%s) = %v, want %v", tc.raw, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("ResultURLs(%s)[%d] = %q, want %q", tc.raw, i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestResultSingleAndPair(t *testing.T) {
	single := Result(domain.JobStatusSucceeded, []string{"only"})
	if single.ResultURL != "only" || single.AlternateResultURL != "" {
		t.Fatalf("single result = %+v", single)
	}
	pair := Result(domain.JobStatusSucceeded, []string{"first", "second"})
	if pair.ResultURL != "first" || pair.AlternateResultURL != "second" {
		t.Fatalf("pair result = %+v", pair)
	}
	failed := Result(domain.JobStatusFailed, nil, "", "  ")
	if failed.ErrorDescription != domain.GenericFailureMessage {
		t.Fatalf("failure text = %q, want generic", failed.ErrorDescription)
	}
	verbatim := Result(domain.JobStatusFailed, nil, "content policy")
	if verbatim.ErrorDescription != "content policy" {
		t.Fatalf("failure text = %q, want provider message", verbatim.ErrorDescription)
	}
}
