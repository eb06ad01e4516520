package dispatch

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"vidiai/internal/domain"
)

// Normalize returns a canonical copy of req: NFC text, folded enums and the
// model's default method and duration. req itself is not modified.
func Normalize(req domain.GenerationRequest) (domain.GenerationRequest, error) {
	out := req.Clone()
	// Casers keep state and are not safe to share between goroutines.
	lower := cases.Lower(language.Und)
	fold := func(s string) string { return lower.String(strings.TrimSpace(s)) }

	out.Kind = domain.ContentKind(fold(string(out.Kind)))
	out.ModelID = fold(out.ModelID)
	out.Prompt = text(out.Prompt)
	out.Title = text(out.Title)
	out.TemplateID = strings.TrimSpace(out.TemplateID)

	media := out.MediaInputs[:0]
	for _, m := range out.MediaInputs {
		if m = strings.TrimSpace(m); m != "" {
			media = append(media, m)
		}
	}
	if len(media) == 0 {
		media = nil
	}
	out.MediaInputs = media

	opts := &out.Options
	opts.Method = domain.Method(fold(string(opts.Method)))
	opts.AspectRatio = fold(opts.AspectRatio)
	opts.OutputFormat = fold(opts.OutputFormat)
	opts.VocalGender = fold(opts.VocalGender)
	opts.Title = text(opts.Title)
	opts.Style = text(opts.Style)
	opts.Lyrics = text(opts.Lyrics)

	spec, known := domain.LookupModel(out.ModelID)
	if out.Kind == "" && known {
		out.Kind = spec.Kind
	}
	if !out.Kind.Valid() {
		return out, domain.NewValidationError("kind", "unknown content kind %q", out.Kind)
	}
	if known {
		if spec.Kind != out.Kind {
			return out, domain.NewValidationError("model_id", "model %q does not produce %s", out.ModelID, out.Kind)
		}
		if opts.Method == "" {
			opts.Method = spec.DefaultMethod
		}
		if out.Kind == domain.KindVideo && opts.Duration == 0 {
			opts.Duration = spec.DefaultDuration
		}
		// The reference model renders a fixed length.
		if out.ModelID == domain.ModelReferenceVideo {
			opts.Duration = spec.DefaultDuration
		}
	}
	if out.Kind != domain.KindVideo {
		opts.Duration = 0
	}
	if out.Title == "" && out.Kind == domain.KindMusic {
		out.Title = opts.Title
	}
	return out, nil
}

func text(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
