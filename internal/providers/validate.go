package providers

import (
	"net/url"
	"strings"

	"vidiai/internal/domain"
)

// RequirePrompt rejects an empty prompt.
func RequirePrompt(req domain.GenerationRequest) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return domain.NewValidationError("prompt", "prompt is required")
	}
	return nil
}

// RequireMedia checks the media input count against [min, max] and that every
// input is an absolute http(s) URL.
func RequireMedia(req domain.GenerationRequest, min, max int, what string) error {
	n := len(req.MediaInputs)
	switch {
	case n < min && min == max:
		return domain.NewValidationError("media_inputs", "%s requires exactly %d image(s)", what, min)
	case n < min:
		return domain.NewValidationError("media_inputs", "%s requires at least %d image(s)", what, min)
	case n > max && max == 0:
		return domain.NewValidationError("media_inputs", "%s does not accept images", what)
	case n > max:
		return domain.NewValidationError("media_inputs", "%s accepts at most %d image(s)", what, max)
	}
	for _, raw := range req.MediaInputs {
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return domain.NewValidationError("media_inputs", "invalid media url %q", raw)
		}
	}
	return nil
}

// RequireOneOf rejects value when it is not in allowed.
func RequireOneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return domain.NewValidationError(field, "unsupported value %q (allowed: %s)", value, strings.Join(allowed, ", "))
}

// ResolveAspect replaces the auto sentinel and empty values with fallback.
// Providers do not accept "auto" literally.
func ResolveAspect(value, fallback string) string {
	v := strings.TrimSpace(value)
	if v == "" || strings.EqualFold(v, domain.AspectAuto) {
		return fallback
	}
	return v
}

// RequireMethod rejects methods the adapter cannot serve.
func RequireMethod(req domain.GenerationRequest, allowed ...domain.Method) error {
	for _, m := range allowed {
		if req.Options.Method == m {
			return nil
		}
	}
	names := make([]string, len(allowed))
	for i, m := range allowed {
		names[i] = string(m)
	}
	return domain.NewValidationError("method", "unsupported method %q (allowed: %s)", req.Options.Method, strings.Join(names, ", "))
}
