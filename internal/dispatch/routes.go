package dispatch

import "vidiai/internal/domain"

type mediaRule int

const (
	mediaAny mediaRule = iota
	mediaNone
	mediaSome
)

func (m mediaRule) matches(hasMedia bool) bool {
	switch m {
	case mediaNone:
		return !hasMedia
	case mediaSome:
		return hasMedia
	}
	return true
}

type route struct {
	kind     domain.ContentKind
	models   []string
	media    mediaRule
	method   domain.Method
	provider domain.Provider
}

func (r route) matches(req domain.GenerationRequest) bool {
	if r.kind != req.Kind || r.method != req.Options.Method || !r.media.matches(req.HasMedia()) {
		return false
	}
	for _, m := range r.models {
		if m == req.ModelID {
			return true
		}
	}
	return false
}

// routes is the closed decision table. Rows whose model has a single adapter
// match any media count, so a wrong image count surfaces as that adapter's
// media_inputs error rather than a routing miss.
var routes = []route{
	{domain.KindVideo, []string{domain.ModelFastTextToVideo}, mediaAny, domain.MethodText, domain.ProviderVideoText},
	{domain.KindVideo, []string{domain.ModelImageToVideo, domain.ModelStandardImageToVideo}, mediaSome, domain.MethodAnimate, domain.ProviderVideoImage},
	{domain.KindVideo, []string{domain.ModelReferenceVideo}, mediaAny, domain.MethodReferences, domain.ProviderVideoReference},
	{domain.KindVideo, []string{domain.ModelReferenceVideo}, mediaAny, domain.MethodFrames, domain.ProviderVideoReference},
	{domain.KindVideo, []string{domain.ModelReferenceVideo}, mediaAny, domain.MethodText, domain.ProviderVideoReference},
	{domain.KindImage, []string{domain.ModelImageStandard, domain.ModelImagePro}, mediaNone, domain.MethodText, domain.ProviderImage},
	{domain.KindImage, []string{domain.ModelImageEdit}, mediaAny, domain.MethodImage, domain.ProviderImage},
	{domain.KindMusic, []string{domain.ModelMusic}, mediaAny, domain.MethodText, domain.ProviderMusic},
}

// fallbackRoutes is used outside development when nothing in routes matches.
var fallbackRoutes = map[domain.ContentKind]domain.Provider{
	domain.KindVideo: domain.DefaultProvider,
	domain.KindImage: domain.ProviderImage,
	domain.KindMusic: domain.ProviderMusic,
}

// Resolve finds the provider family for a normalized request.
func Resolve(req domain.GenerationRequest) (domain.Provider, bool) {
	for _, r := range routes {
		if r.matches(req) {
			return r.provider, true
		}
	}
	return "", false
}
