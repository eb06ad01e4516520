package domain

// ContentKind is the category of content a request asks for.
type ContentKind string

const (
	KindVideo ContentKind = "video"
	KindImage ContentKind = "image"
	KindMusic ContentKind = "music"
)

// Valid reports whether k is one of the known kinds.
func (k ContentKind) Valid() bool {
	switch k {
	case KindVideo, KindImage, KindMusic:
		return true
	}
	return false
}

// Model identifiers exposed to clients.
const (
	ModelFastTextToVideo      = "fast-text-to-video"
	ModelImageToVideo         = "image-to-video"
	ModelStandardImageToVideo = "standard-image-to-video"
	ModelReferenceVideo       = "reference-video"
	ModelImageStandard        = "image-standard"
	ModelImagePro             = "image-pro"
	ModelImageEdit            = "edit-quality"
	ModelMusic                = "music"
)

// Method selects the generation mode explicitly. Adapters never infer it from
// the number of media inputs.
type Method string

const (
	MethodText       Method = "text"
	MethodAnimate    Method = "animate"
	MethodReferences Method = "references"
	MethodFrames     Method = "frames"
	MethodImage      Method = "image"
)

const (
	AspectAuto = "auto"

	FormatPNG  = "png"
	FormatJPEG = "jpeg"

	VocalMale   = "male"
	VocalFemale = "female"
	VocalRandom = "random"

	MaxMediaInputs = 3
)

// Options is the per-kind configuration bag of a request.
type Options struct {
	Method       Method `json:"method,omitempty"`
	Duration     int    `json:"duration,omitempty"`
	AspectRatio  string `json:"aspect_ratio,omitempty"`
	OutputFormat string `json:"output_format,omitempty"`
	Sound        *bool  `json:"sound,omitempty"`

	CustomMode   bool   `json:"custom_mode,omitempty"`
	Title        string `json:"title,omitempty"`
	Style        string `json:"style,omitempty"`
	Lyrics       string `json:"lyrics,omitempty"`
	Instrumental bool   `json:"instrumental,omitempty"`
	VocalGender  string `json:"vocal_gender,omitempty"`
}

// GenerationRequest is built by the client for one submission and never
// mutated afterwards.
type GenerationRequest struct {
	Kind        ContentKind `json:"kind"`
	ModelID     string      `json:"model_id"`
	Prompt      string      `json:"prompt"`
	MediaInputs []string    `json:"media_inputs,omitempty"`
	Options     Options     `json:"options"`
	TemplateID  string      `json:"template_id,omitempty"`
	Title       string      `json:"title,omitempty"`
}

// HasMedia reports whether any media input is attached.
func (r GenerationRequest) HasMedia() bool {
	return len(r.MediaInputs) > 0
}

// Clone returns a deep copy so normalization never touches the caller's value.
func (r GenerationRequest) Clone() GenerationRequest {
	out := r
	if r.MediaInputs != nil {
		out.MediaInputs = append([]string(nil), r.MediaInputs...)
	}
	if r.Options.Sound != nil {
		v := *r.Options.Sound
		out.Options.Sound = &v
	}
	return out
}

// ModelSpec describes the fixed properties of a catalog model.
type ModelSpec struct {
	ID              string
	Kind            ContentKind
	DefaultMethod   Method
	DefaultDuration int
	Tier            string
}

var models = map[string]ModelSpec{
	ModelFastTextToVideo:      {ID: ModelFastTextToVideo, Kind: KindVideo, DefaultMethod: MethodText, DefaultDuration: 5},
	ModelImageToVideo:         {ID: ModelImageToVideo, Kind: KindVideo, DefaultMethod: MethodAnimate, DefaultDuration: 5},
	ModelStandardImageToVideo: {ID: ModelStandardImageToVideo, Kind: KindVideo, DefaultMethod: MethodAnimate, DefaultDuration: 5},
	ModelReferenceVideo:       {ID: ModelReferenceVideo, Kind: KindVideo, DefaultMethod: MethodReferences, DefaultDuration: 8},
	ModelImageStandard:        {ID: ModelImageStandard, Kind: KindImage, DefaultMethod: MethodText, Tier: "standard"},
	ModelImagePro:             {ID: ModelImagePro, Kind: KindImage, DefaultMethod: MethodText, Tier: "pro"},
	ModelImageEdit:            {ID: ModelImageEdit, Kind: KindImage, DefaultMethod: MethodImage, Tier: "edit"},
	ModelMusic:                {ID: ModelMusic, Kind: KindMusic, DefaultMethod: MethodText},
}

// LookupModel returns the spec of a known model id.
func LookupModel(id string) (ModelSpec, bool) {
	spec, ok := models[id]
	return spec, ok
}
