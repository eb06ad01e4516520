package pricing

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidiai/internal/domain"
)

func TestDefaultTableCosts(t *testing.T) {
	table := Default()

	tests := []struct {
		name string
		req  domain.GenerationRequest
		want int
	}{
		{
			name: "fast text to video 10s",
			req:  domain.GenerationRequest{Kind: domain.KindVideo, ModelID: domain.ModelFastTextToVideo, Options: domain.Options{Duration: 10}},
			want: 30,
		},
		{
			name: "fast text to video 5s",
			req:  domain.GenerationRequest{Kind: domain.KindVideo, ModelID: domain.ModelFastTextToVideo, Options: domain.Options{Duration: 5}},
			want: 15,
		},
		{
			name: "reference video",
			req:  domain.GenerationRequest{Kind: domain.KindVideo, ModelID: domain.ModelReferenceVideo, Options: domain.Options{Duration: 8}},
			want: 60,
		},
		{
			name: "edit quality image",
			req:  domain.GenerationRequest{Kind: domain.KindImage, ModelID: domain.ModelImageEdit},
			want: 6,
		},
		{
			name: "music",
			req:  domain.GenerationRequest{Kind: domain.KindMusic, ModelID: domain.ModelMusic},
			want: 12,
		},
		{
			name: "priced template",
			req:  domain.GenerationRequest{Kind: domain.KindVideo, ModelID: domain.ModelImageToVideo, TemplateID: "2"},
			want: 140,
		},
		{
			name: "unpriced template falls back",
			req:  domain.GenerationRequest{Kind: domain.KindVideo, TemplateID: "1"},
			want: 10,
		},
		{
			name: "unknown model falls back",
			req:  domain.GenerationRequest{Kind: domain.KindVideo, ModelID: "mystery", Options: domain.Options{Duration: 5}},
			want: 10,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, table.Cost(FingerprintOf(tc.req)))
		})
	}
}

func TestFingerprintString(t *testing.T) {
	assert.Equal(t, "video/fast-text-to-video/10s", Fingerprint{Kind: "video", ModelID: "fast-text-to-video", Tier: "10s"}.String())
	assert.Equal(t, "music/music", Fingerprint{Kind: "music", ModelID: "music"}.String())
	assert.Equal(t, "template/3", FingerprintOf(domain.GenerationRequest{TemplateID: "3"}).String())
}

func TestEntriesAreSortedAndComplete(t *testing.T) {
	table := Default()
	entries := table.Entries()
	require.NotEmpty(t, entries)
	for i := 1; i < len(entries); i++ {
		assert.Less(t, entries[i-1].Fingerprint, entries[i].Fingerprint)
	}
	for _, e := range entries {
		assert.Equal(t, e.Cost, table.Cost(parseFingerprint(e.Fingerprint)), e.Fingerprint)
	}
}

func TestCatalogExtras(t *testing.T) {
	table := Default()
	assert.Equal(t, 120, table.SignupCredits())
	assert.Equal(t, 100, table.SubscriptionBonus())
	require.Len(t, table.CreditPacks(), 3)
	assert.Equal(t, 10000, table.CreditPacks()[2].Credits)

	tpl, ok := table.Template("5")
	require.True(t, ok)
	assert.Equal(t, 15, tpl.Duration)
	assert.Equal(t, 150, table.TemplateCost("5"))

	_, ok = table.Template("404")
	assert.False(t, ok)
}

func TestLoadOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_cost: 7\ncosts:\n  music/music: 3\n"), 0o644))

	table, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, table.Cost(Fingerprint{Kind: "music", ModelID: "music"}))
	assert.Equal(t, 7, table.Cost(Fingerprint{Kind: "image", ModelID: "nope"}))
}

func TestParseRejectsBadCatalog(t *testing.T) {
	_, err := Parse([]byte("default_cost: 0\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("default_cost: 5\ncosts:\n  music/music: -1\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("default_cost: 5\ntemplates:\n  - id: a\n  - id: a\n"))
	assert.Error(t, err)
}

func parseFingerprint(s string) Fingerprint {
	var fp Fingerprint
	parts := strings.Split(s, "/")
	fp.Kind = parts[0]
	if len(parts) > 1 {
		fp.ModelID = parts[1]
	}
	if len(parts) > 2 {
		fp.Tier = parts[2]
	}
	return fp
}
