// Package pricing holds the credit cost table and the showcase catalog.
package pricing

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"vidiai/internal/domain"
)

//go:embed catalog.yaml
var defaultCatalog []byte

const templateKind = "template"

// Fingerprint is the subset of a request that determines its cost.
type Fingerprint struct {
	Kind    string
	ModelID string
	Tier    string
}

func (f Fingerprint) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{f.Kind, f.ModelID, f.Tier} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "/")
}

// FingerprintOf derives the fingerprint from a normalized request.
func FingerprintOf(req domain.GenerationRequest) Fingerprint {
	if req.TemplateID != "" {
		return Fingerprint{Kind: templateKind, ModelID: req.TemplateID}
	}
	fp := Fingerprint{Kind: string(req.Kind), ModelID: req.ModelID}
	switch req.Kind {
	case domain.KindVideo:
		if req.Options.Duration > 0 {
			fp.Tier = strconv.Itoa(req.Options.Duration) + "s"
		}
	case domain.KindImage:
		if spec, ok := domain.LookupModel(req.ModelID); ok {
			fp.Tier = spec.Tier
		}
	}
	return fp
}

// Template is a showcase preset that animates a user photo.
type Template struct {
	ID             string `yaml:"id" json:"id"`
	Title          string `yaml:"title" json:"title"`
	Category       string `yaml:"category" json:"category"`
	Prompt         string `yaml:"prompt" json:"prompt"`
	PreviewURL     string `yaml:"preview_url" json:"preview_url"`
	ThumbnailURL   string `yaml:"thumbnail_url" json:"thumbnail_url"`
	PricePerSecond int    `yaml:"price_per_second" json:"price_per_second,omitempty"`
	Duration       int    `yaml:"duration" json:"duration,omitempty"`
	HasMusic       bool   `yaml:"has_music" json:"has_music"`
}

// CreditPack is a purchasable bundle shown to the user.
type CreditPack struct {
	Credits  int    `yaml:"credits" json:"credits"`
	Price    int    `yaml:"price" json:"price"`
	Currency string `yaml:"currency" json:"currency"`
}

type catalogFile struct {
	DefaultCost       int            `yaml:"default_cost"`
	SignupCredits     int            `yaml:"signup_credits"`
	SubscriptionBonus int            `yaml:"subscription_bonus"`
	Costs             map[string]int `yaml:"costs"`
	Templates         []Template     `yaml:"templates"`
	CreditPacks       []CreditPack   `yaml:"credit_packs"`
}

// Entry is one row of the cost table.
type Entry struct {
	Fingerprint string
	Cost        int
}

// Table is an immutable cost table. Lookups of unknown fingerprints return
// the default cost.
type Table struct {
	defaultCost       int
	signupCredits     int
	subscriptionBonus int
	costs             map[string]int
	templates         []Template
	templateIndex     map[string]int
	packs             []CreditPack
}

// Default returns the table built from the embedded catalog.
func Default() *Table {
	t, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("pricing: embedded catalog: %v", err))
	}
	return t
}

// Load reads a catalog override from path. An empty path yields Default.
func Load(path string) (*Table, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pricing: read catalog: %w", err)
	}
	return Parse(raw)
}

// Parse builds a table from catalog YAML.
func Parse(raw []byte) (*Table, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("pricing: decode catalog: %w", err)
	}
	if file.DefaultCost <= 0 {
		return nil, fmt.Errorf("pricing: default_cost must be positive")
	}
	t := &Table{
		defaultCost:       file.DefaultCost,
		signupCredits:     file.SignupCredits,
		subscriptionBonus: file.SubscriptionBonus,
		costs:             make(map[string]int, len(file.Costs)+len(file.Templates)),
		templateIndex:     make(map[string]int, len(file.Templates)),
		packs:             append([]CreditPack(nil), file.CreditPacks...),
	}
	for fp, cost := range file.Costs {
		if cost <= 0 {
			return nil, fmt.Errorf("pricing: cost for %q must be positive", fp)
		}
		t.costs[fp] = cost
	}
	for _, tpl := range file.Templates {
		if tpl.ID == "" {
			return nil, fmt.Errorf("pricing: template without id")
		}
		if _, dup := t.templateIndex[tpl.ID]; dup {
			return nil, fmt.Errorf("pricing: duplicate template %q", tpl.ID)
		}
		t.templateIndex[tpl.ID] = len(t.templates)
		t.templates = append(t.templates, tpl)
		if tpl.PricePerSecond > 0 && tpl.Duration > 0 {
			fp := Fingerprint{Kind: templateKind, ModelID: tpl.ID}
			t.costs[fp.String()] = tpl.PricePerSecond * tpl.Duration
		}
	}
	return t, nil
}

// Cost returns the credit cost of fp.
func (t *Table) Cost(fp Fingerprint) int {
	if c, ok := t.costs[fp.String()]; ok {
		return c
	}
	return t.defaultCost
}

// DefaultCost is charged for fingerprints the table does not know.
func (t *Table) DefaultCost() int { return t.defaultCost }

// SignupCredits is granted when a ledger account is opened.
func (t *Table) SignupCredits() int { return t.signupCredits }

// SubscriptionBonus is the credit amount granted on channel subscription.
func (t *Table) SubscriptionBonus() int { return t.subscriptionBonus }

// Entries lists every priced fingerprint sorted by key.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.costs))
	for fp, cost := range t.costs {
		out = append(out, Entry{Fingerprint: fp, Cost: cost})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Fingerprint < out[j].Fingerprint })
	return out
}

// Templates returns the showcase catalog in file order.
func (t *Table) Templates() []Template {
	return append([]Template(nil), t.templates...)
}

// Template looks up a showcase template by id.
func (t *Table) Template(id string) (Template, bool) {
	idx, ok := t.templateIndex[id]
	if !ok {
		return Template{}, false
	}
	return t.templates[idx], true
}

// TemplateCost is the price of submitting template id.
func (t *Table) TemplateCost(id string) int {
	return t.Cost(Fingerprint{Kind: templateKind, ModelID: id})
}

// CreditPacks returns the purchasable bundles.
func (t *Table) CreditPacks() []CreditPack {
	return append([]CreditPack(nil), t.packs...)
}
