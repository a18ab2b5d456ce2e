// Package lexicon loads and compiles the category tables from the embedded
// lexicon.json. It prepares keyword lists, phrase regexes and modifier tiers
// for the scoring engine
package lexicon

import (
	_ "embed"
	"encoding/json"
	"os"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	perr "sondeo/internal/platform/errors"
)

//go:embed lexicon.json
var embedded []byte

type rawTier struct {
	Name   string   `json:"name" validate:"required"`
	Factor float64  `json:"factor" validate:"required,gt=0"`
	Tokens []string `json:"tokens" validate:"required,min=1,dive,required"`
}

type rawCategory struct {
	Name       string   `json:"name" validate:"required"`
	BaseWeight float64  `json:"base_weight" validate:"required,gt=0"`
	Keywords   []string `json:"keywords" validate:"required,min=1,dive,required"`
	Phrases    []string `json:"phrases,omitempty"`
}

type rawPack struct {
	Version       int            `json:"version" validate:"required"`
	Meta          map[string]any `json:"meta"`
	ModifierTiers []rawTier      `json:"modifier_tiers" validate:"required,min=1,dive"`
	Emotions      []rawCategory  `json:"emotions" validate:"required,min=1,dive"`
	Themes        []rawCategory  `json:"themes" validate:"required,min=1,dive"`
}

// Tier is a modifier tier; tiers apply in declaration order and the first
// tier whose token precedes a keyword wins
type Tier struct {
	Name   string
	Factor float64
	Tokens []string

	set map[string]struct{}
}

// Has reports whether token belongs to the tier
func (t Tier) Has(token string) bool {
	_, ok := t.set[token]
	return ok
}

// NewTier builds a Tier programmatically (custom packs, tests)
func NewTier(name string, factor float64, tokens []string) Tier {
	t := Tier{Name: name, Factor: factor, set: make(map[string]struct{}, len(tokens))}
	for _, tok := range tokens {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok == "" {
			continue
		}
		if _, dup := t.set[tok]; dup {
			continue
		}
		t.set[tok] = struct{}{}
		t.Tokens = append(t.Tokens, tok)
	}
	return t
}

// Category is one scoring category. Declaration order is the documented
// tie-break contract for dominant-category selection, so categories live in
// slices, never maps
type Category struct {
	Name       string
	BaseWeight float64
	Keywords   []string // lowercased, deduped, declaration order
	Phrases    []*regexp.Regexp
	PhraseSrc  []string
}

// Pack represents a compiled lexicon shared read-only across all workers
type Pack struct {
	Version  int
	Meta     map[string]any
	Tiers    []Tier
	Emotions []Category
	Themes   []Category
}

// Load returns the compiled pack from the embedded lexicon.json
func Load() (*Pack, error) { return compile(embedded) }

// LoadFile compiles a lexicon pack from a file on disk (same schema as the
// embedded one); used by sondeo-lexcheck and custom deployments
func LoadFile(path string) (*Pack, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeNotFound, "lexicon: read %q", path)
	}
	return compile(b)
}

func compile(b []byte) (*Pack, error) {
	var rp rawPack
	if err := json.Unmarshal(b, &rp); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeJSON, "lexicon: parse pack")
	}
	if rp.Version != 1 {
		return nil, perr.Validationf("lexicon: unsupported pack version %d (want 1)", rp.Version)
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(rp); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeValidation, "lexicon: invalid pack")
	}

	p := &Pack{Version: rp.Version, Meta: rp.Meta}

	for _, t := range rp.ModifierTiers {
		tier := Tier{
			Name:   strings.ToLower(strings.TrimSpace(t.Name)),
			Factor: t.Factor,
			set:    make(map[string]struct{}, len(t.Tokens)),
		}
		for _, tok := range t.Tokens {
			tok = strings.ToLower(strings.TrimSpace(tok))
			if tok == "" {
				continue
			}
			if _, dup := tier.set[tok]; dup {
				continue
			}
			tier.set[tok] = struct{}{}
			tier.Tokens = append(tier.Tokens, tok)
		}
		p.Tiers = append(p.Tiers, tier)
	}

	var err error
	if p.Emotions, err = compileCategories(rp.Emotions, "emotions"); err != nil {
		return nil, err
	}
	if p.Themes, err = compileCategories(rp.Themes, "themes"); err != nil {
		return nil, err
	}
	return p, nil
}

func compileCategories(raws []rawCategory, kind string) ([]Category, error) {
	out := make([]Category, 0, len(raws))
	seenNames := make(map[string]struct{}, len(raws))

	for _, rc := range raws {
		name := strings.ToLower(strings.TrimSpace(rc.Name))
		if _, dup := seenNames[name]; dup {
			return nil, perr.Validationf("lexicon: duplicate %s category %q", kind, name)
		}
		seenNames[name] = struct{}{}

		c := Category{Name: name, BaseWeight: rc.BaseWeight}

		seenKW := make(map[string]struct{}, len(rc.Keywords))
		for _, kw := range rc.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			if _, dup := seenKW[kw]; dup {
				continue
			}
			seenKW[kw] = struct{}{}
			c.Keywords = append(c.Keywords, kw)
		}

		for _, src := range rc.Phrases {
			re, err := regexp.Compile(strings.ToLower(src))
			if err != nil {
				return nil, perr.Wrapf(err, perr.ErrorCodeValidation, "lexicon: compile phrase %q in %q", src, name)
			}
			c.Phrases = append(c.Phrases, re)
			c.PhraseSrc = append(c.PhraseSrc, src)
		}

		out = append(out, c)
	}
	return out, nil
}

// Names returns category names in declaration order
func Names(cats []Category) []string {
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = c.Name
	}
	return out
}
