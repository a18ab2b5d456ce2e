package scoring

import (
	"math"
	"regexp"
	"testing"

	"sondeo/internal/core/lexicon"
	"sondeo/internal/platform/testkit"
)

func testTiers() []lexicon.Tier {
	return []lexicon.Tier{
		lexicon.NewTier("very_high", 1.5, []string{"muy", "súper"}),
		lexicon.NewTier("high", 1.2, []string{"bastante"}),
		lexicon.NewTier("low", 0.7, []string{"poco", "apenas"}),
	}
}

func speedThemeCats() []lexicon.Category {
	return []lexicon.Category{
		{Name: "velocidad", BaseWeight: 1, Keywords: []string{"lento", "demora"}},
		{Name: "fila", BaseWeight: 1, Keywords: []string{"fila", "cola"}},
	}
}

func TestScore_ProportionsSumToOne(t *testing.T) {
	p, err := lexicon.Load()
	if err != nil {
		t.Fatalf("load pack: %v", err)
	}
	em := NewEmotion(p)
	th := NewTheme(p)

	texts := []string{
		"Excelente servicio, muy amable el personal",
		"Terrible, la app no funciona y el precio es muy caro",
		"esperé dos horas en la fila, pésima atención",
		"todo normal",
	}
	for _, txt := range texts {
		for _, v := range []Vector{em.Score(txt), th.Score(txt)} {
			if len(v) == 0 {
				continue
			}
			testkit.NearlyEqual(t, v.Sum(), 1.0, 1e-6)
			for name, prop := range v {
				if prop <= 0 || prop > 1 {
					t.Fatalf("proportion out of range: %s=%v for %q", name, prop, txt)
				}
			}
		}
	}
}

func TestScore_NoMatchDefaultsAsymmetric(t *testing.T) {
	p, err := lexicon.Load()
	if err != nil {
		t.Fatalf("load pack: %v", err)
	}
	em := NewEmotion(p)
	th := NewTheme(p)

	for _, txt := range []string{"", "   ", "zzz qqq xxx"} {
		ev := em.Score(txt)
		if len(ev) != 1 || ev[NeutralCategory] != 1.0 {
			t.Fatalf("emotion no-match for %q = %v, want {neutral:1}", txt, ev)
		}
		tv := th.Score(txt)
		if len(tv) != 0 {
			t.Fatalf("theme no-match for %q = %v, want empty", txt, tv)
		}
	}
}

func TestScore_AmplifierScalesContribution(t *testing.T) {
	e := NewEngine(Theme, speedThemeCats(), testTiers())

	// "muy lento" amplifies velocidad ×1.5 against one plain fila keyword
	v := e.Score("muy lento y una fila")
	testkit.NearlyEqual(t, v["velocidad"], 1.5/2.5, 1e-6)
	testkit.NearlyEqual(t, v["fila"], 1.0/2.5, 1e-6)
}

func TestScore_DiminisherScalesContribution(t *testing.T) {
	e := NewEngine(Theme, speedThemeCats(), testTiers())

	v := e.Score("poco lento pero la cola")
	testkit.NearlyEqual(t, v["velocidad"], 0.7/1.7, 1e-6)
	testkit.NearlyEqual(t, v["fila"], 1.0/1.7, 1e-6)
}

func TestScore_FirstTierWinsOnSharedToken(t *testing.T) {
	tiers := []lexicon.Tier{
		lexicon.NewTier("very_high", 1.5, []string{"muy"}),
		lexicon.NewTier("high", 1.2, []string{"muy"}), // declared later, must lose
	}
	e := NewEngine(Theme, speedThemeCats(), tiers)

	v := e.Score("muy lento y una fila")
	testkit.NearlyEqual(t, v["velocidad"], 1.5/2.5, 1e-6)
}

func TestScore_ModifierNeedsAdjacency(t *testing.T) {
	e := NewEngine(Theme, speedThemeCats(), testTiers())

	// comma breaks adjacency; no amplification
	v := e.Score("muy, lento y una fila")
	testkit.NearlyEqual(t, v["velocidad"], 0.5, 1e-6)

	// a word in between breaks it too
	v = e.Score("muy pero lento y una fila")
	testkit.NearlyEqual(t, v["velocidad"], 0.5, 1e-6)
}

func TestScore_KeywordPresenceNotFrequency(t *testing.T) {
	e := NewEngine(Theme, speedThemeCats(), testTiers())

	// "lento" repeated counts once; "demora" is a second velocidad keyword
	v := e.Score("lento lento lento y la fila")
	testkit.NearlyEqual(t, v["velocidad"], 0.5, 1e-6)

	v = e.Score("lento y demora y la fila")
	testkit.NearlyEqual(t, v["velocidad"], 2.0/3.0, 1e-6)
}

func TestScore_PhrasePatternsAddFixedWeight(t *testing.T) {
	cats := []lexicon.Category{
		{
			Name:       "plataforma",
			BaseWeight: 1,
			Keywords:   []string{"app"},
			Phrases:    []*regexp.Regexp{regexp.MustCompile(`no\s+funciona`)},
		},
		{Name: "precio", BaseWeight: 1, Keywords: []string{"caro"}},
	}
	e := NewEngine(Theme, cats, testTiers())

	// keyword(1) + phrase(2) vs keyword(1)
	v := e.Score("la app no funciona y es caro")
	testkit.NearlyEqual(t, v["plataforma"], 3.0/4.0, 1e-6)
	testkit.NearlyEqual(t, v["precio"], 1.0/4.0, 1e-6)
}

func TestScore_PhrasesIgnoredForEmotionKind(t *testing.T) {
	cats := []lexicon.Category{
		{
			Name:       "enojo",
			BaseWeight: 1,
			Keywords:   []string{"terrible"},
			Phrases:    []*regexp.Regexp{regexp.MustCompile(`no\s+funciona`)},
		},
	}
	e := NewEngine(Emotion, cats, testTiers())

	v := e.Score("no funciona")
	if len(v) != 1 || v[NeutralCategory] != 1.0 {
		t.Fatalf("emotion engines must not score phrases, got %v", v)
	}
}

func TestScore_NegativeBaseWeightUsesAbsoluteValue(t *testing.T) {
	cats := []lexicon.Category{
		{Name: "a", BaseWeight: -2, Keywords: []string{"foo"}},
		{Name: "b", BaseWeight: 1, Keywords: []string{"bar"}},
	}
	e := NewEngine(Theme, cats, testTiers())

	v := e.Score("foo bar")
	testkit.NearlyEqual(t, v["a"], 2.0/3.0, 1e-6)
}

func TestDominant_TieBreaksByDeclaredOrder(t *testing.T) {
	e := NewEngine(Theme, speedThemeCats(), testTiers())

	v := e.Score("lento y una fila")
	testkit.NearlyEqual(t, v["velocidad"], 0.5, 1e-6)
	testkit.NearlyEqual(t, v["fila"], 0.5, 1e-6)
	if got := e.Dominant(v); got != "velocidad" {
		t.Fatalf("tie must go to first declared category, got %q", got)
	}
}

func TestDominant_EdgeCases(t *testing.T) {
	if got := Dominant(Vector{}, []string{"a"}); got != "" {
		t.Fatalf("empty vector dominant = %q", got)
	}
	// undeclared names sort after declared ones, then alphabetically
	v := Vector{"zeta": 0.5, "alfa": 0.5}
	if got := Dominant(v, nil); got != "alfa" {
		t.Fatalf("alphabetical tie-break broken, got %q", got)
	}
	v = Vector{"declared": 0.5, "alfa": 0.5}
	if got := Dominant(v, []string{"declared"}); got != "declared" {
		t.Fatalf("declared category must win the tie, got %q", got)
	}
}

func TestVectorNormalized(t *testing.T) {
	v := Vector{"a": 2, "b": 1, "c": 0}
	n := v.Normalized()
	testkit.NearlyEqual(t, n.Sum(), 1.0, 1e-6)
	testkit.NearlyEqual(t, n["a"], 2.0/3.0, 1e-6)
	if _, has := n["c"]; has {
		t.Fatalf("zero entries must drop on normalize")
	}
	if got := (Vector{}).Normalized(); len(got) != 0 {
		t.Fatalf("empty normalizes to empty")
	}
}

func TestScore_NeverNaN(t *testing.T) {
	p, err := lexicon.Load()
	if err != nil {
		t.Fatalf("load pack: %v", err)
	}
	em := NewEmotion(p)
	for _, txt := range []string{"", "a", "excelente", "¡¡¡!!!"} {
		for name, prop := range em.Score(txt) {
			if math.IsNaN(prop) {
				t.Fatalf("NaN proportion for %q category %s", txt, name)
			}
		}
	}
}
