// Command sondeo-lexcheck validates a lexicon pack and optionally scores a
// sample text against it, for pack authors iterating on keyword tables
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"sondeo/internal/core/lexicon"
	"sondeo/internal/core/scoring"
)

func main() {
	var (
		packPath = flag.String("pack", "", "lexicon pack file (default embedded)")
		text     = flag.String("text", "", "sample text to score after validation")
		asJSON   = flag.Bool("json", false, "emit the summary as JSON")
	)
	flag.Parse()

	var (
		p   *lexicon.Pack
		err error
	)
	if *packPath != "" {
		p, err = lexicon.LoadFile(*packPath)
	} else {
		p, err = lexicon.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "pack invalid: %v\n", err)
		os.Exit(1)
	}

	sum := summarize(p)
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(sum); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	} else {
		printSummary(sum)
	}

	if *text != "" {
		score(p, *text)
	}
}

type catSummary struct {
	Name     string `json:"name"`
	Keywords int    `json:"keywords"`
	Phrases  int    `json:"phrases"`
}

type summary struct {
	Version  int          `json:"version"`
	Tiers    []string     `json:"tiers"`
	Emotions []catSummary `json:"emotions"`
	Themes   []catSummary `json:"themes"`
}

func summarize(p *lexicon.Pack) summary {
	s := summary{Version: p.Version}
	for _, t := range p.Tiers {
		s.Tiers = append(s.Tiers, fmt.Sprintf("%s x%.1f (%d tokens)", t.Name, t.Factor, len(t.Tokens)))
	}
	for _, c := range p.Emotions {
		s.Emotions = append(s.Emotions, catSummary{Name: c.Name, Keywords: len(c.Keywords), Phrases: len(c.Phrases)})
	}
	for _, c := range p.Themes {
		s.Themes = append(s.Themes, catSummary{Name: c.Name, Keywords: len(c.Keywords), Phrases: len(c.Phrases)})
	}
	return s
}

func printSummary(s summary) {
	fmt.Printf("pack version %d\n", s.Version)
	fmt.Println("tiers:")
	for _, t := range s.Tiers {
		fmt.Printf("  %s\n", t)
	}
	fmt.Println("emotions:")
	for _, c := range s.Emotions {
		fmt.Printf("  %-16s %3d keywords %2d phrases\n", c.Name, c.Keywords, c.Phrases)
	}
	fmt.Println("themes:")
	for _, c := range s.Themes {
		fmt.Printf("  %-16s %3d keywords %2d phrases\n", c.Name, c.Keywords, c.Phrases)
	}
}

func score(p *lexicon.Pack, text string) {
	em := scoring.NewEmotion(p)
	th := scoring.NewTheme(p)

	fmt.Printf("\ntext: %q\n", text)
	printVector("emotions", em.Score(text), em)
	printVector("themes", th.Score(text), th)
}

func printVector(label string, v scoring.Vector, eng *scoring.Engine) {
	fmt.Printf("%s:\n", label)
	if len(v) == 0 {
		fmt.Println("  (no match)")
		return
	}
	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return v[names[i]] > v[names[j]] })
	for _, name := range names {
		fmt.Printf("  %-16s %6.2f%%\n", name, v[name]*100)
	}
	fmt.Printf("  dominant: %s\n", eng.Dominant(v))
}
