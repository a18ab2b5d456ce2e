package config

import (
	"testing"
	"time"

	"sondeo/internal/platform/testkit"
)

func TestMayAccessors(t *testing.T) {
	c := New().Prefix("CFGTEST_")

	t.Setenv("CFGTEST_STR", "hello")
	t.Setenv("CFGTEST_INT", "12")
	t.Setenv("CFGTEST_FLOAT", "0.95")
	t.Setenv("CFGTEST_BOOL", "true")
	t.Setenv("CFGTEST_DUR", "250ms")
	t.Setenv("CFGTEST_CSV", "duplicates, emotions ,themes")

	if got := c.MayString("STR", "x"); got != "hello" {
		t.Fatalf("MayString = %q", got)
	}
	if got := c.MayInt("INT", 0); got != 12 {
		t.Fatalf("MayInt = %d", got)
	}
	if got := c.MayFloat64("FLOAT", 0); got != 0.95 {
		t.Fatalf("MayFloat64 = %v", got)
	}
	if got := c.MayBool("BOOL", false); !got {
		t.Fatalf("MayBool = %v", got)
	}
	if got := c.MayDuration("DUR", time.Second); got != 250*time.Millisecond {
		t.Fatalf("MayDuration = %v", got)
	}
	csv := c.MayCSV("CSV", nil)
	if len(csv) != 3 || csv[0] != "duplicates" || csv[1] != "emotions" || csv[2] != "themes" {
		t.Fatalf("MayCSV = %v", csv)
	}
}

func TestMayDefaultsOnMissingAndInvalid(t *testing.T) {
	c := New().Prefix("CFGTEST_")

	if got := c.MayInt("NOPE", 5); got != 5 {
		t.Fatalf("missing MayInt = %d", got)
	}
	t.Setenv("CFGTEST_BADINT", "twelve")
	if got := c.MayInt("BADINT", 5); got != 5 {
		t.Fatalf("invalid MayInt = %d", got)
	}
	t.Setenv("CFGTEST_BADFLOAT", "almost one")
	if got := c.MayFloat64("BADFLOAT", 0.5); got != 0.5 {
		t.Fatalf("invalid MayFloat64 = %v", got)
	}
}

func TestMustPanicsOnMissing(t *testing.T) {
	c := New().Prefix("CFGTEST_MUST_")

	testkit.MustPanic(t, func() { c.MustString("ABSENT") })
	testkit.MustPanic(t, func() { c.MustInt("ABSENT") })
	testkit.MustPanic(t, func() { c.Require("ABSENT") })
}
