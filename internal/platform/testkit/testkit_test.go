package testkit

import "testing"

func TestMustPanicHelpers(t *testing.T) {
	MustPanic(t, func() { panic("boom") })
	MustNotPanic(t, func() {})
}

func TestNearlyEqual(t *testing.T) {
	NearlyEqual(t, 1.0, 1.0000005, 1e-6)
	NearlyEqual(t, -33.333333, -33.333334, 1e-5)
}

func TestSwapRestores(t *testing.T) {
	seam := 1
	t.Run("inner", func(t *testing.T) {
		Swap(t, &seam, 2)
		if seam != 2 {
			t.Fatalf("swap did not apply")
		}
	})
	if seam != 1 {
		t.Fatalf("swap did not restore, seam=%d", seam)
	}
}
