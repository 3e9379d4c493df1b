package raster

import (
	"math"
	"testing"
)

func TestSincAtZeroIsOne(t *testing.T) {
	if got := sinc(0); got != 1 {
		t.Fatalf("sinc(0) = %v, want 1", got)
	}
}

func TestSincAtIntegersIsZero(t *testing.T) {
	for _, x := range []float64{1, 2, -1, -3} {
		if got := sinc(x); math.Abs(got) > 1e-9 {
			t.Fatalf("sinc(%v) = %v, want ~0", x, got)
		}
	}
}

func TestLanczosKernelZeroOutsideSupport(t *testing.T) {
	for _, x := range []float64{lanczosA + 0.001, -lanczosA - 0.5, 100} {
		if got := lanczosKernel(x); got != 0 {
			t.Fatalf("lanczosKernel(%v) = %v, want 0 (outside support radius %d)", x, got, lanczosA)
		}
	}
}

func TestLanczosKernelPeakAtZero(t *testing.T) {
	if got := lanczosKernel(0); got != 1 {
		t.Fatalf("lanczosKernel(0) = %v, want 1", got)
	}
}

func TestLanczosWeights1DSumToOne(t *testing.T) {
	for _, f := range []float64{0, 0.25, 0.5, 0.75, 3.3, -2.7} {
		weights, _ := lanczosWeights1D(f)
		sum := 0.0
		for _, w := range weights {
			sum += w
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("lanczosWeights1D(%v) sums to %v, want 1", f, sum)
		}
	}
}

func TestLanczosWeights1DBaseTracksFloor(t *testing.T) {
	_, base := lanczosWeights1D(5.0)
	want := 5 - lanczosA + 1
	if base != want {
		t.Fatalf("base = %d, want %d", base, want)
	}
}
