package raster

import "testing"

func TestZeroTransformIsZero(t *testing.T) {
	var z Transform
	if !z.IsZero() {
		t.Fatal("zero-value Transform should report IsZero() true")
	}
	if z.String() != "identity" {
		t.Fatalf("String() = %q, want %q", z.String(), "identity")
	}
}

func TestPipelineTransformStringAndNonZero(t *testing.T) {
	tr := PipelineTransform("+proj=pipeline +step +proj=axisswap +order=2,1")
	if tr.IsZero() {
		t.Fatal("pipeline transform should not report IsZero()")
	}
	if tr.String() != "+proj=pipeline +step +proj=axisswap +order=2,1" {
		t.Fatalf("String() = %q", tr.String())
	}
}

func TestWKTTransformString(t *testing.T) {
	tr := WKTTransform("SRC", "DST")
	if tr.IsZero() {
		t.Fatal("WKT transform should not report IsZero()")
	}
	if tr.String() != "wkt:SRC->DST" {
		t.Fatalf("String() = %q, want %q", tr.String(), "wkt:SRC->DST")
	}
}
