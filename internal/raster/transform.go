package raster

import "fmt"

// Transform is the narrow tagged variant the warping engine accepts to get
// from the target's Web Mercator grid back to a source's native CRS: either
// a named coordinate-operation pipeline string, or an explicit pair of
// source/target WKT strings. The pipeline/WKT text is not evaluated: Warp
// projects each source through ForEPSG of that source's own EPSG code,
// whatever the Transform holds.
type Transform struct {
	pipeline string
	srcWKT   string
	dstWKT   string
}

// PipelineTransform builds a Transform from a PROJ-style coordinate
// operation pipeline string.
func PipelineTransform(pipeline string) Transform {
	return Transform{pipeline: pipeline}
}

// WKTTransform builds a Transform from an explicit source/target WKT pair.
func WKTTransform(srcWKT, dstWKT string) Transform {
	return Transform{srcWKT: srcWKT, dstWKT: dstWKT}
}

func (t Transform) String() string {
	switch {
	case t.pipeline != "":
		return t.pipeline
	case t.srcWKT != "" || t.dstWKT != "":
		return fmt.Sprintf("wkt:%s->%s", t.srcWKT, t.dstWKT)
	default:
		return "identity"
	}
}

// IsZero reports whether the transform carries no configuration, meaning
// callers should fall back to each source's own declared EPSG code.
func (t Transform) IsZero() bool {
	return t.pipeline == "" && t.srcWKT == "" && t.dstWKT == ""
}
