package raster

// SwissLV95 implements Projection for EPSG:2056 (CH1903+ / LV95), using
// swisstopo's published polynomial approximation. Good to about a meter,
// well within tolerance for tile-boundary and pixel reprojection work.
type SwissLV95 struct{}

func (s *SwissLV95) EPSG() int { return 2056 }

// ToWGS84 converts Swiss LV95 easting/northing to WGS84 longitude/latitude.
func (s *SwissLV95) ToWGS84(easting, northing float64) (lon, lat float64) {
	// Offsets from the Bern reference point, in 1000km units.
	dE := (easting - 2_600_000) / 1_000_000
	dN := (northing - 1_200_000) / 1_000_000

	lonSec := 2.6779094 +
		4.728982*dE +
		0.791484*dE*dN +
		0.1306*dE*dN*dN -
		0.0436*dE*dE*dE

	latSec := 16.9023892 +
		3.238272*dN -
		0.270978*dE*dE -
		0.002528*dN*dN -
		0.0447*dE*dE*dN -
		0.0140*dN*dN*dN

	// 10000" units to degrees.
	lon = lonSec * 100.0 / 36.0
	lat = latSec * 100.0 / 36.0
	return
}

// FromWGS84 converts WGS84 longitude/latitude to Swiss LV95 easting/northing.
func (s *SwissLV95) FromWGS84(lon, lat float64) (easting, northing float64) {
	phiAux := (lat*3600 - 169028.66) / 10000
	lambdaAux := (lon*3600 - 26782.5) / 10000

	easting = 2_600_072.37 +
		211_455.93*lambdaAux -
		10_938.51*lambdaAux*phiAux -
		0.36*lambdaAux*phiAux*phiAux -
		44.54*lambdaAux*lambdaAux*lambdaAux

	northing = 1_200_147.07 +
		308_807.95*phiAux +
		3_745.25*lambdaAux*lambdaAux +
		76.63*phiAux*phiAux -
		194.56*lambdaAux*lambdaAux*phiAux +
		119.79*phiAux*phiAux*phiAux

	return
}
