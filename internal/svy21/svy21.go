// Package svy21 converts between the SVY21 projected grid used by
// Singapore agencies and WGS84 latitude/longitude.
//
// SVY21 is a Transverse Mercator projection on the WGS84 ellipsoid with
// an origin near the city centre. URA geometries are published in this
// grid while consumer-facing APIs expect WGS84 degrees.
package svy21

import "math"

// Projection constants published by the Singapore Land Authority.
const (
	semiMajorAxis = 6378137.0
	flattening    = 1 / 298.257223563

	originLat = 1.366666   // degrees
	originLon = 103.833333 // degrees

	falseNorthing = 38744.572
	falseEasting  = 28001.642
	scaleFactor   = 1.0
)

// Derived ellipsoid terms, fixed at package init.
var (
	semiMinorAxis = semiMajorAxis * (1 - flattening)
	e2            = 2*flattening - flattening*flattening
	e4            = e2 * e2
	e6            = e4 * e2

	a0 = 1 - e2/4 - 3*e4/64 - 5*e6/256
	a2 = (3.0 / 8.0) * (e2 + e4/4 + 15*e6/128)
	a4 = (15.0 / 256.0) * (e4 + 3*e6/4)
	a6 = 35 * e6 / 3072

	originM = meridianArc(originLat)
)

// meridianArc returns the meridian arc length for a latitude in degrees.
func meridianArc(latDeg float64) float64 {
	lat := latDeg * math.Pi / 180
	return semiMajorAxis * (a0*lat - a2*math.Sin(2*lat) + a4*math.Sin(4*lat) - a6*math.Sin(6*lat))
}

// radiusRho returns the radius of curvature in the meridian plane.
func radiusRho(sin2Lat float64) float64 {
	num := semiMajorAxis * (1 - e2)
	denom := math.Pow(1-e2*sin2Lat, 1.5)
	return num / denom
}

// radiusV returns the radius of curvature in the prime vertical.
func radiusV(sin2Lat float64) float64 {
	return semiMajorAxis / math.Sqrt(1-e2*sin2Lat)
}

// ToSVY21 projects a WGS84 coordinate in degrees onto the SVY21 grid,
// returning northing and easting in metres.
func ToSVY21(lat, lon float64) (northing, easting float64) {
	latR := lat * math.Pi / 180
	sinLat := math.Sin(latR)
	sin2Lat := sinLat * sinLat
	cosLat := math.Cos(latR)
	cos2Lat := cosLat * cosLat
	cos3Lat := cos2Lat * cosLat
	cos4Lat := cos3Lat * cosLat
	cos5Lat := cos4Lat * cosLat
	cos6Lat := cos5Lat * cosLat
	cos7Lat := cos6Lat * cosLat

	rho := radiusRho(sin2Lat)
	v := radiusV(sin2Lat)
	psi := v / rho
	psi2 := psi * psi
	psi3 := psi2 * psi
	psi4 := psi2 * psi2

	t := math.Tan(latR)
	t2 := t * t
	t4 := t2 * t2
	t6 := t4 * t2

	w := (lon - originLon) * math.Pi / 180
	w2 := w * w
	w4 := w2 * w2
	w6 := w4 * w2
	w8 := w6 * w2

	m := meridianArc(lat)

	nTerm1 := w2 / 2 * v * sinLat * cosLat
	nTerm2 := w4 / 24 * v * sinLat * cos3Lat * (4*psi2 + psi - t2)
	nTerm3 := w6 / 720 * v * sinLat * cos5Lat * (8*psi4*(11-24*t2) - 28*psi3*(1-6*t2) + psi2*(1-32*t2) - psi*2*t2 + t4)
	nTerm4 := w8 / 40320 * v * sinLat * cos7Lat * (1385 - 3111*t2 + 543*t4 - t6)
	northing = falseNorthing + scaleFactor*(m-originM+nTerm1+nTerm2+nTerm3+nTerm4)

	eTerm1 := w * v * cosLat
	eTerm2 := w2 * w / 6 * v * cos3Lat * (psi - t2)
	eTerm3 := w4 * w / 120 * v * cos5Lat * (4*psi3*(1-6*t2) + psi2*(1+8*t2) - psi*2*t2 + t4)
	eTerm4 := w6 * w / 5040 * v * cos7Lat * (61 - 479*t2 + 179*t4 - t6)
	easting = falseEasting + scaleFactor*(eTerm1+eTerm2+eTerm3+eTerm4)

	return northing, easting
}

// ToLatLon converts an SVY21 northing/easting pair in metres back to a
// WGS84 coordinate in degrees.
func ToLatLon(northing, easting float64) (lat, lon float64) {
	nPrime := northing - falseNorthing
	mPrime := originM + nPrime/scaleFactor

	n := (semiMajorAxis - semiMinorAxis) / (semiMajorAxis + semiMinorAxis)
	n2 := n * n
	n3 := n2 * n
	n4 := n2 * n2

	g := semiMajorAxis * (1 - n) * (1 - n2) * (1 + 9*n2/4 + 225*n4/64) * math.Pi / 180
	sigma := mPrime * math.Pi / (180 * g)

	// Footpoint latitude from the inverse meridian arc series.
	latPrime := sigma +
		(3*n/2-27*n3/32)*math.Sin(2*sigma) +
		(21*n2/16-55*n4/32)*math.Sin(4*sigma) +
		(151*n3/96)*math.Sin(6*sigma) +
		(1097*n4/512)*math.Sin(8*sigma)

	sinLatPrime := math.Sin(latPrime)
	sin2LatPrime := sinLatPrime * sinLatPrime

	rhoPrime := radiusRho(sin2LatPrime)
	vPrime := radiusV(sin2LatPrime)
	psiPrime := vPrime / rhoPrime
	psiPrime2 := psiPrime * psiPrime
	psiPrime3 := psiPrime2 * psiPrime
	psiPrime4 := psiPrime2 * psiPrime2

	tPrime := math.Tan(latPrime)
	tPrime2 := tPrime * tPrime
	tPrime4 := tPrime2 * tPrime2
	tPrime6 := tPrime4 * tPrime2

	ePrime := easting - falseEasting
	x := ePrime / (scaleFactor * vPrime)
	x3 := x * x * x
	x5 := x3 * x * x
	x7 := x5 * x * x

	latFactor := tPrime / (scaleFactor * rhoPrime)
	latTerm1 := latFactor * (ePrime * x / 2)
	latTerm2 := latFactor * (ePrime * x3 / 24) * (-4*psiPrime2 + 9*psiPrime*(1-tPrime2) + 12*tPrime2)
	latTerm3 := latFactor * (ePrime * x5 / 720) * (8*psiPrime4*(11-24*tPrime2) - 12*psiPrime3*(21-71*tPrime2) + 15*psiPrime2*(15-98*tPrime2+15*tPrime4) + 180*psiPrime*(5*tPrime2-3*tPrime4) + 360*tPrime4)
	latTerm4 := latFactor * (ePrime * x7 / 40320) * (1385 + 3633*tPrime2 + 4095*tPrime4 + 1575*tPrime6)

	latR := latPrime - latTerm1 + latTerm2 - latTerm3 + latTerm4

	secLatPrime := 1 / math.Cos(latPrime)
	lonTerm1 := x * secLatPrime
	lonTerm2 := x3 * secLatPrime / 6 * (psiPrime + 2*tPrime2)
	lonTerm3 := x5 * secLatPrime / 120 * (-4*psiPrime3*(1-6*tPrime2) + psiPrime2*(9-68*tPrime2) + 72*psiPrime*tPrime2 + 24*tPrime4)
	lonTerm4 := x7 * secLatPrime / 5040 * (61 + 662*tPrime2 + 1320*tPrime4 + 720*tPrime6)

	lonR := originLon*math.Pi/180 + lonTerm1 - lonTerm2 + lonTerm3 - lonTerm4

	return latR * 180 / math.Pi, lonR * 180 / math.Pi
}
