// pkg/interp/interp.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package interp implements the barycentric "slopes method" used both
// offline, to resample a measured table onto a quasi-uniform grid at
// setup time, and online, to interpolate between grid nodes at query
// time (core-spec §4.2 "Online interpolator"). Both paths share the
// same triangle search and weighted blend; only the node source
// differs (the raw measured table offline, the finished grid online).
package interp

import (
	"github.com/hashicorp/golang-lru/v2"

	"github.com/GrupoDiana/brt-go/pkg/geo"
	"github.com/GrupoDiana/brt-go/pkg/grid"
)

// insideTolerance is the barycentric-weight slack used when deciding
// whether a query direction falls inside a candidate triangle.
const insideTolerance = 1e-6

// Combinable is a value that can be linearly blended: a partitioned
// HRIR or directivity transfer function plus its scalar delay.
// Weighted combination (Scale then Add across three corners) is the
// entirety of core-spec §4.2's "linearly combine the three stored
// sub-filters and delays, element-wise".
type Combinable[T any] interface {
	Scale(weight float64) T
	Add(other T) T
}

// Combine3 blends three values by their barycentric weights.
func Combine3[T Combinable[T]](a, b, c T, alpha, beta, gamma float64) T {
	return a.Scale(alpha).Add(b.Scale(beta)).Add(c.Scale(gamma))
}

// Triangle is the three grid nodes a query was interpolated from,
// plus the barycentric weights that were used.
type Triangle struct {
	A, B, C            geo.Orientation
	Alpha, Beta, Gamma float64
}

// node holds a corner's planar position and its (azimuth,elevation)
// for storage lookup. Elevation/azimuth used for the planar weight
// solve may be unwrapped past 360 near the grid seam; Lookup* undoes
// that before querying the node source.
type node struct {
	planar   [2]float64
	lookupAz float64
	lookupEl float64
}

// OfflineInterpolate resamples the raw measured table (src) at
// (azimuthDeg, elevationDeg) by running the same triangle search and
// blend used at run time. Used during end_setup to fill every grid
// node from possibly-sparser measured data (core-spec §4.2 step 6).
func OfflineInterpolate[T Combinable[T]](src *grid.Grid[T], azimuthDeg, elevationDeg float64) (T, bool) {
	tri, a, b, c, ok := findTriangle(src, azimuthDeg, elevationDeg)
	if !ok {
		var zero T
		return zero, false
	}
	return blend(src, tri, a, b, c)
}

// OnlineInterpolator adds an LRU triangle cache on top of the plain
// search, for the hot runtime query path where the same neighbourhood
// is queried repeatedly as a source sweeps across a continuous
// azimuth/elevation path (core-spec §8 scenario 5).
type OnlineInterpolator[T Combinable[T]] struct {
	g     *grid.Grid[T]
	cache *lru.Cache[int64, Triangle]
}

// NewOnlineInterpolator builds an interpolator over a finished grid,
// caching up to cacheSize recently used triangles.
func NewOnlineInterpolator[T Combinable[T]](g *grid.Grid[T], cacheSize int) *OnlineInterpolator[T] {
	if cacheSize <= 0 {
		cacheSize = 64
	}
	c, _ := lru.New[int64, Triangle](cacheSize)
	return &OnlineInterpolator[T]{g: g, cache: c}
}

// Interpolate returns the blended value at (azimuthDeg, elevationDeg).
// A cached triangle from a previous nearby query is reused if the
// query still falls inside it; otherwise a fresh search runs and the
// result is cached under the query's 0.01-degree hash.
func (o *OnlineInterpolator[T]) Interpolate(azimuthDeg, elevationDeg float64) (T, bool) {
	key := geo.Orientation{Azimuth: azimuthDeg, Elevation: elevationDeg}.Hash()

	if cached, ok := o.cache.Get(key); ok {
		if tri, a, b, c, ok := weighAgainst(cached, azimuthDeg, elevationDeg); ok {
			return blend(o.g, tri, a, b, c)
		}
	}

	tri, a, b, c, ok := findTriangle(o.g, azimuthDeg, elevationDeg)
	if !ok {
		var zero T
		return zero, false
	}
	o.cache.Add(key, tri)
	return blend(o.g, tri, a, b, c)
}

// weighAgainst recomputes barycentric weights for a fresh query point
// against a previously found triangle's three corners, without
// re-running the grid search. Returns ok=false if the query has moved
// outside that triangle, in which case the caller falls back to a
// fresh search.
func weighAgainst(cached Triangle, azimuthDeg, elevationDeg float64) (Triangle, node, node, node, bool) {
	a := node{planar: [2]float64{cached.A.Azimuth, cached.A.Elevation}, lookupAz: cached.A.Azimuth, lookupEl: cached.A.Elevation}
	b := node{planar: [2]float64{cached.B.Azimuth, cached.B.Elevation}, lookupAz: cached.B.Azimuth, lookupEl: cached.B.Elevation}
	c := node{planar: [2]float64{cached.C.Azimuth, cached.C.Elevation}, lookupAz: cached.C.Azimuth, lookupEl: cached.C.Elevation}

	alpha, beta, gamma := geo.BarycentricWeights([2]float64{azimuthDeg, elevationDeg}, a.planar, b.planar, c.planar)
	if !geo.InsideTriangle(alpha, beta, gamma, insideTolerance) {
		return Triangle{}, node{}, node{}, node{}, false
	}
	cached.Alpha, cached.Beta, cached.Gamma = alpha, beta, gamma
	return cached, a, b, c, true
}

func blend[T Combinable[T]](src *grid.Grid[T], tri Triangle, a, b, c node) (T, bool) {
	va, okA := src.Get(a.lookupAz, a.lookupEl)
	vb, okB := src.Get(b.lookupAz, b.lookupEl)
	vc, okC := src.Get(c.lookupAz, c.lookupEl)
	if !okA || !okB || !okC {
		var zero T
		return zero, false
	}
	return Combine3(va, vb, vc, tri.Alpha, tri.Beta, tri.Gamma), true
}

// findTriangle builds the quad of grid nodes surrounding
// (azimuthDeg, elevationDeg), splits it along both diagonals, and
// returns the first triangle the query falls inside whose three
// corners all hold a value in g. A query exactly
// at a pole degenerates to a single node and has no triangle; callers
// bypass interpolation at a pole per core-spec §4.2's runtime-query
// rule.
func findTriangle[T any](g *grid.Grid[T], azimuthDeg, elevationDeg float64) (Triangle, node, node, node, bool) {
	lowerBand := g.FloorBandIndex(elevationDeg)
	upperBand := lowerBand + 1
	elLo := g.BandElevationAt(lowerBand)
	elHi := g.BandElevationAt(upperBand)
	if upperBand%g.NumBands() == 0 {
		elHi = 360
	}

	loIdxLower := g.FloorAzimuthIndex(lowerBand, azimuthDeg)
	hiIdxLower := loIdxLower + 1
	azLoLower := float64(loIdxLower) * g.AzimuthStepAt(lowerBand)
	azHiLower := float64(hiIdxLower) * g.AzimuthStepAt(lowerBand)
	if hiIdxLower%g.NumAzimuthsAt(lowerBand) == 0 {
		azHiLower = 360
	}

	loIdxUpper := g.FloorAzimuthIndex(upperBand, azimuthDeg)
	hiIdxUpper := loIdxUpper + 1
	azLoUpper := float64(loIdxUpper) * g.AzimuthStepAt(upperBand)
	azHiUpper := float64(hiIdxUpper) * g.AzimuthStepAt(upperBand)
	if hiIdxUpper%g.NumAzimuthsAt(upperBand) == 0 {
		azHiUpper = 360
	}

	corners := [4]node{
		{planar: [2]float64{azLoLower, elLo}, lookupAz: wrap(azLoLower), lookupEl: wrap(elLo)},
		{planar: [2]float64{azHiLower, elLo}, lookupAz: wrap(azHiLower), lookupEl: wrap(elLo)},
		{planar: [2]float64{azHiUpper, elHi}, lookupAz: wrap(azHiUpper), lookupEl: wrap(elHi)},
		{planar: [2]float64{azLoUpper, elHi}, lookupAz: wrap(azLoUpper), lookupEl: wrap(elHi)},
	}
	p := [2]float64{azimuthDeg, elevationDeg}
	// Keep the query in the same (possibly unwrapped past 360) frame
	// as the corners when the cell straddles the 360-degree seam.
	if azHiLower == 360 && p[0] < azLoLower {
		p[0] += 360
	}
	if elHi == 360 && p[1] < elLo {
		p[1] += 360
	}

	splits := [4][3]int{{0, 1, 2}, {0, 2, 3}, {0, 1, 3}, {1, 2, 3}}
	for _, idx := range splits {
		a, b, c := corners[idx[0]], corners[idx[1]], corners[idx[2]]
		alpha, beta, gamma := geo.BarycentricWeights(p, a.planar, b.planar, c.planar)
		if geo.InsideTriangle(alpha, beta, gamma, insideTolerance) {
			_, okA := g.Get(a.lookupAz, a.lookupEl)
			_, okB := g.Get(b.lookupAz, b.lookupEl)
			_, okC := g.Get(c.lookupAz, c.lookupEl)
			if !okA || !okB || !okC {
				// A split with an empty corner cannot be blended; try
				// the next one.
				continue
			}
			tri := Triangle{
				A:     geo.Orientation{Azimuth: a.lookupAz, Elevation: a.lookupEl},
				B:     geo.Orientation{Azimuth: b.lookupAz, Elevation: b.lookupEl},
				C:     geo.Orientation{Azimuth: c.lookupAz, Elevation: c.lookupEl},
				Alpha: alpha, Beta: beta, Gamma: gamma,
			}
			return tri, a, b, c, true
		}
	}
	return Triangle{}, node{}, node{}, node{}, false
}

func wrap(v float64) float64 {
	if v >= 360 {
		return v - 360
	}
	return v
}
