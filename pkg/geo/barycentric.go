// pkg/geo/barycentric.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package geo

// BarycentricWeights computes the barycentric weights (alpha, beta,
// gamma) of point p with respect to the triangle (a, b, c), all given
// as (azimuth, elevation) pairs in degrees treated as a local planar
// patch of the grid — the "slopes method" the online interpolator
// uses to blend three stored nodes around a query direction.
//
// A negative weight means p lies outside the triangle on that vertex's
// opposite edge; the caller is expected to retry with the adjacent
// triangle in that case (core-spec §4.2).
func BarycentricWeights(p, a, b, c [2]float64) (alpha, beta, gamma float64) {
	denom := (b[1]-c[1])*(a[0]-c[0]) + (c[0]-b[0])*(a[1]-c[1])
	if denom == 0 {
		// Degenerate (collinear) triangle: fall back to an even split
		// rather than dividing by zero.
		return 1.0 / 3, 1.0 / 3, 1.0 / 3
	}
	alpha = ((b[1]-c[1])*(p[0]-c[0]) + (c[0]-b[0])*(p[1]-c[1])) / denom
	beta = ((c[1]-a[1])*(p[0]-c[0]) + (a[0]-c[0])*(p[1]-c[1])) / denom
	gamma = 1 - alpha - beta
	return alpha, beta, gamma
}

// InsideTriangle reports whether all three barycentric weights are
// non-negative (within tol), meaning p lies inside (or on the edge of)
// the triangle.
func InsideTriangle(alpha, beta, gamma, tol float64) bool {
	return alpha >= -tol && beta >= -tol && gamma >= -tol
}
