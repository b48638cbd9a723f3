// pkg/geo/barycentric_test.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package geo

import (
	"math"
	"testing"
)

func TestBarycentricWeightsAtVertices(t *testing.T) {
	a := [2]float64{0, 0}
	b := [2]float64{10, 0}
	c := [2]float64{0, 10}

	alpha, beta, gamma := BarycentricWeights(a, a, b, c)
	if math.Abs(alpha-1) > 1e-9 || math.Abs(beta) > 1e-9 || math.Abs(gamma) > 1e-9 {
		t.Errorf("weights at vertex a should be (1,0,0), got (%g,%g,%g)", alpha, beta, gamma)
	}

	alpha, beta, gamma = BarycentricWeights(b, a, b, c)
	if math.Abs(alpha) > 1e-9 || math.Abs(beta-1) > 1e-9 || math.Abs(gamma) > 1e-9 {
		t.Errorf("weights at vertex b should be (0,1,0), got (%g,%g,%g)", alpha, beta, gamma)
	}
}

func TestBarycentricWeightsSumToOne(t *testing.T) {
	a := [2]float64{0, 0}
	b := [2]float64{10, 0}
	c := [2]float64{0, 10}
	p := [2]float64{3, 3}

	alpha, beta, gamma := BarycentricWeights(p, a, b, c)
	if sum := alpha + beta + gamma; math.Abs(sum-1) > 1e-9 {
		t.Errorf("weights should sum to 1, got %g", sum)
	}
	if !InsideTriangle(alpha, beta, gamma, 1e-9) {
		t.Errorf("point %v should be inside the triangle", p)
	}
}

func TestBarycentricWeightsOutsideTriangle(t *testing.T) {
	a := [2]float64{0, 0}
	b := [2]float64{10, 0}
	c := [2]float64{0, 10}
	p := [2]float64{20, 20}

	alpha, beta, gamma := BarycentricWeights(p, a, b, c)
	if InsideTriangle(alpha, beta, gamma, 1e-9) {
		t.Errorf("point %v should be outside the triangle, got weights (%g,%g,%g)", p, alpha, beta, gamma)
	}
}
