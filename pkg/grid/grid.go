// pkg/grid/grid.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package grid builds the quasi-uniform azimuth/elevation sphere
// distribution the HRTF and directivity-TF services resample their
// measured data onto (core-spec §3 "Grid step vector", §4.2 step 5):
// for each elevation band on a target step, an azimuth step is chosen
// so that arc-length spacing stays roughly constant, so the step grows
// and the band's node count shrinks toward the poles. Azimuth 0 and elevation 0 are always grid
// nodes. Because the azimuth step only depends on the elevation band,
// the nearest stored node to any query direction is found in O(1) by
// rounding to the band and then to the band's own azimuth step.
package grid

import (
	"math"

	"github.com/GrupoDiana/brt-go/pkg/dspmath"
	"github.com/GrupoDiana/brt-go/pkg/geo"
)

// DefaultElevationStep is the core spec's default elevation band
// width in degrees.
const DefaultElevationStep = 5.0

// Grid is a quasi-uniform sphere distribution storing one value of
// type T per node. The zero value is not usable; build one with New.
type Grid[T any] struct {
	elevationStep float64
	numBands      int
	azimuthSteps  []float64 // azimuth step in degrees, indexed by band
	numAzimuths   []int     // node count, indexed by band
	nodes         map[int64]T
}

// New builds an empty grid with the given elevation band width in
// degrees. elevationStep must divide 360 evenly; if it does not, it is
// rounded so that it does (matching the core spec's "target step"
// wording: the actual step is whatever keeps bands evenly spaced).
func New[T any](elevationStep float64) *Grid[T] {
	if elevationStep <= 0 {
		elevationStep = DefaultElevationStep
	}
	numBands := int(math.Round(360 / elevationStep))
	if numBands < 1 {
		numBands = 1
	}
	actualStep := 360.0 / float64(numBands)

	g := &Grid[T]{
		elevationStep: actualStep,
		numBands:      numBands,
		azimuthSteps:  make([]float64, numBands),
		numAzimuths:   make([]int, numBands),
		nodes:         make(map[int64]T),
	}
	for i := 0; i < numBands; i++ {
		elevation := float64(i) * actualStep
		ringRadius := math.Abs(math.Cos(geo.EquatorAngle(elevation)))
		n := int(math.Round(360.0 / actualStep * ringRadius))
		if n < 1 {
			n = 1
		}
		g.numAzimuths[i] = n
		g.azimuthSteps[i] = 360.0 / float64(n)
	}
	return g
}

// ElevationStep returns the grid's (possibly rounded) elevation band
// width in degrees.
func (g *Grid[T]) ElevationStep() float64 { return g.elevationStep }

// NumBands returns the number of elevation bands.
func (g *Grid[T]) NumBands() int { return g.numBands }

// bandIndex rounds an elevation in degrees to its nearest band index.
func (g *Grid[T]) bandIndex(elevationDeg float64) int {
	e := wrap360(elevationDeg)
	i := int(math.Round(e/g.elevationStep)) % g.numBands
	if i < 0 {
		i += g.numBands
	}
	return i
}

// azimuthIndex rounds an azimuth in degrees to its nearest node index
// within band i.
func (g *Grid[T]) azimuthIndex(band int, azimuthDeg float64) int {
	step := g.azimuthSteps[band]
	n := g.numAzimuths[band]
	a := wrap360(azimuthDeg)
	j := int(math.Round(a/step)) % n
	if j < 0 {
		j += n
	}
	return j
}

// StepVector returns the azimuth step in degrees for every elevation
// band, indexed by band number (core-spec §3's "Grid step vector").
func (g *Grid[T]) StepVector() map[int]float64 {
	m := make(map[int]float64, g.numBands)
	for i, step := range g.azimuthSteps {
		m[i] = step
	}
	return m
}

// AzimuthStep returns the azimuth step in degrees for the band nearest
// elevationDeg.
func (g *Grid[T]) AzimuthStep(elevationDeg float64) float64 {
	return g.azimuthSteps[g.bandIndex(elevationDeg)]
}

// BandAzimuths returns every grid-node azimuth, in degrees, for the
// band nearest elevationDeg. Used by pole synthesis and cap-filling,
// which need to walk every azimuth at a given elevation.
func (g *Grid[T]) BandAzimuths(elevationDeg float64) []float64 {
	band := g.bandIndex(elevationDeg)
	n := g.numAzimuths[band]
	step := g.azimuthSteps[band]
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) * step
	}
	return out
}

// BandElevation returns the exact elevation, in degrees, of the band
// nearest elevationDeg.
func (g *Grid[T]) BandElevation(elevationDeg float64) float64 {
	return float64(g.bandIndex(elevationDeg)) * g.elevationStep
}

// Nearest snaps a queried direction to the grid node closest to it in
// O(1): first to the nearest elevation band, then to the nearest
// azimuth within that band's own step.
func (g *Grid[T]) Nearest(azimuthDeg, elevationDeg float64) (azimuth, elevation float64) {
	band := g.bandIndex(elevationDeg)
	elevation = float64(band) * g.elevationStep
	azIdx := g.azimuthIndex(band, azimuthDeg)
	azimuth = float64(azIdx) * g.azimuthSteps[band]
	return azimuth, elevation
}

// Set stores value at the node nearest (azimuthDeg, elevationDeg),
// snapping the query to that node first.
func (g *Grid[T]) Set(azimuthDeg, elevationDeg float64, value T) {
	az, el := g.Nearest(azimuthDeg, elevationDeg)
	g.nodes[nodeKey(az, el)] = value
}

// Get returns the value stored at the node nearest (azimuthDeg,
// elevationDeg), and whether a value has been stored there at all.
func (g *Grid[T]) Get(azimuthDeg, elevationDeg float64) (T, bool) {
	az, el := g.Nearest(azimuthDeg, elevationDeg)
	v, ok := g.nodes[nodeKey(az, el)]
	return v, ok
}

// Len reports how many nodes currently hold a value.
func (g *Grid[T]) Len() int { return len(g.nodes) }

func nodeKey(azimuthDeg, elevationDeg float64) int64 {
	return geo.Orientation{Azimuth: azimuthDeg, Elevation: elevationDeg}.Hash()
}

func wrap360(v float64) float64 {
	v = math.Mod(v, 360)
	if v < 0 {
		v += 360
	}
	return v
}

// TotalNodes returns the number of distinct nodes the quasi-uniform
// distribution defines across every band — the grid's full capacity,
// independent of how many have been Set.
func (g *Grid[T]) TotalNodes() int {
	total := 0
	for _, n := range g.numAzimuths {
		total += n
	}
	return total
}

// FloorBandIndex returns the elevation band at or below elevationDeg,
// used by the interpolator to build the quad of grid nodes
// surrounding a query direction (as opposed to bandIndex's
// round-to-nearest, used by the nearest-node lookup).
func (g *Grid[T]) FloorBandIndex(elevationDeg float64) int {
	e := wrap360(elevationDeg)
	i := int(math.Floor(e/g.elevationStep)) % g.numBands
	if i < 0 {
		i += g.numBands
	}
	return i
}

// FloorAzimuthIndex returns the azimuth-node index at or below
// azimuthDeg within band i.
func (g *Grid[T]) FloorAzimuthIndex(band int, azimuthDeg float64) int {
	band = g.wrapBand(band)
	step := g.azimuthSteps[band]
	n := g.numAzimuths[band]
	a := wrap360(azimuthDeg)
	j := int(math.Floor(a/step)) % n
	if j < 0 {
		j += n
	}
	return j
}

// BandElevationAt returns the exact elevation, in degrees, of band i.
func (g *Grid[T]) BandElevationAt(band int) float64 {
	return float64(g.wrapBand(band)) * g.elevationStep
}

// AzimuthStepAt returns the azimuth step, in degrees, of band i.
func (g *Grid[T]) AzimuthStepAt(band int) float64 {
	return g.azimuthSteps[g.wrapBand(band)]
}

// NumAzimuthsAt returns the node count of band i.
func (g *Grid[T]) NumAzimuthsAt(band int) int {
	return g.numAzimuths[g.wrapBand(band)]
}

func (g *Grid[T]) wrapBand(band int) int {
	band %= g.numBands
	if band < 0 {
		band += g.numBands
	}
	return band
}

// RingRadius reports abs(cos(equator angle)) for the band nearest
// elevationDeg: 1 at the equator, 0 at a pole. Exposed so pole
// synthesis can tell a genuine pole band (ring radius ~0, one node)
// from a normal band.
func (g *Grid[T]) RingRadius(elevationDeg float64) float64 {
	band := g.bandIndex(elevationDeg)
	elevation := float64(band) * g.elevationStep
	return dspmath.Abs(math.Cos(geo.EquatorAngle(elevation)))
}
