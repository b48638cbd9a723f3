// pkg/hrtf/setup.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package hrtf

import (
	"math"
	"strconv"

	"github.com/GrupoDiana/brt-go/pkg/diag"
	"github.com/GrupoDiana/brt-go/pkg/dspmath"
	"github.com/GrupoDiana/brt-go/pkg/geo"
	"github.com/GrupoDiana/brt-go/pkg/grid"
	"github.com/GrupoDiana/brt-go/pkg/interp"
)

// EndSetup runs the core-spec §4.2 pipeline in order: common-delay
// removal, extrapolation, pole synthesis, cap filling, grid
// construction, and resampling+partitioning. The finished table is
// published behind the service's mutex and the state moves to Loaded.
func (s *Service) EndSetup() bool {
	if s.State() != StateSetupInProgress {
		s.report(diag.NotAllowed, "end_setup on %q: not in setup", s.name)
		return false
	}
	if s.l <= 0 {
		s.report(diag.InvalidParam, "end_setup on %q: non-positive tap count", s.name)
		return false
	}

	entries := s.rawEntries()
	if len(entries) == 0 {
		s.report(diag.NotSet, "end_setup on %q: no measurements added", s.name)
		return false
	}

	s.removeCommonDelay(entries)

	working := grid.New[THRIR](grid.DefaultElevationStep)
	for _, e := range entries {
		working.Set(e.Orientation.Azimuth, e.Orientation.Elevation, e.IR)
	}

	s.extrapolate(working, entries)
	s.synthesizePoles(working, entries)
	s.fillCaps(working, entries)

	blockSize := s.cfg.BlockSize
	numSubfilters := (s.l + blockSize - 1) / blockSize
	s.fft = dspmath.NewRealFFT(2 * blockSize)

	resampled := grid.New[THRIRPartitioned](working.ElevationStep())
	for band := 0; band < working.NumBands(); band++ {
		elevation := working.BandElevationAt(band)
		for _, azimuth := range working.BandAzimuths(elevation) {
			ir, ok := working.Get(azimuth, elevation)
			if !ok {
				ir, ok = interp.OfflineInterpolate[THRIR](working, azimuth, elevation)
			}
			if !ok {
				s.report(diag.OutOfRange, "%q: no data to resample at (%.2f,%.2f)", s.name, azimuth, elevation)
				continue
			}
			resampled.Set(azimuth, elevation, s.partition(ir, numSubfilters, blockSize))
		}
	}

	published := deepClone(resampled)

	s.mu.Lock(s.logger)
	s.resampled = published
	s.stepVector = published.StepVector()
	s.numSubfilters = numSubfilters
	s.onlineInterp = interp.NewOnlineInterpolator[THRIRPartitioned](published, 64)
	s.mu.Unlock(s.logger)

	s.stateMu.Lock()
	s.state = StateLoaded
	s.stateMu.Unlock()
	return true
}

// removeCommonDelay subtracts the minimum left and minimum right delay
// across every raw entry, in place, so that an absolute ITD floor of
// zero is kept on each side while differential ITD is preserved
// (core-spec §4.2 step 1).
func (s *Service) removeCommonDelay(entries []RawEntry) {
	if len(entries) == 0 {
		return
	}
	minLeft, minRight := entries[0].IR.LeftDelay, entries[0].IR.RightDelay
	for _, e := range entries[1:] {
		minLeft = math.Min(minLeft, e.IR.LeftDelay)
		minRight = math.Min(minRight, e.IR.RightDelay)
	}
	for i := range entries {
		entries[i].IR.LeftDelay -= minLeft
		entries[i].IR.RightDelay -= minRight
		key := rawKey(entries[i].Orientation)
		s.raw.Set(key, entries[i])
	}
}

// extrapolate fills every grid node the measured data doesn't reach,
// either with silence or with the nearest measured direction's
// response, per the policy recorded at BeginSetup (core-spec §4.2
// step 2).
func (s *Service) extrapolate(g *grid.Grid[THRIR], entries []RawEntry) {
	blockSize := s.l
	for band := 0; band < g.NumBands(); band++ {
		elevation := g.BandElevationAt(band)
		for _, azimuth := range g.BandAzimuths(elevation) {
			if _, ok := g.Get(azimuth, elevation); ok {
				continue
			}
			var fill THRIR
			switch s.extrapolation {
			case ExtrapolationNearest:
				fill = nearestEntry(entries, azimuth, elevation).IR
			default:
				fill = THRIR{Left: make([]float64, blockSize), Right: make([]float64, blockSize)}
			}
			g.Set(azimuth, elevation, fill)
			s.report(diag.Warning, "%q: gap extrapolated at (%.2f,%.2f)", s.name, azimuth, elevation)
		}
	}
}

// nearestEntry does a brute-force angular nearest-neighbor search over
// the raw measurements; called only during setup, off the audio
// thread, so an O(n) scan per gap is an acceptable cost.
func nearestEntry(entries []RawEntry, azimuth, elevation float64) RawEntry {
	best := entries[0]
	bestDist := angularDistance(best.Orientation, azimuth, elevation)
	for _, e := range entries[1:] {
		d := angularDistance(e.Orientation, azimuth, elevation)
		if d < bestDist {
			bestDist = d
			best = e
		}
	}
	return best
}

func angularDistance(o geo.Orientation, azimuth, elevation float64) float64 {
	a := o.ToCartesian()
	b := geo.Orientation{Azimuth: azimuth, Elevation: elevation, Distance: 1}.ToCartesian()
	return geo.Distance(a, b)
}

// synthesizePoles fills the north (elevation 90) and south (elevation
// 270) pole nodes when no exact measurement sits there: the nearest
// hemisphere is split into four equal azimuth sectors, each sector's
// entries averaged, and the four sector averages averaged together
// with equal weight (core-spec §4.2 step 3). The result is replicated
// across every azimuth node of the pole's band.
func (s *Service) synthesizePoles(g *grid.Grid[THRIR], entries []RawEntry) {
	for _, pole := range []float64{90, 270} {
		if hasExactPole(entries, pole) {
			continue
		}
		nearby := entriesNearPole(entries, pole, 90)
		if len(nearby) == 0 {
			continue
		}
		var sectors [4]THRIR
		var counts [4]int
		for _, e := range nearby {
			q := sectorOf(e.Orientation.Azimuth)
			sectors[q] = sectors[q].Add(e.IR)
			counts[q]++
		}
		var sum THRIR
		present := 0
		for q := 0; q < 4; q++ {
			if counts[q] == 0 {
				continue
			}
			sum = sum.Add(sectors[q].Scale(1.0 / float64(counts[q])))
			present++
		}
		if present == 0 {
			continue
		}
		poleIR := sum.Scale(1.0 / float64(present))

		for _, azimuth := range g.BandAzimuths(pole) {
			g.Set(azimuth, pole, poleIR)
		}
		s.report(diag.Warning, "%q: pole synthesized at elevation %.0f", s.name, pole)
	}
}

func hasExactPole(entries []RawEntry, pole float64) bool {
	for _, e := range entries {
		if dspmath.Abs(e.Orientation.Elevation-pole) < 0.005 {
			return true
		}
	}
	return false
}

func entriesNearPole(entries []RawEntry, pole, maxElevationDelta float64) []RawEntry {
	var out []RawEntry
	for _, e := range entries {
		if angularGapToPole(e.Orientation.Elevation, pole) <= maxElevationDelta {
			out = append(out, e)
		}
	}
	return out
}

// angularGapToPole returns the elevation distance from elevationDeg to
// pole (90 or 270), handling the wrap so that elevations just past the
// 0/360 seam near the south pole are still recognized as close.
func angularGapToPole(elevationDeg, pole float64) float64 {
	d := dspmath.Abs(elevationDeg - pole)
	if d > 180 {
		d = 360 - d
	}
	return d
}

func sectorOf(azimuthDeg float64) int {
	return int(math.Mod(azimuthDeg, 360) / 90)
}

// fillCaps re-synthesizes the rings closest to a pole with the
// barycentric procedure used at run time when the measured gap from
// the pole exceeds capGapDegrees (core-spec §4.2 step 4), refining the
// cruder extrapolation/pole-replication fill those rings received
// above. The pole node itself, already set by synthesizePoles,
// participates as one of the triangle's three vertices.
func (s *Service) fillCaps(g *grid.Grid[THRIR], entries []RawEntry) {
	for _, pole := range []float64{90, 270} {
		nearestMeasuredGap := nearestMeasuredElevationGap(entries, pole)
		if nearestMeasuredGap <= s.capGapDegrees {
			continue
		}
		// Walk every ring strictly between the pole and the nearest
		// measured ring, refining each with a fresh barycentric blend.
		step := g.ElevationStep()
		for gap := step; gap < nearestMeasuredGap; gap += step {
			elevation := ringElevation(pole, gap)
			for _, azimuth := range g.BandAzimuths(elevation) {
				if blended, ok := interp.OfflineInterpolate[THRIR](g, azimuth, elevation); ok {
					g.Set(azimuth, elevation, blended)
				}
			}
		}
	}
}

func ringElevation(pole, gap float64) float64 {
	if pole == 90 {
		return pole - gap
	}
	return pole + gap
}

func nearestMeasuredElevationGap(entries []RawEntry, pole float64) float64 {
	best := 180.0
	for _, e := range entries {
		d := angularGapToPole(e.Orientation.Elevation, pole)
		if d < best {
			best = d
		}
	}
	return best
}

// partition splits a time-domain IR into numSubfilters blocks of
// blockSize samples each, zero-padded to 2*blockSize and
// forward-transformed (core-spec §3 "THRIRPartitioned").
func (s *Service) partition(ir THRIR, numSubfilters, blockSize int) THRIRPartitioned {
	return THRIRPartitioned{
		Left:       s.partitionChannel(ir.Left, numSubfilters, blockSize),
		Right:      s.partitionChannel(ir.Right, numSubfilters, blockSize),
		LeftDelay:  ir.LeftDelay,
		RightDelay: ir.RightDelay,
	}
}

func (s *Service) partitionChannel(samples []float64, numSubfilters, blockSize int) []Subfilter {
	subs := make([]Subfilter, numSubfilters)
	padded := make([]float64, 2*blockSize)
	for k := 0; k < numSubfilters; k++ {
		dspmath.Zero(padded)
		start := k * blockSize
		end := start + blockSize
		if start < len(samples) {
			if end > len(samples) {
				end = len(samples)
			}
			copy(padded, samples[start:end])
		}
		subs[k] = s.fft.Forward(nil, padded)
	}
	return subs
}

func rawKey(o geo.Orientation) string {
	return strconv.FormatInt(o.Hash(), 10)
}
