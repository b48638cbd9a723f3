// pkg/geo/orientation.go
// Copyright(c) 2026 brt-go contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package geo holds the orientation, transform, and barycentric-weight
// math shared by the grid, interpolation, HRTF, SOS, and directivity
// packages: everything that turns a 3D position into the
// (azimuth, elevation, distance) triplet the measured tables are keyed
// on, and back.
package geo

import (
	"math"

	"github.com/GrupoDiana/brt-go/pkg/dspmath"
)

// Orientation is a measured or queried direction: azimuth and
// elevation in degrees plus distance in meters. Azimuth is normalized
// to [0, 360); elevation is normalized so that the north pole is 90,
// the south pole 270, and the equator is 0.
type Orientation struct {
	Azimuth   float64
	Elevation float64
	Distance  float64
}

// NewOrientation builds a normalized Orientation.
func NewOrientation(azimuth, elevation, distance float64) Orientation {
	o := Orientation{Azimuth: azimuth, Elevation: elevation, Distance: distance}
	return o.Normalized()
}

// Normalized returns o with azimuth wrapped into [0,360) and elevation
// wrapped into the [−90,90]-as-[270,360)∪[0,90] pole convention
// described above.
func (o Orientation) Normalized() Orientation {
	o.Azimuth = wrap360(o.Azimuth)
	o.Elevation = wrap360(o.Elevation)
	return o
}

func wrap360(v float64) float64 {
	v = math.Mod(v, 360)
	if v < 0 {
		v += 360
	}
	return v
}

// Equal reports whether two orientations are the same direction at
// the core spec's 0.01-degree resolution. Distance is not compared:
// orientation equality is about direction, and tables are keyed by
// (azimuth, elevation) alone.
func (o Orientation) Equal(other Orientation) bool {
	return o.Hash() == other.Hash()
}

// Hash returns an integer key derived from the hundredths of azimuth
// and elevation, suitable for use as a map key or an LRU cache key for
// the online interpolator.
func (o Orientation) Hash() int64 {
	az := int64(math.Round(o.Azimuth * 100))
	el := int64(math.Round(o.Elevation * 100))
	// Azimuth is in [0, 36000) once rounded; elevation fits comfortably
	// in the high bits alongside it.
	return el*36000 + az
}

// IsNorthPole reports whether o sits at the north pole (elevation 90),
// where azimuth is arbitrary and every stored entry for that elevation
// must agree (pole invariance, core-spec §8).
func (o Orientation) IsNorthPole() bool {
	return dspmath.Abs(o.Elevation-90) < poleTolerance
}

// IsSouthPole reports whether o sits at the south pole (elevation 270).
func (o Orientation) IsSouthPole() bool {
	return dspmath.Abs(o.Elevation-270) < poleTolerance
}

// IsPole reports whether o sits at either pole.
func (o Orientation) IsPole() bool {
	return o.IsNorthPole() || o.IsSouthPole()
}

// poleTolerance matches the 0.01-degree equality resolution used
// throughout the direction tables.
const poleTolerance = 0.005

// InterauralAzimuth converts a (azimuth, elevation) direction into the
// interaural-polar azimuth theta used by the Woodworth ITD model: the
// angle, measured in the interaural-axis plane, between the direction
// and the median plane. At elevation 0 this reduces to theta = azimuth
// (core-spec §8's worked example uses theta = asin(sin(azimuth))).
func InterauralAzimuth(azimuthDeg, elevationDeg float64) float64 {
	az := dspmath.Radians(azimuthDeg)
	el := elevationAngle(elevationDeg)
	return math.Asin(math.Sin(az) * math.Cos(el))
}

// EquatorAngle exports elevationAngle for callers outside this package
// that need the same equator-referenced radian angle, e.g. the grid
// package's ring-radius (cos of this angle) used to size each
// elevation band's azimuth step.
func EquatorAngle(elevationDeg float64) float64 {
	return elevationAngle(elevationDeg)
}

// elevationAngle converts the core spec's pole-at-90/270 elevation
// convention into a signed angle in [-pi/2, pi/2] from the equator,
// which is what the interaural conversion and the cartesian round trip
// both expect.
func elevationAngle(elevationDeg float64) float64 {
	e := wrap360(elevationDeg)
	if e > 180 {
		e -= 360
	}
	return dspmath.Radians(e)
}

// ToCartesian converts o to a right-handed cartesian position with x
// forward, y left, z up, matching the head-frame convention the SOFA
// reader delivers positions in.
func (o Orientation) ToCartesian() Vec3 {
	az := dspmath.Radians(o.Azimuth)
	el := elevationAngle(o.Elevation)
	r := o.Distance
	return Vec3{
		X: r * math.Cos(el) * math.Cos(az),
		Y: r * math.Cos(el) * math.Sin(az),
		Z: r * math.Sin(el),
	}
}

// FromCartesian converts a cartesian position into a normalized
// Orientation, handling the pole singularity (azimuth undefined when
// x==y==0) by reporting azimuth 0.
func FromCartesian(v Vec3) Orientation {
	r := v.Length()
	if r == 0 {
		return Orientation{}
	}
	el := math.Asin(dspmath.Clamp(v.Z/r, -1, 1))
	var az float64
	if v.X != 0 || v.Y != 0 {
		az = math.Atan2(v.Y, v.X)
	}
	return NewOrientation(dspmath.Degrees(az), dspmath.Degrees(el), r)
}
