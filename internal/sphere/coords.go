// Package sphere converts between pixel, spherical, and unit-vector
// coordinates for equirectangular textures.
package sphere

import "math"

// Coordinate is a point on the sphere in degrees.
// Latitude is in [-90, 90], longitude in [0, 360).
type Coordinate struct {
	Lat float64
	Lon float64
}

// Vector3 is a point on the unit sphere.
type Vector3 struct {
	X float64
	Y float64
	Z float64
}

// PixelToSphere maps a pixel center to its spherical coordinate on an
// equirectangular grid of the given dimensions.
// Row 0 is the north pole edge, column 0 is longitude 0.
func PixelToSphere(x, y, width, height int) Coordinate {
	lon := (float64(x) + 0.5) / float64(width) * 360.0
	lat := 90.0 - (float64(y)+0.5)/float64(height)*180.0
	return Coordinate{Lat: lat, Lon: normalizeLon(lon)}
}

// UnitVector converts the spherical coordinate to a unit 3D vector.
// Axis convention: X/Z span the equatorial plane, Y points to the north pole.
func (c Coordinate) UnitVector() Vector3 {
	latRad := c.Lat * math.Pi / 180.0
	lonRad := c.Lon * math.Pi / 180.0
	cosLat := math.Cos(latRad)
	return Vector3{
		X: cosLat * math.Cos(lonRad),
		Y: math.Sin(latRad),
		Z: cosLat * math.Sin(lonRad),
	}
}

// VectorToSphere is the inverse of Coordinate.UnitVector.
// The vector must be non-zero; it is normalized before conversion.
func VectorToSphere(v Vector3) Coordinate {
	len := math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
	if len == 0 {
		return Coordinate{}
	}
	y := v.Y / len
	// Guard asin against rounding slightly past ±1.
	if y > 1 {
		y = 1
	}
	if y < -1 {
		y = -1
	}
	lat := math.Asin(y) * 180.0 / math.Pi
	lon := math.Atan2(v.Z, v.X) * 180.0 / math.Pi
	return Coordinate{Lat: lat, Lon: normalizeLon(lon)}
}

// normalizeLon wraps a longitude in degrees into [0, 360).
func normalizeLon(lon float64) float64 {
	lon = math.Mod(lon, 360.0)
	if lon < 0 {
		lon += 360.0
	}
	return lon
}
