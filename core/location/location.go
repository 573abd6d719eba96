package location

import "gonum.org/v1/gonum/floats/scalar"

// Place is a named coordinate the car can be matched against.
type Place struct {
	Name string
	Lat  float64
	Long float64
}

// DefaultTolerance is the coordinate tolerance in degrees. Roughly a
// hundred meters at Danish latitudes, which is plenty for telling home
// from work.
const DefaultTolerance = 0.001

// Match returns the name of the first place whose coordinates are
// within tol degrees of the given position, or "" when the car is
// somewhere unknown. The result is informational only and carries no
// decision consequence.
func Match(lat, long float64, places []Place, tol float64) string {
	if tol <= 0 {
		tol = DefaultTolerance
	}
	for _, p := range places {
		if scalar.EqualWithinAbs(lat, p.Lat, tol) && scalar.EqualWithinAbs(long, p.Long, tol) {
			return p.Name
		}
	}
	return ""
}
