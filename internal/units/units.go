package units

import "math"

// Unit is a linear measurement system tag as stored on layout canvases.
type Unit string

const (
	MM     Unit = "mm"
	Inches Unit = "inches"
)

const (
	mmPerInch          = 25.4
	thicknessTolerance = 0.001

	// Thickness values above this are assumed to be millimeters no matter how they are tagged.
	mmHeuristicThreshold = 10.0
	// Millimeter-tagged thickness at or below this is assumed to really be inches.
	inchHeuristicThreshold = 5.0
)

var (
	allowedInches = []float64{0.5, 1.0, 1.25, 2.0}
	allowedMM     = []float64{12.7, 25.4, 31.75, 50.8}
)

// ToInches converts a linear value to inches. Anything not tagged mm is taken as inches.
func ToInches(value float64, unit Unit) float64 {
	if unit == MM {
		return value / mmPerInch
	}
	return value
}

// FromInches converts an inch value into the given unit.
func FromInches(value float64, unit Unit) float64 {
	if unit == MM {
		return value * mmPerInch
	}
	return value
}

// AllowedThicknesses returns the manufacturable thicknesses for unit, thinnest first.
func AllowedThicknesses(unit Unit) []float64 {
	src := allowedInches
	if unit == MM {
		src = allowedMM
	}
	out := make([]float64, len(src))
	copy(out, src)
	return out
}

// DefaultThickness is the fallback used when a thickness is missing or unusable.
// The mm default is not a member of the allowed mm set.
func DefaultThickness(unit Unit) float64 {
	if unit == MM {
		return 20
	}
	return 1.25
}

// IsAllowedThickness reports whether value is within 0.001 of an allowed thickness for unit.
func IsAllowedThickness(value float64, unit Unit) bool {
	for _, t := range allowedFor(unit) {
		if math.Abs(value-t) < thicknessTolerance {
			return true
		}
	}
	return false
}

// ClosestAllowedThickness snaps value to the nearest allowed thickness.
// Equidistant candidates resolve to the thinner one.
func ClosestAllowedThickness(value float64, unit Unit) float64 {
	allowed := allowedFor(unit)
	best := allowed[0]
	bestDist := math.Abs(value - best)
	for _, t := range allowed[1:] {
		if d := math.Abs(value - t); d < bestDist {
			best, bestDist = t, d
		}
	}
	return best
}

// CoerceThicknessBetweenUnits converts a thickness from one unit to another and snaps it
// to the target unit's allowed set. Non-positive or non-finite input yields the target default.
func CoerceThicknessBetweenUnits(value float64, from, to Unit) float64 {
	if !usable(value) {
		return DefaultThickness(to)
	}
	inches := ToInches(value, from)
	return ClosestAllowedThickness(FromInches(inches, to), to)
}

// CoerceThicknessFromPersisted repairs thickness values read back from storage where the
// unit tag and the magnitude may disagree.
func CoerceThicknessFromPersisted(value float64, unit Unit) float64 {
	if !usable(value) {
		return DefaultThickness(unit)
	}
	if IsAllowedThickness(value, unit) {
		return value
	}

	other := Inches
	if unit != MM {
		other = MM
	}
	if IsAllowedThickness(value, other) {
		return CoerceThicknessBetweenUnits(value, other, unit)
	}

	switch {
	case unit == MM && value <= inchHeuristicThreshold:
		return CoerceThicknessBetweenUnits(value, Inches, MM)
	case unit != MM && value > mmHeuristicThreshold:
		return CoerceThicknessBetweenUnits(value, MM, Inches)
	}
	return ClosestAllowedThickness(value, unit)
}

// NormalizeThicknessToInches treats any value above 10 as millimeters, whatever unit
// says, and everything else as inches. The result is rounded to three decimals.
func NormalizeThicknessToInches(value float64, _ Unit) float64 {
	inches := value
	if value > mmHeuristicThreshold {
		inches = value / mmPerInch
	}
	scaled := float64(inches * 1000)
	rounded := math.Floor(scaled)
	if scaled-rounded >= 0.5 {
		rounded++
	}
	return rounded / 1000
}

func allowedFor(unit Unit) []float64 {
	if unit == MM {
		return allowedMM
	}
	return allowedInches
}

func usable(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
