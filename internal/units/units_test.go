package units

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToInches(t *testing.T) {
	assert.InDelta(t, 1.0, ToInches(25.4, MM), 1e-12)
	assert.Equal(t, 3.0, ToInches(3, Inches))
	assert.InDelta(t, -1.0, ToInches(-25.4, MM), 1e-12)
	assert.Equal(t, 0.0, ToInches(0, MM))
	assert.Equal(t, 7.0, ToInches(7, Unit("cm")), "unknown units pass through as inches")
}

func TestAllowedThicknessesIsACopy(t *testing.T) {
	got := AllowedThicknesses(Inches)
	got[0] = 99

	assert.Equal(t, []float64{0.5, 1.0, 1.25, 2.0}, AllowedThicknesses(Inches))
	assert.Equal(t, []float64{12.7, 25.4, 31.75, 50.8}, AllowedThicknesses(MM))
}

func TestIsAllowedThickness(t *testing.T) {
	assert.True(t, IsAllowedThickness(1.25, Inches))
	assert.True(t, IsAllowedThickness(1.2505, Inches))
	assert.False(t, IsAllowedThickness(1.26, Inches))
	assert.True(t, IsAllowedThickness(31.75, MM))
	assert.False(t, IsAllowedThickness(20, MM), "mm default is not an allowed thickness")
	assert.False(t, IsAllowedThickness(1.25, MM))
}

func TestClosestAllowedThicknessTiesPreferThinner(t *testing.T) {
	cases := []struct {
		value float64
		unit  Unit
		want  float64
	}{
		{0.75, Inches, 0.5},
		{1.125, Inches, 1.0},
		{1.625, Inches, 1.25},
		{0.1, Inches, 0.5},
		{9, Inches, 2.0},
		{1.9, Inches, 2.0},
		{26, MM, 25.4},
		{1000, MM, 50.8},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClosestAllowedThickness(tc.value, tc.unit), "value=%v unit=%s", tc.value, tc.unit)
	}
}

func TestCoerceThicknessBetweenUnits(t *testing.T) {
	assert.Equal(t, 1.25, CoerceThicknessBetweenUnits(0, MM, Inches))
	assert.Equal(t, 20.0, CoerceThicknessBetweenUnits(-1, Inches, MM))
	assert.Equal(t, 1.25, CoerceThicknessBetweenUnits(math.NaN(), MM, Inches))
	assert.Equal(t, 20.0, CoerceThicknessBetweenUnits(math.Inf(1), Inches, MM))

	assert.Equal(t, 1.0, CoerceThicknessBetweenUnits(25.4, MM, Inches))
	assert.Equal(t, 31.75, CoerceThicknessBetweenUnits(1.25, Inches, MM))
	assert.Equal(t, 1.0, CoerceThicknessBetweenUnits(20, MM, Inches))
	assert.Equal(t, 50.8, CoerceThicknessBetweenUnits(3, Inches, MM))
	assert.Equal(t, 0.5, CoerceThicknessBetweenUnits(0.6, Inches, Inches))
}

func TestCoerceThicknessFromPersisted(t *testing.T) {
	cases := []struct {
		name  string
		value float64
		unit  Unit
		want  float64
	}{
		{"allowed value is kept", 12.7, MM, 12.7},
		{"allowed inches kept", 2.0, Inches, 2.0},
		{"mm value tagged inches", 25.4, Inches, 1.0},
		{"inch value tagged mm", 1.25, MM, 31.75},
		{"large inches assumed mm", 20, Inches, 1.0},
		{"small mm assumed inches", 3, MM, 50.8},
		{"mm in range snaps", 8, MM, 12.7},
		{"inches in range snaps", 0.6, Inches, 0.5},
		{"zero falls back to default", 0, MM, 20},
		{"negative falls back to default", -2, Inches, 1.25},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CoerceThicknessFromPersisted(tc.value, tc.unit))
		})
	}
}

func TestNormalizeThicknessToInchesIgnoresUnitTag(t *testing.T) {
	assert.Equal(t, 0.472, NormalizeThicknessToInches(12, Inches))
	assert.Equal(t, 0.472, NormalizeThicknessToInches(12, MM))
	assert.Equal(t, 5.0, NormalizeThicknessToInches(5, MM))
	assert.Equal(t, 1.25, NormalizeThicknessToInches(1.25, Inches))
	assert.Equal(t, 1.0, NormalizeThicknessToInches(25.4, MM))
	assert.Equal(t, 10.0, NormalizeThicknessToInches(10, Inches))
	assert.Equal(t, 0.0, NormalizeThicknessToInches(0, Inches))
}

func TestNormalizeThicknessToInchesDoesNotCarryPastHalf(t *testing.T) {
	// 1.2e14 mm scales to an odd integer above 2^52 thousandths; adding 0.5 there
	// would round up to the next even integer.
	assert.Equal(t, 4724409448818.897, NormalizeThicknessToInches(1.2e14, MM))
}
