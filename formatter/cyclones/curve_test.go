package cyclones

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reefworks/domaingen/formatter"
)

func TestObservationMortality(t *testing.T) {
	assert.InDelta(t, 0.35, Observation{CoverChange: -35}.Mortality(), 1e-12)
	// Cover gains never count as negative mortality.
	assert.Zero(t, Observation{CoverChange: 12}.Mortality())
}

func TestClassify(t *testing.T) {
	assert.Equal(t, Massive, Classify("massive", -30, 5))
	assert.Equal(t, ShallowBranching, Classify("branching", -3, 5))
	assert.Equal(t, DeepBranching, Classify("branching", -12, 5))
	assert.Equal(t, ShallowBranching, Classify("branching", -5, 5))
}

func TestCategoryWindspeed(t *testing.T) {
	s, err := CategoryWindspeed(0)
	require.NoError(t, err)
	assert.Zero(t, s)

	s, err = CategoryWindspeed(1)
	require.NoError(t, err)
	assert.InDelta(t, 37.5, s, 1e-12)

	s, err = CategoryWindspeed(5)
	require.NoError(t, err)
	assert.InDelta(t, 77.5, s, 1e-12)

	for _, bad := range []int{-1, 6, 99} {
		_, err := CategoryWindspeed(bad)
		var catErr *formatter.UnknownCategoryError
		require.ErrorAs(t, err, &catErr)
		assert.Equal(t, bad, catErr.Value)
	}
}

func TestFitInsufficientData(t *testing.T) {
	_, err := Fit(Massive, []Observation{{Windspeed: 30, CoverChange: -10}})
	var insErr *formatter.InsufficientDataError
	require.ErrorAs(t, err, &insErr)
	assert.Equal(t, string(Massive), insErr.Stratum)
	assert.Equal(t, 1, insErr.N)
	assert.True(t, formatter.IsDataIntegrity(err))
}

func TestFitMassiveRecoversLine(t *testing.T) {
	// Mortality rises linearly with windspeed: m = 0.01 * speed.
	obs := []Observation{
		{Windspeed: 10, CoverChange: -10},
		{Windspeed: 30, CoverChange: -30},
		{Windspeed: 50, CoverChange: -50},
	}
	c, err := Fit(Massive, obs)
	require.NoError(t, err)
	assert.False(t, c.Logit)
	assert.InDelta(t, 0.2, c.Predict(20), 1e-9)
	assert.InDelta(t, 0.4, c.Predict(40), 1e-9)
}

func TestPredictBounds(t *testing.T) {
	obs := []Observation{
		{Windspeed: 20, CoverChange: -5},
		{Windspeed: 40, CoverChange: -30},
		{Windspeed: 60, CoverChange: -70},
		{Windspeed: 80, CoverChange: -95},
	}
	for _, stratum := range Strata() {
		c, err := Fit(stratum, obs)
		require.NoError(t, err)
		for speed := 0.0; speed <= 100; speed++ {
			m := c.Predict(speed)
			assert.GreaterOrEqual(t, m, 0.0, "stratum %s speed %g", stratum, speed)
			assert.LessOrEqual(t, m, 1.0, "stratum %s speed %g", stratum, speed)
		}
	}
}

func TestPredictNegativeWindspeed(t *testing.T) {
	c := Curve{Alpha: 0.5, Beta: 0.01}
	assert.Zero(t, c.Predict(-10))
}

func TestFitLogitHandlesTotalMortality(t *testing.T) {
	obs := []Observation{
		{Windspeed: 50, CoverChange: -100},
		{Windspeed: 80, CoverChange: -100},
	}
	c, err := Fit(ShallowBranching, obs)
	require.NoError(t, err)
	m := c.Predict(60)
	assert.False(t, m < 0 || m > 1)
}

func TestFitAllPartitionsByStratum(t *testing.T) {
	obs := []Observation{
		{Morphology: "branching", Depth: -2, Windspeed: 20, CoverChange: -10},
		{Morphology: "branching", Depth: -3, Windspeed: 60, CoverChange: -60},
		{Morphology: "branching", Depth: -15, Windspeed: 20, CoverChange: -5},
		{Morphology: "branching", Depth: -20, Windspeed: 60, CoverChange: -30},
		{Morphology: "massive", Depth: -2, Windspeed: 20, CoverChange: -2},
		{Morphology: "massive", Depth: -20, Windspeed: 60, CoverChange: -20},
	}
	curves, err := FitAll(obs, 5)
	require.NoError(t, err)
	require.Len(t, curves, 3)
	assert.True(t, curves[ShallowBranching].Logit)
	assert.True(t, curves[DeepBranching].Logit)
	assert.False(t, curves[Massive].Logit)
	for _, s := range Strata() {
		assert.Equal(t, 2, curves[s].N)
	}
}

func TestFitAllMissingStratum(t *testing.T) {
	obs := []Observation{
		{Morphology: "branching", Depth: -2, Windspeed: 20, CoverChange: -10},
		{Morphology: "branching", Depth: -3, Windspeed: 60, CoverChange: -60},
	}
	_, err := FitAll(obs, 5)
	var insErr *formatter.InsufficientDataError
	require.ErrorAs(t, err, &insErr)
}
