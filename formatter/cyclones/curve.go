// Package cyclones fits windspeed-to-mortality curves from empirical
// observations and applies them to stochastic cyclone scenario cubes.
package cyclones

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/reefworks/domaingen/formatter"
)

// logitEps keeps the logistic transform finite at mortality 0 and 1.
const logitEps = 1e-7

// Stratum identifies one morphology/depth regression stratum.
type Stratum string

const (
	ShallowBranching Stratum = "shallow_branching"
	DeepBranching    Stratum = "deep_branching"
	Massive          Stratum = "massive"
)

// Strata lists the strata in output order.
func Strata() []Stratum {
	return []Stratum{ShallowBranching, DeepBranching, Massive}
}

// Observation is one empirical record of cyclone impact on a coral
// assemblage.
type Observation struct {
	// Morphology is "branching" or "massive".
	Morphology string
	// Depth is the observation depth in metres, negative below surface.
	Depth float64
	// Windspeed is the storm windspeed in m/s.
	Windspeed float64
	// CoverChange is the percentage-point change in coral cover. Losses
	// are negative.
	CoverChange float64
}

// Mortality derives the mortality fraction from the cover change. Cover
// gains never yield negative mortality.
func (o Observation) Mortality() float64 {
	return math.Max(0, -o.CoverChange/100)
}

// Curve is a fitted windspeed-to-mortality function. Branching strata are
// fitted in logit space and inverted on prediction; the massive stratum is
// fitted on raw mortality.
type Curve struct {
	Alpha float64
	Beta  float64
	Logit bool
	N     int
}

// Predict evaluates the curve, clamped to [0, 1]. Negative windspeeds
// denote no storm and predict zero mortality.
func (c Curve) Predict(windspeed float64) float64 {
	if windspeed < 0 {
		return 0
	}
	z := c.Alpha + c.Beta*windspeed
	m := z
	if c.Logit {
		// Inverse of g(m) = ln(m/(1-m) + eps).
		r := math.Exp(z) - logitEps
		m = r / (1 + r)
	}
	return math.Min(1, math.Max(0, m))
}

// logit applies the bounded logistic transform used for branching strata.
func logit(m float64) float64 {
	return math.Log(m/(1-m) + logitEps)
}

// Fit fits one stratum's curve by ordinary least squares on (windspeed,
// mortality) pairs. Fewer than two observations cannot determine a line.
func Fit(stratum Stratum, obs []Observation) (Curve, error) {
	if len(obs) < 2 {
		return Curve{}, &formatter.InsufficientDataError{Stratum: string(stratum), N: len(obs)}
	}

	useLogit := stratum != Massive
	xs := make([]float64, len(obs))
	ys := make([]float64, len(obs))
	for i, o := range obs {
		xs[i] = o.Windspeed
		m := o.Mortality()
		if useLogit {
			// Mortality of exactly 1 would make the transform's argument
			// infinite; back it off by the same epsilon.
			if m >= 1 {
				m = 1 - logitEps
			}
			ys[i] = logit(m)
		} else {
			ys[i] = m
		}
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	return Curve{Alpha: alpha, Beta: beta, Logit: useLogit, N: len(obs)}, nil
}

// FitAll partitions observations into the three strata by morphology and
// the depth threshold, then fits a curve per stratum. depthThreshold is in
// metres below surface; an observation shallower than the threshold joins
// the shallow stratum.
func FitAll(obs []Observation, depthThreshold float64) (map[Stratum]Curve, error) {
	parts := map[Stratum][]Observation{}
	for _, o := range obs {
		parts[Classify(o.Morphology, o.Depth, depthThreshold)] = append(
			parts[Classify(o.Morphology, o.Depth, depthThreshold)], o)
	}

	curves := make(map[Stratum]Curve, 3)
	for _, s := range Strata() {
		c, err := Fit(s, parts[s])
		if err != nil {
			return nil, err
		}
		curves[s] = c
	}
	return curves, nil
}

// Classify assigns a morphology and depth to a stratum. Depths are
// negative below surface, so a location at -3 m with a 5 m threshold is
// shallow.
func Classify(morphology string, depth, depthThreshold float64) Stratum {
	if morphology == "massive" {
		return Massive
	}
	if -depth <= depthThreshold {
		return ShallowBranching
	}
	return DeepBranching
}
