// Package dhw standardizes degree-heating-week projections: merging
// per-model NetCDF files and regrouping reef-engine CSVs into one cube per
// representative concentration pathway.
package dhw

import (
	"fmt"
	"strconv"
	"strings"
)

// refYear is the epoch of the time axis in source NetCDF files, counted in
// days with 365-day years.
const refYear = 1950

// rcpSSP maps an RCP label to the shared-socioeconomic-pathway token used
// in source file names.
var rcpSSP = map[string]string{
	"2.6": "ssp126",
	"4.5": "ssp245",
	"7.0": "ssp370",
	"8.5": "ssp585",
}

// rcpFn maps an RCP label to its output file-name suffix.
var rcpFn = map[string]string{
	"2.6": "26",
	"4.5": "45",
	"7.0": "70",
	"8.5": "85",
}

// rcpMatch lists the file-name substrings identifying each RCP's CSVs.
var rcpMatch = map[string][]string{
	"2.6": {"126", "SSP126"},
	"4.5": {"245", "SSP245"},
	"7.0": {"370", "SSP370"},
	"8.5": {"585", "SSP585"},
}

// outputName is the per-RCP artifact file name, dhwRCP26.nc and so on.
func outputName(rcp string) string {
	fn, ok := rcpFn[rcp]
	if !ok {
		fn = strings.ReplaceAll(rcp, ".", "")
	}
	return "dhwRCP" + fn + ".nc"
}

// Timeframe is an inclusive year range.
type Timeframe struct {
	Start int
	End   int
}

// Years returns the number of years covered.
func (t Timeframe) Years() int { return t.End - t.Start + 1 }

// ParseTimeframe parses a "YYYY YYYY" option value.
func ParseTimeframe(s string) (Timeframe, error) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return Timeframe{}, fmt.Errorf("invalid timeframe %q: expected \"YYYY YYYY\"", s)
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return Timeframe{}, fmt.Errorf("invalid timeframe %q: %w", s, err)
	}
	end, err := strconv.Atoi(parts[1])
	if err != nil {
		return Timeframe{}, fmt.Errorf("invalid timeframe %q: %w", s, err)
	}
	if end < start {
		return Timeframe{}, fmt.Errorf("invalid timeframe %q: end before start", s)
	}
	return Timeframe{Start: start, End: end}, nil
}

// timeIndex converts a requested timeframe to index bounds on a file's
// time axis, given the axis in days since the reference year with 365-day
// years. Both bounds are inclusive.
func timeIndex(days []float64, tf Timeframe) (int, int, error) {
	if len(days) == 0 {
		return 0, 0, fmt.Errorf("empty time axis")
	}
	startYear := refYear + int(days[0]/365+0.5)
	endYear := refYear + int(days[len(days)-1]/365+0.5)

	if tf.Start < startYear || tf.End > endYear {
		return 0, 0, fmt.Errorf("requested timeframe %d-%d outside file's %d-%d",
			tf.Start, tf.End, startYear, endYear)
	}
	return tf.Start - startYear, tf.End - startYear, nil
}

// yearRange lists the years of a timeframe as int32 for the output's
// timesteps variable.
func yearRange(tf Timeframe) []int32 {
	out := make([]int32, tf.Years())
	for i := range out {
		out[i] = int32(tf.Start + i)
	}
	return out
}
