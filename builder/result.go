package builder

// Status is the overall verdict of one build invocation.
type Status string

const (
	// StatusSuccess means every declared output was produced.
	StatusSuccess Status = "success"
	// StatusPartial means at least one output failed but the build
	// completed; the manifest covers only the successes.
	StatusPartial Status = "partial"
	// StatusFatal means the build aborted before attempting all outputs,
	// typically on a destination collision or source-resolution failure.
	StatusFatal Status = "fatal"
)

// OutputResult is the outcome of one declared output.
type OutputResult struct {
	Name      string
	Formatter string
	Filename  string
	Err       error
}

// OK reports whether the output was produced.
func (r OutputResult) OK() bool { return r.Err == nil }

// BuildResult is the aggregated outcome of a build.
type BuildResult struct {
	Status Status
	// Dir is the domain package directory. Set even on fatal failures
	// that occur after directory creation, since earlier outputs' files
	// are left on disk rather than rolled back.
	Dir     string
	Outputs []OutputResult
	// Err carries the fatal error when Status is StatusFatal.
	Err error
}

// Failures returns the failed outputs.
func (r *BuildResult) Failures() []OutputResult {
	var out []OutputResult
	for _, o := range r.Outputs {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}
