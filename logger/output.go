package logger

// Output controls what categories of information are shown at each verbosity level.
//
// Unlike log levels (which filter by severity), output categories control
// WHAT types of information are displayed regardless of severity.
//
//	0 (default) - results, errors with hints, final status
//	1 (-v)      - + page progress, run summary, skipped ids
//	2 (-vv)     - + timing, config loaded, variant attempts
//	3 (-vvv)    - + SQL queries, per-record outcomes
//	4 (-vvvv)   - + full parse tree dumps

// OutputCategory defines a category of output that can be enabled/disabled
type OutputCategory int

const (
	// Level 0 (default) - Always shown
	OutputResults    OutputCategory = iota // Parse results, reports
	OutputErrors                           // Errors with hints
	OutputUserStatus                       // Final success/failure status

	// Level 1 (-v) - Informational
	OutputProgress // Page progress ("page 12 written, 1000 records")
	OutputSummary  // Run summaries and partition counts
	OutputSkipped  // Allow-listed ids skipped before parsing

	// Level 2 (-vv) - Detailed
	OutputTiming   // Page and run timing
	OutputConfig   // Config values loaded/applied
	OutputVariants // Which variant matched, which were tried

	// Level 3 (-vvv) - Debug
	OutputSQLQueries // Individual SQL queries executed
	OutputRecords    // One line per record outcome

	// Level 4 (-vvvv) - Full dump
	OutputParseTree // Full facet/volume/dimension trees
)

// categoryLevels maps each output category to its minimum verbosity level
var categoryLevels = map[OutputCategory]int{
	OutputResults:    VerbosityUser,
	OutputErrors:     VerbosityUser,
	OutputUserStatus: VerbosityUser,

	OutputProgress: VerbosityInfo,
	OutputSummary:  VerbosityInfo,
	OutputSkipped:  VerbosityInfo,

	OutputTiming:   VerbosityDebug,
	OutputConfig:   VerbosityDebug,
	OutputVariants: VerbosityDebug,

	OutputSQLQueries: VerbosityTrace,
	OutputRecords:    VerbosityTrace,

	OutputParseTree: VerbosityAll,
}

// ShouldOutput returns true if the given category should be shown at the given verbosity
func ShouldOutput(verbosity int, category OutputCategory) bool {
	minLevel, ok := categoryLevels[category]
	if !ok {
		// Unknown category, default to highest verbosity required
		return verbosity >= VerbosityAll
	}
	return verbosity >= minLevel
}

var categoryNames = map[OutputCategory]string{
	OutputResults:    "results",
	OutputErrors:     "errors",
	OutputUserStatus: "status",
	OutputProgress:   "progress",
	OutputSummary:    "summary",
	OutputSkipped:    "skipped",
	OutputTiming:     "timing",
	OutputConfig:     "config",
	OutputVariants:   "variants",
	OutputSQLQueries: "sql",
	OutputRecords:    "records",
	OutputParseTree:  "parse-tree",
}

// CategoryName returns the human-readable name for an output category
func CategoryName(category OutputCategory) string {
	if name, ok := categoryNames[category]; ok {
		return name
	}
	return "unknown"
}
