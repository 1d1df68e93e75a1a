// Package sym defines canonical symbols for measure commands and log output.
// These symbols are stable across CLI help text, logs and reports.
package sym

// Command symbols, one per top-level CLI command.
const (
	AM     = "≡" // am: configuration and system settings
	Run    = "⟳" // run: paged batch pipeline
	Parse  = "⋈" // parse: resolve a single measurement string
	Check  = "✓" // check: sample harness against the grammar
	Import = "⨳" // import: load records into the local catalogue
	Report = "⊞" // report: partition written pages into reports
)

// System infrastructure symbols.
const (
	DB      = "⊔" // database/storage layer
	Page    = "▤" // one written page of flattened rows
	Grammar = "∷" // grammar cascade and variants
	Anomaly = "⚑" // parsed with a suspicious shape
	Failure = "✗" // no variant matched
)

// SymbolToCommand maps glyph strings to their text command equivalents.
var SymbolToCommand = map[string]string{
	AM:     "am",
	Run:    "run",
	Parse:  "parse",
	Check:  "check",
	Import: "import",
	Report: "report",
}

// CommandToSymbol maps text commands to their canonical glyph strings.
var CommandToSymbol = map[string]string{
	"am":     AM,
	"run":    Run,
	"parse":  Parse,
	"check":  Check,
	"import": Import,
	"report": Report,
}

// CommandDescriptions provides one-line explanations used in help text.
var CommandDescriptions = map[string]string{
	"am":     "Configuration: show or initialise settings",
	"run":    "Pipeline: page through records and write reports",
	"parse":  "Parse: resolve one measurement string",
	"check":  "Check: verify sample strings against the grammar",
	"import": "Import: load (id, text) records into the catalogue",
	"report": "Report: partition a run's pages into reports",
}
