package ui

// Unicode symbols for status indicators.
const (
	SymbolSuccess  = "✓" // Check passing
	SymbolFail     = "✗" // Check failing
	SymbolPending  = "○" // Check never ran on the server
	SymbolProgress = "◐" // Request in flight
	SymbolPaused   = "⏸" // Auto refresh off
)

// StatusSymbol picks the passing or failing symbol.
func StatusSymbol(pass bool) string {
	if pass {
		return SymbolSuccess
	}
	return SymbolFail
}
