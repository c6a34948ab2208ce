// Package cli implements the statuspage command-line interface.
//
// Every command is a package-level cobra.Command registered in init. The
// root command opens the dashboard; the others print the same snapshot for
// scripts:
//
//	statuspage                     - interactive dashboard
//	statuspage checks [--server]   - grouped checks table
//	statuspage servers             - server picklist
//	statuspage trigger --check KEY - re-run a check
//	statuspage graph --check KEY   - Prometheus history sparklines
//	statuspage format <kind>       - run a metric adapter over raw JSON
//	statuspage config init|show|set
//
// # Settings
//
// Persistent flags (--backend, --base-path, --refresh-interval, ...) are
// bound onto a viper instance shared with the config file and the
// STATUSPAGE_* environment. Flags win, then environment, then the file,
// then defaults.
//
// # Output
//
// With --json every command writes a JSONEnvelope to stdout, including
// failures, so automation can branch on the error code.
package cli
