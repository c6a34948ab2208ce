package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/statuspage/internal/config"
	"github.com/rileyhilliard/statuspage/internal/errors"
)

// Global flags
var (
	cfgFile string

	// settings merges defaults, the config file, STATUSPAGE_* variables and
	// the persistent flags bound in init.
	settings = config.NewViper()
)

// rootCmd runs the dashboard when no subcommand is given.
var rootCmd = &cobra.Command{
	Use:   "statuspage",
	Short: "Terminal dashboard for canary-checker style health checks",
	Long: `statuspage polls a health-check backend for its aggregate snapshot and
shows every check, grouped by namespace, with a status strip per server.

Run without a subcommand to open the interactive dashboard. The other
commands print the same data for scripts, trigger checks and inspect
Prometheus graphs.

Examples:
  statuspage
  statuspage --backend http://canary:8080 --base-path /canary/api
  statuspage checks --server east@10.0.0.1 --json
  statuspage trigger --check 1a2b3c --all`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return dashboardCommand(cmd.Context())
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default ./.statuspage.yaml or ~/.config/statuspage/config.yaml)")
	pf.BoolVar(&machineMode, "json", false, "machine-readable JSON output")
	addSettingFlags(pf)

	if err := bindSettingFlags(settings, pf); err != nil {
		panic(err)
	}
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	switch {
	case machineMode:
		_ = WriteJSONFromError(os.Stdout, err)
	case isUnknownCommandError(err):
		if name := extractUnknownCommand(err); name != "" {
			fmt.Fprintf(os.Stderr, "✗ Unknown command %q\n\n  Run 'statuspage --help' to see what's available.\n", name)
		} else {
			fmt.Fprintf(os.Stderr, "✗ %v\n\n  Run 'statuspage --help' for usage.\n", err)
		}
	default:
		msg := err.Error()
		if !strings.HasPrefix(msg, "✗") {
			msg = "✗ " + msg
		}
		fmt.Fprintln(os.Stderr, strings.TrimRight(msg, "\n"))
	}
	os.Exit(exitCode(err))
}

// Exit codes: 2 for bad usage, 3 when the backend can't be reached, 1 otherwise.
const (
	exitFailure     = 1
	exitUsage       = 2
	exitUnreachable = 3
)

func exitCode(err error) int {
	if isUnknownCommandError(err) {
		return exitUsage
	}
	switch errors.CodeOf(err) {
	case errors.ErrInput:
		return exitUsage
	case errors.ErrConnect:
		return exitUnreachable
	}
	return exitFailure
}

// isUnknownCommandError reports cobra's unknown command and flag errors.
func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag")
}

// extractUnknownCommand pulls the quoted name out of
// `unknown command "foo" for "statuspage"`.
func extractUnknownCommand(err error) string {
	msg := err.Error()
	start := strings.Index(msg, `"`)
	if start < 0 {
		return ""
	}
	end := strings.Index(msg[start+1:], `"`)
	if end < 0 {
		return ""
	}
	return msg[start+1 : start+1+end]
}
