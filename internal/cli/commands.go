package cli

import (
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/statuspage/internal/errors"
)

// Command-specific flags
var (
	checksServerFlag   string
	triggerCheckFlag   string
	triggerServerFlag  string
	triggerAllFlag     bool
	graphCheckFlag     string
	graphTypeFlag      string
	graphCanaryFlag    string
	graphTimeframeFlag string
	configInitForce    bool
)

// dashboardCmd opens the interactive dashboard
var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open the interactive status dashboard",
	Long: `Open the full-screen status dashboard.

The snapshot refreshes every refresh_interval. When stdout is not a
terminal a one-shot checks table is printed instead.

Keys:
  q quit, r refresh, p pause auto refresh, t trigger, T trigger everywhere,
  tab next server, enter history, g graph, ? help`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return dashboardCommand(cmd.Context())
	},
}

// checksCmd prints the grouped checks table
var checksCmd = &cobra.Command{
	Use:   "checks",
	Short: "List checks grouped by namespace",
	Long: `Fetch the aggregate snapshot and print one row per check group with its
latest status on a server.

Examples:
  statuspage checks
  statuspage checks --server east
  statuspage checks --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return checksCommand(cmd.Context(), cmd.OutOrStdout(), checksServerFlag)
	},
}

// serversCmd prints the server picklist
var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "List the servers checks run on",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serversCommand(cmd.Context(), cmd.OutOrStdout())
	},
}

// triggerCmd re-runs a check
var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Re-run a check now",
	Long: `Ask the backend to re-run a check on one server, or on every server it
has run on, then refetch the snapshot.

Without --server or --all you're asked to pick a server when running in a
terminal.

Examples:
  statuspage trigger --check 1a2b3c --server east
  statuspage trigger --check 1a2b3c --all`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return triggerCommand(cmd.Context(), cmd.OutOrStdout(), triggerCheckFlag, triggerServerFlag, triggerAllFlag)
	},
}

// graphCmd prints the Prometheus series of a check
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Show success, failure and latency history of a check",
	Long: `Fetch the Prometheus graph of a check and draw each series as a sparkline.

--type and --canary default to the values in the current snapshot.

Examples:
  statuspage graph --check 1a2b3c
  statuspage graph --check 1a2b3c --timeframe 1d`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return graphCommand(cmd.Context(), cmd.OutOrStdout(), graphOptions{
			CheckKey:   graphCheckFlag,
			CheckType:  graphTypeFlag,
			CanaryName: graphCanaryFlag,
			Timeframe:  graphTimeframeFlag,
		})
	},
}

// formatCmd runs a metric adapter over raw JSON
var formatCmd = &cobra.Command{
	Use:   "format <kind> [file]",
	Short: "Convert raw monitoring objects into display components",
	Long: `Read a JSON array of raw objects from a file or stdin and print them the
way the dashboard's custom checks show them.

Kinds:
  k8s-conditions      any objects with status.conditions
  k8s-node-metrics    metrics.k8s.io NodeMetrics
  k8s-node-topology   core/v1 Nodes
  k8s-alerts          firing Prometheus alert label sets
  elastic-indices     Elasticsearch index stats
  elastic-nodes       Elasticsearch node stats

Examples:
  kubectl get nodes -o json | jq .items | statuspage format k8s-node-topology
  statuspage format elastic-indices indices.json --json`,
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: formatKinds(),
	RunE: func(cmd *cobra.Command, args []string) error {
		file := ""
		if len(args) > 1 {
			file = args[1]
		}
		return formatCommand(cmd.InOrStdin(), cmd.OutOrStdout(), args[0], file)
	},
}

// configCmd groups config file helpers
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Create, show or edit the config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a config file with the current settings",
	Long: `Write the effective settings (defaults, environment and flags) to a
config file. The default path is ./.statuspage.yaml.

Examples:
  statuspage config init
  statuspage --backend http://canary:8080 config init ~/.config/statuspage/config.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) > 0 {
			path = args[0]
		}
		return configInitCommand(cmd.OutOrStdout(), path, configInitForce)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowCommand(cmd.OutOrStdout())
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one key in the config file, keeping comments",
	Long: `Set a dotted key in the config file in place.

Examples:
  statuspage config set server http://canary:8080
  statuspage config set bars.max_height 30`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return configSetCommand(cmd.OutOrStdout(), args[0], args[1])
	},
}

// completionCmd generates shell completion scripts
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for statuspage.

To load completions:

Bash:
  $ source <(statuspage completion bash)

Zsh:
  $ statuspage completion zsh > "${fpath[1]}/_statuspage"

Fish:
  $ statuspage completion fish | source

PowerShell:
  PS> statuspage completion powershell | Out-String | Invoke-Expression`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(out)
		case "zsh":
			return rootCmd.GenZshCompletion(out)
		case "fish":
			return rootCmd.GenFishCompletion(out, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(out)
		default:
			return errors.New(errors.ErrInput,
				"Unknown shell: "+args[0],
				"Supported shells: bash, zsh, fish, powershell")
		}
	},
}

func init() {
	// checks command flags
	checksCmd.Flags().StringVar(&checksServerFlag, "server", "", "server to show statuses for (label or full name)")

	// trigger command flags
	triggerCmd.Flags().StringVar(&triggerCheckFlag, "check", "", "check key")
	triggerCmd.Flags().StringVar(&triggerServerFlag, "server", "", "server to trigger on (label or full name)")
	triggerCmd.Flags().BoolVar(&triggerAllFlag, "all", false, "trigger on every server the check ran on")
	_ = triggerCmd.MarkFlagRequired("check")
	triggerCmd.MarkFlagsMutuallyExclusive("server", "all")

	// graph command flags
	graphCmd.Flags().StringVar(&graphCheckFlag, "check", "", "check key")
	graphCmd.Flags().StringVar(&graphTypeFlag, "type", "", "check type (default from the snapshot)")
	graphCmd.Flags().StringVar(&graphCanaryFlag, "canary", "", "canary name (default from the snapshot)")
	graphCmd.Flags().StringVar(&graphTimeframeFlag, "timeframe", "1h", "window: 1h, 3h, 6h, 12h, 1d, 3d, 1w")
	_ = graphCmd.MarkFlagRequired("check")

	// config command flags
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)

	// Register all commands
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(checksCmd)
	rootCmd.AddCommand(serversCmd)
	rootCmd.AddCommand(triggerCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(formatCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(completionCmd)
}
