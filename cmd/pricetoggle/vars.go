package cli

import (
	"github.com/spf13/cobra"

	"github.com/tabrown76/Aramark-Scripts/internal/config"
)

// Shared CLI flags (used across multiple command files)
var (
	cfgFile   string
	verbose   bool
	headless  bool
	driverArg string
	dryRun    bool
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// ServerConfig holds the loaded configuration. main sets the embedded
// defaults; PersistentPreRunE layers the config file and flags on top.
var ServerConfig *config.Config

// configPath is the file the active config was loaded from, if any.
var configPath string

// embeddedYAML is the default config, written out by `pricetoggle init`.
var embeddedYAML []byte

// embeddedConfig is the decoded embedded config every file is layered over.
var embeddedConfig config.Config

// SetupRootCmd configures the root command with all subcommands and flags
func SetupRootCmd(c *config.Config, defaultYAML []byte) *cobra.Command {
	ServerConfig = c
	embeddedConfig = *c
	embeddedYAML = defaultYAML

	rootCmd := &cobra.Command{
		Use:   "pricetoggle",
		Short: "Concert pricing toggles for the menu and vendor portals",
		Long: `pricetoggle switches the JPJ menu portal and the Appetize vendor portal
between concert (surge) and normal pricing.

Just type 'pricetoggle' to start the toggle page on http://localhost:3000.
Use 'pricetoggle menus --concert' or 'pricetoggle levels --normal' to run
one automation from the terminal.`,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), false)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: platform data directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", false, "run the browser without a window")
	rootCmd.PersistentFlags().StringVar(&driverArg, "driver", "", "browser driver: chromedp or playwright")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "compute and log changes without saving them")

	rootCmd.AddCommand(ServeCmd())
	rootCmd.AddCommand(AutomationCmd("menus", "Set every JPJ menu tab to concert or normal prices"))
	rootCmd.AddCommand(AutomationCmd("levels", "Set the active price level of the JPJ vendors"))
	rootCmd.AddCommand(CredsCmd())
	rootCmd.AddCommand(RulesCmd())
	rootCmd.AddCommand(RunsCmd())
	rootCmd.AddCommand(InitCmd())

	return rootCmd
}
