package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tabrown76/Aramark-Scripts/internal/db"
	"github.com/tabrown76/Aramark-Scripts/internal/defaults"
)

// RulesCmd prints the effective pricing section.
func RulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the effective pricing rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := ServerConfig.Pricing
			if _, err := p.Rules(); err != nil {
				return err
			}
			out, err := yaml.Marshal(map[string]any{
				"pricing": p,
				"levels": map[string]string{
					"concert": ServerConfig.Levels.Concert,
					"default": ServerConfig.Levels.Default,
				},
			})
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}
}

// RunsCmd lists recent runs from the history database.
func RunsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ServerConfig.Database.Path
			if path == "" {
				var err error
				if path, err = defaults.DatabasePath(); err != nil {
					return err
				}
			}
			store, err := db.NewSQLite(path)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tAUTOMATION\tMODE\tTRIGGER\tUPDATED\tSET\tFAILED\tERROR")
			for _, r := range runs {
				mode := r.Mode.String()
				if r.DryRun {
					mode += " (dry)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
					r.StartedAt.Local().Format(time.DateTime), r.Automation, mode, r.Trigger,
					r.Updated, r.Converged, r.Failed, r.Error)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}

// InitCmd writes the default config to the data directory.
func InitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config file to the data directory",
		// The config may not exist or validate yet.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := defaults.WriteConfig(embeddedYAML, force)
			if err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}
