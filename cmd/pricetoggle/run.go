package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tabrown76/Aramark-Scripts/internal/automation"
	"github.com/tabrown76/Aramark-Scripts/internal/pricing"
)

// AutomationCmd runs one automation from the terminal.
func AutomationCmd(name, short string) *cobra.Command {
	var concert, normal bool
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		Example: fmt.Sprintf("  pricetoggle %s --concert\n  pricetoggle %s --normal --dry-run", name, name),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			svcCtx, err := newServiceContext()
			if err != nil {
				return err
			}
			defer svcCtx.Close()

			report, err := svcCtx.Runner.Run(ctx, name, pricing.ModeFor(concert), "cli")
			if report != nil {
				printReport(report)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&concert, "concert", false, "apply concert (surge) pricing")
	cmd.Flags().BoolVar(&normal, "normal", false, "restore normal pricing")
	cmd.MarkFlagsMutuallyExclusive("concert", "normal")
	cmd.MarkFlagsOneRequired("concert", "normal")
	return cmd
}

func printReport(r *automation.Report) {
	fmt.Println()
	fmt.Println(r.Summary())
	if len(r.Units) == 0 {
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "UNIT\tSTATUS\tDETAIL")
	for _, u := range r.Units {
		detail := u.Error
		if detail == "" && len(u.Changes) > 0 {
			detail = fmt.Sprintf("%d change(s)", len(u.Changes))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", u.ID, u.Status, detail)
		if verbose {
			for _, c := range u.Changes {
				fmt.Fprintf(tw, "\t\t  %s: %s -> %s\n", c.Name, c.From, c.To)
			}
		}
	}
	tw.Flush()
}
