package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/davell/repopatch/internal/resolve"
)

var applySource string

var applyCmd = &cobra.Command{
	Use:   "apply <patch-file>",
	Short: "Apply a unified diff on the server",
	Long: `Apply a unified diff to a remote source's directory on the server.

Only remote sources can be applied to; local sources are read-only
snapshots. Use '-' to read the patch from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return applyRun(args[0])
	},
}

func init() {
	applyCmd.Flags().StringVarP(&applySource, "source", "s", "", "Source to apply against (default: selection)")
	rootCmd.AddCommand(applyCmd)
}

func applyRun(patchPath string) error {
	ctx := context.Background()
	s, reg, err := loadRegistry(ctx)
	if err != nil {
		return err
	}
	src := reg.Selected()
	if applySource != "" {
		if src, err = reg.Resolve(applySource); err != nil {
			return err
		}
	}

	patchText, err := readPatch(patchPath)
	if err != nil {
		return err
	}

	// Validate before touching the network so precondition failures are
	// instant and side-effect free.
	if err := resolve.ValidateApply(src, patchText); err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would apply patch to %s (%s)", src.DisplayName, src.RootPath)
		return nil
	}

	client, err := getClient(ctx, s)
	if err != nil {
		return err
	}

	res, err := resolve.Apply(ctx, client, src, patchText)
	if err != nil {
		if res != nil && len(res.AppliedFiles) > 0 {
			ui.Warning("Applied %d file(s) before failing:", len(res.AppliedFiles))
			for _, f := range res.AppliedFiles {
				ui.Info("  %s", f)
			}
		}
		return err
	}

	ui.Success("%s", res.Message)
	for _, f := range res.AppliedFiles {
		ui.Info("  %s", f)
	}
	return nil
}
